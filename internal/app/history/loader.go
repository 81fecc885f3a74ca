/*
Package history fetches room metadata and the message history once per room entry.

This file defines the Loader struct, the REST client for the room service. Responses
use the service's JSON envelope (code, message, data); HTTP statuses and envelope
codes are mapped onto the client's error taxonomy so callers can distinguish
credential problems, missing rooms, and retryable transport failures.
*/
package history

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"splitroom/internal/app/identity"
	"splitroom/internal/app/room"
	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/logx"
)

// requestTimeout bounds each REST call independently of the caller's context.
const requestTimeout = 10 * time.Second

// jsonEnvelope is the standardized response body of the room service: a business
// code (0 for success), a message, and the payload.
type jsonEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Loader is the REST client that performs the one-shot history fetch for a room.
type Loader struct {
	baseURL string
	id      identity.Identity
	client  *http.Client
	logger  zerolog.Logger
}

// NewLoader constructs a Loader against the service's REST base URL, authenticating
// every call with the identity's bearer credential.
func NewLoader(baseURL string, id identity.Identity) *Loader {
	loaderLogger := logx.Logger().With().
		Str("component", "HistoryLoader").
		Logger()

	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		id:      id,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  loaderLogger,
	}
}

// Load fetches the room metadata and the full message history, normalized into the
// canonical Message shape and sorted by CreatedAt ascending (stable).
//
// Errors follow the taxonomy: ErrUnauthorized for a rejected credential (caller
// redirects to re-authentication), ErrRoomNotFound when the room does not exist for
// this credential, ErrTransport for any other network or parse failure (caller may
// retry room entry).
func (l *Loader) Load(ctx context.Context, roomID string) (*room.Info, []room.Message, error) {
	info := &room.Info{}
	if err := l.getJSON(ctx, "/rooms/"+roomID, info); err != nil {
		return nil, nil, err
	}

	var payload struct {
		Messages []record `json:"messages"`
	}
	if err := l.getJSON(ctx, "/messages/"+roomID, &payload); err != nil {
		return nil, nil, err
	}

	messages := make([]room.Message, 0, len(payload.Messages))
	for _, rec := range payload.Messages {
		msg, err := rec.normalize()
		if err != nil {
			// A record that cannot be normalized is dropped rather than failing the
			// whole load; the rest of the history is still usable.
			l.logger.Warn().Err(err).Msg("Dropping unnormalizable history record.")
			continue
		}
		messages = append(messages, msg)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	l.logger.Info().
		Str("room_id", roomID).
		Int("history_len", len(messages)).
		Msg("Room history loaded.")

	return info, messages, nil
}

// getJSON performs one authenticated GET, unwraps the service envelope, and decodes
// the payload into dst.
func (l *Loader) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return errs.NewError(errs.ErrTransport)
	}
	req.Header.Set("Authorization", "Bearer "+l.id.Token)
	req.Header.Set("Accept", "application/json")

	res, err := l.client.Do(req)
	if err != nil {
		l.logger.Error().Err(err).Str("path", path).Msg("Request failed.")
		return errs.NewError(errs.ErrTransport)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return errs.NewError(errs.ErrUnauthorized)
	case res.StatusCode == http.StatusNotFound:
		return errs.NewError(errs.ErrRoomNotFound)
	case res.StatusCode != http.StatusOK:
		l.logger.Warn().Int("status", res.StatusCode).Str("path", path).Msg("Unexpected status.")
		return errs.NewError(errs.ErrTransport)
	}

	var env jsonEnvelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		l.logger.Error().Err(err).Str("path", path).Msg("Malformed response body.")
		return errs.NewError(errs.ErrTransport)
	}

	if env.Code != 0 {
		l.logger.Warn().Int("code", env.Code).Str("path", path).Msg("Service reported error code.")
		return errs.NewError(errs.ErrTransport)
	}

	if err := json.Unmarshal(env.Data, dst); err != nil {
		l.logger.Error().Err(err).Str("path", path).Msg("Malformed response payload.")
		return errs.NewError(errs.ErrTransport)
	}

	return nil
}
