/*
Package history fetches room metadata and the message history once per room entry.

This file defines the normalization from heterogeneous history records into the
canonical Message shape. The history source is not schema-stable: the attachment URL
may appear under several field names and timestamps arrive in two formats, so
normalization is a permanent contract of the loader, not a workaround.
*/
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"splitroom/internal/app/room"
)

// record is the raw shape of one history entry as delivered by the service. It
// carries every known variant of the attachment URL field.
type record struct {
	ID         string          `json:"id"`
	SenderName string          `json:"senderName"`
	Text       string          `json:"text"`
	ProofURL   string          `json:"proofUrl"`
	ProofSnake string          `json:"proof_url"`
	FileURL    string          `json:"fileUrl"`
	ImageURL   string          `json:"imageUrl"`
	CreatedAt  json.RawMessage `json:"createdAt"`
	RoomID     string          `json:"roomId"`
}

// normalize converts one raw record into the canonical Message shape.
//
// The attachment URL is resolved with a fixed fallback order:
// proofUrl, proof_url, fileUrl, imageUrl. The first non-empty field wins.
func (r record) normalize() (room.Message, error) {
	if r.ID == "" {
		return room.Message{}, fmt.Errorf("history record has no id")
	}

	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return room.Message{}, fmt.Errorf("history record %s: %w", r.ID, err)
	}

	proofURL := r.ProofURL
	for _, candidate := range []string{r.ProofSnake, r.FileURL, r.ImageURL} {
		if proofURL != "" {
			break
		}
		proofURL = candidate
	}

	return room.Message{
		ID:         r.ID,
		SenderName: r.SenderName,
		Text:       r.Text,
		ProofURL:   proofURL,
		CreatedAt:  createdAt,
		RoomID:     r.RoomID,
	}, nil
}

// parseTimestamp accepts the two timestamp encodings observed in history payloads:
// Unix milliseconds (number) and RFC3339 (string).
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("missing createdAt")
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return time.Time{}, fmt.Errorf("unsupported createdAt encoding %s", string(raw))
	}

	parsed, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse createdAt %q: %w", text, err)
	}

	return parsed, nil
}
