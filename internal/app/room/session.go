/*
Package room contains the core synchronization logic for a shared room session.

This file defines the Session struct, which owns exactly one Store and one live
channel per room view. It races the history fetch against the live event stream,
serializes all mutations through the store, guards against completions that resolve
after teardown, and throttles outgoing sends.
*/
package room

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"splitroom/internal/app/identity"
	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/logx"
	"splitroom/internal/pkg/randx"
)

const (
	// SendRate is the sustained number of outgoing messages allowed per second.
	SendRate = 1

	// SendBurst is the token bucket size for outgoing messages.
	SendBurst = 5

	// feedBuffer is the capacity of the appended-message feed.
	feedBuffer = 64

	// noticeBuffer is the capacity of the presence notice queue.
	noticeBuffer = 16
)

// HistoryLoader fetches the room metadata and ordered message history once per room
// entry.
type HistoryLoader interface {
	Load(ctx context.Context, roomID string) (*Info, []Message, error)
}

// LiveChannel is one established live connection to a room. The channel is a
// transport only: it delivers events in arrival order and performs no deduplication.
type LiveChannel interface {
	// Events returns the inbound event stream. The channel closes it on transport
	// failure or after Close.
	Events() <-chan Event

	// SendMessage queues an outgoing text message command.
	SendMessage(msg Message) error

	// SendProof queues an outgoing proof message command.
	SendProof(msg Message) error

	// Err returns the terminal transport error after the event stream closed, or
	// nil for a deliberate teardown.
	Err() error

	// Close tears the connection down. It must be called when the room view ends so
	// the session stops receiving events for a room the user has left.
	Close()
}

// Dialer opens a live channel to a room.
type Dialer interface {
	Dial(ctx context.Context, roomID string) (LiveChannel, error)
}

// ProofUploader sends a proof file to the upload endpoint and returns the stored
// attachment descriptor.
type ProofUploader interface {
	// Validate checks the file name and size before any bytes are sent.
	Validate(filename string, size int64) error

	Upload(ctx context.Context, roomID, filename string, r io.Reader, size int64) (Proof, error)
}

// SessionConfig carries the collaborators and identity for one room session.
type SessionConfig struct {
	RoomID   string
	Identity identity.Identity
	Loader   HistoryLoader
	Dialer   Dialer
	Uploader ProofUploader
}

// Session drives one room view: it populates the store from history, merges live
// events as they arrive, and writes outgoing user actions through the store before
// handing them to the channel.
type Session struct {
	roomID string
	id     identity.Identity

	store    *Store
	loader   HistoryLoader
	dialer   Dialer
	uploader ProofUploader

	// limiter throttles outgoing sends (token bucket).
	limiter *rate.Limiter

	// info holds the room metadata snapshot once history has loaded.
	info *Info

	// channel is the live connection, set once Run has dialed.
	channel LiveChannel

	// closed flips on Close and never resets; in-flight completions observed after
	// it is set are discarded.
	closed bool

	// ready is closed once the history snapshot has been applied.
	ready     chan struct{}
	readyOnce sync.Once

	// feed delivers newly appended remote messages to the presentation layer.
	feed chan Message

	// notices delivers one-shot presence notifications to the presentation layer.
	notices chan Notice

	// mu protects info, channel, and closed.
	mu sync.Mutex

	// structured logger with session context.
	logger zerolog.Logger
}

// NewSession constructs a Session. It validates the room code shape and that the
// identity carries a display name before any network activity happens.
func NewSession(cfg SessionConfig) (*Session, error) {
	if !randx.IsValidRoomCode(cfg.RoomID) {
		return nil, errs.NewError(errs.ErrRoomCodeInvalid)
	}

	if cfg.Identity.DisplayName == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	sessionLogger := logx.Logger().With().
		Str("room_id", cfg.RoomID).
		Str("display_name", cfg.Identity.DisplayName).
		Logger()

	return &Session{
		roomID:   cfg.RoomID,
		id:       cfg.Identity,
		store:    NewStore(cfg.Identity.DisplayName),
		loader:   cfg.Loader,
		dialer:   cfg.Dialer,
		uploader: cfg.Uploader,
		limiter:  rate.NewLimiter(rate.Limit(SendRate), SendBurst),
		ready:    make(chan struct{}),
		feed:     make(chan Message, feedBuffer),
		notices:  make(chan Notice, noticeBuffer),
		logger:   sessionLogger,
	}, nil
}

// Run enters the room and blocks until the session ends. The history fetch and the
// live channel race; whichever completes first is applied first, which is safe
// because Initialize is one-shot and live events always append through the same
// dedup guard.
//
// Run returns nil after a deliberate Close, the history error when room entry must
// be aborted, and a transport error when the live connection drops.
func (s *Session) Run(ctx context.Context) error {
	type historyResult struct {
		roomID string
		info   *Info
		msgs   []Message
		err    error
	}

	historyCh := make(chan historyResult, 1)
	go func() {
		info, msgs, err := s.loader.Load(ctx, s.roomID)
		historyCh <- historyResult{roomID: s.roomID, info: info, msgs: msgs, err: err}
	}()

	channel, err := s.dialer.Dial(ctx, s.roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		channel.Close()
		return nil
	}
	s.channel = channel
	s.mu.Unlock()

	s.logger.Info().Msg("Live channel established. Entering session loop.")

	for {
		select {
		case res := <-historyCh:
			historyCh = nil

			if res.err != nil {
				s.logger.Error().Err(res.err).Msg("History load failed. Aborting room entry.")
				s.Close()
				return res.err
			}

			// Stale-room guard: a completion that resolves after teardown, or for a
			// different room id than this session owns, is discarded.
			if s.isClosed() || res.roomID != s.roomID {
				s.logger.Warn().
					Str("result_room_id", res.roomID).
					Msg("Discarding stale history response.")
				continue
			}

			s.store.Initialize(res.msgs)
			s.setInfo(res.info)
			s.readyOnce.Do(func() { close(s.ready) })

		case ev, ok := <-channel.Events():
			if !ok {
				if s.isClosed() {
					return nil
				}

				err := channel.Err()
				s.logger.Error().Err(err).Msg("Live channel disconnected.")
				return errs.NewError(errs.ErrChannelClosed)
			}

			outcome := s.store.ApplyInbound(ev)

			if outcome.Appended {
				select {
				case s.feed <- outcome.Message:
				default:
					s.logger.Warn().Str("message_id", outcome.Message.ID).Msg("Feed full, dropping render update.")
				}
			}

			if outcome.Notice != nil {
				select {
				case s.notices <- *outcome.Notice:
				default:
					s.logger.Warn().Str("user", outcome.Notice.User).Msg("Notice queue full, dropping notice.")
				}
			}

		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		}
	}
}

// SendText builds an optimistic local message from body, appends it to the log
// immediately, and queues it on the live channel. It returns the appended message.
//
// The transport does not report delivery failure back to the session: if the command
// is silently dropped in flight, the optimistic entry stays in the log unconfirmed.
// That gap is inherited from the service protocol and kept deliberately; only a
// locally detectable failure (full send queue) is surfaced, and even then the entry
// remains visible.
func (s *Session) SendText(body string) (Message, error) {
	// Rejected input must not consume throttle tokens.
	msg, err := NewTextMessage(s.id.DisplayName, s.roomID, body)
	if err != nil {
		return Message{}, err
	}

	if !s.limiter.Allow() {
		return Message{}, errs.NewError(errs.ErrRateLimitExceeded)
	}

	channel := s.liveChannel()
	if channel == nil {
		return Message{}, errs.NewError(errs.ErrChannelClosed)
	}

	s.store.AppendLocal(msg)

	if err := channel.SendMessage(msg); err != nil {
		s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Outgoing message not queued.")
		return msg, err
	}

	return msg, nil
}

// SendProof uploads the proof file and, only on success, appends a message built
// from the returned attachment descriptor and notifies the channel. On upload
// failure nothing is added to the log and the error is returned. An upload that
// resolves after teardown is discarded.
func (s *Session) SendProof(ctx context.Context, filename string, r io.Reader, size int64) (Message, error) {
	// Rejected input must not consume throttle tokens.
	if err := s.uploader.Validate(filename, size); err != nil {
		return Message{}, err
	}

	if !s.limiter.Allow() {
		return Message{}, errs.NewError(errs.ErrRateLimitExceeded)
	}

	if s.isClosed() {
		return Message{}, errs.NewError(errs.ErrChannelClosed)
	}

	proof, err := s.uploader.Upload(ctx, s.roomID, filename, r, size)
	if err != nil {
		return Message{}, err
	}

	channel := s.liveChannel()
	if s.isClosed() || channel == nil {
		s.logger.Warn().Str("proof_id", proof.ID).Msg("Discarding upload that completed after teardown.")
		return Message{}, errs.NewError(errs.ErrChannelClosed)
	}

	msg := Message{
		ID:         proof.ID,
		SenderName: s.id.DisplayName,
		ProofURL:   proof.FileURL,
		CreatedAt:  proof.CreatedAt,
		RoomID:     s.roomID,
	}

	s.store.AppendLocal(msg)

	if err := channel.SendProof(msg); err != nil {
		s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Outgoing proof not queued.")
		return msg, err
	}

	return msg, nil
}

// Close tears the session down: it marks the session closed and synchronously closes
// the live channel so no further events arrive for a room the user has left.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	channel := s.channel
	s.mu.Unlock()

	if alreadyClosed {
		return
	}

	if channel != nil {
		channel.Close()
	}

	s.logger.Info().Msg("Session closed.")
}

// Ready is closed once the history snapshot has been applied to the store.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Feed delivers newly appended remote messages for rendering. Locally originated
// messages are not echoed here; SendText and SendProof return them directly.
func (s *Session) Feed() <-chan Message {
	return s.feed
}

// Notices delivers one-shot presence notifications for rendering.
func (s *Session) Notices() <-chan Notice {
	return s.notices
}

// Store exposes the reconciliation store for reading the current log and presence.
func (s *Session) Store() *Store {
	return s.store
}

// Info returns the room metadata snapshot, or nil before history has loaded.
func (s *Session) Info() *Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.info
}

// RoomID returns the room this session is bound to.
func (s *Session) RoomID() string {
	return s.roomID
}

func (s *Session) setInfo(info *Info) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info = info
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *Session) liveChannel() LiveChannel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channel
}
