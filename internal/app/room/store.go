/*
Package room contains the core synchronization logic for a shared room session.

This file defines the Store struct, the reconciliation core that merges the
REST-fetched message history and the live event stream into a single deduplicated,
ordered log, and tracks room presence.
*/
package room

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"splitroom/internal/pkg/logx"
)

// NoticeKind identifies one kind of one-shot presence notification.
type NoticeKind int

const (
	// NoticeJoined announces that a participant entered the room.
	NoticeJoined NoticeKind = iota

	// NoticeLeft announces that a participant left the room.
	NoticeLeft
)

// Notice is a one-shot, user-visible presence notification produced while applying
// a join/leave event. Notices for the local participant are suppressed.
type Notice struct {
	Kind NoticeKind
	User string
}

// Outcome describes what applying one inbound event changed.
type Outcome struct {
	// Appended is true when a message event added a new entry to the log.
	Appended bool

	// Message is the appended entry when Appended is true.
	Message Message

	// Notice is non-nil when a join/leave event produced a user-visible notice.
	Notice *Notice
}

// Store is the reconciliation core for one room session. It owns the visible message
// log and the presence set; nothing else writes to either.
//
// Deduplication uses the message ID as the only key. Optimistic local entries carry a
// client-generated UUID the service echoes back unchanged, so the broadcast echo of
// one's own message is dropped by the same ID check that drops duplicate deliveries.
// Sender-name self-filtering is deliberately not used: it would silently suppress
// legitimate messages from a participant who happens to share the local display name.
type Store struct {
	// selfName is the local participant's display name, used only to exclude the
	// local user from the presence set and to suppress self-notices.
	selfName string

	// initialized flips on the first Initialize call and stays set; it guards the
	// log against a late duplicate history response clobbering live-applied entries.
	initialized bool

	// log is the visible message log in canonical order.
	log []Message

	// seen indexes the ids present in log.
	seen map[string]struct{}

	// present is the presence set, excluding the local user.
	present map[string]struct{}

	// mu protects all mutable state. The owning session is the single logical
	// writer; the mutex makes the history/live-event completion race safe.
	mu sync.RWMutex

	// structured logger with store context.
	logger zerolog.Logger
}

// NewStore constructs a Store for a session whose local participant uses selfName.
func NewStore(selfName string) *Store {
	storeLogger := logx.Logger().With().
		Str("component", "Store").
		Logger()

	return &Store{
		selfName: selfName,
		seen:     make(map[string]struct{}),
		present:  make(map[string]struct{}),
		logger:   storeLogger,
	}
}

// Initialize establishes the log from the fetched history, sorted by CreatedAt
// ascending (stable) and deduplicated by ID. Live events may already have been
// applied by the time the history response resolves; those entries are preserved
// behind the sorted history (merge, not overwrite), with the ID guard dropping any
// that the history also carries. It is one-shot per session: the first call wins and
// every later call is a no-op, so a slow duplicate history response cannot disturb
// the established log. It reports whether the history was applied.
func (s *Store) Initialize(history []Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		s.logger.Warn().
			Int("discarded_len", len(history)).
			Msg("Ignoring repeat Initialize; log already established.")
		return false
	}

	sorted := make([]Message, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	live := s.log
	s.log = make([]Message, 0, len(sorted)+len(live))
	s.seen = make(map[string]struct{}, len(sorted)+len(live))

	for _, msg := range sorted {
		if _, dup := s.seen[msg.ID]; dup {
			s.logger.Warn().
				Str("message_id", msg.ID).
				Msg("Duplicate id in history payload. Keeping first occurrence.")
			continue
		}
		s.seen[msg.ID] = struct{}{}
		s.log = append(s.log, msg)
	}

	for _, msg := range live {
		if _, dup := s.seen[msg.ID]; dup {
			continue
		}
		s.seen[msg.ID] = struct{}{}
		s.log = append(s.log, msg)
	}

	s.initialized = true

	s.logger.Info().
		Int("history_len", len(sorted)).
		Int("live_len", len(live)).
		Msg("Message log initialized from history.")

	return true
}

// ApplyInbound dispatches one live-channel event into the store.
//
// Message events append at the tail of the log in arrival order, regardless of their
// CreatedAt relative to existing entries; the log is never re-sorted after the
// initial load. Events whose ID is already present (optimistic insert or duplicate
// delivery) are dropped. Presence events mutate the presence set and may yield a
// one-shot Notice.
func (s *Store) ApplyInbound(ev Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventMessage, EventProof:
		if s.appendLocked(ev.Message) {
			return Outcome{Appended: true, Message: ev.Message}
		}

	case EventUserList:
		s.present = make(map[string]struct{}, len(ev.Users))
		for _, name := range ev.Users {
			if name == s.selfName {
				continue
			}
			s.present[name] = struct{}{}
		}

	case EventUserJoined:
		if ev.User != s.selfName {
			s.present[ev.User] = struct{}{}
			return Outcome{Notice: &Notice{Kind: NoticeJoined, User: ev.User}}
		}

	case EventUserLeft:
		delete(s.present, ev.User)
		if ev.User != s.selfName {
			return Outcome{Notice: &Notice{Kind: NoticeLeft, User: ev.User}}
		}

	default:
		s.logger.Warn().
			Int("event_kind", int(ev.Kind)).
			Msg("Dropping event of unknown kind.")
	}

	return Outcome{}
}

// AppendLocal performs the optimistic insert for a locally originated message,
// making it visible before any network confirmation. The same ID guard applies, so
// calling it twice with the same message is harmless. It reports whether the message
// was appended.
func (s *Store) AppendLocal(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(msg)
}

// appendLocked appends msg at the tail unless its id is already present.
// Callers must hold mu.
func (s *Store) appendLocked(msg Message) bool {
	if _, dup := s.seen[msg.ID]; dup {
		return false
	}

	s.seen[msg.ID] = struct{}{}
	s.log = append(s.log, msg)

	return true
}

// Messages returns a copy of the current visible log.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.log))
	copy(out, s.log)

	return out
}

// Len returns the current length of the visible log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.log)
}

// Presence returns the current presence set as a sorted name list, excluding the
// local participant.
func (s *Store) Presence() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.present))
	for name := range s.present {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
