package room

import (
	"fmt"
	"testing"
	"time"
)

func textMessage(id, sender, text string, createdAt time.Time) Message {
	return Message{
		ID:         id,
		SenderName: sender,
		Text:       text,
		CreatedAt:  createdAt,
	}
}

func TestInitializeSortsByTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Arrival order T3, T1, T2; the log must come out T1, T2, T3.
	store := NewStore("alice")
	store.Initialize([]Message{
		textMessage("m3", "bob", "third", base.Add(3*time.Second)),
		textMessage("m1", "bob", "first", base.Add(1*time.Second)),
		textMessage("m2", "bob", "second", base.Add(2*time.Second)),
	})

	log := store.Messages()
	if len(log) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(log))
	}
	for i, wantID := range []string{"m1", "m2", "m3"} {
		if log[i].ID != wantID {
			t.Fatalf("position %d: expected %s, got %s", i, wantID, log[i].ID)
		}
	}
}

func TestInitializeIsOneShot(t *testing.T) {
	base := time.Now()

	store := NewStore("alice")
	store.Initialize([]Message{textMessage("m1", "bob", "hi", base)})

	// A live message arrives after the first load.
	store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m2", "carol", "yo", base)})

	// A late duplicate history response must not clobber the live entry.
	if applied := store.Initialize([]Message{textMessage("m1", "bob", "hi", base)}); applied {
		t.Fatal("second Initialize must be a no-op")
	}

	if store.Len() != 2 {
		t.Fatalf("expected log length 2 after late history response, got %d", store.Len())
	}
}

func TestInitializePreservesEarlierLiveEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The live channel wins the room-entry race: messages arrive before the
	// history response resolves.
	store := NewStore("alice")
	store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m9", "carol", "early live", base.Add(time.Minute))})
	store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m2", "bob", "also live", base.Add(2*time.Second))})

	// History carries m1 and m2; m2 was already delivered live.
	if applied := store.Initialize([]Message{
		textMessage("m2", "bob", "also live", base.Add(2*time.Second)),
		textMessage("m1", "bob", "first", base.Add(1*time.Second)),
	}); !applied {
		t.Fatal("first Initialize must be applied")
	}

	log := store.Messages()
	if len(log) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(log))
	}
	// Sorted history first, then the live entry history did not carry.
	for i, wantID := range []string{"m1", "m2", "m9"} {
		if log[i].ID != wantID {
			t.Fatalf("position %d: expected %s, got %s", i, wantID, log[i].ID)
		}
	}
}

func TestDedupInvariantAcrossSequences(t *testing.T) {
	base := time.Now()

	store := NewStore("alice")
	store.Initialize([]Message{
		textMessage("m1", "bob", "hi", base),
		textMessage("m1", "bob", "hi again", base.Add(time.Second)),
	})

	for i := 0; i < 3; i++ {
		store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m1", "bob", "hi", base)})
		store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m2", "carol", "yo", base)})
	}
	store.AppendLocal(textMessage("m2", "carol", "yo", base))

	seen := make(map[string]int)
	for _, msg := range store.Messages() {
		seen[msg.ID]++
		if seen[msg.ID] > 1 {
			t.Fatalf("id %s appears %d times in the log", msg.ID, seen[msg.ID])
		}
	}

	if store.Len() != 2 {
		t.Fatalf("expected 2 unique entries, got %d", store.Len())
	}
}

func TestSelfEchoSuppressed(t *testing.T) {
	base := time.Now()

	store := NewStore("alice")
	store.Initialize([]Message{textMessage("m1", "bob", "hi", base)})

	// Local optimistic insert, then the broadcast echo with the same id.
	local := textMessage("m2", "alice", "yo", base.Add(time.Second))
	if !store.AppendLocal(local) {
		t.Fatal("optimistic insert must succeed")
	}

	outcome := store.ApplyInbound(Event{Kind: EventMessage, Message: local})
	if outcome.Appended {
		t.Fatal("echo of an optimistic insert must be discarded")
	}

	if store.Len() != 2 {
		t.Fatalf("expected final log length 2, got %d", store.Len())
	}
}

func TestSameNamedUserIsNotSuppressed(t *testing.T) {
	// Another participant who happens to share the local display name must still
	// get through: dedup is by id only.
	store := NewStore("alice")
	store.Initialize(nil)

	outcome := store.ApplyInbound(Event{
		Kind:    EventMessage,
		Message: textMessage("m9", "alice", "it's the other alice", time.Now()),
	})

	if !outcome.Appended {
		t.Fatal("message from a same-named user must be appended")
	}
}

func TestLiveEventsAppendAtTail(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewStore("alice")
	store.Initialize([]Message{
		textMessage("m1", "bob", "old", base.Add(10*time.Second)),
		textMessage("m2", "bob", "older", base.Add(20*time.Second)),
	})

	// A live event with an earlier timestamp still lands at the tail.
	store.ApplyInbound(Event{Kind: EventMessage, Message: textMessage("m3", "carol", "late delivery", base)})

	log := store.Messages()
	if len(log) != 3 {
		t.Fatalf("expected length 3, got %d", len(log))
	}
	if log[2].ID != "m3" {
		t.Fatalf("live event must append at the tail, found %s there", log[2].ID)
	}
}

func TestProofEventsDedupLikeMessages(t *testing.T) {
	store := NewStore("alice")
	store.Initialize(nil)

	proof := Message{ID: "p1", SenderName: "bob", ProofURL: "https://files/p1.png", CreatedAt: time.Now()}

	if outcome := store.ApplyInbound(Event{Kind: EventProof, Message: proof}); !outcome.Appended {
		t.Fatal("first proof delivery must append")
	}
	if outcome := store.ApplyInbound(Event{Kind: EventProof, Message: proof}); outcome.Appended {
		t.Fatal("duplicate proof delivery must be discarded")
	}
}

func TestPresenceSymmetry(t *testing.T) {
	store := NewStore("alice")

	before := fmt.Sprintf("%v", store.Presence())

	store.ApplyInbound(Event{Kind: EventUserJoined, User: "bob"})
	store.ApplyInbound(Event{Kind: EventUserLeft, User: "bob"})

	after := fmt.Sprintf("%v", store.Presence())
	if before != after {
		t.Fatalf("presence changed: before=%s after=%s", before, after)
	}
}

func TestPresenceSnapshotExcludesSelf(t *testing.T) {
	store := NewStore("alice")

	store.ApplyInbound(Event{Kind: EventUserList, Users: []string{"alice", "bob", "carol"}})

	names := store.Presence()
	if len(names) != 2 || names[0] != "bob" || names[1] != "carol" {
		t.Fatalf("expected [bob carol], got %v", names)
	}
}

func TestPresenceNotices(t *testing.T) {
	store := NewStore("alice")

	outcome := store.ApplyInbound(Event{Kind: EventUserJoined, User: "bob"})
	if outcome.Notice == nil || outcome.Notice.Kind != NoticeJoined || outcome.Notice.User != "bob" {
		t.Fatalf("expected joined notice for bob, got %+v", outcome.Notice)
	}

	// No self-notification.
	outcome = store.ApplyInbound(Event{Kind: EventUserJoined, User: "alice"})
	if outcome.Notice != nil {
		t.Fatalf("join notice for the local user must be suppressed, got %+v", outcome.Notice)
	}

	outcome = store.ApplyInbound(Event{Kind: EventUserLeft, User: "bob"})
	if outcome.Notice == nil || outcome.Notice.Kind != NoticeLeft {
		t.Fatalf("expected left notice for bob, got %+v", outcome.Notice)
	}
}

func TestHistoryPlusOptimisticPlusEchoScenario(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := NewStore("alice")
	store.Initialize([]Message{textMessage("m1", "bob", "hi", t0)})

	local := textMessage("m2", "alice", "yo", t0.Add(time.Minute))
	store.AppendLocal(local)

	store.ApplyInbound(Event{Kind: EventMessage, Message: local})

	if store.Len() != 2 {
		t.Fatalf("expected final log length 2, not %d", store.Len())
	}
}
