package room

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"splitroom/internal/app/identity"
	"splitroom/internal/pkg/errs"
)

const testRoomID = "AB12cd"

var testIdentity = identity.Identity{DisplayName: "alice", Token: "test-token"}

type fakeLoader struct {
	info  *Info
	msgs  []Message
	err   error
	delay time.Duration
}

func (f *fakeLoader) Load(ctx context.Context, roomID string) (*Info, []Message, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.info, f.msgs, nil
}

type fakeChannel struct {
	events chan Event

	mu     sync.Mutex
	sent   []Message
	proofs []Message

	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan Event, 16)}
}

func (f *fakeChannel) Events() <-chan Event { return f.events }

func (f *fakeChannel) SendMessage(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) SendProof(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proofs = append(f.proofs, msg)
	return nil
}

func (f *fakeChannel) Err() error { return nil }

func (f *fakeChannel) Close() {
	f.closeOnce.Do(func() { close(f.events) })
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChannel) proofCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.proofs)
}

type fakeDialer struct {
	channel *fakeChannel
	err     error
}

func (f *fakeDialer) Dial(ctx context.Context, roomID string) (LiveChannel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channel, nil
}

type fakeUploader struct {
	proof       Proof
	err         error
	validateErr error
}

func (f *fakeUploader) Validate(filename string, size int64) error {
	return f.validateErr
}

func (f *fakeUploader) Upload(ctx context.Context, roomID, filename string, r io.Reader, size int64) (Proof, error) {
	if f.err != nil {
		return Proof{}, f.err
	}
	return f.proof, nil
}

// startSession builds a session over the fakes and runs it in the background.
func startSession(t *testing.T, loader HistoryLoader, dialer Dialer, uploader ProofUploader) (*Session, chan error) {
	t.Helper()

	sess, err := NewSession(SessionConfig{
		RoomID:   testRoomID,
		Identity: testIdentity,
		Loader:   loader,
		Dialer:   dialer,
		Uploader: uploader,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(context.Background()) }()

	return sess, runErr
}

func waitReady(t *testing.T, sess *Session) {
	t.Helper()

	select {
	case <-sess.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not become ready")
	}
}

// waitLen polls the store until it reaches length n or the deadline passes.
func waitLen(t *testing.T, store *Store, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("store length %d, expected %d", store.Len(), n)
}

func waitRun(t *testing.T, runErr chan error) error {
	t.Helper()

	select {
	case err := <-runErr:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
		return nil
	}
}

func TestSessionMergesHistoryAndLiveEvents(t *testing.T) {
	base := time.Now()
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{info: &Info{Title: "Dinner"}, msgs: []Message{textMessage("m1", "bob", "hi", base)}},
		&fakeDialer{channel: channel},
		&fakeUploader{},
	)
	waitReady(t, sess)

	channel.events <- Event{Kind: EventMessage, Message: textMessage("m2", "carol", "yo", base)}
	waitLen(t, sess.Store(), 2)

	select {
	case msg := <-sess.Feed():
		if msg.ID != "m2" {
			t.Fatalf("feed delivered %s, expected m2", msg.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live message never reached the feed")
	}

	if info := sess.Info(); info == nil || info.Title != "Dinner" {
		t.Fatalf("unexpected room info: %+v", info)
	}

	sess.Close()
	if err := waitRun(t, runErr); err != nil {
		t.Fatalf("Run returned %v after deliberate close", err)
	}
}

func TestSessionOptimisticSendAndEcho(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{msgs: []Message{textMessage("m1", "bob", "hi", time.Now())}},
		&fakeDialer{channel: channel},
		&fakeUploader{},
	)
	waitReady(t, sess)

	sent, err := sess.SendText("yo")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if sess.Store().Len() != 2 {
		t.Fatalf("optimistic insert missing: log length %d", sess.Store().Len())
	}
	if channel.sentCount() != 1 {
		t.Fatalf("expected 1 queued command, got %d", channel.sentCount())
	}

	// The broadcast echo of our own message must not create a third entry.
	channel.events <- Event{Kind: EventMessage, Message: sent}
	channel.events <- Event{Kind: EventMessage, Message: textMessage("m3", "carol", "marker", time.Now())}
	waitLen(t, sess.Store(), 3)

	select {
	case msg := <-sess.Feed():
		if msg.ID == sent.ID {
			t.Fatal("echo of the optimistic insert leaked into the feed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("marker message never reached the feed")
	}

	sess.Close()
	_ = waitRun(t, runErr)
}

func TestSessionUploadFailureLeavesLogUntouched(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{msgs: []Message{textMessage("m1", "bob", "hi", time.Now())}},
		&fakeDialer{channel: channel},
		&fakeUploader{err: errs.NewError(errs.ErrUploadFailed)},
	)
	waitReady(t, sess)

	before := sess.Store().Len()

	_, err := sess.SendProof(context.Background(), "receipt.png", strings.NewReader("img"), 3)
	if !errs.IsUpload(err) {
		t.Fatalf("expected an upload error, got %v", err)
	}

	if sess.Store().Len() != before {
		t.Fatalf("log length changed from %d to %d on failed upload", before, sess.Store().Len())
	}
	if channel.proofCount() != 0 {
		t.Fatal("failed upload must not notify the channel")
	}

	sess.Close()
	_ = waitRun(t, runErr)
}

func TestSessionSendProofSuccess(t *testing.T) {
	channel := newFakeChannel()
	uploaded := Proof{ID: "p1", FileURL: "https://files/p1.png", CreatedAt: time.Now()}

	sess, runErr := startSession(t,
		&fakeLoader{},
		&fakeDialer{channel: channel},
		&fakeUploader{proof: uploaded},
	)
	waitReady(t, sess)

	msg, err := sess.SendProof(context.Background(), "receipt.png", strings.NewReader("img"), 3)
	if err != nil {
		t.Fatalf("SendProof: %v", err)
	}

	if msg.ID != "p1" || msg.ProofURL != "https://files/p1.png" || msg.SenderName != "alice" {
		t.Fatalf("unexpected proof message: %+v", msg)
	}
	if sess.Store().Len() != 1 {
		t.Fatalf("expected optimistic proof entry, log length %d", sess.Store().Len())
	}
	if channel.proofCount() != 1 {
		t.Fatalf("expected 1 proof command, got %d", channel.proofCount())
	}

	sess.Close()
	_ = waitRun(t, runErr)
}

func TestSessionHistoryFailureAbortsEntry(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{err: errs.NewError(errs.ErrTransport)},
		&fakeDialer{channel: channel},
		&fakeUploader{},
	)

	err := waitRun(t, runErr)
	if !errs.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}

	select {
	case <-sess.Ready():
		t.Fatal("session must not become ready when history load fails")
	default:
	}
}

func TestSessionDiscardsHistoryAfterClose(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{msgs: []Message{textMessage("m1", "bob", "hi", time.Now())}, delay: 200 * time.Millisecond},
		&fakeDialer{channel: channel},
		&fakeUploader{},
	)

	sess.Close()
	if err := waitRun(t, runErr); err != nil {
		t.Fatalf("Run returned %v after deliberate close", err)
	}

	// Let the in-flight load resolve, then confirm it was discarded.
	time.Sleep(300 * time.Millisecond)
	if sess.Store().Len() != 0 {
		t.Fatalf("stale history applied after teardown: log length %d", sess.Store().Len())
	}
}

func TestSessionThrottlesSends(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{},
		&fakeDialer{channel: channel},
		&fakeUploader{},
	)
	waitReady(t, sess)

	var throttled bool
	for i := 0; i < SendBurst+1; i++ {
		if _, err := sess.SendText("spam"); err != nil {
			var customErr *errs.CustomError
			if !errors.As(err, &customErr) || customErr.Code != errs.ErrRateLimitExceeded {
				t.Fatalf("unexpected error: %v", err)
			}
			throttled = true
		}
	}

	if !throttled {
		t.Fatal("burst above the token bucket size must be throttled")
	}

	sess.Close()
	_ = waitRun(t, runErr)
}

func TestSessionRejectedInputDoesNotConsumeTokens(t *testing.T) {
	channel := newFakeChannel()

	sess, runErr := startSession(t,
		&fakeLoader{},
		&fakeDialer{channel: channel},
		&fakeUploader{validateErr: errs.NewError(errs.ErrFileTypeInvalid)},
	)
	waitReady(t, sess)

	// Burn through more rejected inputs than the bucket holds.
	for i := 0; i < 2*SendBurst; i++ {
		if _, err := sess.SendText(""); err == nil {
			t.Fatal("empty body must be rejected")
		}
		if _, err := sess.SendProof(context.Background(), "notes.txt", strings.NewReader("x"), 1); err == nil {
			t.Fatal("invalid proof file must be rejected")
		}
	}

	// A valid send must still find its tokens intact.
	if _, err := sess.SendText("still here"); err != nil {
		t.Fatalf("valid send throttled after rejected inputs: %v", err)
	}

	sess.Close()
	_ = waitRun(t, runErr)
}

func TestSessionRejectsInvalidRoomCode(t *testing.T) {
	_, err := NewSession(SessionConfig{
		RoomID:   "not a room code",
		Identity: testIdentity,
	})

	var customErr *errs.CustomError
	if !errors.As(err, &customErr) || customErr.Code != errs.ErrRoomCodeInvalid {
		t.Fatalf("expected room code validation error, got %v", err)
	}
}
