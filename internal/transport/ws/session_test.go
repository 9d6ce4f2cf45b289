package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/repository/memory"
	"github.com/noobsquad/chatcore/internal/service"
	"github.com/noobsquad/chatcore/pkg/validator"
	"nhooyr.io/websocket"
)

// fakeChannel feeds frames from in and records what the session pushes.
type fakeChannel struct {
	*fakePeer
	in chan []byte
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{fakePeer: newFakePeer(), in: make(chan []byte, 16)}
}

func (c *fakeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, websocket.CloseError{Code: websocket.StatusNormalClosure}
		}
		return data, nil
	case <-c.closed:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type testsender struct {
	T    *testing.T
	send func(t *testing.T, senderID int64, in service.SendInput) (*domain.Message, error)
}

func (s *testsender) Send(ctx context.Context, senderID int64, in service.SendInput) (*domain.Message, error) {
	return s.send(s.T, senderID, in)
}

type harness struct {
	registry *Registry
	chat     *service.ChatService
	msgs     *memory.MessageRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	msgs := memory.NewMessageRepo(nil)
	users := memory.NewUserRepo(
		domain.Profile{ID: 1, Username: "one"},
		domain.Profile{ID: 2, Username: "two"},
	)
	return &harness{
		registry: NewRegistry(slogt.New(t)),
		chat:     service.NewChatService(msgs, users, slogt.New(t)),
		msgs:     msgs,
	}
}

func (h *harness) start(t *testing.T, userID int64, ch *fakeChannel, sender MessageSender, opts SessionOptions) (*Session, chan error) {
	t.Helper()
	if sender == nil {
		sender = h.chat
	}
	sess := NewSession(userID, ch, h.registry, sender, validator.New(), opts, slogt.New(t))
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()
	waitFor(t, func() bool { return sess.State() == StateOpen })
	return sess, done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestSession_DeliversToBothParticipants(t *testing.T) {
	h := newHarness(t)
	receiver := newFakePeer()
	h.registry.Register(2, receiver)

	ch := newFakeChannel()
	h.start(t, 1, ch, nil, SessionOptions{})

	ch.in <- []byte(`{"receiver_id":2,"content":"hi","message_type":"text"}`)

	waitFor(t, func() bool { return len(receiver.Frames()) == 1 })
	evt := receiver.Frames()[0]
	if evt["type"] != "message" || evt["sender_id"] != float64(1) || evt["receiver_id"] != float64(2) ||
		evt["content"] != "hi" || evt["is_read"] != false || evt["file_url"] != nil {
		t.Errorf("receiver got %v", evt)
	}
	if _, ok := evt["timestamp"].(string); !ok {
		t.Errorf("timestamp missing in %v", evt)
	}

	waitFor(t, func() bool { return len(ch.Frames()) == 1 })
	if echo := ch.Frames()[0]; echo["id"] != evt["id"] {
		t.Errorf("sender echo %v does not match %v", echo, evt)
	}

	if n, _ := h.msgs.UnreadCount(context.Background(), 1, 2); n != 1 {
		t.Fatalf("UnreadCount(1,2) = %d, want 1", n)
	}
	if _, err := h.chat.History(context.Background(), 2, 1); err != nil {
		t.Fatal(err)
	}
	if n, _ := h.msgs.UnreadCount(context.Background(), 1, 2); n != 0 {
		t.Errorf("UnreadCount(1,2) = %d after history, want 0", n)
	}
}

func TestSession_RejectsWithoutClosing(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantCode string
	}{
		{name: "MissingReceiver", frame: `{"content":"hi","message_type":"text"}`, wantCode: CodeValidation},
		{name: "SelfMessage", frame: `{"receiver_id":1,"content":"hi"}`, wantCode: CodeValidation},
		{name: "UnknownReceiver", frame: `{"receiver_id":77,"content":"hi"}`, wantCode: CodeValidation},
		{name: "KindMismatch", frame: `{"receiver_id":2,"content":"hi","message_type":"image"}`, wantCode: CodeValidation},
		{name: "UnknownKind", frame: `{"receiver_id":2,"content":"hi","message_type":"video"}`, wantCode: CodeValidation},
		{name: "WrongType", frame: `{"receiver_id":"two","content":"hi"}`, wantCode: CodeInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ch := newFakeChannel()
			sess, _ := h.start(t, 1, ch, nil, SessionOptions{})

			ch.in <- []byte(tt.frame)

			waitFor(t, func() bool { return len(ch.Frames()) == 1 })
			frame := ch.Frames()[0]
			if frame["type"] != EventTypeError || frame["code"] != tt.wantCode {
				t.Errorf("got frame %v, want error %s", frame, tt.wantCode)
			}
			if sess.State() != StateOpen {
				t.Errorf("State() = %s, want open", sess.State())
			}
			if stored, _ := h.msgs.ListInvolving(context.Background(), 1); len(stored) != 0 {
				t.Errorf("rejected frame was persisted: %v", stored)
			}
			if _, ok := h.registry.Lookup(1); !ok {
				t.Error("session should still be registered")
			}
		})
	}
}

func TestSession_PeerCloseReleases(t *testing.T) {
	h := newHarness(t)
	ch := newFakeChannel()
	sess, done := h.start(t, 1, ch, nil, SessionOptions{})

	if _, ok := h.registry.Lookup(1); !ok {
		t.Fatal("session not registered")
	}

	close(ch.in)
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() = %v, want nil on peer close", err)
	}
	if sess.State() != StateClosed {
		t.Errorf("State() = %s, want closed", sess.State())
	}
	if _, ok := h.registry.Lookup(1); ok {
		t.Error("Lookup(1) should be absent after close")
	}
	if !ch.isClosed() {
		t.Error("channel should be closed")
	}
}

func TestSession_MalformedJSONIsFatal(t *testing.T) {
	h := newHarness(t)
	ch := newFakeChannel()
	sess, done := h.start(t, 1, ch, nil, SessionOptions{})

	ch.in <- []byte(`{"receiver_id":2,`)

	if err := waitDone(t, done); err == nil {
		t.Error("Run() should fail on an unparseable frame")
	}
	if sess.State() != StateClosed {
		t.Errorf("State() = %s, want closed", sess.State())
	}
	if ch.CloseCode() != websocket.StatusUnsupportedData {
		t.Errorf("close code = %d, want %d", ch.CloseCode(), websocket.StatusUnsupportedData)
	}
	if _, ok := h.registry.Lookup(1); ok {
		t.Error("Lookup(1) should be absent")
	}
}

func TestSession_PersistFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	receiver := newFakePeer()
	h.registry.Register(2, receiver)

	sender := &testsender{T: t, send: func(t *testing.T, senderID int64, in service.SendInput) (*domain.Message, error) {
		return nil, errors.New("database is gone")
	}}
	ch := newFakeChannel()
	sess, done := h.start(t, 1, ch, sender, SessionOptions{})

	ch.in <- []byte(`{"receiver_id":2,"content":"hi"}`)

	if err := waitDone(t, done); err == nil {
		t.Error("Run() should fail when the message is not stored")
	}
	if sess.State() != StateClosed {
		t.Errorf("State() = %s, want closed", sess.State())
	}
	if ch.CloseCode() != websocket.StatusInternalError {
		t.Errorf("close code = %d, want %d", ch.CloseCode(), websocket.StatusInternalError)
	}
	if len(receiver.Frames()) != 0 || len(ch.Frames()) != 0 {
		t.Error("no confirmation may be sent for an unstored message")
	}
}

func TestSession_PanicStillReleases(t *testing.T) {
	h := newHarness(t)
	sender := &testsender{T: t, send: func(t *testing.T, senderID int64, in service.SendInput) (*domain.Message, error) {
		panic("boom")
	}}
	ch := newFakeChannel()
	sess, done := h.start(t, 1, ch, sender, SessionOptions{})

	ch.in <- []byte(`{"receiver_id":2,"content":"hi"}`)

	if err := waitDone(t, done); err == nil {
		t.Error("Run() should report the panic")
	}
	if sess.State() != StateClosed {
		t.Errorf("State() = %s, want closed", sess.State())
	}
	if _, ok := h.registry.Lookup(1); ok {
		t.Error("Lookup(1) should be absent after panic")
	}
}

func TestSession_RateLimit(t *testing.T) {
	h := newHarness(t)
	ch := newFakeChannel()
	sess, _ := h.start(t, 1, ch, nil, SessionOptions{MessageRate: 0.001, MessageBurst: 1})

	ch.in <- []byte(`{"receiver_id":2,"content":"one"}`)
	ch.in <- []byte(`{"receiver_id":2,"content":"two"}`)

	waitFor(t, func() bool { return len(ch.Frames()) == 2 })
	frames := ch.Frames()
	if frames[0]["type"] != EventTypeMessage {
		t.Errorf("first frame = %v, want message", frames[0])
	}
	if frames[1]["code"] != CodeRateLimited {
		t.Errorf("second frame = %v, want rate limited", frames[1])
	}
	if stored, _ := h.msgs.ListInvolving(context.Background(), 1); len(stored) != 1 {
		t.Errorf("stored %d messages, want 1", len(stored))
	}
	if sess.State() != StateOpen {
		t.Errorf("State() = %s, want open", sess.State())
	}
}

func TestSession_ReconnectReplacesOld(t *testing.T) {
	h := newHarness(t)

	first := newFakeChannel()
	oldSess, oldDone := h.start(t, 1, first, nil, SessionOptions{})

	second := newFakeChannel()
	newSess, _ := h.start(t, 1, second, nil, SessionOptions{})

	waitDone(t, oldDone)
	if oldSess.State() != StateClosed {
		t.Errorf("old State() = %s, want closed", oldSess.State())
	}
	if first.CloseCode() != StatusSessionReplaced {
		t.Errorf("old close code = %d, want %d", first.CloseCode(), StatusSessionReplaced)
	}

	got, ok := h.registry.Lookup(1)
	if !ok || got != Peer(second) {
		t.Fatal("old session teardown evicted the new connection")
	}
	if newSess.State() != StateOpen {
		t.Errorf("new State() = %s, want open", newSess.State())
	}
}

func TestState_String(t *testing.T) {
	for st, want := range map[State]string{
		StateConnecting: "connecting",
		StateOpen:       "open",
		StateClosing:    "closing",
		StateClosed:     "closed",
		State(9):        "State(9)",
	} {
		if got := st.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
