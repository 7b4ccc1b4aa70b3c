package control

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (f *fakePublisher) PublishData(_ context.Context, payload []byte, reliable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !reliable {
		panic("control messages must use reliable delivery")
	}
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestProtocol(t *testing.T, timeout time.Duration) (*Protocol, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	return New(pub, nil, Config{InputTimeout: timeout}), pub
}

func TestHandshake_RoundTrip(t *testing.T) {
	p, pub := newTestProtocol(t, time.Minute)

	if p.State() != StateIdle {
		t.Fatalf("initial state = %v", p.State())
	}
	if err := p.RequestEmailInput(context.Background()); err != nil {
		t.Fatalf("RequestEmailInput() error = %v", err)
	}
	if p.State() != StateAwaitingInput {
		t.Fatalf("state after request = %v", p.State())
	}
	if pub.sent() != 1 {
		t.Fatalf("sent = %d, want 1", pub.sent())
	}

	p.HandleRaw([]byte(`{"type":"email_response","email":"a@b.com"}`))
	select {
	case msg := <-p.Inbound():
		email, ok := p.Accept(msg)
		if !ok || email != "a@b.com" {
			t.Fatalf("Accept() = (%q, %v)", email, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("no inbound delivery")
	}
	if p.State() != StateIdle {
		t.Fatalf("state after accept = %v", p.State())
	}

	// A second identical response finds the handshake idle and is dropped.
	if email, ok := p.Accept(EmailResponse{Type: TypeEmailResponse, Email: "a@b.com"}); ok {
		t.Fatalf("duplicate response delivered %q", email)
	}
}

func TestHandshake_EmptyEmailIsNoOp(t *testing.T) {
	p, _ := newTestProtocol(t, time.Minute)
	if err := p.RequestEmailInput(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if email, ok := p.Accept(EmailResponse{Type: TypeEmailResponse, Email: "   "}); ok {
		t.Fatalf("empty email delivered %q", email)
	}
	if p.State() != StateAwaitingInput {
		t.Fatalf("state = %v, want awaiting_input", p.State())
	}
}

func TestHandshake_ResponseWhileIdleIsNoOp(t *testing.T) {
	p, _ := newTestProtocol(t, time.Minute)
	if email, ok := p.Accept(EmailResponse{Type: TypeEmailResponse, Email: "a@b.com"}); ok {
		t.Fatalf("idle response delivered %q", email)
	}
	if p.State() != StateIdle {
		t.Fatalf("state = %v", p.State())
	}
}

func TestHandshake_CloseCancelsWithoutDelivery(t *testing.T) {
	p, pub := newTestProtocol(t, time.Minute)
	if err := p.RequestEmailInput(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := p.CloseEmailPopup(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("state after close = %v", p.State())
	}
	if pub.sent() != 2 {
		t.Fatalf("sent = %d, want 2", pub.sent())
	}
	// The landed-late response is dropped.
	if _, ok := p.Accept(EmailResponse{Type: TypeEmailResponse, Email: "late@b.com"}); ok {
		t.Fatal("response after close should not deliver")
	}
}

func TestHandshake_TimeoutRevertsToIdle(t *testing.T) {
	p, _ := newTestProtocol(t, 10*time.Millisecond)
	if err := p.RequestEmailInput(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	select {
	case <-p.Expired():
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
	if p.State() != StateIdle {
		t.Fatalf("state after timeout = %v", p.State())
	}
}

func TestHandshake_AcceptDisarmsTimeout(t *testing.T) {
	p, _ := newTestProtocol(t, 20*time.Millisecond)
	if err := p.RequestEmailInput(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if _, ok := p.Accept(EmailResponse{Type: TypeEmailResponse, Email: "a@b.com"}); !ok {
		t.Fatal("accept failed")
	}
	select {
	case <-p.Expired():
		t.Fatal("stale timer fired after accept")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestHandleRaw_MalformedPayloadNeverPanics(t *testing.T) {
	p, _ := newTestProtocol(t, time.Minute)
	for _, raw := range []string{"", "\x00\x01", "{", `{"type":"bogus"}`, `[1,2,3]`} {
		p.HandleRaw([]byte(raw))
	}
	select {
	case msg := <-p.Inbound():
		t.Fatalf("unexpected delivery %+v", msg)
	default:
	}
}

func TestNotifyToolUse_PublishErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: context.DeadlineExceeded}
	p := New(pub, nil, Config{})
	p.NotifyToolUse(context.Background(), "search_web")
	p.PublishSearchSources(context.Background(), []Source{{URL: "https://e.com", Title: "t"}})
}
