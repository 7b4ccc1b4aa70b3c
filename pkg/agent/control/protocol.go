package control

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// HandshakeState tracks the typed email entry flow.
type HandshakeState int

const (
	// StateIdle means no entry is open on the client.
	StateIdle HandshakeState = iota
	// StateAwaitingInput means the client has been asked to show its entry.
	StateAwaitingInput
	// StateResolved is the transient state between accepting a value and
	// resetting to idle; Accept performs both in one step, so observers
	// only ever see idle or awaiting-input.
	StateResolved
)

func (s HandshakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Publisher sends one encoded payload to the remote peer over the reliable
// data channel.
type Publisher interface {
	PublishData(ctx context.Context, payload []byte, reliable bool) error
}

// DefaultInputTimeout bounds how long the handshake stays in awaiting-input
// before reverting to idle. The client may simply never answer.
const DefaultInputTimeout = 2 * time.Minute

const inboundQueueSize = 8

type Config struct {
	InputTimeout time.Duration
	// OnDrop is invoked with a short reason whenever an inbound payload is
	// discarded. Optional; used for counters.
	OnDrop func(reason string)
}

// Protocol drives the email-entry handshake and the outbound notification
// messages for one session.
//
// HandleRaw is safe to call from a transport callback: it only decodes and
// enqueues, and never touches handshake state. The session's own run loop
// consumes Inbound() and applies state transitions via Accept, so all
// mutation happens in the session's scheduling domain or under the mutex.
type Protocol struct {
	pub     Publisher
	logger  *slog.Logger
	timeout time.Duration
	onDrop  func(reason string)

	inbound chan EmailResponse
	expired chan struct{}

	mu    sync.Mutex
	state HandshakeState
	timer *time.Timer
	// generation invalidates a pending timer after the handshake it was
	// armed for has already resolved or been cancelled.
	generation uint64
}

func New(pub Publisher, logger *slog.Logger, cfg Config) *Protocol {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.InputTimeout
	if timeout <= 0 {
		timeout = DefaultInputTimeout
	}
	return &Protocol{
		pub:     pub,
		logger:  logger,
		timeout: timeout,
		onDrop:  cfg.OnDrop,
		inbound: make(chan EmailResponse, inboundQueueSize),
		expired: make(chan struct{}, 1),
	}
}

// State reports the current handshake state.
func (p *Protocol) State() HandshakeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Inbound returns decoded email responses awaiting the session loop. The
// queue is small and lossy under pressure; the channel is best-effort.
func (p *Protocol) Inbound() <-chan EmailResponse {
	return p.inbound
}

// Expired signals that an awaiting-input handshake timed out and was
// reverted to idle.
func (p *Protocol) Expired() <-chan struct{} {
	return p.expired
}

// HandleRaw processes one payload received from the data channel. Undecodable
// payloads and unknown types are dropped at debug level and never propagate.
// Decoded email responses are handed off to the session loop; nothing is
// mutated inline.
func (p *Protocol) HandleRaw(data []byte) {
	msg, err := DecodePeerMessage(data)
	if err != nil {
		p.logger.Debug("dropping undecodable data message", "error", err)
		p.drop("undecodable")
		return
	}
	switch m := msg.(type) {
	case EmailResponse:
		select {
		case p.inbound <- m:
		default:
			p.logger.Debug("inbound queue full, dropping email_response")
			p.drop("queue_full")
		}
	}
}

func (p *Protocol) drop(reason string) {
	if p.onDrop != nil {
		p.onDrop(reason)
	}
}

// RequestEmailInput asks the client to open its typed entry and moves the
// handshake to awaiting-input. The timeout timer is armed here and reverts
// the state to idle if the client never answers.
func (p *Protocol) RequestEmailInput(ctx context.Context) error {
	payload, err := EncodeRequestEmailInput()
	if err != nil {
		return err
	}
	if err := p.pub.PublishData(ctx, payload, true); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateAwaitingInput
	p.generation++
	gen := p.generation
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.timeout, func() { p.expire(gen) })
	return nil
}

// CloseEmailPopup cancels the typed entry without delivering a value.
func (p *Protocol) CloseEmailPopup(ctx context.Context) error {
	payload, err := EncodeCloseEmailPopup()
	if err != nil {
		return err
	}
	if err := p.pub.PublishData(ctx, payload, true); err != nil {
		return err
	}
	p.reset()
	return nil
}

// Accept applies one email response to the handshake. It returns the
// delivered address and true only when the handshake was awaiting input and
// the address is non-empty; the state returns to idle in the same step.
// Responses arriving while idle are a no-op, not an error, so duplicate or
// stale deliveries cannot double-fire: the first accepted value wins.
func (p *Protocol) Accept(msg EmailResponse) (string, bool) {
	email := strings.TrimSpace(msg.Email)
	if email == "" {
		p.logger.Debug("ignoring empty email_response")
		return "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAwaitingInput {
		p.logger.Debug("ignoring email_response outside handshake", "state", p.state.String())
		return "", false
	}
	p.state = StateIdle
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return email, true
}

// NotifyToolUse tells the client a capability was invoked. Fire and forget.
func (p *Protocol) NotifyToolUse(ctx context.Context, tool string) {
	payload, err := EncodeToolUse(tool)
	if err != nil {
		return
	}
	if err := p.pub.PublishData(ctx, payload, true); err != nil {
		p.logger.Debug("could not send tool_use notification", "tool", tool, "error", err)
	}
}

// PublishSearchSources pushes search result references to the client UI.
func (p *Protocol) PublishSearchSources(ctx context.Context, sources []Source) {
	payload, err := EncodeSearchSources(sources)
	if err != nil {
		return
	}
	if err := p.pub.PublishData(ctx, payload, true); err != nil {
		p.logger.Debug("could not send search sources", "count", len(sources), "error", err)
	}
}

func (p *Protocol) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateIdle
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Protocol) expire(gen uint64) {
	p.mu.Lock()
	if p.generation != gen || p.state != StateAwaitingInput {
		p.mu.Unlock()
		return
	}
	p.state = StateIdle
	p.timer = nil
	p.mu.Unlock()

	p.logger.Info("email input handshake timed out")
	select {
	case p.expired <- struct{}{}:
	default:
	}
}
