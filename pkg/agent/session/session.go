// Package session runs one live conversation from participant join to
// transcript persistence.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/classify"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/control"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/metrics"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/prompt"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/record"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/rtc"
	"github.com/vocalize-ai/vocalize-agent/pkg/agent/tools"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/llm"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/voice/stt"
	"github.com/vocalize-ai/vocalize-agent/pkg/core/voice/tts"
)

const (
	phoneGreetingCue = "Answer the phone warmly. Introduce yourself by your name as defined in your persona and ask how you can help."
	webGreetingCue   = "Greet the user warmly and offer your assistance."

	emailTimeoutCue = "The email input popup timed out without a submission. Let the user know and offer to take their email address by voice instead."
)

// STTSession is the streaming recognition surface the run loop consumes.
type STTSession interface {
	SendAudio([]byte) error
	Transcripts() <-chan stt.TranscriptDelta
	Close() error
}

// STTProvider opens recognition sessions.
type STTProvider interface {
	NewSession(ctx context.Context) (STTSession, error)
}

// STTProviderAdapter adapts an stt.Provider to the session's interface.
type STTProviderAdapter struct {
	Provider stt.Provider
	Options  stt.TranscribeOptions
}

func (a STTProviderAdapter) NewSession(ctx context.Context) (STTSession, error) {
	if a.Provider == nil {
		return nil, fmt.Errorf("stt provider is nil")
	}
	return a.Provider.NewStreamingSTT(ctx, a.Options)
}

// Config bounds the run loop.
type Config struct {
	Temperature          float32
	MaxToolRoundsPerTurn int
	PersistTimeout       time.Duration
	SpeakTimeout         time.Duration
}

// Dependencies carries everything a session needs. Room and LLM are
// required; the rest default.
type Dependencies struct {
	Room    rtc.Room
	LLM     llm.Provider
	STT     STTProvider
	TTS     *tts.Router
	Tools   *tools.Registry
	Control *control.Protocol
	Sink    record.Sink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Config  Config
	Now     func() time.Time
}

// Session is one live conversation.
type Session struct {
	room    rtc.Room
	llm     llm.Provider
	sttp    STTProvider
	tts     *tts.Router
	tools   *tools.Registry
	control *control.Protocol
	sink    record.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time

	recorder *Recorder
	latch    latch

	callType     classify.CallType
	instructions string

	history []llm.Message

	ending      chan struct{} // closed once, when the latch is won
	persistDone chan struct{}
	endReason   string
}

func New(deps Dependencies) (*Session, error) {
	if deps.Room == nil {
		return nil, fmt.Errorf("room is required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sink == nil {
		deps.Sink = record.Noop{}
	}
	if deps.Tools == nil {
		deps.Tools = tools.NewRegistry()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New("")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Config.MaxToolRoundsPerTurn <= 0 {
		deps.Config.MaxToolRoundsPerTurn = 5
	}
	if deps.Config.PersistTimeout <= 0 {
		deps.Config.PersistTimeout = 15 * time.Second
	}
	if deps.Config.SpeakTimeout <= 0 {
		deps.Config.SpeakTimeout = 30 * time.Second
	}
	if deps.Config.Temperature == 0 {
		deps.Config.Temperature = 0.7
	}

	return &Session{
		room:        deps.Room,
		llm:         deps.LLM,
		sttp:        deps.STT,
		tts:         deps.TTS,
		tools:       deps.Tools,
		control:     deps.Control,
		sink:        deps.Sink,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		cfg:         deps.Config,
		now:         deps.Now,
		recorder:    NewRecorder(deps.Now),
		ending:      make(chan struct{}),
		persistDone: make(chan struct{}),
	}, nil
}

// Run drives the conversation until the room closes, the participant leaves,
// or ctx is canceled. It returns after the transcript has been handed to the
// sink.
func (s *Session) Run(ctx context.Context) error {
	participant, err := s.room.WaitForParticipant(ctx)
	if err != nil {
		return fmt.Errorf("wait for participant: %w", err)
	}

	s.callType = classify.Classify(participant.Identity, s.room.Name())
	md := prompt.ParseMetadata(participant.Metadata)

	if s.callType == classify.CallTypePhone {
		s.instructions = prompt.DefaultPhoneInstructions
	} else {
		s.instructions = prompt.Build(md)
	}
	s.instructions = prompt.Personalize(s.instructions, md.UserName)

	s.logger.Info("session starting",
		"room", s.room.Name(),
		"participant", participant.Identity,
		"call_type", string(s.callType),
		"user_name", md.UserName,
	)
	s.metrics.RecordSessionStart(string(s.callType))

	// Transport callbacks hand off to the run loop and never touch session
	// state inline.
	if s.control != nil {
		s.room.OnDataReceived(s.control.HandleRaw)
	}
	s.room.OnParticipantDisconnected(func(identity string) {
		if identity != participant.Identity {
			return
		}
		s.signalEnd("participant disconnected")
	})

	var transcripts <-chan stt.TranscriptDelta
	if s.sttp != nil {
		sttSession, err := s.sttp.NewSession(ctx)
		if err != nil {
			return fmt.Errorf("open stt session: %w", err)
		}
		defer sttSession.Close()
		s.room.OnAudioFrame(func(frame []byte) {
			if err := sttSession.SendAudio(frame); err != nil {
				s.logger.Debug("dropping audio frame", "error", err)
			}
		})
		transcripts = sttSession.Transcripts()
	}

	s.promptTurn(ctx, s.greetingCue(md.UserName))

	s.loop(ctx, transcripts)

	_ = s.room.Disconnect()

	// The latch winner has already started persistence; just wait for it.
	select {
	case <-s.persistDone:
	case <-time.After(s.cfg.PersistTimeout + time.Second):
		s.logger.Warn("persistence did not finish in time")
	}
	s.logger.Info("session ended", "reason", s.endReason, "entries", s.recorder.Len())
	return nil
}

func (s *Session) loop(ctx context.Context, transcripts <-chan stt.TranscriptDelta) {
	var inbound <-chan control.EmailResponse
	var expired <-chan struct{}
	if s.control != nil {
		inbound = s.control.Inbound()
		expired = s.control.Expired()
	}

	ctxDone := ctx.Done()
	roomDone := s.room.Done()

	for {
		select {
		case <-ctxDone:
			s.signalEnd("context canceled")
			ctxDone = nil
		case <-roomDone:
			s.signalEnd("room closed")
			roomDone = nil
		case <-s.ending:
			return
		case delta, ok := <-transcripts:
			if !ok {
				transcripts = nil
				continue
			}
			s.handleTranscript(ctx, delta)
		case msg := <-inbound:
			s.handleEmailResponse(ctx, msg)
		case <-expired:
			s.promptTurn(ctx, emailTimeoutCue)
		}
	}
}

func (s *Session) handleTranscript(ctx context.Context, delta stt.TranscriptDelta) {
	if !delta.IsFinal {
		return
	}
	text := strings.TrimSpace(delta.Text)
	if text == "" {
		return
	}
	if delta.Language != "" && s.tts != nil {
		s.tts.SetActiveLanguage(delta.Language)
	}
	s.recorder.AddUser(text)
	s.history = append(s.history, llm.Message{Role: llm.RoleUser, Content: text})
	s.generate(ctx, "")
}

func (s *Session) handleEmailResponse(ctx context.Context, msg control.EmailResponse) {
	email, ok := s.control.Accept(msg)
	if !ok {
		return
	}
	s.logger.Info("typed email received", "email", email)
	cue := fmt.Sprintf("IMPORTANT: The user has typed their email address in the popup box. Their email is: %s. "+
		"Tell them you received their email (%s) and now ask them for the email subject line. "+
		"Make sure to confirm the email address you received.", email, email)
	s.promptTurn(ctx, cue)
}

// promptTurn runs one model turn driven by an out-of-band instruction rather
// than a user utterance. The cue is not kept in history.
func (s *Session) promptTurn(ctx context.Context, cue string) {
	s.generate(ctx, cue)
}

// generate runs model rounds until the model answers with speech instead of
// tool calls, then synthesizes and publishes the answer.
func (s *Session) generate(ctx context.Context, cue string) {
	for round := 0; round < s.cfg.MaxToolRoundsPerTurn; round++ {
		messages := make([]llm.Message, 0, len(s.history)+1)
		messages = append(messages, s.history...)
		if cue != "" {
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: cue})
		}

		reply, err := s.llm.Generate(ctx, llm.Request{
			System:      s.instructions,
			Messages:    messages,
			Tools:       s.tools.Definitions(),
			Temperature: s.cfg.Temperature,
		})
		if err != nil {
			s.logger.Error("generation failed", "error", err)
			s.speak(ctx, "I'm sorry, I'm having trouble thinking right now. Could you say that again?")
			return
		}

		if len(reply.ToolCalls) == 0 {
			text := strings.TrimSpace(reply.Text)
			if text == "" {
				return
			}
			s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: text})
			s.recorder.AddAgent(text)
			s.speak(ctx, text)
			return
		}

		s.history = append(s.history, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})
		for _, call := range reply.ToolCalls {
			s.metrics.RecordToolInvocation(call.Name)
			result := s.tools.Execute(ctx, call.Name, call.Arguments)
			s.history = append(s.history, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
	s.logger.Warn("turn exceeded tool round limit", "limit", s.cfg.MaxToolRoundsPerTurn)
}

// speak synthesizes text through the language router and publishes the audio
// to the room. Synthesis failures are logged; the transcript entry stands.
func (s *Session) speak(ctx context.Context, text string) {
	if s.tts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SpeakTimeout)
	defer cancel()

	// An empty Voice lets each language backend use the model it was
	// configured with; overriding it here would defeat the router.
	stream, err := s.tts.SynthesizeStream(ctx, text, tts.SynthesizeOptions{})
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		return
	}
	defer stream.Close()

	for chunk := range stream.Chunks() {
		if err := s.room.PublishAudio(ctx, chunk); err != nil {
			s.logger.Error("audio publish failed", "error", err)
			return
		}
	}
	if err := stream.Err(); err != nil {
		s.logger.Error("synthesis stream failed", "backend", stream.Backend(), "error", err)
	}
}

func (s *Session) greetingCue(userName string) string {
	if s.callType == classify.CallTypePhone {
		return phoneGreetingCue
	}
	if userName != "" {
		return fmt.Sprintf("Greet %s warmly by name and offer your assistance.", userName)
	}
	return webGreetingCue
}

// Hangup ends the session on behalf of a tool invocation. Any reply already
// being spoken finishes before the room is released.
func (s *Session) Hangup(reason string) {
	s.signalEnd(reason)
}

// signalEnd is the single termination funnel. The room-closed and the
// participant-disconnected paths both land here; the latch lets exactly one
// through. Persistence runs on its own goroutine so the signal path never
// blocks on a sink.
func (s *Session) signalEnd(reason string) {
	if !s.latch.TryClose() {
		s.logger.Debug("duplicate end signal ignored", "reason", reason)
		return
	}
	s.endReason = reason
	s.logger.Info("end signal", "reason", reason)
	close(s.ending)

	go func() {
		defer close(s.persistDone)
		s.persist(reason)
	}()
}

func (s *Session) persist(reason string) {
	conv := s.recorder.Snapshot(s.conversationTitle(), s.callType.DisplayName())
	seconds := conv.Duration.Seconds()
	s.metrics.RecordSessionEnd(string(s.callType), reason, seconds)

	if len(conv.Entries) == 0 {
		s.logger.Info("nothing to persist, transcript is empty")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()
	if err := s.sink.Save(ctx, conv); err != nil {
		s.metrics.RecordPersistFailure(s.sink.Name())
		s.logger.Error("conversation save failed", "sink", s.sink.Name(), "error", err)
		return
	}
	s.logger.Info("conversation saved", "sink", s.sink.Name(), "entries", len(conv.Entries))
}

func (s *Session) conversationTitle() string {
	return fmt.Sprintf("%s - %s", s.callType.DisplayName(), s.recorder.started.Format("Jan 2, 2006 3:04 PM"))
}
