package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramListenWSURL = "wss://api.deepgram.com/v1/listen"
	defaultListenModel  = "nova-2"
)

// DeepgramProvider implements the STT Provider interface using Deepgram's
// streaming API.
type DeepgramProvider struct {
	apiKey    string
	wsBaseURL string
}

// NewDeepgram creates a new Deepgram STT provider.
func NewDeepgram(apiKey string) *DeepgramProvider {
	return &DeepgramProvider{apiKey: apiKey, wsBaseURL: deepgramListenWSURL}
}

// NewDeepgramWithURL creates a provider against a custom websocket endpoint,
// used by tests.
func NewDeepgramWithURL(apiKey, wsBaseURL string) *DeepgramProvider {
	if strings.TrimSpace(wsBaseURL) == "" {
		wsBaseURL = deepgramListenWSURL
	}
	return &DeepgramProvider{apiKey: apiKey, wsBaseURL: wsBaseURL}
}

// Name returns the provider identifier.
func (d *DeepgramProvider) Name() string {
	return "deepgram"
}

// StreamingSTT is one live recognition session. Audio is sent incrementally
// via SendAudio and transcript segments are received via Transcripts.
type StreamingSTT struct {
	conn        *websocket.Conn
	transcripts chan TranscriptDelta
	done        chan struct{}
	closed      atomic.Bool
	writeMu     sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewStreamingSTT opens a streaming recognition session over WebSocket.
func (d *DeepgramProvider) NewStreamingSTT(ctx context.Context, opts TranscribeOptions) (*StreamingSTT, error) {
	u, err := url.Parse(d.wsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}

	q := u.Query()
	model := opts.Model
	if model == "" {
		model = defaultListenModel
	}
	q.Set("model", model)

	if opts.DetectLanguage {
		q.Set("detect_language", "true")
	} else {
		language := opts.Language
		if language == "" {
			language = "en"
		}
		q.Set("language", language)
	}

	encoding := opts.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	q.Set("encoding", encoding)

	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &StreamingSTT{
		conn:        conn,
		transcripts: make(chan TranscriptDelta, 100),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	go s.readLoop()
	return s, nil
}

// deepgramResult is the subset of the streaming result payload we consume.
type deepgramResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		DetectedLanguage string `json:"detected_language"`
		Alternatives     []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (s *StreamingSTT) readLoop() {
	defer func() {
		close(s.transcripts)
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var result deepgramResult
		if err := json.Unmarshal(data, &result); err != nil {
			continue
		}
		if result.Type != "" && result.Type != "Results" {
			continue
		}
		if len(result.Channel.Alternatives) == 0 {
			continue
		}
		text := result.Channel.Alternatives[0].Transcript
		if strings.TrimSpace(text) == "" {
			continue
		}

		delta := TranscriptDelta{
			Text:     text,
			IsFinal:  result.IsFinal,
			Language: strings.ToLower(strings.TrimSpace(result.Channel.DetectedLanguage)),
		}
		select {
		case s.transcripts <- delta:
		case <-s.ctx.Done():
			return
		}
	}
}

// SendAudio sends raw audio bytes for recognition.
func (s *StreamingSTT) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("stt session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Finalize asks the provider to flush and finalize the current utterance.
func (s *StreamingSTT) Finalize() error {
	if s.closed.Load() {
		return fmt.Errorf("stt session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Finalize"}`))
}

// Transcripts returns the channel of transcript updates.
func (s *StreamingSTT) Transcripts() <-chan TranscriptDelta {
	return s.transcripts
}

// Done returns a channel closed when the session ends.
func (s *StreamingSTT) Done() <-chan struct{} {
	return s.done
}

// Close shuts down the session and the underlying connection.
func (s *StreamingSTT) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.cancel()
	return s.conn.Close()
}
