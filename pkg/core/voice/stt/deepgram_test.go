package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewDeepgram_Name(t *testing.T) {
	p := NewDeepgram("api-key")
	if p.Name() != "deepgram" {
		t.Fatalf("name = %q, want deepgram", p.Name())
	}
}

// wsEcho serves one streaming session: it asserts the dial query, then pushes
// the provided result frames.
func wsTestServer(t *testing.T, frames []string, assertQuery func(*http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assertQuery != nil {
			assertQuery(r)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestStreamingSTT_DeliversFinalsWithLanguage(t *testing.T) {
	frames := []string{
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"detected_language":"HI","alternatives":[{"transcript":"hello there"}]}}`,
		`{"type":"Metadata"}`,
		`not json`,
	}
	ts := wsTestServer(t, frames, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("detect_language") != "true" {
			t.Errorf("detect_language=%q", q.Get("detect_language"))
		}
		if q.Get("encoding") != "linear16" || q.Get("sample_rate") != "16000" {
			t.Errorf("query=%v", q)
		}
		if got := r.Header.Get("Authorization"); got != "Token key" {
			t.Errorf("auth=%q", got)
		}
	})
	defer ts.Close()

	p := NewDeepgramWithURL("key", wsURL(ts))
	s, err := p.NewStreamingSTT(context.Background(), TranscribeOptions{DetectLanguage: true})
	if err != nil {
		t.Fatalf("NewStreamingSTT() error = %v", err)
	}
	defer s.Close()

	var got []TranscriptDelta
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case delta, ok := <-s.Transcripts():
			if !ok {
				t.Fatalf("transcripts closed early, got %d deltas", len(got))
			}
			got = append(got, delta)
		case <-timeout:
			t.Fatalf("timed out, got %d deltas", len(got))
		}
	}

	if got[0].IsFinal || got[0].Text != "hel" {
		t.Fatalf("interim = %+v", got[0])
	}
	if !got[1].IsFinal || got[1].Text != "hello there" {
		t.Fatalf("final = %+v", got[1])
	}
	if got[1].Language != "hi" {
		t.Fatalf("language = %q, want hi (normalized)", got[1].Language)
	}
}

func TestStreamingSTT_FixedLanguageQuery(t *testing.T) {
	ts := wsTestServer(t, nil, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("language") != "en" {
			t.Errorf("language=%q", q.Get("language"))
		}
		if q.Get("detect_language") != "" {
			t.Errorf("detect_language should be unset, got %q", q.Get("detect_language"))
		}
	})
	defer ts.Close()

	p := NewDeepgramWithURL("key", wsURL(ts))
	s, err := p.NewStreamingSTT(context.Background(), TranscribeOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	_ = s.Close()
}

func TestStreamingSTT_SendAfterCloseFails(t *testing.T) {
	ts := wsTestServer(t, nil, nil)
	defer ts.Close()

	p := NewDeepgramWithURL("key", wsURL(ts))
	s, err := p.NewStreamingSTT(context.Background(), TranscribeOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := s.SendAudio([]byte{0, 1, 2}); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.SendAudio([]byte{3}); err == nil {
		t.Fatal("expected error after close")
	}
	if err := s.Finalize(); err == nil {
		t.Fatal("expected finalize error after close")
	}
	// Double close is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
