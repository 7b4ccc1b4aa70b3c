package session

import (
	"sync"
	"time"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/record"
)

// Recorder accumulates the committed transcript of one conversation in order.
// Appends come from the session's run loop; Snapshot may be called from the
// persistence goroutine after the session has ended.
type Recorder struct {
	mu      sync.Mutex
	started time.Time
	entries []record.Entry
	now     func() time.Time
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{started: now(), now: now}
}

// AddUser appends one committed user utterance. Empty text is skipped.
func (r *Recorder) AddUser(text string) { r.add(record.SpeakerUser, text) }

// AddAgent appends one committed agent utterance. Empty text is skipped.
func (r *Recorder) AddAgent(text string) { r.add(record.SpeakerAgent, text) }

func (r *Recorder) add(speaker record.Speaker, text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, record.Entry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: r.now(),
	})
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot assembles the conversation for persistence. Entries keep append
// order.
func (r *Recorder) Snapshot(title, callType string) record.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]record.Entry, len(r.entries))
	copy(entries, r.entries)
	return record.Conversation{
		Title:     title,
		StartTime: r.started,
		Duration:  r.now().Sub(r.started),
		CallType:  callType,
		Entries:   entries,
	}
}
