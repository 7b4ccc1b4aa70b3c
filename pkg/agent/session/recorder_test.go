package session

import (
	"sync"
	"testing"
	"time"

	"github.com/vocalize-ai/vocalize-agent/pkg/agent/record"
)

func TestRecorderPreservesOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	rec := NewRecorder(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	rec.AddAgent("Hello!")
	rec.AddUser("Hi, what's the weather?")
	rec.AddAgent("") // skipped
	rec.AddAgent("Sunny and warm.")

	conv := rec.Snapshot("Test", "WebRTC")
	if len(conv.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(conv.Entries))
	}
	wantSpeakers := []record.Speaker{record.SpeakerAgent, record.SpeakerUser, record.SpeakerAgent}
	for i, want := range wantSpeakers {
		if conv.Entries[i].Speaker != want {
			t.Fatalf("entry %d speaker = %q, want %q", i, conv.Entries[i].Speaker, want)
		}
	}
	if !conv.Entries[0].Timestamp.Before(conv.Entries[2].Timestamp) {
		t.Fatal("entry timestamps are not increasing")
	}
	if conv.Title != "Test" || conv.CallType != "WebRTC" {
		t.Fatalf("snapshot header = %q/%q", conv.Title, conv.CallType)
	}
}

func TestRecorderSnapshotIsACopy(t *testing.T) {
	rec := NewRecorder(nil)
	rec.AddUser("one")

	conv := rec.Snapshot("t", "WebRTC")
	rec.AddUser("two")

	if len(conv.Entries) != 1 {
		t.Fatalf("snapshot grew after a later append: %d entries", len(conv.Entries))
	}
}

func TestLatchExactlyOneWinner(t *testing.T) {
	var l latch
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryClose() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("latch winners = %d, want 1", wins)
	}
	if !l.Closed() {
		t.Fatal("latch should report closed")
	}
}
