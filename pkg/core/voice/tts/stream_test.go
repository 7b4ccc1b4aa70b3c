package tts

import (
	"fmt"
	"testing"
	"time"
)

func TestStreamErrReturnsAfterFinishSending(t *testing.T) {
	stream := NewSynthesisStream("fake")
	stream.Send([]byte("audio"))
	stream.FinishSending()

	for range stream.Chunks() {
	}

	errc := make(chan error, 1)
	go func() { errc <- stream.Err() }()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Err = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Err blocked after the producer finished sending")
	}
}

func TestStreamErrSeesErrorSetBeforeFinish(t *testing.T) {
	stream := NewSynthesisStream("fake")
	stream.SetError(fmt.Errorf("upstream cut out"))
	stream.FinishSending()

	if err := stream.Err(); err == nil || err.Error() != "upstream cut out" {
		t.Fatalf("Err = %v", err)
	}
}

func TestStreamCloseAfterFinishIsSafe(t *testing.T) {
	stream := NewSynthesisStream("fake")
	stream.FinishSending()
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
