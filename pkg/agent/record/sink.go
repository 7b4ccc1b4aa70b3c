// Package record persists finished conversations to a durable sink.
// Persistence is best effort: a sink failure is logged by the caller and
// never affects the session that produced the conversation.
package record

import (
	"context"
	"strconv"
	"time"
)

// Speaker identifies who said a transcript line.
type Speaker string

const (
	SpeakerUser  Speaker = "User"
	SpeakerAgent Speaker = "Agent"
)

// Entry is one committed transcript line.
type Entry struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// Conversation is the unit handed to a sink when a session ends.
type Conversation struct {
	Title     string
	StartTime time.Time
	Duration  time.Duration
	CallType  string
	Entries   []Entry
}

// DurationString formats the duration the way it is shown in records,
// e.g. "4m 12s" or "37s".
func (c Conversation) DurationString() string {
	total := int(c.Duration.Seconds())
	if total < 0 {
		total = 0
	}
	minutes := total / 60
	seconds := total % 60
	if minutes > 0 {
		return strconv.Itoa(minutes) + "m " + strconv.Itoa(seconds) + "s"
	}
	return strconv.Itoa(seconds) + "s"
}

// Sink stores one conversation.
type Sink interface {
	Name() string
	Save(ctx context.Context, conv Conversation) error
}

// Noop discards conversations. Used when no sink is configured.
type Noop struct{}

func (Noop) Name() string                             { return "noop" }
func (Noop) Save(context.Context, Conversation) error { return nil }

var _ Sink = Noop{}
