// Package rtc abstracts the realtime room the agent joins: participant
// lifecycle, audio, and the reliable data channel. The media server itself is
// an external collaborator; sessions only see these interfaces.
package rtc

import "context"

// Participant is the remote peer the agent is talking to.
type Participant struct {
	Identity string
	Name     string
	// Metadata is the raw JSON blob web clients attach on join. Phone
	// callers never carry any.
	Metadata string
}

// Room is one live conversation space.
type Room interface {
	// Name returns the room identifier.
	Name() string

	// WaitForParticipant blocks until a remote participant joins.
	WaitForParticipant(ctx context.Context) (Participant, error)

	// PublishData sends one payload over the data channel. reliable
	// selects delivery mode; control messages always use reliable.
	PublishData(ctx context.Context, payload []byte, reliable bool) error

	// OnDataReceived registers a callback for inbound data-channel
	// payloads. The callback runs on the transport's own goroutine and
	// must not block or mutate session state inline.
	OnDataReceived(fn func(payload []byte))

	// OnParticipantDisconnected registers a callback invoked with the
	// identity of a departing participant. Same threading caveat as
	// OnDataReceived.
	OnParticipantDisconnected(fn func(identity string))

	// OnAudioFrame registers a callback for inbound audio frames.
	OnAudioFrame(fn func(frame []byte))

	// PublishAudio sends one synthesized audio frame to the room.
	PublishAudio(ctx context.Context, frame []byte) error

	// Disconnect ends the call for all participants and releases the
	// connection. Safe to call more than once.
	Disconnect() error

	// Done is closed when the room connection has ended, whichever side
	// initiated it.
	Done() <-chan struct{}
}
