package rtc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Wire frames exchanged with the room bridge. Text frames are JSON control
// envelopes; binary frames are raw audio.
const (
	frameParticipantJoined = "participant_joined"
	frameParticipantLeft   = "participant_disconnected"
	frameData              = "data"
	frameRoomClosed        = "room_closed"
)

type bridgeFrame struct {
	Type     string `json:"type"`
	Identity string `json:"identity,omitempty"`
	Name     string `json:"name,omitempty"`
	Metadata string `json:"metadata,omitempty"`
	// PayloadB64 carries data-channel payloads, which may be arbitrary
	// bytes.
	PayloadB64 string `json:"payload_b64,omitempty"`
	Reliable   bool   `json:"reliable,omitempty"`
}

// WSRoom is a Room carried over a single websocket connection to the media
// bridge.
type WSRoom struct {
	name   string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu      sync.Mutex
	writeTimeout time.Duration

	mu             sync.Mutex
	participant    *Participant
	participantCh  chan Participant
	onData         func([]byte)
	onDisconnected func(string)
	onAudio        func([]byte)

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// DialOptions configures the bridge connection.
type DialOptions struct {
	URL          string
	RoomName     string
	Token        string
	Logger       *slog.Logger
	WriteTimeout time.Duration
}

// Dial connects to the room bridge and starts the read loop.
func Dial(ctx context.Context, opts DialOptions) (*WSRoom, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("bridge url is required")
	}
	if opts.RoomName == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	headers := http.Header{}
	if opts.Token != "" {
		headers.Set("Authorization", "Bearer "+opts.Token)
	}
	headers.Set("X-Room-Name", opts.RoomName)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, opts.URL, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if len(body) > 0 {
				return nil, fmt.Errorf("bridge connect (status %d): %s", resp.StatusCode, string(body))
			}
		}
		return nil, fmt.Errorf("bridge connect: %w", err)
	}

	r := &WSRoom{
		name:          opts.RoomName,
		conn:          conn,
		logger:        opts.Logger,
		writeTimeout:  opts.WriteTimeout,
		participantCh: make(chan Participant, 1),
		done:          make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

func (r *WSRoom) Name() string {
	return r.name
}

func (r *WSRoom) readLoop() {
	defer r.closeDone()
	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Debug("room read loop ended", "error", err)
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			r.mu.Lock()
			fn := r.onAudio
			r.mu.Unlock()
			if fn != nil {
				fn(data)
			}
			continue
		}

		var frame bridgeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.logger.Debug("dropping undecodable bridge frame", "error", err)
			continue
		}
		switch frame.Type {
		case frameParticipantJoined:
			p := Participant{Identity: frame.Identity, Name: frame.Name, Metadata: frame.Metadata}
			r.mu.Lock()
			if r.participant == nil {
				r.participant = &p
				select {
				case r.participantCh <- p:
				default:
				}
			}
			r.mu.Unlock()
		case frameParticipantLeft:
			r.mu.Lock()
			fn := r.onDisconnected
			r.mu.Unlock()
			if fn != nil {
				fn(frame.Identity)
			}
		case frameData:
			payload, err := base64.StdEncoding.DecodeString(frame.PayloadB64)
			if err != nil {
				r.logger.Debug("dropping data frame with invalid payload", "error", err)
				continue
			}
			r.mu.Lock()
			fn := r.onData
			r.mu.Unlock()
			if fn != nil {
				fn(payload)
			}
		case frameRoomClosed:
			return
		default:
			r.logger.Debug("ignoring unknown bridge frame", "type", frame.Type)
		}
	}
}

func (r *WSRoom) WaitForParticipant(ctx context.Context) (Participant, error) {
	r.mu.Lock()
	if r.participant != nil {
		p := *r.participant
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	select {
	case p := <-r.participantCh:
		return p, nil
	case <-r.done:
		return Participant{}, fmt.Errorf("room closed before a participant joined")
	case <-ctx.Done():
		return Participant{}, ctx.Err()
	}
}

func (r *WSRoom) PublishData(ctx context.Context, payload []byte, reliable bool) error {
	frame := bridgeFrame{
		Type:       frameData,
		PayloadB64: base64.StdEncoding.EncodeToString(payload),
		Reliable:   reliable,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal data frame: %w", err)
	}
	return r.write(websocket.TextMessage, data)
}

func (r *WSRoom) PublishAudio(ctx context.Context, frame []byte) error {
	return r.write(websocket.BinaryMessage, frame)
}

func (r *WSRoom) write(messageType int, data []byte) error {
	select {
	case <-r.done:
		return fmt.Errorf("room closed")
	default:
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	return r.conn.WriteMessage(messageType, data)
}

func (r *WSRoom) OnDataReceived(fn func(payload []byte)) {
	r.mu.Lock()
	r.onData = fn
	r.mu.Unlock()
}

func (r *WSRoom) OnParticipantDisconnected(fn func(identity string)) {
	r.mu.Lock()
	r.onDisconnected = fn
	r.mu.Unlock()
}

func (r *WSRoom) OnAudioFrame(fn func(frame []byte)) {
	r.mu.Lock()
	r.onAudio = fn
	r.mu.Unlock()
}

func (r *WSRoom) Disconnect() error {
	var err error
	r.closeOnce.Do(func() {
		r.writeMu.Lock()
		_ = r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		r.writeMu.Unlock()
		err = r.conn.Close()
	})
	r.closeDone()
	return err
}

func (r *WSRoom) Done() <-chan struct{} {
	return r.done
}

func (r *WSRoom) closeDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

var _ Room = (*WSRoom)(nil)
