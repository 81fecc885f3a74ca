/*
Package livechan maintains the persistent live connection to a room.

This file defines the Dialer and Channel structs. A Channel wraps one WebSocket
connection scoped to one room view: it performs the join handshake, runs the read
and write pumps, and surfaces inbound frames as room.Event values. The channel is a
transport only; deduplication and ordering live in the reconciliation store.
*/
package livechan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"splitroom/internal/app/identity"
	"splitroom/internal/app/room"
	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/logx"
)

const (
	// timeout duration for the WebSocket handshake.
	handshakeTimeout = 10 * time.Second

	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed between server heartbeats before the read side gives up.
	pingWait = 60 * time.Second

	// maximum allowed size (in bytes) of a frame sent by the service.
	maxMessageSize = 8192

	// capacity of the outgoing command queue.
	sendChannelBuffer = 256

	// capacity of the inbound event stream.
	eventChannelBuffer = 256
)

// Dialer opens live channels against one service endpoint with one identity.
type Dialer struct {
	// WSURL is the WebSocket base URL of the room service.
	WSURL string

	// Identity supplies the credential for the handshake and the display name for
	// the join command.
	Identity identity.Identity
}

// Dial connects to the room's live endpoint, queues the joinRoom command carrying
// the display name, and starts the pumps. The credential travels in the auth query
// parameter of the handshake request.
func (d Dialer) Dial(ctx context.Context, roomID string) (room.LiveChannel, error) {
	endpoint := fmt.Sprintf("%s/ws/%s?auth=%s",
		strings.TrimRight(d.WSURL, "/"),
		url.PathEscape(roomID),
		url.QueryEscape(d.Identity.Token),
	)

	wsDialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, resp, err := wsDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, errs.NewError(errs.ErrUnauthorized)
			case http.StatusNotFound:
				return nil, errs.NewError(errs.ErrRoomNotFound)
			}
		}

		logx.Error(err, "Live channel dial failed", "room_id", roomID)
		return nil, errs.NewError(errs.ErrTransport)
	}

	channelLogger := logx.Logger().With().
		Str("component", "LiveChannel").
		Str("room_id", roomID).
		Logger()

	c := &Channel{
		conn:   conn,
		events: make(chan room.Event, eventChannelBuffer),
		send:   make(chan []byte, sendChannelBuffer),
		done:   make(chan struct{}),
		logger: channelLogger,
	}

	// The join command is queued before the pumps start, so it is always the first
	// frame on the wire.
	joinFrame, err := encodeJoin(roomID, d.Identity.DisplayName)
	if err != nil {
		conn.Close()
		return nil, errs.NewError(errs.ErrUnknown, err)
	}
	c.send <- joinFrame

	go c.readPump()
	go c.writePump()

	return c, nil
}

// Channel represents one established live connection to a room.
type Channel struct {
	// underlying WebSocket connection object.
	conn *websocket.Conn

	// inbound event stream; closed by the read pump on disconnect or teardown.
	events chan room.Event

	// a buffered channel used to queue outgoing command frames.
	send chan []byte

	// closed on teardown to stop the write pump.
	done chan struct{}

	// closeOnce guards the teardown path.
	closeOnce sync.Once

	// err records the terminal transport error; nil after a deliberate Close.
	err error

	// closing marks a deliberate teardown so the read pump's exit error is not
	// misreported as a transport failure.
	closing bool

	// mu protects err and closing.
	mu sync.Mutex

	// structured logger with channel context.
	logger zerolog.Logger
}

// Events returns the inbound event stream.
func (c *Channel) Events() <-chan room.Event {
	return c.events
}

// SendMessage queues an outgoing text message command.
// The service does not acknowledge delivery; a queued command may still be lost.
func (c *Channel) SendMessage(msg room.Message) error {
	return c.enqueue(commandSendMessage, msg)
}

// SendProof queues an outgoing proof message command.
func (c *Channel) SendProof(msg room.Message) error {
	return c.enqueue(commandSendProof, msg)
}

// enqueue encodes and queues one command frame without blocking.
func (c *Channel) enqueue(command string, msg room.Message) error {
	frame, err := encodeCommand(command, msg)
	if err != nil {
		return errs.NewError(errs.ErrUnknown, err)
	}

	select {
	case <-c.done:
		return errs.NewError(errs.ErrChannelClosed)
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().
			Int("queue_len", len(c.send)).
			Str("command", command).
			Msg("Send queue full, dropping command.")
		return errs.NewError(errs.ErrSendQueueFull)
	}
}

// Err returns the terminal transport error after the event stream closed.
// It is nil while the channel is live and after a deliberate Close.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Close tears the connection down: it sends a close frame, stops the pumps, and
// closes the underlying connection. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()

		closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving room")
		if err := c.conn.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(writeWait)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to send close frame.")
		}

		close(c.done)

		if err := c.conn.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Connection close error.")
		}
	})
}

// readPump reads frames from the connection, decodes them, and delivers events.
// It owns the events channel and closes it on exit.
func (c *Channel) readPump() {
	defer close(c.events)

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pingWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		c.recordErr(err)
		return
	}

	// The service pings; each ping extends the read deadline and is answered with
	// a pong. WriteControl is safe concurrently with the write pump.
	c.conn.SetPingHandler(func(appData string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pingWait)); err != nil {
			return err
		}
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Live channel read ended.")
			}
			c.recordErr(err)
			return
		}

		ev, err := decodeEvent(frame)
		if err != nil {
			var unknown errUnknownEvent
			if errors.As(err, &unknown) {
				c.logger.Warn().Str("event", unknown.name).Msg("Skipping unknown event.")
			} else {
				c.logger.Warn().Err(err).Msg("Skipping malformed frame.")
			}
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// recordErr stores the terminal read error unless the channel is closing
// deliberately.
func (c *Channel) recordErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return
	}

	c.err = err
}

// writePump writes queued command frames to the connection until teardown.
// A write failure records the error and closes the connection so the read pump
// ends the event stream right away instead of waiting out the read deadline.
func (c *Channel) writePump() {
	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				c.teardownOnWriteError(err)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing command frame")
				c.teardownOnWriteError(err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// teardownOnWriteError surfaces a write-side failure to the rest of the channel:
// it records the error and closes the connection, which unblocks the read pump.
func (c *Channel) teardownOnWriteError(err error) {
	c.recordErr(err)
	c.conn.Close()
}
