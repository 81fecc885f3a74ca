/*
Package livechan maintains the persistent live connection to a room.

This file defines the wire envelope and the codec between raw frames and the core
event/command types. Inbound frames become room.Event values; outbound commands are
encoded from the command constants and their payloads.
*/
package livechan

import (
	"encoding/json"
	"fmt"

	"splitroom/internal/app/room"
)

// Inbound event names emitted by the service.
const (
	eventUserList       = "userList"
	eventUserJoined     = "userJoined"
	eventUserLeft       = "userLeft"
	eventReceiveMessage = "receiveMessage"
	eventReceiveProof   = "receiveProof"
)

// Outbound command names accepted by the service.
const (
	commandJoinRoom    = "joinRoom"
	commandSendMessage = "sendMessage"
	commandSendProof   = "sendProof"
)

// envelope is the frame shape in both directions: an event (or command) name plus
// its JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// joinPayload is the payload of the joinRoom command sent right after the handshake.
type joinPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// errUnknownEvent reports an event name this client does not understand. The caller
// logs and skips the frame; unknown events are not a transport failure.
type errUnknownEvent struct {
	name string
}

func (e errUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event %q", e.name)
}

// decodeEvent parses one raw inbound frame into a room.Event.
func decodeEvent(raw []byte) (room.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return room.Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Event {
	case eventUserList:
		var users []string
		if err := json.Unmarshal(env.Data, &users); err != nil {
			return room.Event{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		return room.Event{Kind: room.EventUserList, Users: users}, nil

	case eventUserJoined, eventUserLeft:
		var user string
		if err := json.Unmarshal(env.Data, &user); err != nil {
			return room.Event{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}

		kind := room.EventUserJoined
		if env.Event == eventUserLeft {
			kind = room.EventUserLeft
		}
		return room.Event{Kind: kind, User: user}, nil

	case eventReceiveMessage, eventReceiveProof:
		var msg room.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return room.Event{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}

		kind := room.EventMessage
		if env.Event == eventReceiveProof {
			kind = room.EventProof
		}
		return room.Event{Kind: kind, Message: msg}, nil

	default:
		return room.Event{}, errUnknownEvent{name: env.Event}
	}
}

// encodeJoin builds the joinRoom command frame.
func encodeJoin(roomID, displayName string) ([]byte, error) {
	data, err := json.Marshal(joinPayload{RoomID: roomID, DisplayName: displayName})
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{Event: commandJoinRoom, Data: data})
}

// encodeCommand builds a sendMessage or sendProof command frame carrying msg.
func encodeCommand(command string, msg room.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{Event: command, Data: data})
}
