/*
Package room contains the core synchronization logic for a shared room session.

This file defines the Message struct, the single canonical shape every delivery path
(history fetch, live broadcast, optimistic local insert) is normalized into, together
with its wire codec.
*/
package room

import (
	"encoding/json"
	"time"

	"splitroom/internal/pkg/errs"
	"splitroom/internal/pkg/randx"
)

// MaxContentBytes is the maximum allowed size (in bytes) for text message content.
const MaxContentBytes = 5000

// Message represents one entry of a room's message log.
// The same logical message may arrive over several paths; ID is stable across all of
// them and is the sole deduplication key.
type Message struct {
	// ID is the opaque unique identifier. Server-assigned for history entries,
	// client-generated (UUID) for optimistic local entries; the service echoes
	// client-generated ids back unchanged.
	ID string

	// SenderName is the author's display name. Not a stable identity key.
	SenderName string

	// Text is the optional plain message body.
	Text string

	// ProofURL is the optional reference to an uploaded payment proof image.
	// A message may carry Text, ProofURL, or both; neither is invalid.
	ProofURL string

	// CreatedAt is the message timestamp. Canonical log order is non-decreasing in
	// CreatedAt after the initial load; live arrivals are not re-sorted.
	CreatedAt time.Time

	// RoomID is the owning room. Optional on the wire; the active session implies it.
	RoomID string
}

// messageWire is the JSON shape used on the live channel and for outgoing commands.
// Timestamps travel as Unix milliseconds.
type messageWire struct {
	ID         string `json:"id"`
	SenderName string `json:"senderName"`
	Text       string `json:"text,omitempty"`
	ProofURL   string `json:"proofUrl,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	RoomID     string `json:"roomId,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageWire{
		ID:         m.ID,
		SenderName: m.SenderName,
		Text:       m.Text,
		ProofURL:   m.ProofURL,
		CreatedAt:  m.CreatedAt.UnixMilli(),
		RoomID:     m.RoomID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.ID = wire.ID
	m.SenderName = wire.SenderName
	m.Text = wire.Text
	m.ProofURL = wire.ProofURL
	m.CreatedAt = time.UnixMilli(wire.CreatedAt)
	m.RoomID = wire.RoomID

	return nil
}

// NewTextMessage builds an optimistic local text message stamped with a fresh UUID
// and the current time. It validates that the body is non-empty and within bounds.
func NewTextMessage(senderName, roomID, text string) (Message, error) {
	if text == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}

	if len(text) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	return Message{
		ID:         randx.MessageID(),
		SenderName: senderName,
		Text:       text,
		CreatedAt:  time.Now(),
		RoomID:     roomID,
	}, nil
}
