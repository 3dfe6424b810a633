package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingID is returned when a parsed event has no id.
var ErrMissingID = errors.New("event has no id")

// Event is a single stored event.
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int64      `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// Parse decodes one JSON event. Unknown fields are rejected and numbers
// must be integers.
func Parse(data []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	if ev.ID == "" {
		return Event{}, ErrMissingID
	}
	if ev.Tags == nil {
		ev.Tags = [][]string{}
	}
	return ev, nil
}

// Hash returns the SHA-256 of the event's canonical JSON.
func (e Event) Hash() ([32]byte, error) {
	data, err := MarshalCanonical(e)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
