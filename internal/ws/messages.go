package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaymasl/frtl-arcade/internal/game"
)

// Inbound frame kinds.
type MessageKind int

const (
	KindStart MessageKind = iota
	KindChangeDirection
)

// ClientMessage is one inbound snake frame. The wire encoding matches the
// frontend: unit messages are bare JSON strings ("Start"), ChangeDirection is
// a single-key object ({"ChangeDirection":"Up"}).
type ClientMessage struct {
	Kind      MessageKind
	Direction game.Direction
}

var errUnknownMessage = errors.New("unknown client message")

func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit == "Start" {
			m.Kind = KindStart
			return nil
		}
		return fmt.Errorf("%w: %q", errUnknownMessage, unit)
	}

	var tagged struct {
		ChangeDirection game.Direction `json:"ChangeDirection"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %s", errUnknownMessage, data)
	}
	if !tagged.ChangeDirection.Valid() {
		return fmt.Errorf("%w: bad direction %q", errUnknownMessage, tagged.ChangeDirection)
	}
	m.Kind = KindChangeDirection
	m.Direction = tagged.ChangeDirection
	return nil
}

func (m ClientMessage) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindStart:
		return json.Marshal("Start")
	case KindChangeDirection:
		return json.Marshal(map[string]game.Direction{"ChangeDirection": m.Direction})
	}
	return nil, errUnknownMessage
}
