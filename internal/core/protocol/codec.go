package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// envelope is the self-describing wire form: a kind tag plus the message
// fields.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// registry maps each kind to a factory for its concrete message type.
// Decoding dispatches exhaustively over this table.
var registry = map[Kind]func() Message{
	KindLogin:            func() Message { return &Login{} },
	KindWelcome:          func() Message { return &Welcome{} },
	KindStartGame:        func() Message { return &StartGame{} },
	KindWait:             func() Message { return &Wait{} },
	KindNewGame:          func() Message { return &NewGame{} },
	KindPlayer:           func() Message { return &Player{} },
	KindZone:             func() Message { return &Zone{} },
	KindCardInfo:         func() Message { return &CardInfo{} },
	KindUseableAction:    func() Message { return &UseableAction{} },
	KindRequestTargets:   func() Message { return &RequestTargets{} },
	KindAvailableTargets: func() Message { return &AvailableTargets{} },
	KindUseAbility:       func() Message { return &UseAbility{} },
	KindUpdate:           func() Message { return &Update{} },
	KindZoneChange:       func() Message { return &ZoneChange{} },
	KindResetActions:     func() Message { return &ResetActions{} },
	KindGameOver:         func() Message { return &GameOver{} },
	KindError:            func() Message { return &Error{} },
	KindChat:             func() Message { return &Chat{} },
	KindUserStatus:       func() Message { return &UserStatus{} },
	KindServerQuery:      func() Message { return &ServerQuery{} },
	KindAvailableMods:    func() Message { return &AvailableMods{} },
}

// JSONCodec encodes messages as JSON envelopes. Simple and human-readable;
// the framing layer keeps records length-delimited on stream transports.
type JSONCodec struct{}

// Encode converts a Message into its wire bytes.
func (JSONCodec) Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(ErrSerializationFailed, err.Error())
	}
	out, err := json.Marshal(envelope{Kind: m.MessageKind(), Data: data})
	if err != nil {
		return nil, errors.Wrap(ErrSerializationFailed, err.Error())
	}
	return out, nil
}

// Decode converts wire bytes back into a typed Message.
func (JSONCodec) Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	factory, ok := registry[env.Kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", env.Kind)
	}
	m := factory()
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, m); err != nil {
			return nil, errors.Wrap(ErrDeserializationFailed, err.Error())
		}
	}
	return m, nil
}
