package socket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrNoEvent is returned by Decode for frames without an event name.
	ErrNoEvent = errors.New("frame has no event")

	// ErrUnknownEncoding is returned for encodings other than text and binary.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// Encoding selects the wire format of a socket. It is fixed for the
// lifetime of a Socket.
type Encoding int

const (
	// EncodingBinary encodes envelopes as MessagePack maps in binary frames.
	EncodingBinary Encoding = iota
	// EncodingText encodes envelopes as JSON objects in text frames.
	EncodingText
)

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingText:
		return "text"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// ParseEncoding accepts "binary"/"msgpack" and "text"/"json".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "msgpack", "":
		return EncodingBinary, nil
	case "text", "json":
		return EncodingText, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// MarshalText implements encoding.TextMarshaler so encodings round-trip
// through YAML and flags.
func (e Encoding) MarshalText() ([]byte, error) {
	switch e {
	case EncodingBinary, EncodingText:
		return []byte(e.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, int(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Codec converts envelopes to and from one wire encoding.
type Codec interface {
	Encoding() Encoding
	// MessageType is the WebSocket frame type written for encoded envelopes.
	MessageType() int
	Encode(env Envelope) ([]byte, error)
	Decode(data []byte) (Envelope, error)
	// Convert re-shapes a decoded payload into v using the same encoding.
	Convert(data any, v any) error
}

// NewCodec returns the codec for enc.
func NewCodec(enc Encoding) (Codec, error) {
	switch enc {
	case EncodingBinary:
		return binaryCodec{}, nil
	case EncodingText:
		return textCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, int(enc))
	}
}

type textCodec struct{}

func (textCodec) Encoding() Encoding { return EncodingText }

func (textCodec) MessageType() int { return websocket.TextMessage }

func (textCodec) Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q as json: %w", env.Event, err)
	}
	return data, nil
}

func (textCodec) Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode json frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrNoEvent
	}
	return env, nil
}

func (textCodec) Convert(data any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to convert payload to %T: %w", v, err)
	}
	return nil
}

type binaryCodec struct{}

func (binaryCodec) Encoding() Encoding { return EncodingBinary }

func (binaryCodec) MessageType() int { return websocket.BinaryMessage }

func (binaryCodec) Encode(env Envelope) ([]byte, error) {
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q as msgpack: %w", env.Event, err)
	}
	return data, nil
}

func (binaryCodec) Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := unmarshalLoose(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode msgpack frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrNoEvent
	}
	return env, nil
}

func (binaryCodec) Convert(data any, v any) error {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to re-encode payload: %w", err)
	}
	if err := unmarshalLoose(raw, v); err != nil {
		return fmt.Errorf("failed to convert payload to %T: %w", v, err)
	}
	return nil
}

// unmarshalLoose decodes interface values as int64, uint64 and float64
// regardless of the width the sender picked.
func unmarshalLoose(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}
