package packet

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// uint8ArrayTag marks raw bytes in the gateway web client's JSON exports.
const uint8ArrayTag = "Uint8Array"

// Bytes is raw frame data. It encodes to JSON as
// {"__type":"Uint8Array","data":[...]} and to MessagePack as bin.
//
// Decoding accepts that object, a plain array of numbers, a base64 string
// or MessagePack bin/str, which covers every shape the gateway emits.
type Bytes []byte

// Hex renders b as space separated upper-case hex pairs.
func (b Bytes) Hex() string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

var hexSeparators = strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "", "0x", "", "0X", "")

// ParseHex decodes a frame written as hex. Spaces, tabs, colons, dashes and
// 0x prefixes between bytes are ignored, so Hex output parses back.
func ParseHex(s string) (Bytes, error) {
	clean := hexSeparators.Replace(s)
	if clean == "" {
		return nil, errors.New("no frame bytes given")
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame: %w", err)
	}
	return data, nil
}

type taggedBytes struct {
	Type string `json:"__type"`
	Data []int  `json:"data"`
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	data := make([]int, len(b))
	for i, c := range b {
		data[i] = int(c)
	}
	return json.Marshal(taggedBytes{Type: uint8ArrayTag, Data: data})
}

func (b *Bytes) UnmarshalJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	out, err := bytesFrom(v)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Bytes(nil)
	_ msgpack.CustomDecoder = (*Bytes)(nil)
)

func (b Bytes) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(b)
}

func (b *Bytes) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}
	out, err := bytesFrom(v)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// bytesFrom converts a generically decoded value into Bytes.
func bytesFrom(v any) (Bytes, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append(Bytes{}, v...), nil
	case string:
		out, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 frame data: %w", err)
		}
		return out, nil
	case []any:
		out := make(Bytes, len(v))
		for i, e := range v {
			c, err := byteFrom(e)
			if err != nil {
				return nil, fmt.Errorf("frame data[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		if v["__type"] != uint8ArrayTag {
			return nil, fmt.Errorf("unsupported frame data object (__type=%v)", v["__type"])
		}
		return bytesFrom(v["data"])
	default:
		return nil, fmt.Errorf("unsupported frame data type %T", v)
	}
}

func byteFrom(v any) (byte, error) {
	var n float64
	switch v := v.(type) {
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case float64:
		n = v
	case int:
		n = float64(v)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
	if n < 0 || n > math.MaxUint8 || n != math.Trunc(n) {
		return 0, fmt.Errorf("%v is not a byte", v)
	}
	return byte(n), nil
}
