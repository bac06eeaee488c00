package socket

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"binary", EncodingBinary, false},
		{"msgpack", EncodingBinary, false},
		{"", EncodingBinary, false},
		{"text", EncodingText, false},
		{" JSON ", EncodingText, false},
		{"xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEncoding(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEncoding(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownEncoding) {
				t.Errorf("error %v does not wrap ErrUnknownEncoding", err)
			}
			if got != tt.want {
				t.Errorf("ParseEncoding(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncoding_TextRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingBinary, EncodingText} {
		text, err := enc.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", enc, err)
		}
		var got Encoding
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if got != enc {
			t.Errorf("round trip of %v gave %v", enc, got)
		}
	}

	if _, err := Encoding(7).MarshalText(); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestNewCodec_Unknown(t *testing.T) {
	if _, err := NewCodec(Encoding(9)); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("NewCodec(9) error = %v, want ErrUnknownEncoding", err)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		enc      Encoding
		msgType  int
		wantData any
	}{
		{EncodingText, websocket.TextMessage, map[string]any{"a": float64(1)}},
		{EncodingBinary, websocket.BinaryMessage, map[string]any{"a": int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.enc.String(), func(t *testing.T) {
			codec, err := NewCodec(tt.enc)
			if err != nil {
				t.Fatalf("NewCodec() error = %v", err)
			}
			if codec.MessageType() != tt.msgType {
				t.Errorf("MessageType() = %d, want %d", codec.MessageType(), tt.msgType)
			}

			in := Envelope{Event: "x", Data: map[string]any{"a": 1}}
			frame, err := codec.Encode(in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			out, err := codec.Decode(frame)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			want := Envelope{Event: "x", Data: tt.wantData}
			if !reflect.DeepEqual(out, want) {
				t.Errorf("Decode(Encode(x)) = %#v, want %#v", out, want)
			}
		})
	}
}

func TestCodec_DecodeFaults(t *testing.T) {
	packed, err := msgpack.Marshal(map[string]any{"data": 1})
	if err != nil {
		t.Fatal(err)
	}
	rawBin, err := msgpack.Marshal([]byte{0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		enc     Encoding
		frame   []byte
		noEvent bool
	}{
		{"json garbage", EncodingText, []byte("{not json"), false},
		{"json array", EncodingText, []byte(`[1,2,3]`), false},
		{"json without event", EncodingText, []byte(`{"data":1}`), true},
		{"json empty event", EncodingText, []byte(`{"event":"","data":1}`), true},
		{"msgpack without event", EncodingBinary, packed, true},
		{"msgpack raw bytes", EncodingBinary, rawBin, false},
		{"msgpack truncated", EncodingBinary, []byte{0x82, 0xa5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, _ := NewCodec(tt.enc)
			_, err := codec.Decode(tt.frame)
			if err == nil {
				t.Fatal("Decode() expected error")
			}
			if errors.Is(err, ErrNoEvent) != tt.noEvent {
				t.Errorf("Decode() error = %v, ErrNoEvent expected %v", err, tt.noEvent)
			}
		})
	}
}

type alarmState struct {
	IsAlarming bool   `json:"isAlarming" msgpack:"isAlarming"`
	Source     uint32 `json:"source" msgpack:"source"`
}

func TestCodec_Convert(t *testing.T) {
	for _, enc := range []Encoding{EncodingText, EncodingBinary} {
		t.Run(enc.String(), func(t *testing.T) {
			codec, _ := NewCodec(enc)

			frame, err := codec.Encode(Envelope{
				Event: "alarm",
				Data:  alarmState{IsAlarming: true, Source: 0x11223344},
			})
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			env, err := codec.Decode(frame)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			var got alarmState
			if err := codec.Convert(env.Data, &got); err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			want := alarmState{IsAlarming: true, Source: 0x11223344}
			if got != want {
				t.Errorf("Convert() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestCloseInfo(t *testing.T) {
	if got := closeInfo(0); got != (CloseInfo{Reason: "close"}) {
		t.Errorf("closeInfo(0) = %+v", got)
	}
	if got := closeInfo(4000); got != (CloseInfo{Reason: "close:4000", Code: 4000}) {
		t.Errorf("closeInfo(4000) = %+v", got)
	}
}

func TestIsReserved(t *testing.T) {
	for _, ev := range []string{"open", "close", "error", "message", "unresponsive"} {
		if !IsReserved(ev) {
			t.Errorf("IsReserved(%q) = false", ev)
		}
	}
	for _, ev := range []string{"temperature", "alarm", "subscribe", ""} {
		if IsReserved(ev) {
			t.Errorf("IsReserved(%q) = true", ev)
		}
	}
}
