package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	defer setLogger(nil)

	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn level should be enabled")
	}
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info level should be disabled")
	}
}

func TestSetLogger_Restore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := SetLogger(zap.New(core))

	LogConnection("ws://gateway/ws/events", "open")
	LogSocketMessage("ws://gateway/ws/events", "received", 2, []byte{0xde, 0xad})

	restore()
	Info("after restore")

	if logs.Len() != 2 {
		t.Fatalf("observed %d entries, want 2", logs.Len())
	}
	first := logs.All()[0].ContextMap()
	if first["event"] != "open" {
		t.Errorf("event field = %v, want open", first["event"])
	}
	second := logs.All()[1].ContextMap()
	if second["hex_dump"] != "dead" {
		t.Errorf("hex_dump = %v, want dead", second["hex_dump"])
	}
	if second["message_type"] != "binary" {
		t.Errorf("message_type = %v, want binary", second["message_type"])
	}
}

func TestHexDump_Truncates(t *testing.T) {
	data := make([]byte, 300)
	got := HexDump(data)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation marker, got suffix %q", got[len(got)-5:])
	}
	if len(got) != 2*256+3 {
		t.Errorf("len = %d, want %d", len(got), 2*256+3)
	}
}

func TestASCIIDump(t *testing.T) {
	got := ASCIIDump([]byte{'o', 'k', 0x00, 0x7f, '!'})
	if got != "ok..!" {
		t.Errorf("ASCIIDump() = %q, want %q", got, "ok..!")
	}
	if ASCIIDump(nil) != "" {
		t.Error("ASCIIDump(nil) should be empty")
	}
}

func TestMessageTypeName(t *testing.T) {
	if MessageTypeName(1) != "text" || MessageTypeName(2) != "binary" {
		t.Error("unexpected names for text/binary")
	}
	if MessageTypeName(42) != "unknown(42)" {
		t.Errorf("MessageTypeName(42) = %q", MessageTypeName(42))
	}
}
