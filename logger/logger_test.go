package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLevelFromOptionsAndEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	log, err := New(Options{Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if log.GetLevel() != zerolog.ErrorLevel {
		t.Errorf("level from env = %v, want error", log.GetLevel())
	}

	log, err = New(Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level from options = %v, want debug", log.GetLevel())
	}
	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("output %q missing message", buf.String())
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otk.log")
	log, err := New(Options{File: path, Level: "info"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info().Str("k", "v").Msg("written")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"k":"v"`) {
		t.Errorf("log file = %q, want field k", data)
	}
}

func TestNewFileError(t *testing.T) {
	_, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "otk.log")})
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}
