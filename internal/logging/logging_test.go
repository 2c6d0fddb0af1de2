package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{JSON: true, Out: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := WithComponent("export")
	logger.Info().Str("file", "video.mp4").Msg("export complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "export" || entry["message"] != "export complete" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestSetupVerbose(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Verbose: true, JSON: true, Out: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Debug().Msg("frame")
	if buf.Len() == 0 {
		t.Error("debug line dropped in verbose mode")
	}

	buf.Reset()
	Setup(Options{JSON: true, Out: &buf})
	log.Debug().Msg("frame")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
}

func TestNewLoggerMulti(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Info().Msg("hello")
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("expected both writers to receive the line")
	}
}
