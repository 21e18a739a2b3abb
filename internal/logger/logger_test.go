package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "shown" || entry["service"] != "imagemeta" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogSegmentFailureIsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf}).Component("preserve")

	log.LogSegment(0, "Exif", 20, time.Millisecond, nil)
	if buf.Len() != 0 {
		t.Errorf("successful segment logged at warn: %s", buf.String())
	}

	log.LogSegment(1, "XMP", 400, time.Millisecond, errors.New("bad packet"))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["level"] != "warn" || entry["component"] != "preserve" || entry["error"] != "bad packet" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var log *Logger
	log.Info().Msg("nothing")
	log.Component("x").LogMerge("a", "b", "c", 0, nil)
	Nop().LogVersion("v", "", "full", 10)
}
