package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"stillmotion/internal/logging"
)

func TestNewConsoleWritesReadableRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("scanning sources", logging.Int("roots", 2))
	logger.Debug("should be filtered")

	out := buf.String()
	if !strings.Contains(out, "scanning sources") {
		t.Fatalf("missing message in output: %q", out)
	}
	if !strings.Contains(out, "roots=2") {
		t.Fatalf("missing attr in output: %q", out)
	}
	if strings.Contains(out, "should be filtered") {
		t.Fatalf("debug record leaked through info level: %q", out)
	}
}

func TestNewJSONEmitsLowercaseLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("frame geometry mismatch", logging.Frame(7))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["msg"] != "frame geometry mismatch" {
		t.Fatalf("unexpected message: %v", record["msg"])
	}
	if record["frame"] != float64(7) {
		t.Fatalf("unexpected frame attr: %v", record["frame"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
