package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInfoWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "info", "json")
	defer Configure(os.Stdout, "info", "json")

	Info("extraction.complete", map[string]any{
		"extraction_id": "abc",
		"records":       2,
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["message"] != "extraction.complete" {
		t.Fatalf("unexpected message: %v", payload["message"])
	}
	if payload["extraction_id"] != "abc" {
		t.Fatalf("unexpected extraction_id: %v", payload["extraction_id"])
	}
	if _, ok := payload["time"]; !ok {
		t.Fatalf("expected time field")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "warn", "json")
	defer Configure(os.Stdout, "info", "json")

	Debug("hidden", nil)
	Info("hidden", nil)
	Warn("shown", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"shown"`) {
		t.Fatalf("unexpected line: %s", lines[0])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got.String() != "info" {
		t.Fatalf("expected info, got %s", got)
	}
	if got := parseLevel(" DEBUG "); got.String() != "debug" {
		t.Fatalf("expected debug, got %s", got)
	}
}
