package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGateFiltersLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn")
	defer InitWriter(&bytes.Buffer{}, "info")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected warn line, got %s", out)
	}
}

func TestStructuredEventIsNilSafeWhenDisabled(t *testing.T) {
	if err := Init(false, "debug", "", false); err != nil {
		t.Fatalf("init: %v", err)
	}
	// Must not panic.
	Event(Error).Str("k", "v").Msg("dropped")
	Errorf("dropped")
}
