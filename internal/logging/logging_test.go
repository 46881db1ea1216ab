package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel("info")

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Errorf("100%")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Fatalf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] 100%") {
		t.Fatalf("plain message should be printed verbatim: %q", out)
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	defer SetLevel("info")
	SetLevel("debug")
	SetLevel("loud")
	if CurrentLevel() != LevelDebug {
		t.Fatalf("unknown level changed state: %v", CurrentLevel())
	}
}
