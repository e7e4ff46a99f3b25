package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLevels(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer SetDebug(false)

	Info("hello %s", "world")
	Warn("careful")
	SetDebug(false)
	Debug("hidden")
	SetDebug(true)
	Debug("shown %d", 1)

	got := buf.String()
	for _, want := range []string{"[INFO] hello world", "[WARN] careful", "[DEBUG] shown 1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug line written while disabled: %q", got)
	}
}
