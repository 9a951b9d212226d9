package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

// capture redirects output to a buffer for the duration of a test.
func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestVerboseOnlyLevels(t *testing.T) {
	tests := []struct {
		name     string
		log      func()
		expected string
	}{
		{"debug", func() { Debug("fused %d candidates", 12) }, "[DEBUG] fused 12 candidates\n"},
		{"info", func() { Info("session %s created", "s-1") }, "[INFO] session s-1 created\n"},
		{"warn", func() { Warn("rewrite failed: %v", "timeout") }, "[WARN] rewrite failed: timeout\n"},
		{"section", func() { Section("Retrieval") }, "\n=== Retrieval ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			if buf.String() != tt.expected {
				t.Errorf("unexpected output: %q", buf.String())
			}

			buf = capture(t, false)
			tt.log()
			if buf.Len() > 0 {
				t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
			}
		})
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Error("sweep failed: %v", "boom")

	if buf.String() != "[ERROR] sweep failed: boom\n" {
		t.Errorf("unexpected error output: %q", buf.String())
	}
}

func TestConcurrentAccess(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Debug("concurrent %d", i)
			IsVerbose()
		}(i)
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "[DEBUG]"); got != 10 {
		t.Errorf("expected 10 lines, got %d", got)
	}
}
