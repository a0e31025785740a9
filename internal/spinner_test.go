package internal

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWithSpinner(t *testing.T) {
	VerboseMode = false
	var out syncBuffer

	err := WithSpinner(&out, "Listing tables", func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.HasSuffix(out.String(), "✅ Listing tables\n") {
		t.Errorf("Expected success line, got %q", out.String())
	}
}

func TestWithSpinnerError(t *testing.T) {
	VerboseMode = false
	var out syncBuffer

	expectedErr := errors.New("test error")
	err := WithSpinner(&out, "Listing tables", func() error {
		return expectedErr
	})
	if err != expectedErr {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if !strings.Contains(out.String(), "❌ Failed: Listing tables") {
		t.Errorf("Expected failure line, got %q", out.String())
	}
}

func TestWithSpinnerVerboseMode(t *testing.T) {
	VerboseMode = true
	defer func() { VerboseMode = false }()
	var out syncBuffer

	operationCalled := false
	err := WithSpinner(&out, "Listing tables", func() error {
		operationCalled = true
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !operationCalled {
		t.Error("Operation should still be called in verbose mode")
	}
	if out.String() != "" {
		t.Errorf("Expected no spinner output in verbose mode, got %q", out.String())
	}
}

func TestNewSpinner(t *testing.T) {
	spinner := NewSpinner(&syncBuffer{}, "Test message")

	if spinner.message != "Test message" {
		t.Errorf("Expected message 'Test message', got '%s'", spinner.message)
	}
	if len(spinner.frames) == 0 {
		t.Error("Expected frames to be populated")
	}
	if spinner.interval != 100*time.Millisecond {
		t.Errorf("Expected interval 100ms, got %v", spinner.interval)
	}
}

func TestSpinnerStartStop(t *testing.T) {
	var out syncBuffer
	spinner := NewSpinner(&out, "Test")

	spinner.Start()
	if !spinner.active {
		t.Error("Spinner should be active after Start()")
	}
	spinner.Start()
	if !spinner.active {
		t.Error("Spinner should still be active after second Start()")
	}

	spinner.Stop()
	if spinner.active {
		t.Error("Spinner should not be active after Stop()")
	}
	spinner.Stop()

	if !strings.HasSuffix(out.String(), "\r\033[K") {
		t.Errorf("Expected line to be cleared on stop, got %q", out.String())
	}
}

func TestSpinnerUpdateMessage(t *testing.T) {
	var out syncBuffer
	spinner := NewSpinner(&out, "Migrating tables (0/2)")
	spinner.interval = 5 * time.Millisecond
	spinner.Start()

	spinner.UpdateMessage("Migrating tables (1/2)")
	time.Sleep(30 * time.Millisecond)
	spinner.Success("Migrated 2 tables")

	got := out.String()
	if !strings.Contains(got, "Migrating tables (1/2)") {
		t.Errorf("Expected updated message in output, got %q", got)
	}
	if !strings.HasSuffix(got, "✅ Migrated 2 tables\n") {
		t.Errorf("Expected success line, got %q", got)
	}
}

func TestLogLevelSettings(t *testing.T) {
	defer SetLogLevel("info")

	SetLogLevel("debug")
	if !VerboseMode {
		t.Error("VerboseMode should be true when log level is debug")
	}

	for _, level := range []string{"info", "warn", "error", "unknown"} {
		SetLogLevel(level)
		if VerboseMode {
			t.Errorf("VerboseMode should be false when log level is %s", level)
		}
	}
}

func TestSetLogOutput(t *testing.T) {
	defer SetLogLevel("info")
	var out bytes.Buffer

	SetLogOutput(&out, "warn")
	Logger.Info("hidden")
	Logger.Warn("shown", "table", "users")

	if strings.Contains(out.String(), "hidden") {
		t.Errorf("Info line should be filtered at warn level, got %q", out.String())
	}
	if !strings.Contains(out.String(), "table=users") {
		t.Errorf("Expected warn line with attributes, got %q", out.String())
	}
}
