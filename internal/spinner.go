package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner animates a one-line status message until stopped.
type Spinner struct {
	frames   []string
	interval time.Duration
	message  string
	writer   io.Writer
	active   bool
	mu       sync.Mutex
	done     chan struct{}
	stopped  chan struct{}
}

func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 100 * time.Millisecond,
		message:  message,
		writer:   w,
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	done, stopped := s.done, s.stopped
	s.mu.Unlock()

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r\033[K%s %s", s.frames[frame%len(s.frames)], s.message)
			if f, ok := s.writer.(*os.File); ok {
				f.Sync()
			}
			s.mu.Unlock()

			select {
			case <-done:
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
}

func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Fprintf(s.writer, "✅ %s\n", message)
}

func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Fprintf(s.writer, "❌ %s\n", message)
}

func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// WithSpinner runs operation behind a spinner on w. In VerboseMode the
// operation runs bare so log lines stay readable.
func WithSpinner(w io.Writer, message string, operation func() error) error {
	if VerboseMode {
		return operation()
	}

	spinner := NewSpinner(w, message)
	spinner.Start()

	if err := operation(); err != nil {
		spinner.Error(fmt.Sprintf("Failed: %s", message))
		return err
	}
	spinner.Success(message)
	return nil
}
