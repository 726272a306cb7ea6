package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
)

// SpinnerResult is how the spinner's operation ended.
type SpinnerResult int

const (
	SpinnerRunning SpinnerResult = iota
	SpinnerSucceeded
	SpinnerFailed
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// spinnerOutput is where new spinners write. Spinners never touch stdout,
// so `fdwatch metrics > out.txt` captures only the report.
var spinnerOutput io.Writer = os.Stderr

const spinnerTick = 100 * time.Millisecond

// Spinner animates one status line while a request runs, then replaces it
// with the outcome: "✓ label (detail) 0.3s" or "✗ label: cause 0.3s".
//
// A nil *Spinner is valid and prints nothing; see StartSpinner.
type Spinner struct {
	mu     sync.Mutex
	label  string
	out    io.Writer
	frame  int
	width  int // runes on screen, for clearing
	start  time.Time
	result SpinnerResult
	ended  bool
	stop   chan struct{}
	done   chan struct{}
}

// NewSpinner creates a stopped spinner writing to stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label, out: spinnerOutput}
}

// StartSpinner starts a spinner when enabled, and returns nil otherwise so
// piped output stays clean.
func StartSpinner(label string, enabled bool) *Spinner {
	if !enabled {
		return nil
	}
	s := NewSpinner(label)
	s.Start()
	return s
}

// SetOutput redirects the spinner. Call before Start.
func (s *Spinner) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

// Start draws the first frame and animates until Done or Finish. Starting
// twice is a no-op.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.stop != nil || s.ended {
		s.mu.Unlock()
		return
	}
	s.start = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.drawLocked()
	s.mu.Unlock()

	go s.animate(s.stop, s.done)
}

// Done stops the spinner and reports success. detail, when set, is shown
// in parentheses after the label.
func (s *Spinner) Done(detail string) {
	if s == nil {
		return
	}
	line := s.label
	if detail != "" {
		line += " (" + detail + ")"
	}
	s.finish(SpinnerSucceeded, SuccessStyle().Render(SymbolSuccess), line)
}

// Finish stops the spinner and reports err's one-line summary, or success
// when err is nil.
func (s *Spinner) Finish(err error) {
	if s == nil {
		return
	}
	if err == nil {
		s.Done("")
		return
	}
	s.finish(SpinnerFailed, ErrorStyle().Render(SymbolFail), s.label+": "+errors.OneLine(err))
}

// Track runs fn under the spinner and reports its outcome.
func (s *Spinner) Track(fn func() error) error {
	err := fn()
	s.Finish(err)
	return err
}

// Result reports how the spinner ended, or SpinnerRunning before that.
func (s *Spinner) Result() SpinnerResult {
	if s == nil {
		return SpinnerRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Spinner) finish(result SpinnerResult, symbol, text string) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.clearLocked()

	elapsed := time.Duration(0)
	if !s.start.IsZero() {
		elapsed = time.Since(s.start)
	}
	fmt.Fprintf(s.out, "%s %s %s\n", symbol, text, MutedStyle().Render(formatDuration(elapsed)))
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) drawLocked() {
	s.clearLocked()
	frame := spinnerFrames[s.frame]
	fmt.Fprintf(s.out, "%s %s...", InfoStyle().Render(frame), s.label)
	s.width = len([]rune(frame+" "+s.label+"..."))
}

func (s *Spinner) clearLocked() {
	if s.width == 0 {
		return
	}
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
}

// formatDuration renders elapsed time as "0.04s" or "1.2s".
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
