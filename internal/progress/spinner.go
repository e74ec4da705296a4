package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner animates a message while a scan runs. It is inert when the
// terminal is not interactive.
type Spinner struct {
	caps    TerminalCapabilities
	symbols ProgressSymbols
	writer  io.Writer
	spinner *spinner.Spinner
}

// NewSpinner creates a Spinner writing to stderr.
func NewSpinner(caps TerminalCapabilities) *Spinner {
	return &Spinner{
		caps:    caps,
		symbols: SelectSymbols(caps),
		writer:  os.Stderr,
	}
}

// Start begins animating msg. Calling Start while running replaces the message.
func (s *Spinner) Start(msg string) {
	if !s.caps.IsTTY {
		return
	}
	if s.spinner != nil {
		s.spinner.Suffix = " " + msg
		return
	}
	s.spinner = spinner.New(spinner.CharSets[s.symbols.SpinnerSet], 100*time.Millisecond)
	s.spinner.Writer = s.writer
	s.spinner.Suffix = " " + msg
	s.spinner.Start()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	if s.spinner == nil {
		return
	}
	s.spinner.Stop()
	s.spinner = nil
}

// Done stops a running spinner and prints msg behind a success mark.
func (s *Spinner) Done(msg string) {
	s.finish(checkmark(s.symbols, s.caps.SupportsColor), msg)
}

// Fail stops a running spinner and prints msg behind a failure mark.
func (s *Spinner) Fail(msg string) {
	s.finish(failureMark(s.symbols, s.caps.SupportsColor), msg)
}

func (s *Spinner) finish(mark, msg string) {
	if s.spinner == nil {
		return
	}
	s.Stop()
	fmt.Fprintf(s.writer, "%s %s\n", mark, msg)
}

// Active reports whether the spinner is animating.
func (s *Spinner) Active() bool {
	return s.spinner != nil
}

func checkmark(symbols ProgressSymbols, supportsColor bool) string {
	if supportsColor && symbols.Checkmark == "✓" {
		return "\033[32m" + symbols.Checkmark + "\033[0m"
	}
	return symbols.Checkmark
}

func failureMark(symbols ProgressSymbols, supportsColor bool) string {
	if supportsColor && symbols.Failure == "✗" {
		return "\033[31m" + symbols.Failure + "\033[0m"
	}
	return symbols.Failure
}
