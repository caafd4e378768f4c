package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner is a line spinner for steps that happen before the chat UI
// takes over the terminal.
type SimpleSpinner struct {
	mu       sync.Mutex
	message  string
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	stopped  bool
}

// NewConnectionSpinner creates a spinner for network/connection operations (Globe style)
func NewConnectionSpinner(message string) *SimpleSpinner {
	return newSpinner(message, spinner.Globe, 180*time.Millisecond)
}

// NewWaitingSpinner creates a spinner for waiting on the other participant (Points style)
func NewWaitingSpinner(message string) *SimpleSpinner {
	return newSpinner(message, spinner.Points, 100*time.Millisecond)
}

func newSpinner(message string, sp spinner.Spinner, interval time.Duration) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  sp,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		frames := s.spinner.Frames
		for i := 0; ; i++ {
			s.mu.Lock()
			if !s.stopped {
				frame := SpinnerStyle.Render(frames[i%len(frames)])
				fmt.Fprintf(Output, "\r%s %s", frame, s.message)
			}
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *SimpleSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
		fmt.Fprint(Output, "\r\033[K") // Clear the line
	}
}

func (s *SimpleSpinner) Success(message string) {
	s.Stop()
	PrintSuccess(message)
}

func (s *SimpleSpinner) Error(message string) {
	s.Stop()
	PrintError(message)
}

func (s *SimpleSpinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// RunConnectionSpinner starts a connection spinner and returns a stop function
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}
