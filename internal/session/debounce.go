package session

import (
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultCaptionQuiet is how long typing must pause before the buffered
// caption is sent; DefaultCaptionMinLen is the shortest caption worth
// sending at all.
const (
	DefaultCaptionQuiet  = 1500 * time.Millisecond
	DefaultCaptionMinLen = 10
)

// Debouncer delays an action until input has been quiet for a fixed period.
// The timer restarts on every Input; only the final stable value within the
// quiet window is ever delivered. Stop cancels any pending delivery and is
// guaranteed on relay teardown.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	quiet   time.Duration
	minLen  int
	deliver func(string)
	stopped bool
}

func NewDebouncer(quiet time.Duration, minLen int, deliver func(string)) *Debouncer {
	return &Debouncer{quiet: quiet, minLen: minLen, deliver: deliver}
}

// Input restarts the quiet timer with the latest buffered text.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() {
		d.fire(text)
	})
}

func (d *Debouncer) fire(text string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	if utf8.RuneCountInString(text) < d.minLen {
		return
	}
	d.deliver(text)
}

// Stop cancels the pending timer and refuses further input.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
