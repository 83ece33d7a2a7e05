package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureDeliver struct {
	mu    sync.Mutex
	texts []string
}

func (c *captureDeliver) deliver(text string) {
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()
}

func (c *captureDeliver) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func TestDebouncerFiresAfterQuiet(t *testing.T) {
	cap := &captureDeliver{}
	d := NewDebouncer(20*time.Millisecond, 10, cap.deliver)
	defer d.Stop()

	d.Input("hello this is a caption")
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, []string{"hello this is a caption"}, cap.got())
}

func TestDebouncerSkipsShortText(t *testing.T) {
	cap := &captureDeliver{}
	d := NewDebouncer(20*time.Millisecond, 10, cap.deliver)
	defer d.Stop()

	d.Input("short")
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, cap.got())
}

func TestDebouncerRestartsOnInput(t *testing.T) {
	cap := &captureDeliver{}
	d := NewDebouncer(50*time.Millisecond, 10, cap.deliver)
	defer d.Stop()

	d.Input("first draft of the text")
	time.Sleep(20 * time.Millisecond)
	d.Input("second draft of the text")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, cap.got())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"second draft of the text"}, cap.got())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	cap := &captureDeliver{}
	d := NewDebouncer(20*time.Millisecond, 10, cap.deliver)

	d.Input("caption that never sends")
	d.Stop()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, cap.got())

	// Input after Stop is refused.
	d.Input("still nothing happening")
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, cap.got())
}
