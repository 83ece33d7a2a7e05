package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/typeless/meet/internal/domain"
)

type fakeMediaStream struct{ id string }

func (s *fakeMediaStream) ID() string { return s.id }

func TestPlayerMuteToggle(t *testing.T) {
	p := NewPlayer()
	assert.False(t, p.Muted())

	p.SetMuted(true)
	assert.True(t, p.Muted())

	p.SetMuted(false)
	assert.False(t, p.Muted())
}

func TestPlayerIgnoresUnplayableStream(t *testing.T) {
	p := NewPlayer()
	peer := domain.RemotePeer("sid-a")

	// A stream that is not a webrtc track is logged and skipped, so no
	// drain starts and the packet counter stays at zero.
	p.Attach(peer, &fakeMediaStream{id: "s"})
	assert.Zero(t, p.PacketCount(peer))

	// Detach without a drain is a no-op.
	p.Detach(peer)
	assert.Zero(t, p.PacketCount(peer))
}
