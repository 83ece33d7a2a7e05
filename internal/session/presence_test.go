package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/typeless/meet/internal/domain"
)

func TestPresenceSelfFirst(t *testing.T) {
	p := NewPresence("alice", nil)

	p.Add(domain.RemotePeer("sid-1"), "bob", false)
	p.Add(domain.RemotePeer("sid-2"), "carol", false)

	snap := p.Snapshot()
	assert.Len(t, snap, 3)
	assert.True(t, snap[0].Self)
	assert.Equal(t, "alice", snap[0].Name)
	assert.Equal(t, "bob", snap[1].Name)
	assert.Equal(t, "carol", snap[2].Name)
}

func TestPresenceAddIdempotent(t *testing.T) {
	p := NewPresence("alice", nil)
	peer := domain.RemotePeer("sid-1")

	p.Add(peer, "bob", false)
	p.Add(peer, "bob again", false)

	snap := p.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, "bob", snap[1].Name)
}

func TestPresenceRemove(t *testing.T) {
	p := NewPresence("alice", nil)
	peer := domain.RemotePeer("sid-1")
	p.Add(peer, "bob", false)

	p.Remove(peer)
	assert.Equal(t, 1, p.Count())

	// Removing an absent peer is a no-op.
	p.Remove(domain.RemotePeer("sid-unknown"))
	assert.Equal(t, 1, p.Count())
}

func TestPresenceNotifiesOnChange(t *testing.T) {
	var rosters [][]domain.Participant
	p := NewPresence("alice", func(snap []domain.Participant) {
		rosters = append(rosters, snap)
	})

	p.Add(domain.RemotePeer("sid-1"), "bob", false)
	p.Remove(domain.RemotePeer("sid-1"))

	// Constructor add, remote add, remove.
	assert.Len(t, rosters, 3)
	assert.Len(t, rosters[1], 2)
	assert.Len(t, rosters[2], 1)
}
