package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
)

// Presence is the local view of who is in the room: an insertion-ordered
// mapping of peer id to participant, at most one entry per peer.
type Presence struct {
	mu       sync.Mutex
	order    []domain.PeerID
	byPeer   map[domain.PeerID]*domain.Participant
	onChange func([]domain.Participant)
}

// NewPresence registers the local user first, so the view always contains
// the caller before any remote peer shows up.
func NewPresence(selfName string, onChange func([]domain.Participant)) *Presence {
	p := &Presence{
		byPeer:   make(map[domain.PeerID]*domain.Participant),
		onChange: onChange,
	}
	p.Add(domain.LocalPeer(), selfName, true)
	return p
}

// Add is idempotent: a peer id already present is left untouched.
func (p *Presence) Add(peer domain.PeerID, name string, self bool) {
	p.mu.Lock()
	if _, ok := p.byPeer[peer]; ok {
		p.mu.Unlock()
		return
	}
	p.byPeer[peer] = &domain.Participant{Peer: peer, Name: name, Self: self}
	p.order = append(p.order, peer)
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	log.Debug().Str("module", "session.presence").Str("peer", peer.String()).Str("name", name).Msg("participant added")
	p.notify(snapshot)
}

// Remove deletes the entry if present; a no-op otherwise.
func (p *Presence) Remove(peer domain.PeerID) {
	p.mu.Lock()
	if _, ok := p.byPeer[peer]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.byPeer, peer)
	for i, id := range p.order {
		if id == peer {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	log.Debug().Str("module", "session.presence").Str("peer", peer.String()).Msg("participant removed")
	p.notify(snapshot)
}

func (p *Presence) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Snapshot returns participants in insertion order.
func (p *Presence) Snapshot() []domain.Participant {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Presence) snapshotLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.byPeer[id])
	}
	return out
}

func (p *Presence) notify(snapshot []domain.Participant) {
	if p.onChange != nil {
		p.onChange(snapshot)
	}
}
