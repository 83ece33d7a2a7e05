package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
)

// MediaStream is an opaque handle to one remote audio stream.
type MediaStream interface {
	ID() string
}

// Call is an active bidirectional audio call owned by the transport. The
// orchestrator only observes its lifecycle.
type Call interface {
	Peer() domain.PeerID
	OnStream(func(MediaStream))
	OnClosed(func())
	Close()
}

// Invite is an inbound call waiting to be answered.
type Invite interface {
	Peer() domain.PeerID
	// Answer accepts with whatever local stream exists; an absent
	// microphone is answered with an empty stream, never rejected.
	Answer() (Call, error)
}

// Transport is the call collaborator: it assigns addresses, places and
// answers calls, and reports established/closed transitions per call.
type Transport interface {
	// Dial places an outbound call carrying the local stream.
	Dial(peer domain.PeerID) (Call, error)
	// HasLocalAudio reports whether a microphone stream exists; outbound
	// calls are only placed when it does.
	HasLocalAudio() bool
	// OnInvite registers the inbound-call handler.
	OnInvite(func(Invite))
	Close()
}

// AudioSink renders remote streams, keyed by peer id.
type AudioSink interface {
	Attach(peer domain.PeerID, stream MediaStream)
	Detach(peer domain.PeerID)
}

type callState int

const (
	stateCalling callState = iota + 1
	stateAnswering
	stateConnected
)

type callHandle struct {
	call     Call
	state    callState
	attached bool
}

// Calls is the per-peer call state machine. One handle per peer id at most.
// An invite for a peer that already has a handle is normally ignored, with
// one exception: when both sides dialed each other at the same time, the
// side with the greater session id abandons its own offer and answers, so
// the pair always converges on a single call.
type Calls struct {
	mu        sync.Mutex
	transport Transport
	sink      AudioSink
	presence  *Presence
	localID   string
	handles   map[domain.PeerID]*callHandle
}

func NewCalls(transport Transport, sink AudioSink, presence *Presence) *Calls {
	c := &Calls{
		transport: transport,
		sink:      sink,
		presence:  presence,
		handles:   make(map[domain.PeerID]*callHandle),
	}
	transport.OnInvite(c.handleInvite)
	return c
}

// SetLocalID records the session id used to break simultaneous-dial ties.
// Set once the join reply assigns it, before any announce goes out.
func (c *Calls) SetLocalID(id string) {
	c.mu.Lock()
	c.localID = id
	c.mu.Unlock()
}

// PlaceCall dials a freshly announced peer. No-ops: the local peer itself,
// a peer with an open handle, or a missing local microphone stream.
func (c *Calls) PlaceCall(peer domain.PeerID) {
	if peer.IsLocal() {
		return
	}
	c.mu.Lock()
	if _, ok := c.handles[peer]; ok {
		c.mu.Unlock()
		log.Debug().Str("module", "session.calls").Str("peer", peer.String()).Msg("announce for open handle ignored")
		return
	}
	if !c.transport.HasLocalAudio() {
		c.mu.Unlock()
		log.Debug().Str("module", "session.calls").Str("peer", peer.String()).Msg("no local audio, not calling")
		return
	}
	h := &callHandle{state: stateCalling}
	c.handles[peer] = h
	c.mu.Unlock()

	call, err := c.transport.Dial(peer)
	if err != nil {
		log.Error().Err(err).Str("module", "session.calls").Str("peer", peer.String()).Msg("dial failed")
		c.mu.Lock()
		if cur, ok := c.handles[peer]; ok && cur == h {
			delete(c.handles, peer)
		}
		c.mu.Unlock()
		return
	}
	c.mu.Lock()
	if cur, ok := c.handles[peer]; !ok || cur != h {
		// The dial lost a simultaneous-offer tie-break while in flight.
		c.mu.Unlock()
		call.Close()
		return
	}
	h.call = call
	c.mu.Unlock()
	c.watch(peer, h, call)
	log.Info().Str("module", "session.calls").Str("peer", peer.String()).Msg("calling")
}

// handleInvite answers every inbound call, microphone or not. An invite for
// a peer with an open handle is ignored unless that handle is still dialing
// and the local session id is the greater one: then both sides offered at
// once, and the greater id yields its dial and answers instead.
func (c *Calls) handleInvite(inv Invite) {
	peer := inv.Peer()
	c.mu.Lock()
	if old, ok := c.handles[peer]; ok {
		if old.state != stateCalling || c.localID <= peer.Remote() {
			c.mu.Unlock()
			log.Debug().Str("module", "session.calls").Str("peer", peer.String()).Msg("invite for open handle ignored")
			return
		}
		delete(c.handles, peer)
		attached := old.attached
		call := old.call
		c.mu.Unlock()
		if attached {
			c.sink.Detach(peer)
		}
		if call != nil {
			call.Close()
		}
		log.Info().Str("module", "session.calls").Str("peer", peer.String()).Msg("simultaneous offers, yielding own call to answer")
		c.mu.Lock()
		if _, ok := c.handles[peer]; ok {
			c.mu.Unlock()
			return
		}
	}
	h := &callHandle{state: stateAnswering}
	c.handles[peer] = h
	c.mu.Unlock()

	call, err := inv.Answer()
	if err != nil {
		log.Error().Err(err).Str("module", "session.calls").Str("peer", peer.String()).Msg("answer failed")
		c.mu.Lock()
		if cur, ok := c.handles[peer]; ok && cur == h {
			delete(c.handles, peer)
		}
		c.mu.Unlock()
		return
	}
	c.mu.Lock()
	if cur, ok := c.handles[peer]; !ok || cur != h {
		c.mu.Unlock()
		call.Close()
		return
	}
	h.call = call
	c.mu.Unlock()
	c.watch(peer, h, call)
	log.Info().Str("module", "session.calls").Str("peer", peer.String()).Msg("answering")
}

// watch wires lifecycle events for one call. Every callback checks that the
// handle is still the current one for the peer, so events from a call that
// lost a tie-break cannot evict its replacement.
func (c *Calls) watch(peer domain.PeerID, h *callHandle, call Call) {
	call.OnStream(func(stream MediaStream) {
		c.mu.Lock()
		if cur, ok := c.handles[peer]; !ok || cur != h {
			c.mu.Unlock()
			return
		}
		h.state = stateConnected
		attach := !h.attached
		h.attached = true
		c.mu.Unlock()

		// Attaching is idempotent: a sink that already exists is kept.
		if attach {
			c.sink.Attach(peer, stream)
		}
		log.Info().Str("module", "session.calls").Str("peer", peer.String()).Msg("connected")
	})
	call.OnClosed(func() {
		c.mu.Lock()
		if cur, ok := c.handles[peer]; !ok || cur != h {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.Drop(peer)
		c.presence.Remove(peer)
	})
}

// Drop tears down the handle and sink for one peer; a no-op when absent.
func (c *Calls) Drop(peer domain.PeerID) {
	c.mu.Lock()
	h, ok := c.handles[peer]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.handles, peer)
	attached := h.attached
	call := h.call
	c.mu.Unlock()

	if attached {
		c.sink.Detach(peer)
	}
	if call != nil {
		call.Close()
	}
	log.Info().Str("module", "session.calls").Str("peer", peer.String()).Msg("call dropped")
}

// CloseAll tears down every handle; used at end of meeting.
func (c *Calls) CloseAll() {
	c.mu.Lock()
	peers := make([]domain.PeerID, 0, len(c.handles))
	for peer := range c.handles {
		peers = append(peers, peer)
	}
	c.mu.Unlock()
	for _, peer := range peers {
		c.Drop(peer)
	}
}

// HandleCount reports the number of open handles for one peer: 0 or 1.
func (c *Calls) HandleCount(peer domain.PeerID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handles[peer]; ok {
		return 1
	}
	return 0
}
