// Package session hosts the in-room coordination logic for one participant:
// the roster, the per-peer call state machine, the caption/chat relay, and
// the end-of-meeting lifecycle. Components never subscribe to anything
// themselves; a single dispatcher routes a closed set of events to them.
package session

import (
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
)

// The closed event set. Anything else arriving from the channel is an
// adapter concern and never reaches the components.
type (
	// PeerAnnounced means a remote participant broadcast its call address.
	PeerAnnounced struct {
		Peer domain.PeerID
		Name string
	}

	// PeerJoined is a roster-only presence event; no call is placed for it.
	PeerJoined struct {
		Peer domain.PeerID
		Name string
	}

	PeerLeft struct {
		Peer domain.PeerID
	}

	TranscriptInserted struct {
		Entry domain.Entry
	}

	MeetingEnded struct{}
)

// Dispatcher routes each event kind to its owning component. Events arrive
// already serialized by the channel's read loop, so no locking is done here.
type Dispatcher struct {
	Presence  *Presence
	Calls     *Calls
	Relay     *Relay
	Lifecycle *Lifecycle
}

func (d *Dispatcher) Dispatch(ev any) {
	switch e := ev.(type) {
	case PeerAnnounced:
		d.Presence.Add(e.Peer, e.Name, false)
		d.Calls.PlaceCall(e.Peer)
	case PeerJoined:
		d.Presence.Add(e.Peer, e.Name, false)
	case PeerLeft:
		d.Presence.Remove(e.Peer)
		d.Calls.Drop(e.Peer)
	case TranscriptInserted:
		d.Relay.OnRemote(e.Entry)
	case MeetingEnded:
		d.Lifecycle.OnRemoteEnd()
	default:
		log.Warn().Str("module", "session").Msgf("unroutable event %T", ev)
	}
}
