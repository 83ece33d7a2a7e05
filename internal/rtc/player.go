package rtc

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/session"
)

// Player drains remote audio tracks. Muting the speaker keeps the RTP flow
// alive so the connection does not starve, packets are just discarded either
// way until a playback device is wired in.
type Player struct {
	mu      sync.Mutex
	muted   bool
	drains  map[string]chan struct{}
	packets map[string]uint64
}

func NewPlayer() *Player {
	return &Player{
		drains:  make(map[string]chan struct{}),
		packets: make(map[string]uint64),
	}
}

func (p *Player) SetMuted(on bool) {
	p.mu.Lock()
	p.muted = on
	p.mu.Unlock()
}

func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Attach starts draining the peer's stream. A second attach for the same
// peer replaces the previous drain.
func (p *Player) Attach(peer domain.PeerID, stream session.MediaStream) {
	rs, ok := stream.(*RemoteStream)
	if !ok {
		log.Warn().Str("module", "rtc").Str("peer", peer.String()).Msg("unplayable stream type")
		return
	}
	stop := make(chan struct{})
	p.mu.Lock()
	if prev, ok := p.drains[peer.Remote()]; ok {
		close(prev)
	}
	p.drains[peer.Remote()] = stop
	p.mu.Unlock()

	go p.drain(peer, rs, stop)
}

func (p *Player) Detach(peer domain.PeerID) {
	p.mu.Lock()
	if stop, ok := p.drains[peer.Remote()]; ok {
		close(stop)
		delete(p.drains, peer.Remote())
	}
	p.mu.Unlock()
}

// PacketCount reports how many RTP packets have been read for a peer.
func (p *Player) PacketCount(peer domain.PeerID) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.packets[peer.Remote()]
}

func (p *Player) drain(peer domain.PeerID, rs *RemoteStream, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		_, _, err := rs.Track().ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("module", "rtc").Str("peer", peer.String()).Msg("track read ended")
			}
			return
		}
		p.mu.Lock()
		p.packets[peer.Remote()]++
		p.mu.Unlock()
	}
}
