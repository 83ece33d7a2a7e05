package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/session"
	"github.com/typeless/meet/internal/wire"
)

// peerCall is one negotiated connection to a remote peer.
type peerCall struct {
	peer domain.PeerID
	pc   *webrtc.PeerConnection

	mu       sync.Mutex
	onStream func(session.MediaStream)
	onClosed func()
	streams  []session.MediaStream
	closed   bool
}

func newPeerCall(peer domain.PeerID, pc *webrtc.PeerConnection) *peerCall {
	return &peerCall{peer: peer, pc: pc}
}

func (c *peerCall) Peer() domain.PeerID { return c.peer }

// OnStream registers the stream callback and replays tracks that arrived
// before registration.
func (c *peerCall) OnStream(fn func(session.MediaStream)) {
	c.mu.Lock()
	c.onStream = fn
	replay := append([]session.MediaStream(nil), c.streams...)
	c.mu.Unlock()
	for _, s := range replay {
		fn(s)
	}
}

func (c *peerCall) OnClosed(fn func()) {
	c.mu.Lock()
	fire := c.closed
	c.onClosed = fn
	c.mu.Unlock()
	if fire {
		fn()
	}
}

func (c *peerCall) deliverStream(s session.MediaStream) {
	c.mu.Lock()
	c.streams = append(c.streams, s)
	fn := c.onStream
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *peerCall) deliverClosed() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fn := c.onClosed
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *peerCall) Close() {
	_ = c.pc.Close()
	c.deliverClosed()
}

// invite is an inbound offer waiting to be answered.
type invite struct {
	endpoint *Endpoint
	from     string
	sdp      string
}

func (i *invite) Peer() domain.PeerID { return domain.RemotePeer(i.from) }

// Answer builds the answering side of the connection and sends the answer
// back through the relay.
func (i *invite) Answer() (session.Call, error) {
	e := i.endpoint
	e.mu.Lock()
	mic := e.micTrack
	e.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, err
	}
	call := newPeerCall(i.Peer(), pc)
	e.bind(call)

	if mic != nil {
		if _, err := pc.AddTrack(mic); err != nil {
			pc.Close()
			return nil, err
		}
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: i.sdp}
	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		return nil, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return nil, err
	}
	e.register(call)
	if err := e.sig.SendSignal(wire.Signal{Target: i.from, Kind: "answer", SDP: answer.SDP}); err != nil {
		e.unregister(i.from)
		pc.Close()
		return nil, err
	}
	return call, nil
}

// RemoteStream wraps a received audio track.
type RemoteStream struct {
	id    string
	track *webrtc.TrackRemote
}

func (s *RemoteStream) ID() string { return s.id }

func (s *RemoteStream) Track() *webrtc.TrackRemote { return s.track }
