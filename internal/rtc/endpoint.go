// Package rtc implements the call transport over pion/webrtc, negotiating
// through the room channel's targeted signal relay.
package rtc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/session"
	"github.com/typeless/meet/internal/wire"
)

// Signaller carries offer/answer/candidate messages to one target peer.
type Signaller interface {
	SendSignal(wire.Signal) error
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// Endpoint is the local call-transport endpoint: it owns the microphone
// track and one peer connection per remote peer.
type Endpoint struct {
	cfg webrtc.Configuration
	sig Signaller

	mu        sync.Mutex
	micTrack  *webrtc.TrackLocalStaticSample
	micOn     bool
	micCancel context.CancelFunc
	calls     map[string]*peerCall
	pending   map[string][]webrtc.ICECandidateInit
	onInvite  func(session.Invite)
	closed    bool
}

func NewEndpoint(cfg webrtc.Configuration, sig Signaller) *Endpoint {
	return &Endpoint{
		cfg:     cfg,
		sig:     sig,
		calls:   make(map[string]*peerCall),
		pending: make(map[string][]webrtc.ICECandidateInit),
	}
}

// EnableMic creates the local audio track. Without a capture device the
// track carries silence frames, keeping the media path real either way.
func (e *Endpoint) EnableMic() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.micTrack != nil {
		e.micOn = true
		return nil
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "meet-mic",
	)
	if err != nil {
		return err
	}
	e.micTrack = track
	e.micOn = true

	ctx, cancel := context.WithCancel(context.Background())
	e.micCancel = cancel
	go e.feedMic(ctx, track)
	return nil
}

// SetMicEnabled flips whether the local track carries audio; disabled means
// the writer pauses, the track stays attached.
func (e *Endpoint) SetMicEnabled(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.micOn = on
}

func (e *Endpoint) MicEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.micOn && e.micTrack != nil
}

func (e *Endpoint) HasLocalAudio() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.micTrack != nil
}

func (e *Endpoint) OnInvite(fn func(session.Invite)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onInvite = fn
}

// opusSilence is a minimal valid Opus frame; written while no capture
// source is wired or the mic is toggled off.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

func (e *Endpoint) feedMic(ctx context.Context, track *webrtc.TrackLocalStaticSample) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.MicEnabled() {
				continue
			}
			if err := track.WriteSample(media.Sample{Data: opusSilence, Duration: 20 * time.Millisecond}); err != nil {
				log.Debug().Err(err).Str("module", "rtc").Msg("mic write stopped")
				return
			}
		}
	}
}

// Dial places an outbound call to one peer: offer out through the relay,
// answer applied when it comes back.
func (e *Endpoint) Dial(peer domain.PeerID) (session.Call, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.New("endpoint closed")
	}
	mic := e.micTrack
	e.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, err
	}
	call := newPeerCall(peer, pc)
	e.bind(call)

	if mic != nil {
		if _, err := pc.AddTrack(mic); err != nil {
			pc.Close()
			return nil, err
		}
	} else if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		pc.Close()
		return nil, err
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, err
	}

	// Registered before the offer leaves so the answer always finds the call.
	e.register(call)
	if err := e.sig.SendSignal(wire.Signal{Target: peer.Remote(), Kind: "offer", SDP: offer.SDP}); err != nil {
		e.unregister(peer.Remote())
		pc.Close()
		return nil, err
	}
	return call, nil
}

// HandleSignal routes relayed negotiation messages to the right peer
// connection. Candidates arriving before their connection are buffered.
func (e *Endpoint) HandleSignal(sig wire.Signal) {
	switch sig.Kind {
	case "offer":
		e.handleOffer(sig)
	case "answer":
		e.handleAnswer(sig)
	case "candidate":
		e.handleCandidate(sig)
	default:
		log.Warn().Str("module", "rtc").Str("kind", sig.Kind).Msg("unknown signal kind")
	}
}

func (e *Endpoint) handleOffer(sig wire.Signal) {
	e.mu.Lock()
	fn := e.onInvite
	e.mu.Unlock()
	if fn == nil {
		log.Warn().Str("module", "rtc").Msg("offer with no invite handler")
		return
	}
	fn(&invite{endpoint: e, from: sig.From, sdp: sig.SDP})
}

func (e *Endpoint) handleAnswer(sig wire.Signal) {
	e.mu.Lock()
	call, ok := e.calls[sig.From]
	e.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "rtc").Str("from", sig.From).Msg("answer for unknown call")
		return
	}
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sig.SDP}
	if err := call.pc.SetRemoteDescription(desc); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("apply answer")
	}
}

func (e *Endpoint) handleCandidate(sig wire.Signal) {
	cand := webrtc.ICECandidateInit{Candidate: sig.Candidate}
	if sig.SDPMid != "" {
		mid := sig.SDPMid
		cand.SDPMid = &mid
	}
	// An absent mline index stays nil; a zero index only counts when the
	// signal carried a mid alongside it.
	if sig.SDPMid != "" || sig.SDPMLineIndex != 0 {
		idx := sig.SDPMLineIndex
		cand.SDPMLineIndex = &idx
	}

	e.mu.Lock()
	call, ok := e.calls[sig.From]
	if !ok {
		e.pending[sig.From] = append(e.pending[sig.From], cand)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	if err := call.pc.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("add candidate")
	}
}

// bind wires the per-connection callbacks in the transport's own terms.
func (e *Endpoint) bind(call *peerCall) {
	peer := call.peer
	pc := call.pc

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		ci := cand.ToJSON()
		out := wire.Signal{Target: peer.Remote(), Kind: "candidate", Candidate: ci.Candidate}
		if ci.SDPMid != nil {
			out.SDPMid = *ci.SDPMid
		}
		if ci.SDPMLineIndex != nil {
			out.SDPMLineIndex = *ci.SDPMLineIndex
		}
		if err := e.sig.SendSignal(out); err != nil {
			log.Debug().Err(err).Str("module", "rtc").Msg("candidate relay failed")
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().Str("module", "rtc").Str("peer", peer.String()).Str("codec", track.Codec().MimeType).Msg("remote track")
		call.deliverStream(&RemoteStream{id: track.ID(), track: track})
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer", peer.String()).Str("state", s.String()).Msg("peer connection state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			e.unregister(peer.Remote())
			call.deliverClosed()
		}
	})
}

func (e *Endpoint) register(call *peerCall) {
	remote := call.peer.Remote()
	e.mu.Lock()
	e.calls[remote] = call
	buffered := e.pending[remote]
	delete(e.pending, remote)
	e.mu.Unlock()
	for _, cand := range buffered {
		if err := call.pc.AddICECandidate(cand); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("flush buffered candidate")
		}
	}
}

func (e *Endpoint) unregister(remote string) {
	e.mu.Lock()
	delete(e.calls, remote)
	e.mu.Unlock()
}

// Close tears down every peer connection and stops the microphone writer.
func (e *Endpoint) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	calls := make([]*peerCall, 0, len(e.calls))
	for _, c := range e.calls {
		calls = append(calls, c)
	}
	e.calls = make(map[string]*peerCall)
	cancel := e.micCancel
	e.mu.Unlock()

	for _, c := range calls {
		c.Close()
	}
	if cancel != nil {
		cancel()
	}
}
