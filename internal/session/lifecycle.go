package session

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Ender broadcasts the end-of-meeting transition to the backend and the
// other participants.
type Ender interface {
	SendEnd(withSummary bool) error
	SendLeave() error
	Close()
}

// Lifecycle owns the start/end transitions and resource cleanup. Ending is
// one-way: a second End on an already-ended session is a no-op.
type Lifecycle struct {
	mu    sync.Mutex
	ended bool

	channel   Ender
	calls     *Calls
	relay     *Relay
	transport Transport
	// onNavigate receives true for the summary view, false for the landing
	// page.
	onNavigate func(withSummary bool)
}

func NewLifecycle(channel Ender, calls *Calls, relay *Relay, transport Transport, onNavigate func(bool)) *Lifecycle {
	return &Lifecycle{
		channel:    channel,
		calls:      calls,
		relay:      relay,
		transport:  transport,
		onNavigate: onNavigate,
	}
}

// End marks the meeting ended, broadcasts the transition, and cleans up.
func (l *Lifecycle) End(withSummary bool) {
	if !l.begin() {
		log.Debug().Str("module", "session.lifecycle").Msg("end on ended session ignored")
		return
	}
	if err := l.channel.SendEnd(withSummary); err != nil {
		// Best-effort: cleanup proceeds even if the broadcast never left.
		log.Error().Err(err).Str("module", "session.lifecycle").Msg("end broadcast failed")
	}
	l.cleanup()
	if l.onNavigate != nil {
		l.onNavigate(withSummary)
	}
}

// OnRemoteEnd reacts to another client ending the meeting: cleanup and
// navigate to the summary view.
func (l *Lifecycle) OnRemoteEnd() {
	if !l.begin() {
		return
	}
	log.Info().Str("module", "session.lifecycle").Msg("meeting ended remotely")
	l.cleanup()
	if l.onNavigate != nil {
		l.onNavigate(true)
	}
}

// Leave exits the room without ending the meeting for everyone else. Also
// the best-effort path on unexpected shutdown.
func (l *Lifecycle) Leave() {
	if !l.begin() {
		return
	}
	if err := l.channel.SendLeave(); err != nil {
		log.Warn().Err(err).Str("module", "session.lifecycle").Msg("leave notification failed")
	}
	l.cleanup()
	if l.onNavigate != nil {
		l.onNavigate(false)
	}
}

// Ended reports whether the session has gone through a terminal transition.
func (l *Lifecycle) Ended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ended
}

func (l *Lifecycle) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ended {
		return false
	}
	l.ended = true
	return true
}

// cleanup releases local resources in dependency order: calls first, then
// the transport endpoint, the caption timer, and finally the channel
// subscription. Best-effort, not retried.
func (l *Lifecycle) cleanup() {
	l.calls.CloseAll()
	l.transport.Close()
	l.relay.Close()
	l.channel.Close()
}
