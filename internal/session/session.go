package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/wire"
)

// Context is the resolved room identity, immutable once the join succeeds.
// Components receive only the slice of it they need.
type Context struct {
	MeetingID domain.MeetingID
	RoomCode  domain.RoomCode
	Title     string
	SelfSID   string
	Host      bool
}

// Options configures one session. Transport and Sink come from the caller
// so tests can drive the orchestration with fakes.
type Options struct {
	ServerURL string
	User      *domain.User
	Transport Transport
	Sink      AudioSink
	// OnRoster re-renders the participant list whenever it changes.
	OnRoster func([]domain.Participant)
	// OnEntry renders one caption/chat line.
	OnEntry func(domain.Entry)
	// OnNavigate fires after a terminal transition: true means the summary
	// view, false the landing page.
	OnNavigate func(withSummary bool)
}

// Session is one participant's presence in one room, from join to teardown.
type Session struct {
	Ctx       Context
	Presence  *Presence
	Calls     *Calls
	Relay     *Relay
	Lifecycle *Lifecycle

	opts       Options
	channel    *Channel
	dispatcher *Dispatcher

	joined chan error
}

// Join resolves the room code, registers the local participant, loads the
// transcript backlog, and starts reacting to room events. A room that does
// not resolve fails here with no further setup.
func Join(ctx context.Context, opts Options, code domain.RoomCode) (*Session, error) {
	s := &Session{
		opts:    opts,
		channel: NewChannel(),
		joined:  make(chan error, 1),
	}

	s.Presence = NewPresence(opts.User.Name, opts.OnRoster)
	s.Calls = NewCalls(opts.Transport, opts.Sink, s.Presence)
	s.Relay = NewRelay(s.channel, opts.OnEntry)
	s.Lifecycle = NewLifecycle(s.channel, s.Calls, s.Relay, opts.Transport, opts.OnNavigate)
	s.dispatcher = &Dispatcher{
		Presence:  s.Presence,
		Calls:     s.Calls,
		Relay:     s.Relay,
		Lifecycle: s.Lifecycle,
	}

	s.channel.SetHandler(s.handleMessage)
	if err := s.channel.Connect(ctx, opts.ServerURL); err != nil {
		return nil, err
	}
	if err := s.channel.SendJoin(code, opts.User); err != nil {
		s.channel.Close()
		return nil, err
	}

	select {
	case err := <-s.joined:
		if err != nil {
			s.channel.Close()
			return nil, err
		}
	case <-time.After(10 * time.Second):
		s.channel.Close()
		return nil, errors.New("join timed out")
	case <-ctx.Done():
		s.channel.Close()
		return nil, ctx.Err()
	}
	return s, nil
}

// Announce broadcasts the local call address once the transport endpoint is
// ready, so existing participants place calls toward it.
func (s *Session) Announce() error {
	return s.channel.SendAnnounce(s.opts.User.Name)
}

// Signaller exposes the channel's targeted signal relay to the transport.
func (s *Session) Signaller() *Channel { return s.channel }

func (s *Session) handleMessage(data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "session").Msg("bad channel json")
		return
	}

	switch env.Type {
	case wire.TypeRoomState:
		s.handleRoomState(data)
	case wire.TypeMemberJoined:
		var p wire.MemberJoined
		if json.Unmarshal(data, &p) == nil && p.SID != s.Ctx.SelfSID {
			s.dispatcher.Dispatch(PeerJoined{Peer: domain.RemotePeer(p.SID), Name: p.Name})
		}
	case wire.TypePeerAnnounced:
		var p wire.PeerAnnounced
		if json.Unmarshal(data, &p) == nil && p.Peer != s.Ctx.SelfSID {
			s.dispatcher.Dispatch(PeerAnnounced{Peer: domain.RemotePeer(p.Peer), Name: p.Name})
		}
	case wire.TypeMemberLeft:
		var p wire.MemberLeft
		if json.Unmarshal(data, &p) == nil {
			s.dispatcher.Dispatch(PeerLeft{Peer: domain.RemotePeer(p.SID)})
		}
	case wire.TypePeerLeft:
		var p wire.PeerLeft
		if json.Unmarshal(data, &p) == nil {
			s.dispatcher.Dispatch(PeerLeft{Peer: domain.RemotePeer(p.Peer)})
		}
	case wire.TypeTranscriptInserted:
		var p wire.TranscriptInserted
		if json.Unmarshal(data, &p) == nil {
			s.dispatcher.Dispatch(TranscriptInserted{Entry: p.Entry})
		}
	case wire.TypeMeetingEnded:
		s.dispatcher.Dispatch(MeetingEnded{})
	case wire.TypeSignal:
		var p wire.Signal
		if json.Unmarshal(data, &p) == nil {
			if h, ok := s.opts.Transport.(SignalReceiver); ok {
				h.HandleSignal(p)
			}
		}
	case wire.TypeError:
		var p wire.Error
		_ = json.Unmarshal(data, &p)
		select {
		case s.joined <- fmt.Errorf("room error: %s", p.Error):
		default:
			// Mid-session errors are transient: surfaced in the log, the
			// meeting continues.
			log.Warn().Str("module", "session").Str("error", p.Error).Msg("room error")
		}
	case wire.TypePong:
	default:
		log.Debug().Str("module", "session").Str("type", env.Type).Msg("ignoring message")
	}
}

func (s *Session) handleRoomState(data []byte) {
	var p wire.RoomState
	if err := json.Unmarshal(data, &p); err != nil {
		s.joined <- fmt.Errorf("bad room state: %w", err)
		return
	}
	s.Ctx = Context{
		MeetingID: domain.MeetingID(p.Meeting),
		RoomCode:  domain.RoomCode(p.Room),
		Title:     p.Title,
		SelfSID:   p.Self,
		Host:      p.Host,
	}
	s.Calls.SetLocalID(p.Self)

	// Roster first, backlog second; live events can only follow on this
	// connection, so backlog order is preserved.
	for _, m := range p.Members {
		if m.SID == p.Self {
			continue
		}
		s.dispatcher.Dispatch(PeerJoined{Peer: domain.RemotePeer(m.SID), Name: m.Name})
	}
	backlog := make([]*domain.Entry, 0, len(p.Backlog))
	for i := range p.Backlog {
		backlog = append(backlog, &p.Backlog[i])
	}
	s.Relay.LoadBacklog(backlog)

	select {
	case s.joined <- nil:
	default:
	}
}

// SignalReceiver is implemented by transports that negotiate through the
// room channel's targeted relay.
type SignalReceiver interface {
	HandleSignal(wire.Signal)
}
