package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/hub"
	"github.com/typeless/meet/internal/wire"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController owns one room channel connection from upgrade to teardown.
type WSController struct {
	Srv *Server
}

type wsConn struct {
	conn *websocket.Conn
	send chan hub.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f hub.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// wsSession is the per-connection state: set once the join succeeds.
type wsSession struct {
	sid  hub.SessionID
	conn *wsConn
	user *domain.User
	room *hub.Room
	host bool
}

func (ctl *WSController) HandleRoom(ctx context.Context, c *gin.Context) {
	sid := hub.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "server.ws").Str("sid", string(sid)).Msg("new room connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("ws upgrade")
		return
	}
	if ctl.Srv.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Srv.Cfg.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan hub.Frame, 32),
	}
	sess := &wsSession{sid: sid, conn: conn}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sess)
	}()
}

func (ctl *WSController) handleMessage(sess *wsSession, data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("bad json")
		return
	}

	switch env.Type {
	case wire.TypeJoin:
		ctl.handleJoin(sess, data)
	case wire.TypeLeave:
		ctl.handleLeave(sess)
	case wire.TypeAnnounce:
		ctl.handleAnnounce(sess, data)
	case wire.TypeTranscript:
		ctl.handleTranscript(sess, data)
	case wire.TypeEnd:
		ctl.handleEnd(sess)
	case wire.TypeSignal:
		ctl.handleSignal(sess, data)
	case wire.TypePing:
		ctl.sendJSON(sess.conn, wire.Envelope{Type: wire.TypePong})
	default:
		log.Warn().Str("module", "server.ws").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *WSController) handleJoin(sess *wsSession, data []byte) {
	if sess.room != nil {
		ctl.sendJSON(sess.conn, wire.NewError("already in a room"))
		return
	}
	var p wire.Join
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("bad_payload"))
		return
	}
	user, err := domain.NewUser(p.Name, p.Email)
	if err != nil {
		ctl.sendJSON(sess.conn, wire.NewError(err.Error()))
		return
	}
	code, err := domain.ParseRoomCode(p.Room)
	if err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("malformed room code"))
		return
	}
	meeting, err := ctl.Srv.Store.FindActiveByCode(context.Background(), code)
	if errors.Is(err, domain.ErrMeetingNotFound) {
		// Terminal for this join: the client surfaces it and navigates away.
		ctl.sendJSON(sess.conn, wire.NewError("meeting not found or ended"))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("resolve room")
		ctl.sendJSON(sess.conn, wire.NewError("could not resolve room"))
		return
	}
	if !meeting.CanJoin(user.Email) {
		ctl.sendJSON(sess.conn, wire.NewError("email not on the allowed list"))
		return
	}

	room := ctl.Srv.Hub.GetOrCreate(meeting)
	room.AddMember(sess.sid, &hub.Member{User: user, Conn: sess.conn})
	sess.user = user
	sess.room = room
	sess.host = user.Email != "" && user.Email == meeting.HostEmail

	backlog, err := ctl.Srv.Store.Transcripts(context.Background(), meeting.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("load backlog")
	}

	members := room.MembersSnapshot()
	state := wire.RoomState{
		Type:    wire.TypeRoomState,
		Self:    string(sess.sid),
		Room:    string(meeting.RoomCode),
		Meeting: string(meeting.ID),
		Title:   meeting.Title,
		Host:    sess.host,
		Members: make([]wire.RoomMember, 0, len(members)),
		Count:   len(members),
	}
	for _, e := range backlog {
		state.Backlog = append(state.Backlog, *e)
	}
	for _, m := range members {
		state.Members = append(state.Members, wire.RoomMember{SID: string(m.SID), Name: m.Name})
	}
	ctl.sendJSON(sess.conn, state)

	ctl.fanout(sess.room, sess.sid, wire.MemberJoined{Type: wire.TypeMemberJoined, SID: string(sess.sid), Name: user.Name})
	log.Info().Str("module", "server.ws").Str("sid", string(sess.sid)).Str("room", string(code)).Msg("joined")
}

// handleAnnounce broadcasts the sender's call address once its transport
// endpoint is ready. Existing participants react by placing calls toward it.
func (ctl *WSController) handleAnnounce(sess *wsSession, data []byte) {
	if sess.room == nil {
		ctl.sendJSON(sess.conn, wire.NewError("join a room first"))
		return
	}
	var p wire.Announce
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("bad_payload"))
		return
	}
	name := p.Name
	if name == "" {
		name = sess.user.Name
	}
	ctl.fanout(sess.room, sess.sid, wire.PeerAnnounced{Type: wire.TypePeerAnnounced, Peer: string(sess.sid), Name: name})
}

func (ctl *WSController) handleTranscript(sess *wsSession, data []byte) {
	if sess.room == nil {
		ctl.sendJSON(sess.conn, wire.NewError("join a room first"))
		return
	}
	var p wire.Transcript
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("bad_payload"))
		return
	}
	entry, err := domain.NewEntry(sess.room.Meeting().ID, sess.user.Name, p.Content, domain.EntryKind(p.Kind))
	if err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("empty entry"))
		return
	}
	if err := ctl.Srv.Store.AppendTranscript(context.Background(), entry); err != nil {
		// Transient: logged and surfaced, the meeting continues.
		log.Error().Err(err).Str("module", "server.ws").Msg("append transcript")
		ctl.sendJSON(sess.conn, wire.NewError("could not save entry"))
		return
	}
	// Insert notifications go to every member, the author included, matching
	// how clients render their own lines.
	ctl.fanout(sess.room, "", wire.TranscriptInserted{Type: wire.TypeTranscriptInserted, Entry: *entry})
}

// handleEnd performs the one-way ended transition and tells every other
// client to leave. Ending an already-ended meeting is a no-op.
func (ctl *WSController) handleEnd(sess *wsSession) {
	if sess.room == nil {
		ctl.sendJSON(sess.conn, wire.NewError("join a room first"))
		return
	}
	meeting := sess.room.Meeting()
	err := ctl.Srv.Store.EndMeeting(context.Background(), meeting.ID)
	if err != nil && !errors.Is(err, domain.ErrMeetingEnded) {
		log.Error().Err(err).Str("module", "server.ws").Msg("end meeting")
		ctl.sendJSON(sess.conn, wire.NewError("could not end meeting"))
		return
	}
	ctl.fanout(sess.room, sess.sid, wire.MeetingEnded{Type: wire.TypeMeetingEnded})
	ctl.Srv.Hub.StopRoom(meeting.RoomCode)
	log.Info().Str("module", "server.ws").Str("meeting", string(meeting.ID)).Msg("meeting ended")
}

// handleSignal relays WebRTC negotiation to one target peer. The server
// stamps the sender so the receiver knows whom to answer.
func (ctl *WSController) handleSignal(sess *wsSession, data []byte) {
	if sess.room == nil {
		ctl.sendJSON(sess.conn, wire.NewError("join a room first"))
		return
	}
	var p wire.Signal
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendJSON(sess.conn, wire.NewError("bad_payload"))
		return
	}
	p.From = string(sess.sid)
	frame, err := json.Marshal(p)
	if err != nil {
		return
	}
	if !sess.room.SendTo(hub.SessionID(p.Target), frame) {
		log.Warn().Str("module", "server.ws").Str("target", p.Target).Msg("signal target gone")
	}
}

func (ctl *WSController) handleLeave(sess *wsSession) {
	if sess.room == nil {
		return
	}
	room := sess.room
	sid := sess.sid
	room.RemoveMember(sid)
	sess.room = nil
	ctl.fanout(room, sid, wire.MemberLeft{Type: wire.TypeMemberLeft, SID: string(sid)})
	ctl.fanout(room, sid, wire.PeerLeft{Type: wire.TypePeerLeft, Peer: string(sid)})
	log.Info().Str("module", "server.ws").Str("sid", string(sid)).Msg("left room")
}

// fanout broadcasts and applies the backpressure policy to members that
// could not take the frame.
func (ctl *WSController) fanout(room *hub.Room, from hub.SessionID, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("fanout marshal")
		return
	}
	res := room.Broadcast(from, hub.Frame(frame))
	if ctl.Srv.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		if ctl.Srv.Policy.OnBackpressure(room, slow) == hub.KickMember {
			if m, ok := room.GetMember(slow); ok {
				room.RemoveMember(slow)
				m.Conn.Close()
			}
		}
	}
}

func (ctl *WSController) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(hub.Frame(b))
}

func (ctl *WSController) broadcastMeetingEnded(id domain.MeetingID) {
	meeting, err := ctl.Srv.Store.GetMeeting(context.Background(), id)
	if err != nil {
		return
	}
	if room, ok := ctl.Srv.Hub.Get(meeting.RoomCode); ok {
		ctl.fanout(room, "", wire.MeetingEnded{Type: wire.TypeMeetingEnded})
		ctl.Srv.Hub.StopRoom(meeting.RoomCode)
	}
}

// broadcastMeetingEnded lets the REST end path reach connected clients.
func (s *Server) broadcastMeetingEnded(id domain.MeetingID) {
	ctl := &WSController{Srv: s}
	ctl.broadcastMeetingEnded(id)
}
