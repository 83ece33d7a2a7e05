package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeless/meet/internal/config"
	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/hub"
	"github.com/typeless/meet/internal/store"
	"github.com/typeless/meet/internal/wire"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	st, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	srv := &Server{
		Cfg:    &config.Config{Mode: "release", Secret: "test-secret"},
		Store:  st,
		Hub:    hub.NewHub(),
		Policy: hub.SimplePolicy{},
	}
	ts := httptest.NewServer(SetupRouter(context.Background(), srv))
	t.Cleanup(ts.Close)
	return srv, ts
}

// dialRoom opens a room channel with a fixed client token, so tests control
// the session id each connection is known by.
func dialRoom(t *testing.T, ts *httptest.Server, sid string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/rooms"
	header := http.Header{}
	header.Add("Cookie", "ct="+sid)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func joinRoom(t *testing.T, conn *websocket.Conn, code, name, email string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(wire.Join{Type: wire.TypeJoin, Room: code, Name: name, Email: email}))
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env wire.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env.Type, data
}

// readUntil skips unrelated frames, such as roster updates interleaved with
// the frame under test.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	for i := 0; i < 10; i++ {
		got, data := readMessage(t, conn)
		if got == typ {
			return data
		}
	}
	t.Fatalf("no %s frame received", typ)
	return nil
}

func createMeeting(t *testing.T, srv *Server, title string, allowed []string) *domain.Meeting {
	t.Helper()
	meeting, err := srv.Store.CreateMeeting(context.Background(), title, "alice", "alice@example.com", allowed)
	require.NoError(t, err)
	return meeting
}

func TestJoinRepliesWithRoomStateAndBacklog(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx := context.Background()
	meeting := createMeeting(t, srv, "Standup", nil)

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second"} {
		entry := &domain.Entry{
			MeetingID: meeting.ID,
			Speaker:   "alice",
			Content:   content,
			Kind:      domain.KindCaption,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, srv.Store.AppendTranscript(ctx, entry))
	}

	conn := dialRoom(t, ts, "sid-a")
	joinRoom(t, conn, string(meeting.RoomCode), "alice", "alice@example.com")

	data := readUntil(t, conn, wire.TypeRoomState)
	var state wire.RoomState
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, "sid-a", state.Self)
	assert.Equal(t, string(meeting.ID), state.Meeting)
	assert.Equal(t, string(meeting.RoomCode), state.Room)
	assert.Equal(t, "Standup", state.Title)
	assert.True(t, state.Host)
	require.Len(t, state.Members, 1)
	assert.Equal(t, "sid-a", state.Members[0].SID)

	// Backlog arrives inside the join reply, oldest first.
	require.Len(t, state.Backlog, 2)
	assert.Equal(t, "first", state.Backlog[0].Content)
	assert.Equal(t, "second", state.Backlog[1].Content)
}

func TestJoinMalformedCodeRejected(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialRoom(t, ts, "sid-a")
	joinRoom(t, conn, "ab", "alice", "")

	data := readUntil(t, conn, wire.TypeError)
	var e wire.Error
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "malformed room code", e.Error)
}

func TestJoinUnknownCodeRejected(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialRoom(t, ts, "sid-a")
	joinRoom(t, conn, "ABCDEF", "alice", "")

	data := readUntil(t, conn, wire.TypeError)
	var e wire.Error
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "meeting not found or ended", e.Error)
}

func TestJoinRejectedByAllowedList(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Private sync", []string{"bob@example.com"})

	conn := dialRoom(t, ts, "sid-e")
	joinRoom(t, conn, string(meeting.RoomCode), "eve", "eve@example.com")

	data := readUntil(t, conn, wire.TypeError)
	var e wire.Error
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "email not on the allowed list", e.Error)

	room, ok := srv.Hub.Get(meeting.RoomCode)
	if ok {
		assert.Equal(t, 0, room.MemberCount())
	}
}

func TestAnnounceFansOutToOthers(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "")
	readUntil(t, a, wire.TypeRoomState)

	b := dialRoom(t, ts, "sid-b")
	joinRoom(t, b, string(meeting.RoomCode), "bob", "")
	readUntil(t, b, wire.TypeRoomState)
	readUntil(t, a, wire.TypeMemberJoined)

	require.NoError(t, b.WriteJSON(wire.Announce{Type: wire.TypeAnnounce, Name: "bob"}))

	data := readUntil(t, a, wire.TypePeerAnnounced)
	var p wire.PeerAnnounced
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "sid-b", p.Peer)
	assert.Equal(t, "bob", p.Name)
}

func TestTranscriptPersistsThenFansOutToAll(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "")
	readUntil(t, a, wire.TypeRoomState)

	b := dialRoom(t, ts, "sid-b")
	joinRoom(t, b, string(meeting.RoomCode), "bob", "")
	readUntil(t, b, wire.TypeRoomState)
	readUntil(t, a, wire.TypeMemberJoined)

	require.NoError(t, a.WriteJSON(wire.Transcript{Type: wire.TypeTranscript, Content: "  hello room  ", Kind: "chat"}))

	// The author gets the insert notification too.
	for _, conn := range []*websocket.Conn{a, b} {
		data := readUntil(t, conn, wire.TypeTranscriptInserted)
		var ins wire.TranscriptInserted
		require.NoError(t, json.Unmarshal(data, &ins))
		assert.Equal(t, "hello room", ins.Entry.Content)
		assert.Equal(t, domain.KindChat, ins.Entry.Kind)
		assert.Equal(t, "alice", ins.Entry.Speaker)
	}

	entries, err := srv.Store.Transcripts(context.Background(), meeting.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello room", entries[0].Content)
}

func TestWhitespaceTranscriptRejected(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "")
	readUntil(t, a, wire.TypeRoomState)

	require.NoError(t, a.WriteJSON(wire.Transcript{Type: wire.TypeTranscript, Content: "   ", Kind: "caption"}))

	data := readUntil(t, a, wire.TypeError)
	var e wire.Error
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "empty entry", e.Error)

	entries, err := srv.Store.Transcripts(context.Background(), meeting.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEndBroadcastsAndStopsRoom(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "alice@example.com")
	readUntil(t, a, wire.TypeRoomState)

	b := dialRoom(t, ts, "sid-b")
	joinRoom(t, b, string(meeting.RoomCode), "bob", "")
	readUntil(t, b, wire.TypeRoomState)
	readUntil(t, a, wire.TypeMemberJoined)

	require.NoError(t, a.WriteJSON(wire.End{Type: wire.TypeEnd, WithSummary: true}))

	readUntil(t, b, wire.TypeMeetingEnded)

	got, err := srv.Store.GetMeeting(context.Background(), meeting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)

	assert.Eventually(t, func() bool {
		_, ok := srv.Hub.Get(meeting.RoomCode)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "")
	readUntil(t, a, wire.TypeRoomState)

	b := dialRoom(t, ts, "sid-b")
	joinRoom(t, b, string(meeting.RoomCode), "bob", "")
	readUntil(t, b, wire.TypeRoomState)
	readUntil(t, a, wire.TypeMemberJoined)

	require.NoError(t, b.WriteJSON(wire.Envelope{Type: wire.TypeLeave}))

	data := readUntil(t, a, wire.TypeMemberLeft)
	var left wire.MemberLeft
	require.NoError(t, json.Unmarshal(data, &left))
	assert.Equal(t, "sid-b", left.SID)

	room, ok := srv.Hub.Get(meeting.RoomCode)
	require.True(t, ok)
	assert.Eventually(t, func() bool { return room.MemberCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSignalRelayedToTargetWithSenderStamped(t *testing.T) {
	srv, ts := newTestServer(t)
	meeting := createMeeting(t, srv, "Standup", nil)

	a := dialRoom(t, ts, "sid-a")
	joinRoom(t, a, string(meeting.RoomCode), "alice", "")
	readUntil(t, a, wire.TypeRoomState)

	b := dialRoom(t, ts, "sid-b")
	joinRoom(t, b, string(meeting.RoomCode), "bob", "")
	readUntil(t, b, wire.TypeRoomState)
	readUntil(t, a, wire.TypeMemberJoined)

	require.NoError(t, a.WriteJSON(wire.Signal{
		Type:   wire.TypeSignal,
		Target: "sid-b",
		Kind:   "offer",
		SDP:    "v=0",
		From:   "spoofed",
	}))

	data := readUntil(t, b, wire.TypeSignal)
	var sig wire.Signal
	require.NoError(t, json.Unmarshal(data, &sig))
	assert.Equal(t, "sid-a", sig.From)
	assert.Equal(t, "offer", sig.Kind)
	assert.Equal(t, "v=0", sig.SDP)
}
