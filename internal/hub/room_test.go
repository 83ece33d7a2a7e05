package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeless/meet/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func testMeeting() *domain.Meeting {
	return &domain.Meeting{ID: "m-1", RoomCode: "ABCDEF", Title: "Standup", Status: domain.StatusActive}
}

func addMember(r *Room, sid string) *fakeConn {
	conn := &fakeConn{}
	r.AddMember(SessionID(sid), &Member{User: &domain.User{Name: sid}, Conn: conn})
	return conn
}

func TestBroadcastSkipsSender(t *testing.T) {
	r := NewRoom(testMeeting())
	alice := addMember(r, "alice")
	bob := addMember(r, "bob")
	carol := addMember(r, "carol")

	res := r.Broadcast("alice", Frame(`{"type":"x"}`))

	assert.Equal(t, 2, res.SentTo)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 0, alice.frameCount())
	assert.Equal(t, 1, bob.frameCount())
	assert.Equal(t, 1, carol.frameCount())
}

func TestBroadcastToAllWithEmptySender(t *testing.T) {
	r := NewRoom(testMeeting())
	alice := addMember(r, "alice")
	bob := addMember(r, "bob")

	res := r.Broadcast("", Frame(`{"type":"x"}`))

	assert.Equal(t, 2, res.SentTo)
	assert.Equal(t, 1, alice.frameCount())
	assert.Equal(t, 1, bob.frameCount())
}

func TestBroadcastReportsDropped(t *testing.T) {
	r := NewRoom(testMeeting())
	addMember(r, "alice")
	bob := addMember(r, "bob")
	bob.full = true

	res := r.Broadcast("alice", Frame(`{"type":"x"}`))

	assert.Equal(t, 0, res.SentTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, SessionID("bob"), res.Dropped[0])
}

func TestSendTo(t *testing.T) {
	r := NewRoom(testMeeting())
	bob := addMember(r, "bob")

	assert.True(t, r.SendTo("bob", Frame(`{"type":"signal"}`)))
	assert.Equal(t, 1, bob.frameCount())
	assert.False(t, r.SendTo("ghost", Frame(`{}`)))
}

func TestMembershipLifecycle(t *testing.T) {
	r := NewRoom(testMeeting())
	addMember(r, "alice")
	addMember(r, "bob")
	require.Equal(t, 2, r.MemberCount())

	snap := r.MembersSnapshot()
	assert.Len(t, snap, 2)

	r.RemoveMember("alice")
	assert.Equal(t, 1, r.MemberCount())
	_, ok := r.GetMember("alice")
	assert.False(t, ok)
}

func TestHubGetOrCreateReusesRoom(t *testing.T) {
	h := NewHub()
	meeting := testMeeting()

	r1 := h.GetOrCreate(meeting)
	r2 := h.GetOrCreate(meeting)
	assert.Same(t, r1, r2)

	got, ok := h.Get(meeting.RoomCode)
	require.True(t, ok)
	assert.Same(t, r1, got)

	h.StopRoom(meeting.RoomCode)
	_, ok = h.Get(meeting.RoomCode)
	assert.False(t, ok)
}

func TestHubList(t *testing.T) {
	h := NewHub()
	r := h.GetOrCreate(testMeeting())
	addMember(r, "alice")

	infos := h.List()
	require.Len(t, infos, 1)
	assert.Equal(t, domain.RoomCode("ABCDEF"), infos[0].Code)
	assert.Equal(t, 1, infos[0].MemberCount)
}
