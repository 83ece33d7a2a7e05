package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
)

// Room is a threadsafe membership set for one meeting.
type Room struct {
	meeting *domain.Meeting

	mu    sync.RWMutex
	bySID map[SessionID]*Member
}

func NewRoom(meeting *domain.Meeting) *Room {
	return &Room{
		meeting: meeting,
		bySID:   make(map[SessionID]*Member),
	}
}

func (r *Room) Meeting() *domain.Meeting { return r.meeting }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *Room) AddMember(sid SessionID, m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySID[sid] = m
	log.Info().Str("module", "hub.room").Str("sid", string(sid)).Str("room", string(r.meeting.RoomCode)).Msg("member added")
}

func (r *Room) RemoveMember(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySID, sid)
	log.Info().Str("module", "hub.room").Str("sid", string(sid)).Str("room", string(r.meeting.RoomCode)).Msg("member removed")
}

func (r *Room) GetMember(sid SessionID) (*Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySID[sid]
	return m, ok
}

// Broadcast fans a frame out to every member except the sender. The channel
// makes no ordering promise across senders, only per source.
func (r *Room) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		if err := m.Conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "hub.room").Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo delivers a frame to one member; used for targeted signal relay.
func (r *Room) SendTo(sid SessionID, data Frame) bool {
	r.mu.RLock()
	m, ok := r.bySID[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return m.Conn.TrySend(data) == nil
}

func (r *Room) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, m := range r.bySID {
		out = append(out, MemberDTO{SID: sid, Name: m.User.Name})
	}
	return out
}
