package hub

import (
	"sync"

	"github.com/typeless/meet/internal/domain"
)

// Hub tracks live rooms keyed by room code.
type Hub struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*Room
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[domain.RoomCode]*Room)}
}

// GetOrCreate returns the live room for a resolved meeting, creating it on
// first join.
func (h *Hub) GetOrCreate(meeting *domain.Meeting) *Room {
	h.mu.RLock()
	room, ok := h.rooms[meeting.RoomCode]
	h.mu.RUnlock()
	if ok {
		return room
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok = h.rooms[meeting.RoomCode]; ok {
		return room
	}
	room = NewRoom(meeting)
	h.rooms[meeting.RoomCode] = room
	return room
}

func (h *Hub) Get(code domain.RoomCode) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[code]
	return room, ok
}

// StopRoom drops the live room; connected members are the controller's
// responsibility to disconnect first.
func (h *Hub) StopRoom(code domain.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"room_code"`
	Title       string          `json:"title"`
	MemberCount int             `json:"member_count"`
}

func (h *Hub) List() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for code, r := range h.rooms {
		out = append(out, RoomInfo{Code: code, Title: r.Meeting().Title, MemberCount: r.MemberCount()})
	}
	return out
}
