// Package hub owns the server side of the per-room realtime channel:
// membership, fan-out, and backpressure policy. It never touches transport
// resources; connections are owned by the adapter that created them.
package hub

import "github.com/typeless/meet/internal/domain"

// Frame is a raw outbound payload, already serialized.
type Frame []byte

// SessionID identifies one connected client. It doubles as the peer
// identifier remote clients dial for audio.
type SessionID string

// Conn abstracts the messaging transport. Owned by the adapter; the adapter
// must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Member binds a user identity to its transport endpoint. This is what a
// room stores and fans out to.
type Member struct {
	User *domain.User
	Conn Conn
}

// MemberDTO is a read-only view for the wire (no transport fields).
type MemberDTO struct {
	SID  SessionID `json:"sid"`
	Name string    `json:"name"`
}

// PublishResult reports delivery stats/backpressure to the controller.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}
