// Package wire defines the JSON messages exchanged over the per-room
// realtime channel. Every message carries a "type" discriminator; payloads
// are flat so either side can unmarshal the envelope first and the full
// message second.
package wire

import "github.com/typeless/meet/internal/domain"

// Client to server.
const (
	TypeJoin       = "join"
	TypeLeave      = "leave"
	TypeAnnounce   = "announce"
	TypeTranscript = "transcript"
	TypeEnd        = "end"
	TypeSignal     = "signal"
	TypePing       = "ping"
)

// Server to client.
const (
	TypeRoomState          = "room_state"
	TypeMemberJoined       = "member_joined"
	TypeMemberLeft         = "member_left"
	TypePeerAnnounced      = "peer_announced"
	TypePeerLeft           = "peer_left"
	TypeTranscriptInserted = "transcript_inserted"
	TypeMeetingEnded       = "meeting_ended"
	TypePong               = "pong"
	TypeError              = "error"
)

// Envelope is the minimal first-pass decode target.
type Envelope struct {
	Type string `json:"type"`
}

type Join struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Announce broadcasts the sender's readiness to take calls. The server
// stamps the sender's session id before fanning it out as a PeerAnnounced.
type Announce struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type Transcript struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

type End struct {
	Type        string `json:"type"`
	WithSummary bool   `json:"with_summary"`
}

// Signal relays WebRTC negotiation between two peers. Kind is one of
// "offer", "answer", "candidate". From is stamped by the server.
type Signal struct {
	Type          string `json:"type"`
	Target        string `json:"target"`
	From          string `json:"from,omitempty"`
	Kind          string `json:"kind"`
	SDP           string `json:"sdp,omitempty"`
	Candidate     string `json:"candidate,omitempty"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

type RoomMember struct {
	SID  string `json:"sid"`
	Name string `json:"name"`
}

// RoomState is the join reply. Backlog carries all prior transcript entries
// ordered by timestamp ascending, delivered before any live entry can
// arrive on the same connection.
type RoomState struct {
	Type    string         `json:"type"`
	Self    string         `json:"self"`
	Room    string         `json:"room"`
	Meeting string         `json:"meeting"`
	Title   string         `json:"title"`
	Host    bool           `json:"host"`
	Members []RoomMember   `json:"members"`
	Count   int            `json:"count"`
	Backlog []domain.Entry `json:"backlog,omitempty"`
}

type MemberJoined struct {
	Type string `json:"type"`
	SID  string `json:"sid"`
	Name string `json:"name"`
}

type MemberLeft struct {
	Type string `json:"type"`
	SID  string `json:"sid"`
}

type PeerAnnounced struct {
	Type string `json:"type"`
	Peer string `json:"peer"`
	Name string `json:"name"`
}

type PeerLeft struct {
	Type string `json:"type"`
	Peer string `json:"peer"`
}

type TranscriptInserted struct {
	Type  string       `json:"type"`
	Entry domain.Entry `json:"entry"`
}

type MeetingEnded struct {
	Type string `json:"type"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewError(msg string) Error { return Error{Type: TypeError, Error: msg} }
