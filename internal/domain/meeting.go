package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
)

// Room codes avoid easily confused characters (no I, O, 0, 1).
const (
	RoomCodeLen      = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	ErrMeetingNotFound = errors.New("meeting not found or ended")
	ErrMeetingEnded    = errors.New("meeting already ended")
	ErrBadRoomCode     = errors.New("malformed room code")
	ErrTitleEmpty      = errors.New("meeting title empty")
	ErrNotInvited      = errors.New("email not on the allowed list")
)

type (
	MeetingID string
	RoomCode  string
)

type MeetingStatus string

const (
	StatusActive MeetingStatus = "active"
	StatusEnded  MeetingStatus = "ended"
)

// Meeting is the backend record a room code resolves to. Immutable for the
// session's duration once resolved, except for the one-way ended transition.
type Meeting struct {
	ID            MeetingID
	RoomCode      RoomCode
	Title         string
	HostName      string
	HostEmail     string
	AllowedEmails []string
	Status        MeetingStatus
	CreatedAt     time.Time
	EndedAt       *time.Time
}

// NewRoomCode draws a fresh 6-character code from the fixed alphabet.
func NewRoomCode() RoomCode {
	var b strings.Builder
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := 0; i < RoomCodeLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform is broken; nothing to recover.
			panic(err)
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return RoomCode(b.String())
}

// ParseRoomCode normalizes and validates a user-typed code.
func ParseRoomCode(raw string) (RoomCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != RoomCodeLen {
		return "", ErrBadRoomCode
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(roomCodeAlphabet, rune(code[i])) {
			return "", ErrBadRoomCode
		}
	}
	return RoomCode(code), nil
}

// Active reports whether the meeting can still be joined.
func (m *Meeting) Active() bool { return m.Status == StatusActive }

// CanJoin checks the allowed-emails gate. An empty list admits everyone;
// the host is always admitted.
func (m *Meeting) CanJoin(email string) bool {
	if len(m.AllowedEmails) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && email == strings.ToLower(m.HostEmail) {
		return true
	}
	for _, allowed := range m.AllowedEmails {
		if strings.ToLower(allowed) == email {
			return true
		}
	}
	return false
}

// Duration is the elapsed meeting time, or time-since-start while active.
func (m *Meeting) Duration(now time.Time) time.Duration {
	if m.EndedAt != nil {
		return m.EndedAt.Sub(m.CreatedAt)
	}
	return now.Sub(m.CreatedAt)
}
