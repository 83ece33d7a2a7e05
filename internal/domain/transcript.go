package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyEntry = errors.New("empty transcript entry")

type EntryKind string

const (
	KindCaption EntryKind = "caption"
	KindChat    EntryKind = "chat"
)

// Entry is one append-only transcript line, either a live caption or a chat
// message. Entries are never mutated or deleted.
type Entry struct {
	MeetingID MeetingID `json:"meeting_id"`
	Speaker   string    `json:"speaker_name"`
	Content   string    `json:"content"`
	Kind      EntryKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntry validates and stamps a locally authored line. Whitespace-only
// content is rejected before any network or storage call happens.
func NewEntry(meetingID MeetingID, speaker, content string, kind EntryKind) (*Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyEntry
	}
	if kind != KindChat {
		kind = KindCaption
	}
	return &Entry{
		MeetingID: meetingID,
		Speaker:   speaker,
		Content:   content,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}, nil
}
