package domain

import "time"

// Summary is the AI-generated digest for an ended meeting, upserted so a
// regenerate replaces the previous text.
type Summary struct {
	MeetingID   MeetingID `json:"meeting_id"`
	Summary     string    `json:"summary"`
	ActionItems string    `json:"action_items"`
	CreatedAt   time.Time `json:"created_at"`
}
