package store

import (
	"strings"
	"time"

	"github.com/typeless/meet/internal/domain"
)

type meetingRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	RoomCode      string `gorm:"size:6;uniqueIndex:idx_active_code,where:status = 'active'"`
	Title         string `gorm:"size:200;not null"`
	HostName      string `gorm:"size:36"`
	HostEmail     string `gorm:"size:254"`
	AllowedEmails string // newline-joined, empty means open to everyone
	Status        string `gorm:"size:16;index"`
	CreatedAt     time.Time
	EndedAt       *time.Time
}

func (meetingRow) TableName() string { return "meetings" }

type transcriptRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	MeetingID string `gorm:"size:36;index"`
	Speaker   string `gorm:"size:36"`
	Content   string `gorm:"not null"`
	Kind      string `gorm:"size:16"`
	Timestamp time.Time `gorm:"index"`
}

func (transcriptRow) TableName() string { return "transcripts" }

type summaryRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MeetingID   string `gorm:"size:36;uniqueIndex"`
	Summary     string
	ActionItems string
	CreatedAt   time.Time
}

func (summaryRow) TableName() string { return "summaries" }

func joinEmails(emails []string) string {
	cleaned := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return strings.Join(cleaned, "\n")
}

func splitEmails(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (r *meetingRow) toDomain() *domain.Meeting {
	return &domain.Meeting{
		ID:            domain.MeetingID(r.ID),
		RoomCode:      domain.RoomCode(r.RoomCode),
		Title:         r.Title,
		HostName:      r.HostName,
		HostEmail:     r.HostEmail,
		AllowedEmails: splitEmails(r.AllowedEmails),
		Status:        domain.MeetingStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		EndedAt:       r.EndedAt,
	}
}

func (r *transcriptRow) toDomain() *domain.Entry {
	return &domain.Entry{
		MeetingID: domain.MeetingID(r.MeetingID),
		Speaker:   r.Speaker,
		Content:   r.Content,
		Kind:      domain.EntryKind(r.Kind),
		Timestamp: r.Timestamp,
	}
}
