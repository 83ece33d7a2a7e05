// Package store persists meetings, transcripts, and summaries behind gorm.
// Row uniqueness for active room codes is enforced here with a unique index.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/typeless/meet/internal/config"
	"github.com/typeless/meet/internal/domain"
)

type Store struct {
	db *gorm.DB
}

// Open connects per config and migrates the schema.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&meetingRow{}, &transcriptRow{}, &summaryRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info().Str("module", "store").Str("driver", cfg.Driver).Msg("database ready")
	return &Store{db: db}, nil
}

// CreateMeeting inserts an active meeting under a fresh room code.
func (s *Store) CreateMeeting(ctx context.Context, title, hostName, hostEmail string, allowedEmails []string) (*domain.Meeting, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrTitleEmpty
	}
	row := meetingRow{
		ID:            uuid.NewString(),
		RoomCode:      string(domain.NewRoomCode()),
		Title:         title,
		HostName:      hostName,
		HostEmail:     strings.ToLower(hostEmail),
		AllowedEmails: joinEmails(allowedEmails),
		Status:        string(domain.StatusActive),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	return row.toDomain(), nil
}

// FindActiveByCode resolves a room code to its unique active meeting.
// A miss is terminal for the caller: no retry, no session setup.
func (s *Store) FindActiveByCode(ctx context.Context, code domain.RoomCode) (*domain.Meeting, error) {
	var row meetingRow
	err := s.db.WithContext(ctx).
		Where("room_code = ? AND status = ?", string(code), string(domain.StatusActive)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find meeting by code: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetMeeting(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	var row meetingRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return row.toDomain(), nil
}

// ListActive returns active meetings the given email may join, newest first.
func (s *Store) ListActive(ctx context.Context, email string) ([]*domain.Meeting, error) {
	var rows []meetingRow
	err := s.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusActive)).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	out := make([]*domain.Meeting, 0, len(rows))
	for i := range rows {
		m := rows[i].toDomain()
		if m.CanJoin(email) {
			out = append(out, m)
		}
	}
	return out, nil
}

// EndMeeting flips an active meeting to ended. The transition is one-way:
// a second call finds no active row and reports ErrMeetingEnded, which
// callers treat as a no-op.
func (s *Store) EndMeeting(ctx context.Context, id domain.MeetingID) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&meetingRow{}).
		Where("id = ? AND status = ?", string(id), string(domain.StatusActive)).
		Updates(map[string]any{"status": string(domain.StatusEnded), "ended_at": now})
	if res.Error != nil {
		return fmt.Errorf("end meeting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&meetingRow{}).Where("id = ?", string(id)).Count(&count)
		if count == 0 {
			return domain.ErrMeetingNotFound
		}
		return domain.ErrMeetingEnded
	}
	return nil
}

// AppendTranscript stores one caption/chat line. Entries are append-only.
func (s *Store) AppendTranscript(ctx context.Context, e *domain.Entry) error {
	row := transcriptRow{
		MeetingID: string(e.MeetingID),
		Speaker:   e.Speaker,
		Content:   e.Content,
		Kind:      string(e.Kind),
		Timestamp: e.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// Transcripts returns all entries for a meeting ordered by timestamp
// ascending, the order clients render the backlog in.
func (s *Store) Transcripts(ctx context.Context, id domain.MeetingID) ([]*domain.Entry, error) {
	var rows []transcriptRow
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", string(id)).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}
	out := make([]*domain.Entry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// UpsertSummary replaces any previous summary for the meeting.
func (s *Store) UpsertSummary(ctx context.Context, sum *domain.Summary) error {
	row := summaryRow{
		MeetingID:   string(sum.MeetingID),
		Summary:     sum.Summary,
		ActionItems: sum.ActionItems,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", row.MeetingID).
		Assign(map[string]any{"summary": row.Summary, "action_items": row.ActionItems, "created_at": row.CreatedAt}).
		FirstOrCreate(&summaryRow{}, summaryRow{MeetingID: row.MeetingID}).Error
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// GetSummary returns the stored summary, or domain.ErrMeetingNotFound when
// none has been generated yet.
func (s *Store) GetSummary(ctx context.Context, id domain.MeetingID) (*domain.Summary, error) {
	var row summaryRow
	err := s.db.WithContext(ctx).Where("meeting_id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMeetingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &domain.Summary{
		MeetingID:   domain.MeetingID(row.MeetingID),
		Summary:     row.Summary,
		ActionItems: row.ActionItems,
		CreatedAt:   row.CreatedAt,
	}, nil
}
