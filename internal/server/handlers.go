package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
	"github.com/typeless/meet/internal/notion"
	"github.com/typeless/meet/internal/summary"
)

type createMeetingRequest struct {
	Title         string   `json:"title"`
	HostName      string   `json:"host_name"`
	HostEmail     string   `json:"host_email"`
	AllowedEmails []string `json:"allowed_emails"`
}

type meetingResponse struct {
	ID        string     `json:"id"`
	RoomCode  string     `json:"room_code"`
	Title     string     `json:"title"`
	HostName  string     `json:"host_name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func toMeetingResponse(m *domain.Meeting) meetingResponse {
	return meetingResponse{
		ID:        string(m.ID),
		RoomCode:  string(m.RoomCode),
		Title:     m.Title,
		HostName:  m.HostName,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		EndedAt:   m.EndedAt,
	}
}

func (s *Server) handleCreateMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	meeting, err := s.Store.CreateMeeting(c.Request.Context(), req.Title, req.HostName, req.HostEmail, req.AllowedEmails)
	if errors.Is(err, domain.ErrTitleEmpty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meeting title required"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create meeting"})
		return
	}
	c.JSON(http.StatusCreated, toMeetingResponse(meeting))
}

func (s *Server) handleListMeetings(c *gin.Context) {
	meetings, err := s.Store.ListActive(c.Request.Context(), c.Query("email"))
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("list meetings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list meetings"})
		return
	}
	out := make([]meetingResponse, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, toMeetingResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"meetings": out})
}

// handleResolveCode is the room identity resolver: code in, meeting out.
// A miss is terminal; the client surfaces it and navigates away.
func (s *Server) handleResolveCode(c *gin.Context) {
	code, err := domain.ParseRoomCode(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed room code"})
		return
	}
	meeting, err := s.Store.FindActiveByCode(c.Request.Context(), code)
	if errors.Is(err, domain.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found or ended"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("resolve room code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve room code"})
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(meeting))
}

func (s *Server) handleGetMeeting(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(meeting))
}

func (s *Server) handleEndMeeting(c *gin.Context) {
	id := domain.MeetingID(c.Param("id"))
	err := s.Store.EndMeeting(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	case errors.Is(err, domain.ErrMeetingEnded):
		// Double-ending is a no-op, not a failure.
		c.JSON(http.StatusOK, gin.H{"status": "ended"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "server").Msg("end meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not end meeting"})
		return
	}
	s.broadcastMeetingEnded(id)
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (s *Server) handleTranscripts(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	entries, err := s.Store.Transcripts(c.Request.Context(), meeting.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("load transcripts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transcripts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleGetSummary(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	sum, err := s.Store.GetSummary(c.Request.Context(), meeting.ID)
	if errors.Is(err, domain.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no summary generated yet"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("get summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load summary"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// handleGenerateSummary creates (or regenerates) the AI digest. Provider
// failures surface the raw detail; the caller retries explicitly.
func (s *Server) handleGenerateSummary(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	entries, err := s.Store.Transcripts(c.Request.Context(), meeting.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("load transcripts for summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transcripts"})
		return
	}
	sum, err := s.Summarizer.Generate(c.Request.Context(), meeting.ID, entries)
	if errors.Is(err, summary.ErrNoTranscript) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough conversation to summarize"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("generate summary")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := s.Store.UpsertSummary(c.Request.Context(), sum); err != nil {
		log.Error().Err(err).Str("module", "server").Msg("store summary")
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleExportMarkdown(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	entries, err := s.Store.Transcripts(c.Request.Context(), meeting.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transcripts"})
		return
	}
	sum, err := s.Store.GetSummary(c.Request.Context(), meeting.ID)
	if err != nil && !errors.Is(err, domain.ErrMeetingNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load summary"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="meeting-record.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(summary.RenderMarkdown(meeting, sum, entries)))
}

func (s *Server) handleExportNotion(c *gin.Context) {
	meeting, ok := s.findMeeting(c)
	if !ok {
		return
	}
	if !s.Notion.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notion export not configured"})
		return
	}
	entries, err := s.Store.Transcripts(c.Request.Context(), meeting.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transcripts"})
		return
	}
	sum, err := s.Store.GetSummary(c.Request.Context(), meeting.ID)
	if err != nil && !errors.Is(err, domain.ErrMeetingNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load summary"})
		return
	}
	page := notion.ExportPage{
		Title:      meeting.Title,
		Date:       meeting.CreatedAt.Format("2006-01-02"),
		Transcript: summary.TranscriptText(entries),
	}
	if sum != nil {
		page.Summary = sum.Summary
	}
	ref, err := s.Notion.SavePage(c.Request.Context(), page)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"page_id": ref.ID, "url": ref.URL})
}

func (s *Server) findMeeting(c *gin.Context) (*domain.Meeting, bool) {
	meeting, err := s.Store.GetMeeting(c.Request.Context(), domain.MeetingID(c.Param("id")))
	if errors.Is(err, domain.ErrMeetingNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("module", "server").Msg("get meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load meeting"})
		return nil, false
	}
	return meeting, true
}
