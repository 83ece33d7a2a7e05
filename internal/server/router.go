// Package server is the HTTP/WebSocket surface: REST endpoints for meetings,
// transcripts, summaries, and export, plus the per-room realtime channel.
package server

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/config"
	"github.com/typeless/meet/internal/hub"
	"github.com/typeless/meet/internal/notion"
	"github.com/typeless/meet/internal/store"
	"github.com/typeless/meet/internal/summary"
)

// Server bundles the collaborators the handlers need. Each handler receives
// only the slice it uses.
type Server struct {
	Cfg        *config.Config
	Store      *store.Store
	Hub        *hub.Hub
	Policy     hub.Policy
	Summarizer *summary.Summarizer
	Notion     *notion.Client
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware assigns a stable per-browser token; it becomes the
// session id a WebSocket connection is known by.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, srv *Server) *gin.Engine {
	if srv.Cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if srv.Cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(srv.Cfg.Secret))
	r.Use(sessions.Sessions("MeetSessions", sessionStore))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "server").Msg("router setup")

	api := r.Group("/api")

	api.POST("/meetings", srv.handleCreateMeeting)
	api.GET("/meetings", srv.handleListMeetings)
	api.GET("/meetings/code/:code", srv.handleResolveCode)
	api.GET("/meetings/:id", srv.handleGetMeeting)
	api.POST("/meetings/:id/end", srv.handleEndMeeting)
	api.GET("/meetings/:id/transcripts", srv.handleTranscripts)
	api.GET("/meetings/:id/summary", srv.handleGetSummary)
	api.POST("/meetings/:id/summary", srv.handleGenerateSummary)
	api.GET("/meetings/:id/export.md", srv.handleExportMarkdown)
	api.POST("/meetings/:id/export/notion", srv.handleExportNotion)

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(200, gin.H{"rooms": srv.Hub.List()})
	})

	api.GET("/ws/rooms", func(c *gin.Context) {
		ctl := &WSController{Srv: srv}
		ctl.HandleRoom(ctx, c)
	})

	return r
}
