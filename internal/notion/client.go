// Package notion exports finished meeting records as pages in a Notion
// database. The API caps a rich_text block at 2000 characters, so long
// transcripts are split into paragraph blocks.
package notion

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/config"
)

const (
	baseURL       = "https://api.notion.com"
	notionVersion = "2022-06-28"
)

var ErrNotConfigured = errors.New("notion export not configured")

// ExportPage is the structured payload for one meeting record.
type ExportPage struct {
	Title      string
	Date       string // ISO date
	Summary    string
	Transcript string
}

// PageRef identifies the created Notion page.
type PageRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	http       *resty.Client
	databaseID string
}

func NewClient(cfg config.NotionConfig) *Client {
	if cfg.Token == "" || cfg.DatabaseID == "" {
		return &Client{}
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(cfg.Token).
		SetHeader("Notion-Version", notionVersion).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c, databaseID: cfg.DatabaseID}
}

// Configured reports whether export credentials were supplied.
func (c *Client) Configured() bool { return c.http != nil }

// SavePage creates the page and returns its id/URL. A non-success response
// surfaces the raw Notion error detail; the export is considered not
// completed and the caller may retry explicitly.
func (c *Client) SavePage(ctx context.Context, page ExportPage) (*PageRef, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var ref PageRef
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(buildPagePayload(c.databaseID, page)).
		SetResult(&ref).
		SetError(&apiErr).
		Post("/v1/pages")
	if err != nil {
		return nil, fmt.Errorf("notion request: %w", err)
	}
	if resp.IsError() {
		log.Error().Str("module", "notion").Int("status", resp.StatusCode()).Str("code", apiErr.Code).Msg("notion export failed")
		return nil, fmt.Errorf("notion API %d: %s", resp.StatusCode(), apiErr.Message)
	}

	log.Info().Str("module", "notion").Str("page", ref.ID).Msg("meeting exported")
	return &ref, nil
}
