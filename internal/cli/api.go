package cli

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Meeting mirrors the server's meeting payload.
type Meeting struct {
	ID        string     `json:"id"`
	RoomCode  string     `json:"room_code"`
	Title     string     `json:"title"`
	HostName  string     `json:"host_name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// API is a thin REST client for the meeting server.
type API struct {
	http *resty.Client
}

func NewAPI(serverURL string) *API {
	client := resty.New().
		SetBaseURL(serverURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &API{http: client}
}

func (a *API) CreateMeeting(title, hostName, hostEmail string, allowedEmails []string) (*Meeting, error) {
	var out Meeting
	var apiErr apiError
	resp, err := a.http.R().
		SetBody(map[string]any{
			"title":          title,
			"host_name":      hostName,
			"host_email":     hostEmail,
			"allowed_emails": allowedEmails,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/meetings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create meeting: %s", errText(resp.Status(), apiErr))
	}
	return &out, nil
}

func (a *API) ListMeetings(email string) ([]Meeting, error) {
	var out struct {
		Meetings []Meeting `json:"meetings"`
	}
	var apiErr apiError
	resp, err := a.http.R().
		SetQueryParam("email", email).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/meetings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list meetings: %s", errText(resp.Status(), apiErr))
	}
	return out.Meetings, nil
}

func (a *API) ResolveCode(code string) (*Meeting, error) {
	var out Meeting
	var apiErr apiError
	resp, err := a.http.R().
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/meetings/code/" + code)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("resolve room code: %s", errText(resp.Status(), apiErr))
	}
	return &out, nil
}

func (a *API) GenerateSummary(meetingID string) (summary, actionItems string, err error) {
	var out struct {
		Summary     string `json:"summary"`
		ActionItems string `json:"action_items"`
	}
	var apiErr apiError
	resp, err := a.http.R().
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/meetings/" + meetingID + "/summary")
	if err != nil {
		return "", "", err
	}
	if resp.IsError() {
		return "", "", fmt.Errorf("generate summary: %s", errText(resp.Status(), apiErr))
	}
	return out.Summary, out.ActionItems, nil
}

func errText(status string, apiErr apiError) string {
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return status
}
