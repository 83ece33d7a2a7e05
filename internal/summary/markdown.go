package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/typeless/meet/internal/domain"
)

// RenderMarkdown builds the downloadable meeting record: title, date, AI
// summary, action items, then the full timestamped transcript.
func RenderMarkdown(meeting *domain.Meeting, sum *domain.Summary, entries []*domain.Entry) string {
	var b strings.Builder

	title := meeting.Title
	if title == "" {
		title = "Meeting record"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Date: %s\n", meeting.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Duration: %s\n\n", FormatDuration(meeting.Duration(time.Now())))

	b.WriteString("## AI summary\n\n")
	if sum != nil && sum.Summary != "" {
		b.WriteString(sum.Summary)
	} else {
		b.WriteString("(no summary generated)")
	}
	b.WriteString("\n\n## Action items\n\n")
	if sum != nil && sum.ActionItems != "" {
		for _, item := range strings.Split(sum.ActionItems, "\n") {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	} else {
		b.WriteString("(none)\n")
	}

	b.WriteString("\n## Full transcript\n\n")
	for _, e := range entries {
		label := ""
		if e.Kind == domain.KindChat {
			label = " [chat]"
		}
		fmt.Fprintf(&b, "[%s] %s%s: %s\n", e.Timestamp.Format("15:04"), e.Speaker, label, e.Content)
	}
	return b.String()
}

// TranscriptText flattens entries into the plain "[time] speaker: content"
// form used for the notes export payload.
func TranscriptText(entries []*domain.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format("15:04"), e.Speaker, e.Content)
	}
	return b.String()
}

// FormatDuration renders "2h 05m" style durations for the summary header.
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
