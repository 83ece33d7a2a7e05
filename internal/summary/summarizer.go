// Package summary turns a meeting transcript into an AI digest with
// extracted action items, and renders the exportable meeting record.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/config"
	"github.com/typeless/meet/internal/domain"
)

var ErrNoTranscript = errors.New("not enough conversation to summarize")

const promptTemplate = `You are a professional meeting-notes assistant. Analyze the following meeting conversation and provide:

1. **Summary**: 3-5 sentences covering the main discussion points and conclusions.

2. **Key decisions**: list the important decisions made during the meeting.

3. **Action items**: list the follow-ups mentioned in the meeting, with the owner noted when one was named.

Meeting conversation:
%s

Reply in a clear, readable format.`

type Summarizer struct {
	client openai.Client
	cfg    config.SummaryConfig
}

func New(cfg config.SummaryConfig) *Summarizer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Summarizer{client: openai.NewClient(opts...), cfg: cfg}
}

// Generate asks the completion API for a digest of the transcript and splits
// out the action items. Failures carry the raw provider detail so callers can
// surface them inline and offer an explicit retry.
func (s *Summarizer) Generate(ctx context.Context, meetingID domain.MeetingID, entries []*domain.Entry) (*domain.Summary, error) {
	if len(entries) == 0 {
		return nil, ErrNoTranscript
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(entries)),
		},
		MaxTokens:   openai.Int(s.cfg.MaxTokens),
		Temperature: openai.Float(s.cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("completion returned no content")
	}

	text := resp.Choices[0].Message.Content
	log.Info().Str("module", "summary").Str("meeting", string(meetingID)).Int("chars", len(text)).Msg("summary generated")

	return &domain.Summary{
		MeetingID:   meetingID,
		Summary:     text,
		ActionItems: strings.Join(ExtractActionItems(text), "\n"),
	}, nil
}

// BuildPrompt flattens the transcript into "speaker: content" lines inside
// the instruction template.
func BuildPrompt(entries []*domain.Entry) string {
	var conversation strings.Builder
	for _, e := range entries {
		conversation.WriteString(e.Speaker)
		conversation.WriteString(": ")
		conversation.WriteString(e.Content)
		conversation.WriteByte('\n')
	}
	return fmt.Sprintf(promptTemplate, strings.TrimRight(conversation.String(), "\n"))
}
