package session

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/typeless/meet/internal/domain"
)

// Publisher appends a locally authored entry to shared storage through the
// realtime channel.
type Publisher interface {
	PublishEntry(content string, kind domain.EntryKind) error
}

// Relay moves captions and chat between the local user and the room: local
// input goes out through the publisher, remote entries land in the view in
// arrival order. Backlog entries arrive timestamp-ascending before any live
// entry streams in.
type Relay struct {
	pub      Publisher
	view     func(domain.Entry)
	debounce *Debouncer
}

func NewRelay(pub Publisher, view func(domain.Entry)) *Relay {
	r := &Relay{pub: pub, view: view}
	r.debounce = NewDebouncer(DefaultCaptionQuiet, DefaultCaptionMinLen, func(text string) {
		// Debounced captions follow the same submit path as explicit sends.
		if err := r.Submit(text, domain.KindCaption); err != nil {
			log.Warn().Err(err).Str("module", "session.relay").Msg("debounced caption not sent")
		}
	})
	return r
}

// Submit publishes one entry. Empty or whitespace-only content is rejected
// before any network call; publish failures are surfaced non-fatally and the
// meeting continues.
func (r *Relay) Submit(content string, kind domain.EntryKind) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ErrEmptyEntry
	}
	if err := r.pub.PublishEntry(content, kind); err != nil {
		log.Error().Err(err).Str("module", "session.relay").Msg("publish entry")
		return err
	}
	return nil
}

// Input feeds the live-caption path: the entry is sent only after a quiet
// period with no further keystrokes, and only when long enough.
func (r *Relay) Input(text string) {
	r.debounce.Input(text)
}

// LoadBacklog renders previously stored entries, already ordered by
// timestamp ascending.
func (r *Relay) LoadBacklog(entries []*domain.Entry) {
	for _, e := range entries {
		r.view(*e)
	}
}

// OnRemote renders one live entry in arrival order.
func (r *Relay) OnRemote(e domain.Entry) {
	r.view(e)
}

// Close cancels the debounce timer; pending captions are discarded.
func (r *Relay) Close() {
	r.debounce.Stop()
}

// SetDebounce overrides the caption debounce parameters; used by callers
// that expose them as settings.
func (r *Relay) SetDebounce(quiet time.Duration, minLen int) {
	r.debounce.Stop()
	r.debounce = NewDebouncer(quiet, minLen, func(text string) {
		if err := r.Submit(text, domain.KindCaption); err != nil {
			log.Warn().Err(err).Str("module", "session.relay").Msg("debounced caption not sent")
		}
	})
}
