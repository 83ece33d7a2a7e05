package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeless/meet/internal/domain"
)

func TestRelaySubmitRejectsEmpty(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRelay(pub, func(domain.Entry) {})
	defer r.Close()

	err := r.Submit("   \t  ", domain.KindChat)
	assert.ErrorIs(t, err, domain.ErrEmptyEntry)
	assert.Empty(t, pub.published())
}

func TestRelaySubmitTrimsAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRelay(pub, func(domain.Entry) {})
	defer r.Close()

	require.NoError(t, r.Submit("  hello room  ", domain.KindChat))
	got := pub.published()
	require.Len(t, got, 1)
	assert.Equal(t, "hello room", got[0].content)
	assert.Equal(t, domain.KindChat, got[0].kind)
}

func TestRelayInputDebouncesIntoCaption(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRelay(pub, func(domain.Entry) {})
	defer r.Close()
	r.SetDebounce(20*time.Millisecond, 10)

	r.Input("typing a live caption")
	time.Sleep(80 * time.Millisecond)

	got := pub.published()
	require.Len(t, got, 1)
	assert.Equal(t, domain.KindCaption, got[0].kind)
	assert.Equal(t, "typing a live caption", got[0].content)
}

func TestRelayCloseDiscardsPendingCaption(t *testing.T) {
	pub := &fakePublisher{}
	r := NewRelay(pub, func(domain.Entry) {})
	r.SetDebounce(20*time.Millisecond, 10)

	r.Input("caption typed right before leaving")
	r.Close()
	time.Sleep(80 * time.Millisecond)

	assert.Empty(t, pub.published())
}

func TestRelayBacklogThenLive(t *testing.T) {
	var seen []string
	pub := &fakePublisher{}
	r := NewRelay(pub, func(e domain.Entry) { seen = append(seen, e.Content) })
	defer r.Close()

	backlog := []*domain.Entry{
		{Content: "first", Kind: domain.KindCaption},
		{Content: "second", Kind: domain.KindChat},
	}
	r.LoadBacklog(backlog)
	r.OnRemote(domain.Entry{Content: "third", Kind: domain.KindCaption})

	assert.Equal(t, []string{"first", "second", "third"}, seen)
}
