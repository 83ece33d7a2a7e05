package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeless/meet/internal/domain"
)

func newLifecycleFixture() (*Lifecycle, *fakeEnder, *fakeTransport, *Calls, func() []bool) {
	ender := &fakeEnder{}
	transport := newFakeTransport(true)
	sink := newFakeSink()
	presence := NewPresence("alice", nil)
	calls := NewCalls(transport, sink, presence)
	relay := NewRelay(&fakePublisher{}, func(domain.Entry) {})

	var navigations []bool
	lc := NewLifecycle(ender, calls, relay, transport, func(withSummary bool) {
		navigations = append(navigations, withSummary)
	})
	return lc, ender, transport, calls, func() []bool { return navigations }
}

func TestEndBroadcastsAndCleansUp(t *testing.T) {
	lc, ender, transport, calls, navs := newLifecycleFixture()
	calls.PlaceCall(domain.RemotePeer("sid-1"))

	lc.End(true)

	require.Equal(t, 1, ender.endCount())
	assert.True(t, ender.ends[0])
	assert.True(t, transport.closed)
	assert.True(t, ender.closed)
	assert.Equal(t, 0, calls.HandleCount(domain.RemotePeer("sid-1")))
	assert.Equal(t, []bool{true}, navs())
}

func TestEndTwiceIsNoOp(t *testing.T) {
	lc, ender, _, _, navs := newLifecycleFixture()

	lc.End(true)
	lc.End(true)

	assert.Equal(t, 1, ender.endCount())
	assert.Len(t, navs(), 1)
}

func TestRemoteEndNavigatesWithoutBroadcast(t *testing.T) {
	lc, ender, transport, _, navs := newLifecycleFixture()

	lc.OnRemoteEnd()

	assert.Equal(t, 0, ender.endCount())
	assert.True(t, transport.closed)
	assert.Equal(t, []bool{true}, navs())
	assert.True(t, lc.Ended())
}

func TestEndAfterRemoteEndIgnored(t *testing.T) {
	lc, ender, _, _, navs := newLifecycleFixture()

	lc.OnRemoteEnd()
	lc.End(true)

	assert.Equal(t, 0, ender.endCount())
	assert.Len(t, navs(), 1)
}

func TestLeaveKeepsMeetingRunning(t *testing.T) {
	lc, ender, transport, _, navs := newLifecycleFixture()

	lc.Leave()

	assert.Equal(t, 0, ender.endCount())
	assert.Equal(t, 1, ender.leaves)
	assert.True(t, transport.closed)
	assert.Equal(t, []bool{false}, navs())
}
