package session

import (
	"sync"

	"github.com/typeless/meet/internal/domain"
)

type fakeStream struct{ id string }

func (s *fakeStream) ID() string { return s.id }

type fakeCall struct {
	mu       sync.Mutex
	peer     domain.PeerID
	onStream func(MediaStream)
	onClosed func()
	closed   bool
}

func (c *fakeCall) Peer() domain.PeerID { return c.peer }

func (c *fakeCall) OnStream(fn func(MediaStream)) {
	c.mu.Lock()
	c.onStream = fn
	c.mu.Unlock()
}

func (c *fakeCall) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *fakeCall) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeCall) fireStream(id string) {
	c.mu.Lock()
	fn := c.onStream
	c.mu.Unlock()
	if fn != nil {
		fn(&fakeStream{id: id})
	}
}

func (c *fakeCall) fireClosed() {
	c.mu.Lock()
	fn := c.onClosed
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeTransport struct {
	mu       sync.Mutex
	hasAudio bool
	dialed   []domain.PeerID
	calls    map[string]*fakeCall
	onInvite func(Invite)
	closed   bool
}

func newFakeTransport(hasAudio bool) *fakeTransport {
	return &fakeTransport{hasAudio: hasAudio, calls: make(map[string]*fakeCall)}
}

func (t *fakeTransport) Dial(peer domain.PeerID) (Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialed = append(t.dialed, peer)
	call := &fakeCall{peer: peer}
	t.calls[peer.Remote()] = call
	return call, nil
}

func (t *fakeTransport) HasLocalAudio() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasAudio
}

func (t *fakeTransport) OnInvite(fn func(Invite)) {
	t.mu.Lock()
	t.onInvite = fn
	t.mu.Unlock()
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.dialed)
}

func (t *fakeTransport) invite(from string) *fakeInvite {
	t.mu.Lock()
	fn := t.onInvite
	t.mu.Unlock()
	inv := &fakeInvite{transport: t, from: from}
	if fn != nil {
		fn(inv)
	}
	return inv
}

type fakeInvite struct {
	transport *fakeTransport
	from      string
	answered  bool
}

func (i *fakeInvite) Peer() domain.PeerID { return domain.RemotePeer(i.from) }

func (i *fakeInvite) Answer() (Call, error) {
	i.answered = true
	call := &fakeCall{peer: i.Peer()}
	i.transport.mu.Lock()
	i.transport.calls[i.from] = call
	i.transport.mu.Unlock()
	return call, nil
}

type fakeSink struct {
	mu       sync.Mutex
	attached map[string]string
	detached []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{attached: make(map[string]string)}
}

func (s *fakeSink) Attach(peer domain.PeerID, stream MediaStream) {
	s.mu.Lock()
	s.attached[peer.Remote()] = stream.ID()
	s.mu.Unlock()
}

func (s *fakeSink) Detach(peer domain.PeerID) {
	s.mu.Lock()
	delete(s.attached, peer.Remote())
	s.detached = append(s.detached, peer.Remote())
	s.mu.Unlock()
}

func (s *fakeSink) attachedTo(remote string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attached[remote]
	return ok
}

type fakePublisher struct {
	mu      sync.Mutex
	entries []publishedEntry
	err     error
}

type publishedEntry struct {
	content string
	kind    domain.EntryKind
}

func (p *fakePublisher) PublishEntry(content string, kind domain.EntryKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, publishedEntry{content: content, kind: kind})
	return nil
}

func (p *fakePublisher) published() []publishedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEntry(nil), p.entries...)
}

type fakeEnder struct {
	mu     sync.Mutex
	ends   []bool
	leaves int
	closed bool
}

func (e *fakeEnder) SendEnd(withSummary bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ends = append(e.ends, withSummary)
	return nil
}

func (e *fakeEnder) SendLeave() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaves++
	return nil
}

func (e *fakeEnder) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *fakeEnder) endCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ends)
}
