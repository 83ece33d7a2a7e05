package hub

// BackpressureAction decides what happens to a member whose send buffer is
// full during a broadcast.
type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

type Policy interface {
	OnBackpressure(room *Room, sid SessionID) BackpressureAction
}

// SimplePolicy kicks slow members; a client that cannot drain presence and
// transcript events has effectively left the meeting.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(room *Room, sid SessionID) BackpressureAction {
	return KickMember
}
