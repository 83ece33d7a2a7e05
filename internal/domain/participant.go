package domain

// PeerID distinguishes the local participant from remote ones by construction,
// so no synthetic "self" string can ever collide with a transport-assigned
// identifier.
type PeerID struct {
	remote string
}

// LocalPeer identifies the session's own participant entry.
func LocalPeer() PeerID { return PeerID{} }

// RemotePeer wraps a transport-assigned identifier.
func RemotePeer(id string) PeerID { return PeerID{remote: id} }

func (p PeerID) IsLocal() bool { return p.remote == "" }

// Remote returns the transport identifier; empty for the local peer.
func (p PeerID) Remote() string { return p.remote }

func (p PeerID) String() string {
	if p.IsLocal() {
		return "(self)"
	}
	return p.remote
}

// Participant is one row of the in-room roster.
type Participant struct {
	Peer PeerID
	Name string
	Self bool
}
