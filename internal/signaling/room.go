package signaling

// Room groups the participants of one meeting together with the transient
// shared state they coordinate on: the current screen sharer, the active
// poll and the shared notes buffer. A Room exists from the first join until
// its member set becomes empty; the hub deletes it at that point.
//
// Rooms are only ever touched from the hub's Run goroutine, which gives every
// operation the atomicity the shared-state invariants need without per-room
// locks.
type Room struct {
	ID      string
	Members map[string]*Client

	// SharerID names the connection currently screen sharing, or "" when
	// nobody is. Two racing start-share requests resolve last-writer-wins.
	SharerID string

	// Poll is the single active poll, nil when none.
	Poll *Poll

	// Notes is the shared notes buffer, last write wins.
	Notes string
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	return &Room{ID: id, Members: make(map[string]*Client)}
}

// Participants returns the connection id to display name mapping broadcast
// after every membership change.
func (r *Room) Participants() map[string]string {
	out := make(map[string]string, len(r.Members))
	for id, c := range r.Members {
		out[id] = c.DisplayName
	}
	return out
}

// StartShare records connID as the room's sharer, superseding any previous
// one.
func (r *Room) StartShare(connID string) {
	r.SharerID = connID
}

// StopShare clears the sharer. The original client always pairs stop-share
// with having started, so this is unconditional; a stale stop after a
// takeover simply re-clears.
func (r *Room) StopShare() {
	r.SharerID = ""
}

// DropMember removes connID from the room and reports which cascading
// cleanups the caller must broadcast: sharingStopped when the departing
// member held the share, pollClosed when it owned the active poll.
func (r *Room) DropMember(connID string) (sharingStopped, pollClosed bool) {
	if _, ok := r.Members[connID]; !ok {
		return false, false
	}
	delete(r.Members, connID)
	if r.SharerID == connID {
		r.SharerID = ""
		sharingStopped = true
	}
	if r.Poll != nil && r.Poll.CreatorID == connID {
		r.Poll = nil
		pollClosed = true
	}
	return sharingStopped, pollClosed
}

// Empty reports whether the room has no members left.
func (r *Room) Empty() bool {
	return len(r.Members) == 0
}
