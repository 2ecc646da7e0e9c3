package signaling

import (
	"log/slog"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

// inbound pairs a parsed message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the coordination core: the room registry and the signaling relay.
// All room and connection state is owned by the single goroutine running
// Run, fed through the three channels. Connection handlers never touch the
// maps directly, so no operation can be observed half-applied.
type Hub struct {
	// conns maps connection ids to attached clients.
	conns map[string]*Client

	// rooms maps room ids to live rooms.
	rooms map[string]*Room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *inbound
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]*Client),
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
	}
}

// Deliver queues a client message for the hub goroutine. ReadPump uses it;
// in-process transports (tests, embedded clients) may too.
func (h *Hub) Deliver(c *Client, m *protocol.Message) {
	h.Inbound <- &inbound{client: c, msg: m}
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.addConn(client)
		case client := <-h.Unregister:
			h.dropConn(client)
		case in := <-h.Inbound:
			h.dispatch(in.client, in.msg)
		}
	}
}

func (h *Hub) addConn(c *Client) {
	h.conns[c.ID] = c
	slog.Debug("client connected", "conn", c.ID)
}

// dropConn handles a disconnect. Safe to call more than once per client;
// only the first has effect.
func (h *Hub) dropConn(c *Client) {
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	delete(h.conns, c.ID)
	h.leaveRoom(c)
	close(c.Send)
	slog.Debug("client disconnected", "conn", c.ID)
}

func (h *Hub) dispatch(c *Client, m *protocol.Message) {
	switch m.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(c, m)
	case protocol.TypeOffer:
		var p protocol.SessionDesc
		if err := m.Decode(&p); err != nil {
			return
		}
		h.forward(p.Target, protocol.MustMessage(protocol.TypeOffer,
			protocol.SessionDesc{CallerID: c.ID, SDP: p.SDP}))
	case protocol.TypeAnswer:
		var p protocol.SessionDesc
		if err := m.Decode(&p); err != nil {
			return
		}
		h.forward(p.Target, protocol.MustMessage(protocol.TypeAnswer,
			protocol.SessionDesc{CalleeID: c.ID, SDP: p.SDP}))
	case protocol.TypeICE:
		var p protocol.ICECandidate
		if err := m.Decode(&p); err != nil {
			return
		}
		h.forward(p.Target, protocol.MustMessage(protocol.TypeICE,
			protocol.ICECandidate{SenderID: c.ID, Candidate: p.Candidate}))
	case protocol.TypeStartShare:
		if room := h.roomOf(c); room != nil {
			room.StartShare(c.ID)
			h.broadcast(room, protocol.MustMessage(protocol.TypeUserStartedSharing, c.ID), c.ID)
		}
	case protocol.TypeStopShare:
		if room := h.roomOf(c); room != nil {
			room.StopShare()
			h.broadcast(room, &protocol.Message{Type: protocol.TypeUserStoppedSharing}, c.ID)
		}
	case protocol.TypeCreatePoll:
		h.handleCreatePoll(c, m)
	case protocol.TypeSubmitVote:
		h.handleVote(c, m)
	case protocol.TypeClosePoll:
		if room := h.roomOf(c); room != nil && room.Poll != nil && room.Poll.CreatorID == c.ID {
			room.Poll = nil
			h.broadcast(room, protocol.MustMessage(protocol.TypePollUpdate, (*protocol.Poll)(nil)), "")
		}
	case protocol.TypeSyncNotes:
		var p protocol.SyncNotes
		if err := m.Decode(&p); err != nil {
			return
		}
		if room := h.roomOf(c); room != nil {
			room.Notes = p.Notes
			h.broadcast(room, protocol.MustMessage(protocol.TypeNotesUpdated, p.Notes), c.ID)
		}
	case protocol.TypeSendMessage:
		var p protocol.SendMessage
		if err := m.Decode(&p); err != nil {
			return
		}
		if room := h.roomOf(c); room != nil {
			h.broadcast(room, protocol.MustMessage(protocol.TypeReceiveMessage, protocol.ReceiveMessage{
				Message:     p.Message,
				SenderID:    c.ID,
				DisplayName: c.DisplayName,
			}), "")
		}
	default:
		slog.Debug("unknown message type", "type", m.Type, "conn", c.ID)
	}
}

// handleJoin registers the participant, replays the room's current shared
// state to the joiner and announces the refreshed presence.
func (h *Hub) handleJoin(c *Client, m *protocol.Message) {
	var p protocol.JoinRoom
	if err := m.Decode(&p); err != nil || p.RoomID == "" {
		return
	}

	// Duplicate join from the same connection replaces the registration.
	if c.RoomID == p.RoomID {
		c.DisplayName = p.DisplayName
		room := h.rooms[p.RoomID]
		h.broadcast(room, protocol.MustMessage(protocol.TypeUpdateParticipants, room.Participants()), "")
		return
	}
	if c.RoomID != "" {
		h.leaveRoom(c)
	}

	room, ok := h.rooms[p.RoomID]
	if !ok {
		room = NewRoom(p.RoomID)
		h.rooms[p.RoomID] = room
	}
	c.RoomID = p.RoomID
	c.DisplayName = p.DisplayName
	room.Members[c.ID] = c
	slog.Info("participant joined", "conn", c.ID, "room", p.RoomID, "name", p.DisplayName)

	// Catch the late joiner up on in-flight shared state before presence.
	if room.SharerID != "" {
		h.trySend(c, protocol.MustMessage(protocol.TypeUserStartedSharing, room.SharerID))
	}
	if room.Poll != nil {
		h.trySend(c, protocol.MustMessage(protocol.TypePollUpdate, room.Poll.Snapshot()))
	}

	h.broadcast(room, protocol.MustMessage(protocol.TypeUserJoined, protocol.UserJoined{
		ConnectionID: c.ID,
		DisplayName:  p.DisplayName,
	}), c.ID)
	h.broadcast(room, protocol.MustMessage(protocol.TypeUpdateParticipants, room.Participants()), "")
}

func (h *Hub) handleCreatePoll(c *Client, m *protocol.Message) {
	room := h.roomOf(c)
	if room == nil || room.Poll != nil {
		return
	}
	var p protocol.CreatePoll
	if err := m.Decode(&p); err != nil {
		return
	}
	poll := NewPoll(c.ID, p.Question, p.Options)
	if poll == nil {
		return
	}
	room.Poll = poll
	h.broadcast(room, protocol.MustMessage(protocol.TypePollUpdate, poll.Snapshot()), "")
}

func (h *Hub) handleVote(c *Client, m *protocol.Message) {
	room := h.roomOf(c)
	if room == nil || room.Poll == nil {
		return
	}
	var optionIndex int
	if err := m.Decode(&optionIndex); err != nil {
		return
	}
	if room.Poll.Vote(c.ID, optionIndex) {
		h.broadcast(room, protocol.MustMessage(protocol.TypePollUpdate, room.Poll.Snapshot()), "")
	}
}

// leaveRoom removes the client from its room and runs the cascading
// cleanup: share release, creator poll close, departure notice, presence.
func (h *Hub) leaveRoom(c *Client) {
	if c.RoomID == "" {
		return
	}
	room, ok := h.rooms[c.RoomID]
	c.RoomID = ""
	if !ok {
		return
	}

	sharingStopped, pollClosed := room.DropMember(c.ID)
	if sharingStopped {
		h.broadcast(room, &protocol.Message{Type: protocol.TypeUserStoppedSharing}, c.ID)
	}
	if pollClosed {
		h.broadcast(room, protocol.MustMessage(protocol.TypePollUpdate, (*protocol.Poll)(nil)), "")
	}
	h.broadcast(room, protocol.MustMessage(protocol.TypeUserLeft, c.ID), c.ID)
	slog.Info("participant left", "conn", c.ID, "room", room.ID)

	if room.Empty() {
		delete(h.rooms, room.ID)
		slog.Debug("room deleted", "room", room.ID)
		return
	}
	h.broadcast(room, protocol.MustMessage(protocol.TypeUpdateParticipants, room.Participants()), "")
}

func (h *Hub) roomOf(c *Client) *Room {
	if c.RoomID == "" {
		return nil
	}
	return h.rooms[c.RoomID]
}

// forward delivers a message to exactly one connection if it is still
// attached, and drops it silently otherwise. The departure notice is the
// authoritative signal; a miss here just means it raced ahead of us.
func (h *Hub) forward(targetID string, msg *protocol.Message) {
	target, ok := h.conns[targetID]
	if !ok {
		slog.Debug("dropping message for departed connection", "target", targetID, "type", msg.Type)
		return
	}
	h.trySend(target, msg)
}

// broadcast sends msg to every member of the room except excludeID.
// Best-effort, at-most-once: a full send buffer drops the message.
func (h *Hub) broadcast(room *Room, msg *protocol.Message, excludeID string) {
	for id, member := range room.Members {
		if id == excludeID {
			continue
		}
		h.trySend(member, msg)
	}
}

func (h *Hub) trySend(c *Client, msg *protocol.Message) {
	select {
	case c.Send <- msg:
	default:
		slog.Warn("send buffer full, dropping message", "conn", c.ID, "type", msg.Type)
	}
}
