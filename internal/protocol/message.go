package protocol

import "encoding/json"

// Message is the envelope for every websocket message exchanged between a
// meeting client and the coordination server. Payload stays raw so the server
// can relay negotiation messages without inspecting them.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server events.
const (
	TypeJoinRoom    = "join-room"
	TypeOffer       = "offer"
	TypeAnswer      = "answer"
	TypeICE         = "ice-candidate"
	TypeStartShare  = "start-share"
	TypeStopShare   = "stop-share"
	TypeCreatePoll  = "create-poll"
	TypeSubmitVote  = "submit-vote"
	TypeClosePoll   = "close-poll"
	TypeSyncNotes   = "sync-notes"
	TypeSendMessage = "send-message"
)

// Server to room events. Offer, answer and ice-candidate reuse the same type
// strings in both directions; the server rewrites the payload to carry the
// sender's connection id instead of the target.
const (
	TypeUserJoined         = "user-joined"
	TypeUserLeft           = "user-left"
	TypeUpdateParticipants = "update-participants"
	TypeUserStartedSharing = "user-started-sharing"
	TypeUserStoppedSharing = "user-stopped-sharing"
	TypePollUpdate         = "poll-update"
	TypeNotesUpdated       = "notes-updated"
	TypeReceiveMessage     = "receive-message"
)

// JoinRoom is the first application message a client sends.
type JoinRoom struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// UserJoined announces a new participant to the rest of the room.
type UserJoined struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

// SessionDesc carries an SDP offer or answer. Clients address it with Target;
// the server strips Target and stamps CallerID (offers) or CalleeID (answers)
// before forwarding.
type SessionDesc struct {
	Target   string          `json:"target,omitempty"`
	CallerID string          `json:"callerId,omitempty"`
	CalleeID string          `json:"calleeId,omitempty"`
	SDP      json.RawMessage `json:"sdp"`
}

// ICECandidate carries one ICE candidate, addressed like SessionDesc.
type ICECandidate struct {
	Target    string          `json:"target,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// CreatePoll asks the server to open a poll in the sender's room.
type CreatePoll struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// PollOption is one answer with its running tally.
type PollOption struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Poll is the room's active poll as broadcast in poll-update. A poll-update
// with a null payload means no poll is active.
type Poll struct {
	CreatorID string          `json:"creatorId"`
	Question  string          `json:"question"`
	Options   []PollOption    `json:"options"`
	Voters    map[string]bool `json:"voters"`
}

// SyncNotes replaces the room's shared notes buffer.
type SyncNotes struct {
	Notes string `json:"notes"`
}

// SendMessage is an outbound chat message.
type SendMessage struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// ReceiveMessage is a chat message rebroadcast with provenance.
type ReceiveMessage struct {
	Message     string `json:"message"`
	SenderID    string `json:"senderId"`
	DisplayName string `json:"displayName"`
}

// NewMessage marshals payload and wraps it in a Message envelope.
func NewMessage(msgType string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: b}, nil
}

// MustMessage is NewMessage for payloads that cannot fail to marshal.
func MustMessage(msgType string, payload any) *Message {
	m, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}
