package session

import (
	"fmt"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

// Typed forms of the server-to-client events. ParseEvent turns a raw wire
// message into one of these so the session loop and the tests never deal
// with raw JSON.
type (
	// JoinedEvent announces a new room member; the session calls them.
	JoinedEvent struct {
		ConnectionID string
		DisplayName  string
	}

	// LeftEvent announces a departed member.
	LeftEvent struct {
		ConnectionID string
	}

	// ParticipantsEvent is the refreshed connection id to name mapping.
	ParticipantsEvent map[string]string

	// OfferEvent carries a remote offer; the session answers it.
	OfferEvent struct {
		CallerID string
		SDP      []byte
	}

	// AnswerEvent carries the answer to an offer this session sent.
	AnswerEvent struct {
		CalleeID string
		SDP      []byte
	}

	// CandidateEvent carries one remote ICE candidate.
	CandidateEvent struct {
		SenderID  string
		Candidate []byte
	}

	// ShareStartedEvent names the room's current screen sharer.
	ShareStartedEvent struct {
		SharerID string
	}

	// ShareStoppedEvent clears the screen sharer.
	ShareStoppedEvent struct{}

	// PollEvent carries the active poll, or nil when it closed.
	PollEvent struct {
		Poll *protocol.Poll
	}

	// NotesEvent carries the full replacement notes text.
	NotesEvent struct {
		Notes string
	}

	// ChatEvent is one chat message with provenance.
	ChatEvent struct {
		Message     string
		SenderID    string
		DisplayName string
	}
)

// ParseEvent decodes a server message into its typed event.
func ParseEvent(m *protocol.Message) (any, error) {
	switch m.Type {
	case protocol.TypeUserJoined:
		var p protocol.UserJoined
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return JoinedEvent{ConnectionID: p.ConnectionID, DisplayName: p.DisplayName}, nil

	case protocol.TypeUserLeft:
		var id string
		if err := m.Decode(&id); err != nil {
			return nil, err
		}
		return LeftEvent{ConnectionID: id}, nil

	case protocol.TypeUpdateParticipants:
		var p map[string]string
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return ParticipantsEvent(p), nil

	case protocol.TypeOffer:
		var p protocol.SessionDesc
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return OfferEvent{CallerID: p.CallerID, SDP: p.SDP}, nil

	case protocol.TypeAnswer:
		var p protocol.SessionDesc
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return AnswerEvent{CalleeID: p.CalleeID, SDP: p.SDP}, nil

	case protocol.TypeICE:
		var p protocol.ICECandidate
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return CandidateEvent{SenderID: p.SenderID, Candidate: p.Candidate}, nil

	case protocol.TypeUserStartedSharing:
		var id string
		if err := m.Decode(&id); err != nil {
			return nil, err
		}
		return ShareStartedEvent{SharerID: id}, nil

	case protocol.TypeUserStoppedSharing:
		return ShareStoppedEvent{}, nil

	case protocol.TypePollUpdate:
		var p *protocol.Poll
		if len(m.Payload) > 0 {
			if err := m.Decode(&p); err != nil {
				return nil, err
			}
		}
		return PollEvent{Poll: p}, nil

	case protocol.TypeNotesUpdated:
		var notes string
		if err := m.Decode(&notes); err != nil {
			return nil, err
		}
		return NotesEvent{Notes: notes}, nil

	case protocol.TypeReceiveMessage:
		var p protocol.ReceiveMessage
		if err := m.Decode(&p); err != nil {
			return nil, err
		}
		return ChatEvent{Message: p.Message, SenderID: p.SenderID, DisplayName: p.DisplayName}, nil
	}

	return nil, fmt.Errorf("unknown event type %q", m.Type)
}
