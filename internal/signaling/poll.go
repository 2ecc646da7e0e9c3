package signaling

import (
	"strings"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

// Poll is the room's single active poll. All mutation happens under the hub
// goroutine, so no locking here.
type Poll struct {
	CreatorID string
	Question  string
	Options   []protocol.PollOption
	Voters    map[string]bool
}

// NewPoll validates and creates a poll. It returns nil if the question is
// empty or fewer than two non-empty options remain after trimming.
func NewPoll(creatorID, question string, options []string) *Poll {
	if strings.TrimSpace(question) == "" {
		return nil
	}
	opts := make([]protocol.PollOption, 0, len(options))
	for _, o := range options {
		if strings.TrimSpace(o) == "" {
			continue
		}
		opts = append(opts, protocol.PollOption{Text: o})
	}
	if len(opts) < 2 {
		return nil
	}
	return &Poll{
		CreatorID: creatorID,
		Question:  question,
		Options:   opts,
		Voters:    make(map[string]bool),
	}
}

// Vote records one vote for optionIndex. Repeat votes from the same
// connection and out-of-range indexes are rejected as no-ops.
func (p *Poll) Vote(connID string, optionIndex int) bool {
	if p.Voters[connID] {
		return false
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return false
	}
	p.Options[optionIndex].Count++
	p.Voters[connID] = true
	return true
}

// Snapshot converts the poll to its wire form.
func (p *Poll) Snapshot() *protocol.Poll {
	if p == nil {
		return nil
	}
	opts := make([]protocol.PollOption, len(p.Options))
	copy(opts, p.Options)
	voters := make(map[string]bool, len(p.Voters))
	for id := range p.Voters {
		voters[id] = true
	}
	return &protocol.Poll{
		CreatorID: p.CreatorID,
		Question:  p.Question,
		Options:   opts,
		Voters:    voters,
	}
}
