package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
	"github.com/kumarharshit0413/Nexus/internal/session"
)

const chatScrollback = 12

// MeetingModel is the Bubble Tea model for the in-meeting view. It renders
// room state fed from the session's update channel and turns key input into
// session commands.
type MeetingModel struct {
	sess    *session.Session
	capture *session.Capture

	participants map[string]string
	peers        map[string]session.LinkState
	chat         []string
	notes        string
	poll         *protocol.Poll
	sharerID     string
	sharing      bool

	// history keeps the full unstyled chat for the post-meeting summary.
	history []session.ChatEvent

	input    textinput.Model
	spinner  spinner.Model
	quitting bool
}

type sessionUpdate session.Update

// sessionDone signals that the wire dropped and the meeting is over.
type sessionDone struct{}

// NewMeetingModel creates the meeting view for a running session.
func NewMeetingModel(sess *session.Session, capture *session.Capture) *MeetingModel {
	ti := textinput.New()
	ti.Placeholder = "Message, or /help"
	ti.CharLimit = 500
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &MeetingModel{
		sess:         sess,
		capture:      capture,
		participants: make(map[string]string),
		peers:        make(map[string]session.LinkState),
		input:        ti,
		spinner:      s,
	}
}

// Poll returns the last poll seen, for the exit summary.
func (m *MeetingModel) Poll() *protocol.Poll {
	return m.poll
}

// History returns the full chat history, for the post-meeting summary.
func (m *MeetingModel) History() []session.ChatEvent {
	return m.history
}

func (m *MeetingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen(), textinput.Blink)
}

func (m *MeetingModel) listen() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.sess.Updates()
		if !ok {
			return sessionDone{}
		}
		return sessionUpdate(u)
	}
}

func (m *MeetingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.submit(m.input.Value())
			m.input.Reset()
			if m.quitting {
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case sessionUpdate:
		m.apply(session.Update(msg))
		cmds = append(cmds, m.listen())

	case sessionDone:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *MeetingModel) apply(u session.Update) {
	switch u.Kind {
	case session.UpdateParticipants:
		m.participants = u.Participants
	case session.UpdateChat:
		m.history = append(m.history, *u.Chat)
		m.appendChat(fmt.Sprintf("%s %s", ChatNameStyle.Render(u.Chat.DisplayName+":"), u.Chat.Message))
	case session.UpdateNotes:
		m.notes = u.Notes
	case session.UpdatePoll:
		m.poll = u.Poll
	case session.UpdateShare:
		m.sharerID = u.SharerID
	case session.UpdatePeerState:
		if u.PeerState == session.LinkClosed {
			delete(m.peers, u.PeerID)
		} else {
			m.peers[u.PeerID] = u.PeerState
		}
	case session.UpdateRemoteTrack:
		m.appendChat(MutedStyle.Render(fmt.Sprintf("receiving %s from %s", u.TrackKind, shortConnID(u.PeerID))))
	}
}

func (m *MeetingModel) appendChat(line string) {
	m.chat = append(m.chat, line)
	if len(m.chat) > chatScrollback {
		m.chat = m.chat[len(m.chat)-chatScrollback:]
	}
}

// submit interprets one line of input: slash commands or a chat message.
func (m *MeetingModel) submit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if !strings.HasPrefix(line, "/") {
		m.sess.SendChat(line)
		return
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	switch cmd {
	case "quit", "leave":
		m.quitting = true
	case "notes":
		m.sess.SyncNotes(rest)
		m.notes = rest
	case "poll":
		// /poll Question? | option | option
		parts := strings.Split(rest, "|")
		if len(parts) < 3 {
			m.appendChat(WarningStyle.Render("usage: /poll question | option | option"))
			return
		}
		question := strings.TrimSpace(parts[0])
		options := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			options = append(options, strings.TrimSpace(p))
		}
		m.sess.CreatePoll(question, options)
	case "vote":
		var idx int
		if _, err := fmt.Sscanf(rest, "%d", &idx); err != nil {
			m.appendChat(WarningStyle.Render("usage: /vote <option number>"))
			return
		}
		m.sess.Vote(idx - 1)
	case "closepoll":
		m.sess.ClosePoll()
	case "share":
		if err := m.sess.StartShare(); err != nil {
			m.appendChat(WarningStyle.Render(err.Error()))
			return
		}
		m.sharing = true
	case "unshare":
		m.sess.StopShare()
		m.sharing = false
	case "mute":
		m.capture.SetMicMuted(!m.capture.MicMuted())
	case "cam":
		m.capture.SetCameraOff(!m.capture.CameraOff())
	case "help":
		m.appendChat(MutedStyle.Render("/notes <text> /poll q|a|b /vote n /closepoll /share /unshare /mute /cam /leave"))
	default:
		m.appendChat(WarningStyle.Render("unknown command: /" + cmd))
	}
}

func (m *MeetingModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.sess.RoomID)))
	b.WriteString("\n")

	if len(m.participants) <= 1 {
		b.WriteString(fmt.Sprintf("%s Waiting for others to join...\n\n", m.spinner.View()))
	}

	b.WriteString(ParticipantsView(m.participants, m.sharerID))
	b.WriteString("\n")

	if m.sharing {
		b.WriteString(ShareBannerStyle.Render(IconShare + " You are sharing your screen"))
		b.WriteString("\n")
	} else if m.sharerID != "" {
		name := m.participants[m.sharerID]
		b.WriteString(ShareBannerStyle.Render(fmt.Sprintf("%s %s is sharing", IconShare, name)))
		b.WriteString("\n")
	}

	status := []string{}
	if m.capture.MicMuted() {
		status = append(status, IconMic+" muted")
	}
	if m.capture.CameraOff() {
		status = append(status, IconCamera+" off")
	}
	if len(status) > 0 {
		b.WriteString(MutedStyle.Render(strings.Join(status, "  ")))
		b.WriteString("\n")
	}

	if m.poll != nil {
		b.WriteString("\n")
		b.WriteString(PollResultsView(m.poll))
		b.WriteString("\n")
	}

	if m.notes != "" {
		b.WriteString(fmt.Sprintf("\n%s %s\n", IconNotes, NotesStyle.Render(m.notes)))
	}

	if len(m.chat) > 0 {
		b.WriteString("\n")
		for _, line := range m.chat {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + m.input.View())
	b.WriteString("\n" + MutedStyle.Render("enter to send · /help for commands · esc to leave"))

	return b.String()
}
