package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
)

// ParticipantsView renders the current room membership.
func ParticipantsView(participants map[string]string, sharerID string) string {
	if len(participants) == 0 {
		return MutedStyle.Render("Nobody here yet")
	}

	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rows [][]string
	for _, id := range ids {
		name := participants[id]
		marker := ""
		if id == sharerID {
			marker = IconShare
		}
		rows = append(rows, []string{name, shortConnID(id), marker})
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Name", "Connection", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// PollResultsView renders a finished or running poll tally.
func PollResultsView(poll *protocol.Poll) string {
	if poll == nil {
		return MutedStyle.Render("No poll")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(poll.Question)
	t.AppendHeader(table.Row{"#", "Option", "Votes"})
	for i, opt := range poll.Options {
		t.AppendRow(table.Row{i + 1, opt.Text, opt.Count})
	}
	t.AppendFooter(table.Row{"", "Voters", len(poll.Voters)})
	return t.Render()
}

// RoomInfoView renders the joined-room banner.
func RoomInfoView(roomID, roomLink string) string {
	content := fmt.Sprintf("%s Joined room\n\n%s Room ID:   %s\n%s Share:     %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(roomID),
		IconLink, MutedStyle.Render(roomLink),
	)
	return BoxStyle.Render(content)
}

func shortConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
