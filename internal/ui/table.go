package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type RoomInfo struct {
	RoomID   string
	RoomLink string
	Created  bool
}

func NewRoomInfo(roomID, roomLink string, created bool) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
		Created:  created,
	}
}

func (r *RoomInfo) View() string {
	heading := fmt.Sprintf("%s Joining room", IconRoom)
	if r.Created {
		heading = fmt.Sprintf("%s Room Created!", IconSuccess)
	}

	content := fmt.Sprintf("%s\n\n%s Room ID:    %s\n%s Room Link:  %s",
		heading,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	return SuccessBoxStyle.Render(content)
}

func RenderRoomInfo(info *RoomInfo) {
	fmt.Fprintln(Output, info.View())
}

// RoomRow is one line of a room inspection.
type RoomRow struct {
	Path   string
	Kind   string
	Peer   string
	Detail string
}

// RoomTableView renders the relay state of a room.
func RoomTableView(roomID string, rows []RoomRow) string {
	t := table.NewWriter()
	t.SetTitle("%s Room %s", IconRoom, roomID)
	t.AppendHeader(table.Row{"Path", "Kind", "Peer", "Detail"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Path, r.Kind, r.Peer, r.Detail})
	}
	if len(rows) == 0 {
		t.AppendFooter(table.Row{"", "", "", "room is empty"})
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Options.SeparateRows = false
	return t.Render()
}

func RenderRoomTable(roomID string, rows []RoomRow) {
	fmt.Fprintln(Output, RoomTableView(roomID, rows))
}

// RelayInfoView lists the endpoints a running relay serves.
func RelayInfoView(addr string) string {
	rows := [][]string{
		{"Signaling", fmt.Sprintf("ws://%s/ws", addr)},
		{"Health", fmt.Sprintf("http://%s/health", addr)},
		{"Metrics", fmt.Sprintf("http://%s/metrics", addr)},
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Endpoint", "URL").
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
