// Package tui is a terminal client for the daemon's IPC socket.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"cryogon/rizumu-udio/ipc"
	"cryogon/rizumu-udio/models"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	normalColor = lipgloss.Color("#000000")
	activeColor = lipgloss.Color("#ff79c6")
	volumeStep  = 0.1
)

// DefaultGenres seeds the genre column.
var DefaultGenres = []string{"lofi", "jazz", "ambient", "electronic", "rock", "hip hop", "classical", "pop"}

var sectionStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder(), true).Padding(0).Margin(0)

type Section int

const (
	sectionGenres Section = iota
	sectionTracks
)

// errMsg carries a failed IPC read or write into Update.
type errMsg struct{ err error }

func listenToIPC(c *IPCClient) tea.Cmd {
	return func() tea.Msg {
		resp, err := c.ReadNext()
		if err != nil {
			return errMsg{err}
		}
		log.Printf("Type: %s", resp.Type)
		return resp
	}
}

func send(c *IPCClient, cmd ipc.Command) tea.Cmd {
	return func() tea.Msg {
		if err := c.Send(cmd); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

type model struct {
	ipc           *IPCClient
	activeSection Section
	height        int
	width         int

	genres      []string
	genreCursor int

	trackModel table.Model
	tracks     []models.Track

	progress    *ProgressBar
	playerState ipc.PlayerState
	status      string
	fatal       error
}

func InitialModel(c *IPCClient, genres []string) model {
	if len(genres) == 0 {
		genres = DefaultGenres
	}
	trackColumns := []table.Column{
		{Title: "", Width: 2},
		{Title: "Title", Width: 30},
		{Title: "Artist", Width: 20},
		{Title: "Length", Width: 8},
		{Title: "Likes", Width: 6},
	}

	return model{
		ipc:        c,
		genres:     genres,
		trackModel: table.New(table.WithColumns(trackColumns)),
		progress:   NewProgressBar(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		send(m.ipc, ipc.Command{Type: ipc.CmdState}),
		listenToIPC(m.ipc),
	)
}

func formatSeconds(s float64) string {
	d := time.Duration(s) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func (m *model) refreshRows() {
	rows := make([]table.Row, 0, len(m.tracks))
	for _, t := range m.tracks {
		status := ""
		if t.ID == m.playerState.TrackID {
			status = "▶ "
		}
		rows = append(rows, table.Row{
			status,
			t.Title,
			t.Artist,
			formatSeconds(t.Duration.Seconds()),
			fmt.Sprintf("%d", t.Likes),
		})
	}
	m.trackModel.SetRows(rows)
}

func (m *model) handleMessage(msg ipc.Message) {
	switch msg.Type {
	case ipc.MsgTracks:
		var res models.SearchResult
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			m.status = "bad tracks reply: " + err.Error()
			return
		}
		m.tracks = res.Tracks
		m.refreshRows()
		m.trackModel.SetCursor(0)
		m.activeSection = sectionTracks
		m.trackModel.Focus()
		m.status = fmt.Sprintf("%d tracks", len(res.Tracks))
		if res.Placeholder {
			m.status += " (offline demo tracks)"
		}

	case ipc.MsgTrack:
		var t models.Track
		if err := json.Unmarshal(msg.Data, &t); err == nil {
			m.playerState.TrackID = t.ID
			m.playerState.Title = t.Title
			m.playerState.Artist = t.Artist
			m.playerState.Playing = true
			m.status = "Playing " + t.Title
			m.refreshRows()
		}

	case ipc.MsgTask:
		var task struct {
			ID    int64        `json:"id"`
			Track models.Track `json:"track"`
		}
		if err := json.Unmarshal(msg.Data, &task); err == nil {
			m.status = fmt.Sprintf("Queued download #%d: %s", task.ID, task.Track.Title)
		}

	case ipc.MsgError:
		var reply ipc.ErrorReply
		if err := json.Unmarshal(msg.Data, &reply); err == nil {
			m.status = fmt.Sprintf("%s failed: %s", reply.Command, reply.Error)
		}

	case ipc.MsgPlayerState:
		var state ipc.PlayerState
		if err := json.Unmarshal(msg.Data, &state); err == nil {
			m.playerState = state
			m.progress.Update(m.width, state.Progress, state.Duration)
			m.refreshRows()
		}
	}
}

func (m model) selectedGenre() string {
	if len(m.genres) == 0 {
		return ""
	}
	return m.genres[m.genreCursor]
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ipc.Message:
		cmds = append(cmds, listenToIPC(m.ipc))
		m.handleMessage(msg)

	case errMsg:
		m.fatal = msg.err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		availableHeight := m.height - sectionStyle.GetVerticalFrameSize()
		mainBodyHeight := availableHeight - 6
		finalRightHeight := max(mainBodyHeight-sectionStyle.GetVerticalFrameSize(), 1)

		m.trackModel.SetHeight(finalRightHeight + 2)
		m.progress.Update(msg.Width, m.playerState.Progress, m.playerState.Duration)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeSection = (m.activeSection + 1) % 2
			if m.activeSection == sectionTracks {
				m.trackModel.Focus()
			} else {
				m.trackModel.Blur()
			}

		case "enter":
			switch m.activeSection {
			case sectionGenres:
				if g := m.selectedGenre(); g != "" {
					m.status = "Searching " + g + "..."
					cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdSearch, Tags: []string{g}}))
				}
			case sectionTracks:
				if len(m.tracks) > 0 {
					t := m.tracks[m.trackModel.Cursor()]
					m.status = "Loading " + t.Title + "..."
					cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdPlay, Track: &t}))
				}
			}

		case "down", "j":
			if m.activeSection == sectionGenres && m.genreCursor < len(m.genres)-1 {
				m.genreCursor++
			}
		case "up", "k":
			if m.activeSection == sectionGenres && m.genreCursor > 0 {
				m.genreCursor--
			}

		case " ":
			cmd := ipc.Command{Type: ipc.CmdPause}
			if !m.playerState.Playing {
				cmd.Type = ipc.CmdResume
			}
			cmds = append(cmds, send(m.ipc, cmd))
		case "r":
			if g := m.selectedGenre(); g != "" {
				m.status = "Random " + g + "..."
				cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdRandom, Genre: g}))
			}
		case "x":
			cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdStop}))
		case "d":
			cmd := ipc.Command{Type: ipc.CmdDownload}
			if m.activeSection == sectionTracks && len(m.tracks) > 0 {
				t := m.tracks[m.trackModel.Cursor()]
				cmd.Track = &t
			}
			cmds = append(cmds, send(m.ipc, cmd))
		case "+", "=":
			v := min(m.playerState.Volume+volumeStep, 1)
			cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdVolume, Volume: v}))
		case "-":
			v := max(m.playerState.Volume-volumeStep, 0)
			cmds = append(cmds, send(m.ipc, ipc.Command{Type: ipc.CmdVolume, Volume: v}))
		}
	}

	// Always update the table model so it can handle its own internal resizing and inputs
	var tableCmd tea.Cmd
	m.trackModel, tableCmd = m.trackModel.Update(msg)
	cmds = append(cmds, tableCmd)

	return m, tea.Batch(cmds...)
}

func truncate(s string, w int) string {
	if w <= 3 {
		return ""
	}
	if len(s) > w {
		return s[:w-3] + "..."
	}
	return s
}

func (m model) View() string {
	// CRITICAL: Prevent crash on startup/resize when dimensions are invalid
	if m.width < 20 || m.height < 10 {
		return "Initializing..."
	}

	getBorderColor := func(section Section) lipgloss.Color {
		if m.activeSection == section {
			return activeColor
		}
		return normalColor
	}

	trueWidth := m.width
	availableHeight := m.height - sectionStyle.GetVerticalFrameSize()
	footerHeight := 5
	mainBodyHeight := availableHeight - footerHeight
	finalBodyHeight := mainBodyHeight - sectionStyle.GetVerticalFrameSize() + 1

	leftColumnWidth := int(float64(trueWidth) * 0.25)
	rightColumnWidth := (trueWidth - leftColumnWidth) - 4

	var genreView strings.Builder
	for i, g := range m.genres {
		cursor := "  "
		style := lipgloss.NewStyle().Foreground(normalColor)
		if i == m.genreCursor && m.activeSection == sectionGenres {
			style = style.Foreground(activeColor).Bold(true)
			cursor = ">>"
		} else if i == m.genreCursor {
			style = style.Foreground(activeColor)
		}
		fmt.Fprintf(&genreView, "%s %s\n", cursor, style.Render(truncate(g, leftColumnWidth-4)))
	}

	genreList := sectionStyle.
		Width(leftColumnWidth).
		Height(finalBodyHeight).
		BorderForeground(getBorderColor(sectionGenres)).
		Render(lipgloss.NewStyle().Foreground(normalColor).Bold(true).Render("Genres") + "\n\n" + genreView.String())

	trackTable := sectionStyle.
		Width(rightColumnWidth).
		Height(finalBodyHeight).
		BorderForeground(getBorderColor(sectionTracks)).
		Render(m.trackModel.View())

	title := " Nothing playing"
	if m.playerState.TrackID != "" {
		title = fmt.Sprintf(" %s - %s", m.playerState.Artist, m.playerState.Title)
		if m.playerState.Looping {
			title += " (loop)"
		}
	}
	position := fmt.Sprintf("vol %d%%  %s / %s ", int(m.playerState.Volume*100+0.5),
		formatSeconds(m.playerState.Progress), formatSeconds(m.playerState.Duration))

	contentWidth := trueWidth - 2
	gapSize := max(contentWidth-lipgloss.Width(title)-lipgloss.Width(position), 0)

	topLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		lipgloss.NewStyle().Width(gapSize).Render(""),
		position,
	)

	centeredProgressBar := lipgloss.NewStyle().
		Width(contentWidth).
		Align(lipgloss.Center).
		Render(m.progress.View())

	statusLine := lipgloss.NewStyle().Width(contentWidth).Foreground(activeColor).Render(" " + m.status)

	playerSection := sectionStyle.
		Width(trueWidth-2).
		Height(footerHeight-sectionStyle.GetVerticalFrameSize()).
		BorderForeground(normalColor).
		Render(lipgloss.JoinVertical(lipgloss.Left, topLine, centeredProgressBar, statusLine))

	body := lipgloss.JoinHorizontal(lipgloss.Top, genreList, trackTable)
	return lipgloss.JoinVertical(lipgloss.Left, body, playerSection)
}

// Run starts the terminal client against the daemon socket and blocks until the user quits.
func Run(socketPath, logPath string, genres []string) error {
	if logPath != "" {
		f, err := tea.LogToFile(logPath, "debug")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	c, err := NewIPCClient(socketPath)
	if err != nil {
		return fmt.Errorf("connecting to daemon: %w", err)
	}
	defer c.Close()

	p := tea.NewProgram(InitialModel(c, genres), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.fatal != nil {
		return fmt.Errorf("daemon connection lost: %w", m.fatal)
	}
	return nil
}
