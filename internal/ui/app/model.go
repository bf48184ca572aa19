package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	settingsdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/settings/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/ui/components"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/ui/theme"
	historyview "github.com/bruhnn/BD2ModPreview-sub001/internal/ui/views/history"
	previewview "github.com/bruhnn/BD2ModPreview-sub001/internal/ui/views/preview"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type playbackPort interface {
	Open(ctx context.Context, input playbackdto.OpenInput) (playbackdto.SessionView, error)
	OpenHistoryEntry(ctx context.Context, entry playbackdto.HistoryEntry) (playbackdto.SessionView, error)
	Reload(ctx context.Context) (playbackdto.SessionView, error)
	Close(ctx context.Context) error
	Status(ctx context.Context) (playbackdto.SessionView, error)
	SetAnimation(ctx context.Context, name string, loop bool) (playbackdto.SessionView, error)
	Zoom(ctx context.Context, zoom float64) error
	Pan(ctx context.Context, dx, dy float64) error
	ResetCamera(ctx context.Context) error
	Repair(ctx context.Context) (playbackdto.SessionView, error)
	History(ctx context.Context) ([]playbackdto.HistoryEntry, error)
	RemoveHistoryEntry(ctx context.Context, id int64) error
	ClearHistory(ctx context.Context) error
}

type settingsPort interface {
	Show(ctx context.Context) (settingsdto.Settings, error)
	Set(ctx context.Context, key, value string) (settingsdto.Settings, error)
}

// ─── tabs ────────────────────────────────────────────────────────────────────

type tabID int

const (
	tabPreview tabID = iota
	tabHistory
	tabCount
)

var tabLabels = [tabCount]string{"Preview", "History"}

// ─── messages ────────────────────────────────────────────────────────────────

// SessionUpdatedMsg carries an observed session change into the program.
type SessionUpdatedMsg struct {
	View playbackdto.SessionView
}

type sessionResultMsg struct {
	action string
	view   playbackdto.SessionView
	err    error
}

type actionDoneMsg struct {
	status         string
	err            error
	refreshHistory bool
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Reload  key.Binding
	Repair  key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Camera  key.Binding
	Loop    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload source")),
		Repair:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "repair skeleton")),
		ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut: key.NewBinding(key.WithKeys("-"), key.WithHelp("+/-", "zoom")),
		Camera:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset camera")),
		Loop:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "toggle loop")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Reload, k.Repair},
		{k.ZoomIn, k.Camera, k.Loop},
		{k.Help, k.Palette, k.Quit},
	}
}

// paletteHints must stay in sync with executePalette.
var paletteHints = []string{
	"open:folder <path>",
	"open:url <skeleton> <atlas> [skeleton-fallback atlas-fallback]",
	"reload",
	"close",
	"repair",
	"anim <name> [loop|once]",
	"zoom <factor>",
	"pan <dx> <dy>",
	"camera:reset",
	"history:remove <id>",
	"history:clear",
	"settings:set <key> <value>",
}

const zoomStep = 1.25

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It routes tabs and the palette and turns
// user intent into playback calls; rendering lives in the views.
type Model struct {
	playback playbackPort
	settings settingsPort
	initial  playbackdto.OpenInput

	preview previewview.Model
	history historyview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	width     int
	height    int
}

func NewModel(playback playbackPort, settings settingsPort, initial playbackdto.OpenInput) Model {
	return Model{
		playback:  playback,
		settings:  settings,
		initial:   initial,
		preview:   previewview.New(),
		history:   historyview.New(playback),
		activeTab: tabPreview,
		keys:      defaultKeys(),
		help:      help.New(),
		palette:   components.NewPalette(paletteHints),
		status:    "ready",
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.preview.Init(), m.history.Init(), m.statusCmd()}
	if m.initial.Kind != "" {
		input := m.initial
		cmds = append(cmds, m.sessionCmd("open", func(ctx context.Context) (playbackdto.SessionView, error) {
			return m.playback.Open(ctx, input)
		}))
	}
	return tea.Batch(cmds...)
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 96))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case SessionUpdatedMsg:
		cmd := m.preview.SetSession(msg.View)
		return m, cmd

	case sessionResultMsg:
		cmds = append(cmds, m.preview.SetSession(msg.view))
		switch {
		case msg.err != nil:
			m.status = msg.action + ": " + msg.err.Error()
		case msg.view.Error != nil:
			m.status = msg.action + ": " + msg.view.Error.Kind
		default:
			m.status = msg.action + ": " + msg.view.State
		}
		if msg.view.IsActive {
			cmds = append(cmds, m.history.Refresh())
		}
		return m, tea.Batch(cmds...)

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = msg.status
		}
		if msg.refreshHistory {
			return m, m.history.Refresh()
		}
		return m, nil

	case previewview.SelectAnimationMsg:
		loop := m.preview.Session().Loop
		return m, m.sessionCmd("animation", func(ctx context.Context) (playbackdto.SessionView, error) {
			return m.playback.SetAnimation(ctx, msg.Name, loop)
		})

	case historyview.OpenEntryMsg:
		m.activeTab = tabPreview
		return m, m.sessionCmd("open", func(ctx context.Context) (playbackdto.SessionView, error) {
			return m.playback.OpenHistoryEntry(ctx, msg.Entry)
		})

	case historyview.RemoveEntryMsg:
		return m, m.actionCmd(fmt.Sprintf("removed #%d", msg.ID), true, func(ctx context.Context) error {
			return m.playback.RemoveHistoryEntry(ctx, msg.ID)
		})

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.subViewFiltering() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "?":
			m.showHelp = true
			return m, nil
		case ":":
			cmd := m.palette.Open()
			return m, cmd
		case "r":
			return m, m.sessionCmd("reload", m.playback.Reload)
		case "p":
			return m, m.sessionCmd("repair", m.playback.Repair)
		case "+", "=":
			return m, m.zoomCmd(m.currentZoom() * zoomStep)
		case "-":
			return m, m.zoomCmd(m.currentZoom() / zoomStep)
		case "0":
			return m, m.cameraCmd("camera reset", m.playback.ResetCamera)
		case "L":
			loop := strconv.FormatBool(!m.preview.Session().Loop)
			return m, m.settingsCmd("loop", loop)
		}
	}

	// Keys go to the visible tab; everything else (ticks, loaded entries) to both.
	var previewCmd, historyCmd tea.Cmd
	_, isKey := msg.(tea.KeyMsg)
	if !isKey || m.activeTab == tabPreview {
		m.preview, previewCmd = m.preview.Update(msg)
	}
	if !isKey || m.activeTab == tabHistory {
		m.history, historyCmd = m.history.Update(msg)
	}
	cmds = append(cmds, previewCmd, historyCmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabHistory:
		content = m.history.View()
	default:
		content = m.preview.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	bar := "modpreview  " + strings.Join(parts, theme.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if state := m.preview.Session().State; state != "" {
		left = theme.State(state).Render("● "+state) + "  " + left
	}
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Surface0).Width(m.width).Render(bar)
}

// ─── palette execution ───────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	switch parts[0] {
	case "open:folder":
		if len(parts) < 2 {
			m.status = "usage: open:folder <path>"
			return m, nil
		}
		path := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		return m.open(playbackdto.OpenInput{Kind: "folder", Path: path})

	case "open:url":
		if len(parts) != 3 && len(parts) != 5 {
			m.status = "usage: open:url <skeleton> <atlas> [skeleton-fallback atlas-fallback]"
			return m, nil
		}
		in := playbackdto.OpenInput{Kind: "url", SkeletonURL: parts[1], AtlasURL: parts[2]}
		if len(parts) == 5 {
			in.SkeletonURLFallback, in.AtlasURLFallback = parts[3], parts[4]
		}
		return m.open(in)

	case "reload":
		return m, m.sessionCmd("reload", m.playback.Reload)

	case "repair":
		return m, m.sessionCmd("repair", m.playback.Repair)

	case "close":
		return m, m.sessionCmd("close", func(ctx context.Context) (playbackdto.SessionView, error) {
			if err := m.playback.Close(ctx); err != nil {
				return playbackdto.SessionView{}, err
			}
			return m.playback.Status(ctx)
		})

	case "anim":
		if len(parts) < 2 {
			m.status = "usage: anim <name> [loop|once]"
			return m, nil
		}
		loop := m.preview.Session().Loop
		if len(parts) >= 3 {
			loop = parts[2] != "once"
		}
		name := parts[1]
		return m, m.sessionCmd("animation", func(ctx context.Context) (playbackdto.SessionView, error) {
			return m.playback.SetAnimation(ctx, name, loop)
		})

	case "zoom":
		if len(parts) < 2 {
			m.status = "usage: zoom <factor>"
			return m, nil
		}
		zoom, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			m.status = "invalid zoom"
			return m, nil
		}
		return m, m.zoomCmd(zoom)

	case "pan":
		if len(parts) < 3 {
			m.status = "usage: pan <dx> <dy>"
			return m, nil
		}
		dx, errX := strconv.ParseFloat(parts[1], 64)
		dy, errY := strconv.ParseFloat(parts[2], 64)
		if errX != nil || errY != nil {
			m.status = "invalid pan offsets"
			return m, nil
		}
		return m, m.cameraCmd("panned", func(ctx context.Context) error { return m.playback.Pan(ctx, dx, dy) })

	case "camera:reset":
		return m, m.cameraCmd("camera reset", m.playback.ResetCamera)

	case "history:remove":
		if len(parts) < 2 {
			m.status = "usage: history:remove <id>"
			return m, nil
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			m.status = "invalid id"
			return m, nil
		}
		return m, m.actionCmd(fmt.Sprintf("removed #%d", id), true, func(ctx context.Context) error {
			return m.playback.RemoveHistoryEntry(ctx, id)
		})

	case "history:clear":
		return m, m.actionCmd("history cleared", true, m.playback.ClearHistory)

	case "settings:set":
		if len(parts) < 3 {
			m.status = "usage: settings:set <key> <value>"
			return m, nil
		}
		return m, m.settingsCmd(parts[1], strings.TrimSpace(strings.TrimPrefix(input, parts[0]+" "+parts[1])))

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

func (m Model) open(in playbackdto.OpenInput) (tea.Model, tea.Cmd) {
	m.activeTab = tabPreview
	m.status = "loading…"
	return m, m.sessionCmd("open", func(ctx context.Context) (playbackdto.SessionView, error) {
		return m.playback.Open(ctx, in)
	})
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m Model) subViewFiltering() bool {
	switch m.activeTab {
	case tabPreview:
		return m.preview.Filtering()
	case tabHistory:
		return m.history.Filtering()
	}
	return false
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.preview, _ = m.preview.Update(sz)
	m.history, _ = m.history.Update(sz)
}

func (m Model) currentZoom() float64 {
	if z := m.preview.Session().Camera.Zoom; z > 0 {
		return z
	}
	return 1
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) statusCmd() tea.Cmd {
	return m.sessionCmd("status", m.playback.Status)
}

func (m Model) sessionCmd(action string, fn func(context.Context) (playbackdto.SessionView, error)) tea.Cmd {
	return func() tea.Msg {
		view, err := fn(context.Background())
		return sessionResultMsg{action: action, view: view, err: err}
	}
}

func (m Model) actionCmd(status string, refreshHistory bool, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: fn(context.Background()), refreshHistory: refreshHistory}
	}
}

func (m Model) cameraCmd(status string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := fn(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		view, err := m.playback.Status(ctx)
		return sessionResultMsg{action: status, view: view, err: err}
	}
}

func (m Model) zoomCmd(zoom float64) tea.Cmd {
	return m.cameraCmd(fmt.Sprintf("zoom %.2f", zoom), func(ctx context.Context) error {
		return m.playback.Zoom(ctx, zoom)
	})
}

func (m Model) settingsCmd(key, value string) tea.Cmd {
	return func() tea.Msg {
		if m.settings == nil {
			return actionDoneMsg{err: fmt.Errorf("settings are not available")}
		}
		s, err := m.settings.Set(context.Background(), key, value)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("settings: bg=%s loop=%t premultiplied=%t", s.BackgroundColor, s.Loop, s.PremultipliedAlpha)}
	}
}
