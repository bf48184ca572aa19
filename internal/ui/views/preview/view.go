package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/ui/theme"
)

// SelectAnimationMsg asks the app to switch the current animation.
type SelectAnimationMsg struct {
	Name string
}

type animationItem struct {
	name    string
	current bool
}

func (i animationItem) Title() string {
	if i.current {
		return "▶ " + i.name
	}
	return i.name
}
func (i animationItem) Description() string { return "" }
func (i animationItem) FilterValue() string { return i.name }

// Model renders the session: state, identity, camera, the active error and repair progress.
type Model struct {
	session  playbackdto.SessionView
	anims    list.Model
	details  viewport.Model
	bar      progress.Model
	spinner  spinner.Model
	hasState bool
	width    int
	height   int
}

func New() Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Animations"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		anims:   l,
		details: vp,
		bar:     progress.New(progress.WithGradient(string(theme.Sapphire), string(theme.Green))),
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd { return m.spinner.Tick }

// SetSession replaces the rendered session.
func (m *Model) SetSession(view playbackdto.SessionView) tea.Cmd {
	m.session = view
	m.hasState = true
	items := make([]list.Item, len(view.Animations))
	for i, name := range view.Animations {
		items[i] = animationItem{name: name, current: name == view.CurrentAnimation}
	}
	cmd := m.anims.SetItems(items)
	m.details.SetContent(m.renderDetails())
	return cmd
}

// Session returns the last rendered session.
func (m Model) Session() playbackdto.SessionView { return m.session }

// Filtering reports whether the animation filter is taking keystrokes.
func (m Model) Filtering() bool {
	return m.anims.FilterState() == list.Filtering
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.details.SetContent(m.renderDetails())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.session.IsLoading {
			m.details.SetContent(m.renderDetails())
		}

	case tea.KeyMsg:
		if msg.String() == "enter" && !m.Filtering() {
			if item, ok := m.anims.SelectedItem().(animationItem); ok {
				name := item.name
				return m, func() tea.Msg { return SelectAnimationMsg{Name: name} }
			}
		}
	}

	var cmd tea.Cmd
	m.anims, cmd = m.anims.Update(msg)
	cmds = append(cmds, cmd)
	m.details, cmd = m.details.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	listW := m.width * 3 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.anims.View())

	detailPane := theme.Pane.
		Width(detailW - 2).
		Height(m.height - 2).
		Render(m.details.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m *Model) resize() {
	listW := m.width * 3 / 10
	detailW := m.width - listW
	m.anims.SetSize(listW, m.height)
	m.details.Width = detailW - 4
	m.details.Height = m.height - 2
	m.bar.Width = max(detailW-12, 10)
}

func (m Model) renderDetails() string {
	s := m.session
	if !m.hasState || s.State == "" {
		return theme.Muted.Render("Nothing loaded. Press : and use open:folder or open:url.")
	}
	var sb strings.Builder
	state := theme.State(s.State).Render(s.State)
	if s.IsLoading {
		state = m.spinner.View() + " " + state
	}
	sb.WriteString(state + "\n\n")
	row := func(label, value string) {
		if value != "" {
			sb.WriteString(theme.Muted.Render(fmt.Sprintf("%-10s", label)) + value + "\n")
		}
	}
	row("source", s.Source)
	row("type", s.ModType)
	row("character", s.CharacterID)
	if s.IsFallbackActive {
		row("assets", theme.Hot.Render("fallback mirror"))
	} else if s.FallbackAttempted {
		row("assets", "fallback tried")
	}
	if s.IsActive {
		loop := "once"
		if s.Loop {
			loop = "loop"
		}
		row("animation", fmt.Sprintf("%s (%s)", s.CurrentAnimation, loop))
		row("camera", fmt.Sprintf("zoom %.2f  pan %.0f,%.0f", s.Camera.Zoom, s.Camera.PanX, s.Camera.PanY))
		row("frames", fmt.Sprintf("%d", s.Frames))
	}
	if e := s.Error; e != nil {
		sb.WriteString("\n" + theme.Error.Render(e.Kind) + "\n")
		switch {
		case len(e.Diagnostic) > 0:
			for _, part := range e.Diagnostic {
				sb.WriteString(part + "\n")
			}
		case e.Detail != "":
			sb.WriteString(e.Detail + "\n")
		}
		for _, asset := range e.FailedAssets {
			sb.WriteString(theme.Muted.Render("  • ") + asset + "\n")
		}
		if e.CanRepair && !s.Download.IsDownloading {
			sb.WriteString("\n" + theme.Hot.Render("press p to download the missing skeleton") + "\n")
		}
	}
	if d := s.Download; d.IsDownloading || d.Error != "" {
		sb.WriteString("\n" + theme.Title.Render("repair") + "\n")
		if d.IsDownloading {
			sb.WriteString(m.bar.ViewAs(d.ProgressPercent/100) + "\n")
		}
		if d.Error != "" {
			sb.WriteString(theme.Error.Render(d.Error) + "\n")
		}
	}
	return sb.String()
}
