package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	playbackdto "github.com/bruhnn/BD2ModPreview-sub001/internal/modules/playback/dto"
	"github.com/bruhnn/BD2ModPreview-sub001/internal/ui/theme"
)

type Port interface {
	History(ctx context.Context) ([]playbackdto.HistoryEntry, error)
}

type LoadedMsg struct {
	Entries []playbackdto.HistoryEntry
	Err     error
}

// OpenEntryMsg asks the app to load a recorded source.
type OpenEntryMsg struct {
	Entry playbackdto.HistoryEntry
}

// RemoveEntryMsg asks the app to drop one entry.
type RemoveEntryMsg struct {
	ID int64
}

type entryItem struct {
	entry playbackdto.HistoryEntry
}

func (i entryItem) Title() string {
	if i.entry.Kind == "folder" {
		return i.entry.Path
	}
	return i.entry.SkeletonURL
}

func (i entryItem) Description() string {
	parts := []string{i.entry.Timestamp.Local().Format("2006-01-02 15:04")}
	if i.entry.ModType != "" {
		parts = append(parts, i.entry.ModType)
	}
	if i.entry.CharacterID != "" {
		parts = append(parts, i.entry.CharacterID)
	}
	return strings.Join(parts, "  ")
}

func (i entryItem) FilterValue() string { return i.Title() + " " + i.entry.CharacterID }

type Model struct {
	port   Port
	list   list.Model
	detail viewport.Model
	err    error
	width  int
	height int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "History"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return Model{port: port, list: l, detail: viewport.New(0, 0)}
}

func (m Model) Init() tea.Cmd { return m.Refresh() }

// Refresh reloads the entries from the port.
func (m Model) Refresh() tea.Cmd {
	return func() tea.Msg {
		if m.port == nil {
			return LoadedMsg{}
		}
		entries, err := m.port.History(context.Background())
		return LoadedMsg{Entries: entries, Err: err}
	}
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case LoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Entries))
		for i, e := range msg.Entries {
			items[i] = entryItem{entry: e}
		}
		cmds = append(cmds, m.list.SetItems(items))

	case tea.KeyMsg:
		if !m.Filtering() {
			if item, ok := m.list.SelectedItem().(entryItem); ok {
				switch msg.String() {
				case "enter":
					entry := item.entry
					return m, func() tea.Msg { return OpenEntryMsg{Entry: entry} }
				case "x", "delete":
					id := item.entry.ID
					return m, func() tea.Msg { return RemoveEntryMsg{ID: id} }
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	m.detail.SetContent(m.renderDetail())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	listW := m.width / 2
	listPane := lipgloss.NewStyle().Width(listW).Height(m.height).Render(m.list.View())
	detailPane := theme.Pane.Width(m.width - listW - 2).Height(m.height - 2).Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

func (m *Model) resize() {
	listW := m.width / 2
	m.list.SetSize(listW, m.height)
	m.detail.Width = m.width - listW - 4
	m.detail.Height = m.height - 2
}

func (m Model) renderDetail() string {
	if m.err != nil {
		return theme.Error.Render(m.err.Error())
	}
	item, ok := m.list.SelectedItem().(entryItem)
	if !ok {
		return theme.Muted.Render("No history yet")
	}
	e := item.entry
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(fmt.Sprintf("#%d %s", e.ID, e.Kind)) + "\n\n")
	if e.Path != "" {
		sb.WriteString(theme.Muted.Render("path:      ") + e.Path + "\n")
	}
	if e.SkeletonURL != "" {
		sb.WriteString(theme.Muted.Render("skeleton:  ") + e.SkeletonURL + "\n")
		sb.WriteString(theme.Muted.Render("atlas:     ") + e.AtlasURL + "\n")
	}
	if e.SkeletonURLFallback != "" {
		sb.WriteString(theme.Muted.Render("fallback:  ") + e.SkeletonURLFallback + "\n")
	}
	if e.CharacterID != "" {
		sb.WriteString(theme.Muted.Render("character: ") + e.CharacterID + "\n")
	}
	sb.WriteString(theme.Muted.Render("opened:    ") + e.Timestamp.Local().Format("2006-01-02 15:04:05") + "\n")
	sb.WriteString("\n" + theme.Muted.Render("enter: open  x: remove"))
	return sb.String()
}
