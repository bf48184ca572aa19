package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bruhnn/BD2ModPreview-sub001/internal/ui/theme"
)

// PaletteSubmitMsg is emitted when the user confirms a command.
type PaletteSubmitMsg struct{ Input string }

// PaletteCancelMsg is emitted when the user presses esc.
type PaletteCancelMsg struct{}

const (
	maxVisibleHints = 6
	maxRecall       = 20
)

var (
	paletteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Peach).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().Foreground(theme.Subtext0)
)

// Palette is a command line overlay. Tab completes the command word from the
// hints; up and down walk previously submitted commands.
type Palette struct {
	input   textinput.Model
	hints   []string
	recall  []string
	cursor  int
	visible bool
	width   int
}

func NewPalette(hints []string) Palette {
	ti := textinput.New()
	ti.Placeholder = "open:folder, open:url, anim, zoom…"
	ti.CharLimit = 1024
	return Palette{input: ti, hints: hints}
}

func (p Palette) Visible() bool { return p.visible }

// Open shows an empty palette and focuses it.
func (p *Palette) Open() tea.Cmd {
	p.visible = true
	p.cursor = len(p.recall)
	p.input.SetValue("")
	return p.input.Focus()
}

func (p *Palette) SetWidth(w int) { p.width = w }

func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			p.close()
			return p, func() tea.Msg { return PaletteCancelMsg{} }
		case "enter":
			val := strings.TrimSpace(p.input.Value())
			p.remember(val)
			p.close()
			return p, func() tea.Msg { return PaletteSubmitMsg{Input: val} }
		case "tab":
			if word, ok := p.complete(); ok {
				p.input.SetValue(word + " ")
				p.input.CursorEnd()
			}
			return p, nil
		case "up":
			if p.cursor > 0 {
				p.cursor--
				p.input.SetValue(p.recall[p.cursor])
				p.input.CursorEnd()
			}
			return p, nil
		case "down":
			if p.cursor < len(p.recall) {
				p.cursor++
				if p.cursor == len(p.recall) {
					p.input.SetValue("")
				} else {
					p.input.SetValue(p.recall[p.cursor])
				}
				p.input.CursorEnd()
			}
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *Palette) close() {
	p.visible = false
	p.input.Blur()
}

func (p *Palette) remember(val string) {
	if val == "" || (len(p.recall) > 0 && p.recall[len(p.recall)-1] == val) {
		return
	}
	p.recall = append(p.recall, val)
	if len(p.recall) > maxRecall {
		p.recall = p.recall[len(p.recall)-maxRecall:]
	}
}

// matching returns hints whose command word starts with the typed word.
func (p Palette) matching() []string {
	typed := strings.ToLower(strings.TrimSpace(p.input.Value()))
	word, _, _ := strings.Cut(typed, " ")
	var out []string
	for _, h := range p.hints {
		cmd, _, _ := strings.Cut(h, " ")
		if word == "" || strings.HasPrefix(cmd, word) {
			out = append(out, h)
		}
	}
	return out
}

// complete returns the command word when exactly one hint matches and the
// user has not typed past it.
func (p Palette) complete() (string, bool) {
	if strings.Contains(strings.TrimSpace(p.input.Value()), " ") {
		return "", false
	}
	hits := p.matching()
	if len(hits) != 1 {
		return "", false
	}
	word, _, _ := strings.Cut(hits[0], " ")
	return word, true
}

// Value exposes the current input.
func (p Palette) Value() string { return p.input.Value() }

func (p Palette) View() string {
	if !p.visible {
		return ""
	}
	hints := p.matching()
	more := 0
	if len(hints) > maxVisibleHints {
		more = len(hints) - maxVisibleHints
		hints = hints[:maxVisibleHints]
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Command") + "\n")
	sb.WriteString(": " + p.input.View() + "\n")
	if len(hints) > 0 {
		sb.WriteString("\n")
		for _, h := range hints {
			sb.WriteString(hintStyle.Render("  "+h) + "\n")
		}
		if more > 0 {
			sb.WriteString(theme.Muted.Render("  …and more") + "\n")
		}
	}

	w := p.width
	if w < 20 {
		w = 64
	}
	return paletteStyle.Width(w - 2).Render(sb.String())
}
