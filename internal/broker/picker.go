package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
)

// ErrAborted is returned when the human quits a prompt with Ctrl-C. The
// parked item stays parked.
var ErrAborted = fmt.Errorf("prompt aborted: %w", context.Canceled)

const (
	pickerWidth  = 80
	pickerHeight = 14
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6BCB77"))
	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Picker prompts with interactive lists. It runs inline, so the run's
// progress output stays visible above it.
type Picker struct {
	in      io.Reader
	out     io.Writer
	notices []string
}

// NewPicker reads keys from in and draws to out. in should be a terminal.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

func (p *Picker) PickCandidate(ctx context.Context, pending engine.Pending) (Decision, error) {
	items := make([]list.Item, 0, len(pending.Candidates)+2)
	for i, candidate := range pending.Candidates {
		items = append(items, choice{
			title:  candidateTitle(candidate),
			detail: preview(candidate.Description),
			index:  i,
			action: ActionSelect,
		})
	}
	items = append(items,
		choice{title: "Enter a cover URL", detail: "use an image address you already have", action: ActionManual},
		choice{title: "Skip this game", detail: "leave it without a cover", action: ActionSkip},
	)
	header := fmt.Sprintf("No exact match for %q on %s", pending.Item.Name, pending.Provider)
	model := newPickModel(header, items, p.takeNotices(), true)

	result, err := p.run(ctx, model)
	if err != nil {
		return Decision{}, err
	}
	switch {
	case result.url != "":
		return Decision{Action: ActionManual, URL: result.url}, nil
	case result.chosen == nil || result.chosen.action == ActionSkip:
		return Decision{Action: ActionSkip}, nil
	default:
		return Decision{Action: ActionSelect, Candidate: result.chosen.index}, nil
	}
}

func (p *Picker) PickCover(ctx context.Context, candidate catalog.Candidate, detail provider.Detail) (int, bool, error) {
	items := make([]list.Item, 0, len(detail.Covers))
	for i, cover := range detail.Covers {
		title := fmt.Sprintf("%dx%d  score %d", cover.Width, cover.Height, cover.Score)
		if cover.Style != "" {
			title += "  " + cover.Style
		}
		items = append(items, choice{title: title, detail: cover.URL, index: i, action: ActionSelect})
	}
	model := newPickModel("Covers for "+candidate.DisplayName, items, p.takeNotices(), false)

	result, err := p.run(ctx, model)
	if err != nil {
		return 0, false, err
	}
	if result.chosen == nil {
		return 0, false, nil
	}
	return result.chosen.index, true, nil
}

// Notice queues message for the next prompt.
func (p *Picker) Notice(_ context.Context, message string) {
	p.notices = append(p.notices, message)
}

func (p *Picker) takeNotices() []string {
	notices := p.notices
	p.notices = nil
	return notices
}

func (p *Picker) run(ctx context.Context, model pickModel) (pickModel, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithoutSignalHandler(),
	)
	final, err := program.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pickModel{}, ctxErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return pickModel{}, fmt.Errorf("run picker: %w", err)
	}
	result, ok := final.(pickModel)
	if !ok {
		return pickModel{}, fmt.Errorf("run picker: unexpected model %T", final)
	}
	if result.aborted {
		return pickModel{}, ErrAborted
	}
	return result, nil
}

func candidateTitle(candidate catalog.Candidate) string {
	if candidate.Year == "" {
		return candidate.DisplayName
	}
	return fmt.Sprintf("%s (%s)", candidate.DisplayName, candidate.Year)
}

// choice is one row of a picker list.
type choice struct {
	title  string
	detail string
	index  int
	action Action
}

func (c choice) Title() string       { return c.title }
func (c choice) Description() string { return c.detail }
func (c choice) FilterValue() string { return c.title }

// pickModel is a single list prompt. With manual enabled it also offers a
// text input for a cover URL.
type pickModel struct {
	list    list.Model
	input   textinput.Model
	notices []string
	manual  bool
	typing  bool

	chosen  *choice
	url     string
	aborted bool
	done    bool
}

func newPickModel(header string, items []list.Item, notices []string, manual bool) pickModel {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	l := list.New(items, delegate, pickerWidth, pickerHeight)
	l.Title = header
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	input := textinput.New()
	input.Placeholder = "https://"
	input.CharLimit = 2048
	input.Width = pickerWidth - 4

	return pickModel{list: l, input: input, notices: notices, manual: manual}
}

func (m pickModel) Init() tea.Cmd {
	return nil
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - len(m.notices) - 2
		if height < 5 {
			height = msg.Height
		}
		m.list.SetSize(msg.Width, height)
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.aborted = true
			return m.finish()
		}
		if m.typing {
			return m.updateInput(msg)
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "enter":
				return m.choose()
			case "esc":
				if m.list.FilterState() != list.FilterApplied {
					return m.finish()
				}
			case "b":
				if !m.manual {
					return m.finish()
				}
			case "m":
				if m.manual {
					return m.startTyping()
				}
			case "s":
				if m.manual {
					return m.finish()
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickModel) choose() (tea.Model, tea.Cmd) {
	selected, ok := m.list.SelectedItem().(choice)
	if !ok {
		return m, nil
	}
	if selected.action == ActionManual {
		return m.startTyping()
	}
	m.chosen = &selected
	return m.finish()
}

func (m pickModel) startTyping() (tea.Model, tea.Cmd) {
	m.typing = true
	m.input.SetValue("")
	return m, m.input.Focus()
}

func (m pickModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			return m, nil
		}
		m.url = url
		return m.finish()
	case tea.KeyEsc:
		m.typing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pickModel) finish() (tea.Model, tea.Cmd) {
	m.done = true
	return m, tea.Quit
}

func (m pickModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	for _, notice := range m.notices {
		b.WriteString(noticeStyle.Render("! " + notice))
		b.WriteString("\n")
	}
	if m.typing {
		b.WriteString(titleStyle.Render("Cover URL"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter confirm • esc back"))
		return b.String()
	}
	b.WriteString(m.list.View())
	b.WriteString("\n")
	help := "↑/↓ move • / filter • enter choose • esc back"
	if m.manual {
		help = "↑/↓ move • / filter • enter choose • m cover URL • s skip"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}
