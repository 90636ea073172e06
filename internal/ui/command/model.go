package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/grievance-desk/internal/model"
	"github.com/nhle/grievance-desk/internal/theme"
)

// Verb names a palette command.
type Verb string

const (
	VerbOpen    Verb = "open"
	VerbRefresh Verb = "refresh"
	VerbRead    Verb = "read"
	VerbClear   Verb = "clear"
	VerbFilter  Verb = "filter"
	VerbQuit    Verb = "quit"
)

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Verb Verb
	// ComplaintID is set for VerbOpen.
	ComplaintID int64
	// Status is set for VerbFilter; empty clears the filter.
	Status string
}

// ErrorMsg is emitted when the input does not parse.
type ErrorMsg struct {
	Err error
}

// Parse turns palette input into a command. "#101" is shorthand for
// "open 101".
func Parse(input string) (CommandMsg, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	if strings.HasPrefix(fields[0], "#") {
		fields = append([]string{string(VerbOpen), strings.TrimPrefix(fields[0], "#")}, fields[1:]...)
	}

	verb := Verb(strings.ToLower(fields[0]))
	args := fields[1:]

	switch verb {
	case VerbOpen:
		if len(args) != 1 {
			return CommandMsg{}, fmt.Errorf("usage: open <complaint id>")
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil || id <= 0 {
			return CommandMsg{}, fmt.Errorf("invalid complaint id %q", args[0])
		}
		return CommandMsg{Verb: VerbOpen, ComplaintID: id}, nil

	case VerbFilter:
		if len(args) == 0 {
			return CommandMsg{Verb: VerbFilter}, nil
		}
		want := model.NormalizeStatus(strings.Join(args, " "))
		for _, s := range model.Statuses {
			if model.NormalizeStatus(s) == want {
				return CommandMsg{Verb: VerbFilter, Status: s}, nil
			}
		}
		return CommandMsg{}, fmt.Errorf("unknown status %q", strings.Join(args, " "))

	case VerbRefresh, VerbRead, VerbClear, VerbQuit:
		if len(args) > 0 {
			return CommandMsg{}, fmt.Errorf("%s takes no arguments", verb)
		}
		return CommandMsg{Verb: verb}, nil
	}

	return CommandMsg{}, fmt.Errorf("unknown command %q", fields[0])
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "open 101 | filter resolved | refresh | read | clear | quit"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			input := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if input == "" {
				return m, nil
			}
			parsed, err := Parse(input)
			if err != nil {
				return m, func() tea.Msg { return ErrorMsg{Err: err} }
			}
			return m, func() tea.Msg { return parsed }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command")
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left, title, input)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
