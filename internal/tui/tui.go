package tui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/branching-scenes/internal/engine"
	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateWaiting
	stateError
)

// panel is what the side panel shows. It is refreshed between turns so that
// View never waits on a session that is busy generating.
type panel struct {
	snap     world.Snapshot
	room     string
	exits    []string
	phase    engine.Phase
	diverged bool
	events   int
	over     bool
}

type model struct {
	state     sessionState
	session   *engine.Session
	saveDir   string
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	cancel    context.CancelFunc
	panel     panel
	err       error
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	offBookStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7AFFF"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF875F")).
			Italic(true)

	changeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AF87"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

const help = "Enter follows the story. Type to change it. /suggest, /rewind N, /save, /saves, /end, /quit. Esc cancels."

func NewModel(s *engine.Session, saveDir string) model {
	ti := textinput.New()
	ti.Placeholder = "What do you do? (Enter to continue)"
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		state:     statePlaying,
		session:   s,
		saveDir:   saveDir,
		textInput: ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
	}
	m.gameLog = m.header()
	for _, entry := range s.Timeline() {
		m.gameLog += m.renderEntry(entry.Event, entry.Changes)
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type eventMsg struct {
	event models.Event
	err   error
}

type suggestionsMsg struct {
	actions []string
	err     error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.state == stateWaiting {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state != statePlaying {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			if strings.HasPrefix(input, "/") {
				return m.command(input)
			}
			if m.panel.over {
				m.notice("The scene is over. Use /rewind N to go back, /save, or /quit.")
				return m, nil
			}
			if input != "" {
				m.gameLog += userStyle.Width(m.logWidth()).Render("> "+input) + "\n\n"
				m.setContent()
			}
			cmd = m.wait(m.submit(input))
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.textInput.Width = m.logWidth() - 4
		m.setContent()

	case spinner.TickMsg:
		if m.state != stateWaiting {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.done()
		switch {
		case msg.err == nil:
			entries := m.session.Timeline()
			m.gameLog += m.renderEntry(msg.event, entries[len(entries)-1].Changes)
			m.refresh()
			if m.panel.over {
				m.notice("The scene is complete.")
			}
		case errors.Is(msg.err, engine.ErrSessionAborted):
			m.err = msg.err
			m.state = stateError
		case errors.Is(msg.err, engine.ErrGenerationCanceled):
			m.notice("Canceled.")
		case errors.Is(msg.err, engine.ErrSceneComplete):
			m.refresh()
			m.notice("The scene is complete.")
		default:
			m.notice(fmt.Sprintf("That did not work: %v", msg.err))
		}
		m.setContent()
		m.viewport.GotoBottom()
		return m, nil

	case suggestionsMsg:
		m.done()
		switch {
		case msg.err != nil:
			m.notice(fmt.Sprintf("No suggestions: %v", msg.err))
		case len(msg.actions) == 0:
			m.notice("No suggestions right now.")
		default:
			var b strings.Builder
			b.WriteString("You could:\n")
			for _, a := range msg.actions {
				fmt.Fprintf(&b, "  - %s\n", a)
			}
			m.gameLog += helpStyle.Width(m.logWidth()).Render(b.String()) + "\n\n"
		}
		m.setContent()
		m.viewport.GotoBottom()
		return m, nil
	}

	if m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) command(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit":
		return m, tea.Quit

	case "/end":
		if err := m.session.End(); err != nil {
			m.notice(err.Error())
			break
		}
		m.refresh()
		m.notice("You end the scene here.")

	case "/rewind":
		k, err := strconv.Atoi(arg)
		if err != nil {
			m.notice("Usage: /rewind N, where N is the number of events to keep.")
			break
		}
		if err := m.session.Rewind(k); err != nil {
			if errors.Is(err, engine.ErrSessionAborted) {
				m.err = err
				m.state = stateError
				return m, nil
			}
			m.notice(err.Error())
			break
		}
		m.gameLog = m.header()
		for _, entry := range m.session.Timeline() {
			m.gameLog += m.renderEntry(entry.Event, entry.Changes)
		}
		m.refresh()
		m.notice(fmt.Sprintf("Rewound to after event %d.", k))

	case "/suggest":
		if m.panel.over {
			m.notice("The scene is over.")
			break
		}
		cmd := m.wait(m.suggest())
		return m, cmd

	case "/save":
		if err := m.session.Transcript().Save(m.saveDir, m.session.ID()); err != nil {
			m.notice(fmt.Sprintf("Save failed: %v", err))
			break
		}
		m.notice(fmt.Sprintf("Transcript saved to %s/%s.", m.saveDir, m.session.ID()))

	case "/saves":
		names, err := models.ListTranscripts(m.saveDir)
		switch {
		case err != nil:
			m.notice(fmt.Sprintf("Cannot list transcripts: %v", err))
		case len(names) == 0:
			m.notice("No saved transcripts yet.")
		default:
			m.notice(fmt.Sprintf("Saved transcripts in %s: %s", m.saveDir, strings.Join(names, ", ")))
		}

	case "/help":
		m.notice(help)

	default:
		m.notice(fmt.Sprintf("Unknown command %s.", name))
	}

	m.setContent()
	m.viewport.GotoBottom()
	return m, nil
}

func (m model) View() string {
	var s string

	switch m.state {
	case statePlaying, stateWaiting:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		prompt := m.textInput.View()
		if m.state == stateWaiting {
			prompt = m.spinner.View() + " The story is being written... (Esc to cancel)"
		}

		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+prompt,
			"\n"+helpStyle.Render(help),
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

// wait puts the model in the waiting state while run executes. Call it
// before returning m so the cancel func is kept.
func (m *model) wait(run func(ctx context.Context) tea.Msg) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = stateWaiting
	return tea.Batch(func() tea.Msg { return run(ctx) }, m.spinner.Tick)
}

func (m *model) done() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.state == stateWaiting {
		m.state = statePlaying
	}
}

func (m model) submit(action string) func(ctx context.Context) tea.Msg {
	s := m.session
	return func(ctx context.Context) tea.Msg {
		e, err := s.Submit(ctx, action)
		return eventMsg{e, err}
	}
}

func (m model) suggest() func(ctx context.Context) tea.Msg {
	s := m.session
	return func(ctx context.Context) tea.Msg {
		actions, err := s.Suggest(ctx)
		return suggestionsMsg{actions, err}
	}
}

func (m *model) refresh() {
	snap := m.session.CurrentWorldState()
	room := snap.Room
	var exits []string
	if r, err := m.session.Scene().Room(snap.Room); err == nil {
		room = fmt.Sprintf("%s (%s)", r.Name, r.ID)
		for _, dir := range slices.Sorted(maps.Keys(r.Exits)) {
			to := r.Exits[dir]
			if n, err := m.session.Scene().Room(to); err == nil {
				to = n.Name
			}
			exits = append(exits, fmt.Sprintf("%s: %s", dir, to))
		}
	}
	m.panel = panel{
		snap:     snap,
		room:     room,
		exits:    exits,
		phase:    m.session.Phase(),
		diverged: m.session.Diverged(),
		events:   len(m.session.Timeline()),
		over:     m.session.IsSceneComplete(),
	}
}

func (m *model) notice(text string) {
	m.gameLog += noticeStyle.Width(m.logWidth()).Render(text) + "\n\n"
}

func (m *model) setContent() {
	m.viewport.SetContent(m.gameLog)
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.75)
}

func (m model) header() string {
	g := m.session.Scene()
	title := gameStyle.Bold(true).Render(g.Title())
	synopsis := gameStyle.Width(m.logWidth()).Render(strings.TrimSpace(g.Synopsis()))
	return title + "\n\n" + synopsis + "\n\n"
}

func (m model) renderEntry(e models.Event, changes map[string]models.Change) string {
	style := gameStyle
	if !e.Canonical {
		style = offBookStyle
	}
	s := style.Width(m.logWidth()).Render(strings.TrimSpace(e.Description)) + "\n"
	for _, name := range slices.Sorted(maps.Keys(changes)) {
		c := changes[name]
		s += changeStyle.Render(fmt.Sprintf("  %s: %s -> %s", name, c.From, c.To)) + "\n"
	}
	return s + "\n"
}

func (m model) renderState() string {
	p := m.panel

	location := titleStyle.Render("LOCATION") + "\n" + p.room + "\n\n"

	exits := titleStyle.Render("EXITS") + "\n"
	if len(p.exits) == 0 {
		exits += "(none)\n"
	}
	for _, e := range p.exits {
		exits += "- " + e + "\n"
	}
	exits += "\n"

	present := titleStyle.Render("PRESENT") + "\n"
	if len(p.snap.Present) == 0 {
		present += "(nobody)\n"
	}
	for _, id := range p.snap.Present {
		name := id
		if c, ok := m.session.Scene().Character(id); ok {
			name = c.Name
		}
		for _, c := range p.snap.Introduced {
			if c.ID == id {
				name = c.Name
			}
		}
		present += "- " + name + "\n"
	}
	present += "\n"

	vars := titleStyle.Render("VARIABLES") + "\n"
	for _, name := range slices.Sorted(maps.Keys(p.snap.Vars)) {
		vars += fmt.Sprintf("%s: %s\n", name, p.snap.Vars[name])
	}
	vars += "\n"

	mode := "following the book"
	if p.diverged {
		mode = "off the book"
	}
	status := titleStyle.Render("STORY") + "\n" + mode + "\n" +
		fmt.Sprintf("%d events, %s\n", p.events, p.phase)

	content := location + exits + present + vars + status

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

// Run plays s in the terminal until the player quits.
func Run(s *engine.Session, saveDir string) error {
	p := tea.NewProgram(NewModel(s, saveDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
