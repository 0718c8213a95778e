// Package tui renders a live view of one thread: finalized messages plus
// in-flight member streams, driven by the poller on a fixed tick.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbohnslav/kingdom-sub000/internal/poller"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
)

type tickMsg time.Time

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	senderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	streamStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
)

type streamView struct {
	text     string
	thinking string
}

// Model is the bubbletea model for `kingdom watch`.
type Model struct {
	threadID string
	poller   *poller.Poller
	interval time.Duration

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	messages []*thread.Message
	streams  map[string]streamView
	order    []string // stream display order, first-seen
	err      error
}

func NewModel(threadID, dir string, backends map[string]string, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		threadID: threadID,
		poller:   poller.New(dir, backends),
		interval: interval,
		spinner:  sp,
		streams:  map[string]streamView{},
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}
		m.viewport.SetContent(m.content())
		return m, nil

	case tickMsg:
		events, err := m.poller.Poll()
		if err != nil {
			m.err = err
			return m, m.tick()
		}
		m.err = nil
		if len(events) > 0 {
			m.apply(events)
			m.viewport.SetContent(m.content())
			m.viewport.GotoBottom()
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) apply(events []poller.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case poller.NewMessage:
			m.messages = append(m.messages, ev.Message)
		case poller.StreamStarted:
			if _, ok := m.streams[ev.Member]; !ok {
				m.order = append(m.order, ev.Member)
			}
			m.streams[ev.Member] = streamView{}
		case poller.StreamDelta:
			m.streams[ev.Member] = streamView{text: ev.Text, thinking: ev.Thinking}
		case poller.StreamFinished:
			delete(m.streams, ev.Member)
			m.order = remove(m.order, ev.Member)
		}
	}
}

func (m Model) content() string {
	var b strings.Builder
	for _, msg := range m.messages {
		b.WriteString(senderStyle.Render(fmt.Sprintf("%s -> %s", msg.From, msg.To)))
		b.WriteString(metaStyle.Render(fmt.Sprintf("  #%04d %s", msg.Sequence, msg.Timestamp.Format("15:04:05"))))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(msg.Body))
		b.WriteString("\n\n")
	}
	names := make([]string, len(m.order))
	copy(names, m.order)
	sort.Strings(names)
	for _, name := range names {
		sv := m.streams[name]
		b.WriteString(streamStyle.Render(m.spinner.View() + name + " is responding..."))
		b.WriteString("\n")
		if sv.thinking != "" {
			b.WriteString(thinkingStyle.Render(strings.TrimSpace(sv.thinking)))
			b.WriteString("\n")
		}
		if sv.text != "" {
			b.WriteString(strings.TrimSpace(sv.text))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) View() string {
	title := titleStyle.Render("kingdom watch: " + m.threadID)
	if m.err != nil {
		title += metaStyle.Render("  (" + m.err.Error() + ")")
	}
	if !m.ready {
		return title + "\n"
	}
	return title + "\n\n" + m.viewport.View()
}

// Run starts the watch program and blocks until the user quits.
func Run(threadID, dir string, backends map[string]string, interval time.Duration) error {
	p := tea.NewProgram(NewModel(threadID, dir, backends, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
