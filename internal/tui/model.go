package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/bulkdl/internal/engine"
)

const (
	maxRecent = 8
	maxActive = 6
)

type keyMap struct {
	Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "stop"),
		),
	}
}

// Model represents the progress view state
type Model struct {
	total   int
	destDir string
	workers int
	cancel  context.CancelFunc

	progress progress.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	width    int

	done       int
	downloaded int
	skipped    int
	failed     int
	active     map[int]string
	recent     []string
	failures   []string

	summary  *engine.Summary
	err      error
	stopping bool
	finished bool
}

// NewModel creates a new progress view for a run of total locators.
func NewModel(total int, destDir string, workers int, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(gruvboxYellow)

	p := progress.New(progress.WithGradient(string(gruvboxYellow), string(gruvboxGreen)))
	p.EmptyColor = string(gruvboxBg2)

	if cancel == nil {
		cancel = func() {}
	}

	return Model{
		total:    total,
		destDir:  destDir,
		workers:  workers,
		cancel:   cancel,
		progress: p,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
		active:   make(map[int]string),
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles input and engine events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !key.Matches(msg, m.keys.Quit) {
			return m, nil
		}
		if m.stopping {
			return m, tea.Quit
		}
		m.stopping = true
		m.cancel()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(engine.Event(msg))
		return m, nil

	case FinishedMsg:
		m.summary = msg.Summary
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) apply(e engine.Event) {
	switch e.Kind {
	case engine.EventDownloading:
		m.active[e.Seq] = e.Filename
		return
	case engine.EventSkipped:
		m.skipped++
		m.pushRecent(statusStyleSkipped.Render("⏭ skipped"), e.Filename)
	case engine.EventDownloaded:
		m.downloaded++
		m.release(e)
		m.pushRecent(statusStyleCompleted.Render("✓ downloaded"), e.Filename)
	case engine.EventFailed:
		m.failed++
		m.release(e)
		m.pushRecent(statusStyleFailed.Render("✗ failed"), e.Locator)
		m.failures = append(m.failures, fmt.Sprintf("%s: %v", e.Locator, e.Err))
	}
	m.done++
}

// release drops the task from the active list. Malformed locators never had a slot.
func (m *Model) release(e engine.Event) {
	if e.Filename == "" {
		return
	}
	if name, ok := m.active[e.Seq]; ok && name == e.Filename {
		delete(m.active, e.Seq)
	}
}

func (m *Model) pushRecent(status, name string) {
	m.recent = append(m.recent, fmt.Sprintf("%s %s", status, name))
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

// View renders the progress view
func (m Model) View() string {
	if m.finished {
		return m.renderSummary()
	}

	var s strings.Builder

	s.WriteString(headerStyle.Render("bulkdl"))
	s.WriteString("\n\n")
	s.WriteString(subtleStyle.Render(fmt.Sprintf("Downloading %d files into '%s/' with %d workers", m.total, m.destDir, m.workers)))
	s.WriteString("\n\n")

	s.WriteString(m.progress.ViewAs(m.percent()))
	s.WriteString(fmt.Sprintf("  %d/%d\n", m.done, m.total))
	s.WriteString(fmt.Sprintf("%s  %s  %s\n\n",
		statusStyleCompleted.Render(fmt.Sprintf("%d downloaded", m.downloaded)),
		statusStyleSkipped.Render(fmt.Sprintf("%d skipped", m.skipped)),
		statusStyleFailed.Render(fmt.Sprintf("%d failed", m.failed)),
	))

	if m.stopping {
		s.WriteString(statusStyleStopping.Render("Stopping, waiting for running downloads..."))
		s.WriteString("\n\n")
	}

	if len(m.active) > 0 {
		names := make([]string, 0, len(m.active))
		for _, name := range m.active {
			names = append(names, name)
		}
		sort.Strings(names)

		s.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), statusStyleActive.Render(fmt.Sprintf("%d active", len(names)))))
		for i, name := range names {
			if i == maxActive {
				s.WriteString(itemStyle.Render(fmt.Sprintf("... and %d more", len(names)-maxActive)))
				s.WriteString("\n")
				break
			}
			s.WriteString(itemStyle.Render(name))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	for _, line := range m.recent {
		s.WriteString(itemStyle.Render(line))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Quit}))
	s.WriteString("\n")

	return s.String()
}

func (m Model) renderSummary() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if m.summary == nil {
		return ""
	}

	var s strings.Builder
	s.WriteString(statusStyleCompleted.Render("✓ Download complete!"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Successfully downloaded: %d (%d new, %d already present)\n", m.summary.Successful, m.summary.Downloaded, m.summary.Skipped))
	s.WriteString(fmt.Sprintf("Failed: %d\n", m.summary.Failed))
	s.WriteString(fmt.Sprintf("Files saved to '%s/'", m.summary.Destination))

	for _, f := range m.failures {
		s.WriteString("\n")
		s.WriteString(statusStyleFailed.Render("✗ " + f))
	}

	return summaryStyle.Render(s.String()) + "\n"
}
