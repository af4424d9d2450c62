package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/bulkdl/internal/engine"
)

var (
	gruvboxRed    = lipgloss.Color("#fb4934")
	gruvboxGreen  = lipgloss.Color("#b8bb26")
	gruvboxYellow = lipgloss.Color("#fabd2f")
	gruvboxBlue   = lipgloss.Color("#83a598")
	gruvboxFg2    = lipgloss.Color("#d5c4a1")
)

type styles struct {
	counter    lipgloss.Style
	skipped    lipgloss.Style
	downloaded lipgloss.Style
	active     lipgloss.Style
	failed     lipgloss.Style
	header     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		counter:    r.NewStyle().Foreground(gruvboxFg2),
		skipped:    r.NewStyle().Foreground(gruvboxBlue),
		downloaded: r.NewStyle().Foreground(gruvboxGreen).Bold(true),
		active:     r.NewStyle().Foreground(gruvboxYellow),
		failed:     r.NewStyle().Foreground(gruvboxRed).Bold(true),
		header:     r.NewStyle().Foreground(gruvboxYellow).Bold(true),
	}
}

// Console writes one line per engine event. Colors are only emitted when w is a terminal.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
}

var _ engine.Observer = (*Console)(nil)

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Start prints the run banner.
func (c *Console) Start(total int, destDir string, maxConcurrency int) {
	c.printf("Starting download of %d images to '%s/' with %d concurrent downloads...\n\n", total, destDir, maxConcurrency)
}

// OnEvent implements engine.Observer.
func (c *Console) OnEvent(e engine.Event) {
	s := c.styles
	counter := s.counter.Render(fmt.Sprintf("[%d/%d]", e.Seq, e.Total))

	switch e.Kind {
	case engine.EventSkipped:
		c.printf("%s %s: %s\n", counter, s.skipped.Render("⏭️  Skipped (already exists)"), e.Filename)
	case engine.EventDownloading:
		c.printf("%s %s: %s\n", counter, s.active.Render("⬇️  Downloading"), e.Filename)
	case engine.EventDownloaded:
		c.printf("%s %s: %s\n", counter, s.downloaded.Render("✓ Downloaded"), e.Filename)
	case engine.EventFailed:
		c.printf("%s %s %s: %v\n", counter, s.failed.Render("✗ Failed to download"), e.Locator, e.Err)
	}
}

// Summary prints the closing block.
func (c *Console) Summary(s *engine.Summary) {
	c.printf("\n%s\n", c.styles.header.Render("✓ Download complete!"))
	c.printf("  Successfully downloaded: %d\n", s.Successful)
	c.printf("  Failed: %d\n", s.Failed)
	c.printf("  Files saved to '%s/'\n", s.Destination)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, format, args...)
}
