package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/bulkdl/internal/repository"
)

const timeLayout = "2006-01-02 15:04:05"

// PrintRuns writes one row per recorded run.
func PrintRuns(w io.Writer, runs []*repository.Run) {
	s := newStyles(lipgloss.NewRenderer(w))

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintln(w, s.header.Render(fmt.Sprintf("%-36s  %-19s  %10s  %7s  %6s", "RUN", "STARTED", "DOWNLOADED", "SKIPPED", "FAILED")))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %10d  %7d  %6d\n",
			r.ID, r.StartedAt.Local().Format(timeLayout), r.Downloaded, r.Skipped, r.Failed)
	}
}

// PrintRun writes the counters of run followed by each recorded outcome.
// Failed records carry the locator and the reason.
func PrintRun(w io.Writer, run *repository.Run) {
	s := newStyles(lipgloss.NewRenderer(w))

	fmt.Fprintf(w, "%s %s\n", s.header.Render("Run"), run.ID)
	fmt.Fprintf(w, "  Started: %s\n", run.StartedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "  Downloaded: %d  Skipped: %d  Failed: %d\n\n", run.Downloaded, run.Skipped, run.Failed)

	for _, rec := range run.Records {
		counter := s.counter.Render(fmt.Sprintf("[%d]", rec.Seq))

		switch rec.Kind {
		case "downloaded":
			fmt.Fprintf(w, "%s %s: %s (%d bytes)\n", counter, s.downloaded.Render("✓ Downloaded"), rec.Filename, rec.Bytes)
		case "skipped":
			fmt.Fprintf(w, "%s %s: %s\n", counter, s.skipped.Render("⏭️  Skipped"), rec.Filename)
		default:
			fmt.Fprintf(w, "%s %s %s: %s\n", counter, s.failed.Render("✗ Failed"), rec.Locator, rec.Error)
		}
	}
}
