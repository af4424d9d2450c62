package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/bulkdl/internal/engine"
)

// Message types for the TUI
type (
	// EventMsg carries one engine event into the program.
	EventMsg engine.Event

	// FinishedMsg is sent once the run has returned.
	FinishedMsg struct {
		Summary *engine.Summary
		Err     error
	}
)

// Run shows the progress view while fn performs the downloads and returns
// fn's result. Quitting the view calls cancel and waits for fn to return.
func Run(total int, destDir string, workers int, cancel context.CancelFunc, fn func(engine.Observer) (*engine.Summary, error)) (*engine.Summary, error) {
	p := tea.NewProgram(NewModel(total, destDir, workers, cancel))

	var (
		summary *engine.Summary
		runErr  error
	)
	done := make(chan struct{})

	go func() {
		defer close(done)
		summary, runErr = fn(forward(p))
		p.Send(FinishedMsg{Summary: summary, Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return summary, fmt.Errorf("tui: %w", err)
	}

	// The view may have been closed before the run finished.
	cancel()
	<-done

	return summary, runErr
}

// forward returns an Observer that sends engine events to a running program.
func forward(p interface{ Send(tea.Msg) }) engine.Observer {
	return engine.ObserverFunc(func(e engine.Event) {
		p.Send(EventMsg(e))
	})
}
