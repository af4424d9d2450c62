package engine

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeKind is the terminal state of one locator.
type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeDownloaded
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Successful reports whether the outcome counts towards the success total.
func (k OutcomeKind) Successful() bool {
	return k == OutcomeSkipped || k == OutcomeDownloaded
}

// Outcome is produced exactly once per input locator.
type Outcome struct {
	TaskID   uuid.UUID
	Kind     OutcomeKind
	Locator  string
	Filename string // empty when the locator was malformed
	Path     string
	Seq      int
	Bytes    int64
	Err      error
}

// EventKind identifies a progress event.
type EventKind int

const (
	EventDownloading EventKind = iota
	EventSkipped
	EventDownloaded
	EventFailed
)

// Event is sent to the Observer as tasks progress.
type Event struct {
	Kind     EventKind
	Seq      int
	Total    int
	Filename string
	Locator  string
	Bytes    int64
	Err      error
}

// Observer receives events from concurrently running tasks and must be safe for concurrent use.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Summary aggregates the outcomes of one run.
type Summary struct {
	RunID       uuid.UUID
	Destination string
	Total       int
	Successful  int
	Failed      int
	Skipped     int
	Downloaded  int
	// Outcomes are in input order.
	Outcomes []Outcome
	Duration time.Duration
}

func summarize(runID uuid.UUID, dest string, outcomes []Outcome, took time.Duration) *Summary {
	s := &Summary{
		RunID:       runID,
		Destination: dest,
		Total:       len(outcomes),
		Outcomes:    outcomes,
		Duration:    took,
	}

	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeDownloaded:
			s.Downloaded++
		case OutcomeFailed:
			s.Failed++
		}
	}
	s.Successful = s.Skipped + s.Downloaded

	return s
}
