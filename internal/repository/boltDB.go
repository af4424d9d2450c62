package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/NamanBalaji/bulkdl/internal/engine"
)

const (
	runsBucket     = "runs"
	outcomesBucket = "outcomes"
)

// ErrRunNotFound is returned when no history exists for a run ID.
var ErrRunNotFound = errors.New("run not found")

// Record is the persisted form of one engine outcome.
type Record struct {
	TaskID     uuid.UUID `json:"task_id"`
	Kind       string    `json:"kind"`
	Locator    string    `json:"locator"`
	Filename   string    `json:"filename,omitempty"`
	Path       string    `json:"path,omitempty"`
	Seq        int       `json:"seq"`
	Bytes      int64     `json:"bytes,omitempty"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Run holds the counters of one run; Records is only filled by FindRun.
type Run struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Skipped    int       `json:"skipped"`
	Downloaded int       `json:"downloaded"`
	Failed     int       `json:"failed"`
	Records    []Record  `json:"-"`
}

// BoltDBRepository stores run history in BoltDB.
type BoltDBRepository struct {
	db *bolt.DB
}

var _ engine.Recorder = (*BoltDBRepository)(nil)

// NewBoltDBRepository opens or creates the history database at dbPath.
func NewBoltDBRepository(dbPath string) (*BoltDBRepository, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("failed to create runs bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(outcomesBucket)); err != nil {
			return fmt.Errorf("failed to create outcomes bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltDBRepository{db: db}, nil
}

// Record stores o under runID and updates the run's counters.
func (r *BoltDBRepository) Record(runID uuid.UUID, o engine.Outcome) error {
	now := time.Now().UTC()
	rec := Record{
		TaskID:     o.TaskID,
		Kind:       o.Kind.String(),
		Locator:    o.Locator,
		Filename:   o.Filename,
		Path:       o.Path,
		Seq:        o.Seq,
		Bytes:      o.Bytes,
		RecordedAt: now,
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		outcomes := tx.Bucket([]byte(outcomesBucket))
		if runs == nil || outcomes == nil {
			return errors.New("history buckets not found")
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := outcomes.Put(outcomeKey(runID, o.TaskID), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}

		run := Run{ID: runID, StartedAt: now}
		if existing := runs.Get([]byte(runID.String())); existing != nil {
			if err := json.Unmarshal(existing, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
		}
		run.UpdatedAt = now
		switch o.Kind {
		case engine.OutcomeSkipped:
			run.Skipped++
		case engine.OutcomeDownloaded:
			run.Downloaded++
		case engine.OutcomeFailed:
			run.Failed++
		}

		data, err = json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		return runs.Put([]byte(runID.String()), data)
	})
}

// FindRun returns a run together with its records ordered by sequence number.
func (r *BoltDBRepository) FindRun(runID uuid.UUID) (*Run, error) {
	var run Run

	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(runID.String()))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("failed to unmarshal run: %w", err)
		}

		c := tx.Bucket([]byte(outcomesBucket)).Cursor()
		prefix := runPrefix(runID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			run.Records = append(run.Records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(run.Records, func(i, j int) bool { return run.Records[i].Seq < run.Records[j].Seq })

	return &run, nil
}

// ListRuns returns every recorded run, most recent first, without records.
func (r *BoltDBRepository) ListRuns() ([]*Run, error) {
	var runs []*Run

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	return runs, nil
}

// DeleteRun removes a run and all of its records.
func (r *BoltDBRepository) DeleteRun(runID uuid.UUID) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		if runs.Get([]byte(runID.String())) == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err := runs.Delete([]byte(runID.String())); err != nil {
			return err
		}

		c := tx.Bucket([]byte(outcomesBucket)).Cursor()
		prefix := runPrefix(runID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (r *BoltDBRepository) Close() error {
	return r.db.Close()
}

func runPrefix(runID uuid.UUID) []byte {
	return []byte(runID.String() + "/")
}

func outcomeKey(runID, taskID uuid.UUID) []byte {
	return append(runPrefix(runID), taskID.String()...)
}

