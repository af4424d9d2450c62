package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/NamanBalaji/bulkdl/internal/config"
	"github.com/NamanBalaji/bulkdl/internal/report"
	"github.com/NamanBalaji/bulkdl/internal/repository"
)

var errNoHistory = errors.New("no run history")

// runHistoryQuery serves -runs, -run and -rm-run against the history database.
func runHistoryQuery(cfg *config.Config, w io.Writer) error {
	if _, err := os.Stat(cfg.HistoryDB); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", errNoHistory, cfg.HistoryDB)
		}
		return err
	}

	repo, err := repository.NewBoltDBRepository(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer repo.Close()

	switch {
	case cfg.DeleteRun != "":
		id, err := uuid.Parse(cfg.DeleteRun)
		if err != nil {
			return err
		}
		if err := repo.DeleteRun(id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted run %s\n", id)

	case cfg.ShowRun != "":
		id, err := uuid.Parse(cfg.ShowRun)
		if err != nil {
			return err
		}
		run, err := repo.FindRun(id)
		if err != nil {
			return err
		}
		report.PrintRun(w, run)

	default:
		runs, err := repo.ListRuns()
		if err != nil {
			return err
		}
		report.PrintRuns(w, runs)
	}

	return nil
}
