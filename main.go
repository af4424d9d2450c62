package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/NamanBalaji/bulkdl/internal/config"
	"github.com/NamanBalaji/bulkdl/internal/engine"
	"github.com/NamanBalaji/bulkdl/internal/input"
	"github.com/NamanBalaji/bulkdl/internal/locator"
	"github.com/NamanBalaji/bulkdl/internal/logger"
	"github.com/NamanBalaji/bulkdl/internal/report"
	"github.com/NamanBalaji/bulkdl/internal/repository"
	"github.com/NamanBalaji/bulkdl/internal/tui"
	"github.com/NamanBalaji/bulkdl/pkg/protocol/http"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	if err := logger.InitLogging(cfg.Debug, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	}
	defer logger.Close()

	if cfg.HistoryQuery() {
		if err := runHistoryQuery(cfg, os.Stdout); err != nil {
			logger.Errorf("History query failed: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	links, err := input.Load(cfg.Input)
	if err != nil {
		logger.Errorf("Error loading input: %v", err)
		switch {
		case errors.Is(err, input.ErrInputNotFound):
			fmt.Fprintf(os.Stderr, "Error: '%s' not found.\n", cfg.Input)
			fmt.Fprintln(os.Stderr, "Please save your JSON array of URLs to that file or pass another one with -i.")
		case errors.Is(err, input.ErrInputInvalid):
			fmt.Fprintf(os.Stderr, "Error: '%s' is not valid JSON.\n", cfg.Input)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if len(links) == 0 {
		fmt.Println("No links found in JSON file.")
		return 0
	}

	opts := engine.DefaultOptions()
	opts.Normalizer = locator.NewNormalizer(cfg.FilenameOffset)
	opts.Delay = cfg.Delay
	opts.RequestsPerSecond = cfg.RequestsPerSecond

	if cfg.History {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating history directory: %v\n", err)
			return 1
		}

		repo, err := repository.NewBoltDBRepository(cfg.HistoryDB)
		if err != nil {
			logger.Errorf("Error opening history database: %v", err)
			fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
			return 1
		}
		defer repo.Close()
		opts.Recorder = repo
	}

	clientCfg, err := newClientConfig(cfg.HTTP)
	if err != nil {
		logger.Errorf("Error configuring HTTP client: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	client := http.NewClient(clientCfg)
	defer client.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Infof("Received interrupt signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var summary *engine.Summary
	if cfg.UseTUI {
		summary, err = tui.Run(len(links), cfg.DownloadDir, cfg.MaxConcurrency, cancel, func(obs engine.Observer) (*engine.Summary, error) {
			opts.Observer = obs
			return engine.New(client, opts).Run(ctx, links, cfg.DownloadDir, cfg.MaxConcurrency)
		})
	} else {
		console := report.NewConsole(os.Stdout)
		opts.Observer = console

		console.Start(len(links), cfg.DownloadDir, cfg.MaxConcurrency)
		summary, err = engine.New(client, opts).Run(ctx, links, cfg.DownloadDir, cfg.MaxConcurrency)
		if err == nil {
			console.Summary(summary)
		}
	}

	if err != nil {
		logger.Errorf("Download run failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.Recorder != nil {
		logger.Infof("Run %s recorded in %s", summary.RunID, cfg.HistoryDB)
	}

	return 0
}

// newClientConfig maps the user's HTTP settings onto the client transport.
func newClientConfig(h *config.HTTPConfig) (*http.ClientConfig, error) {
	c := http.DefaultConfig()
	c.RequestTimeout = h.Timeout
	c.MaxRedirects = h.MaxRedirects
	c.DefaultHeaders["User-Agent"] = h.UserAgent

	if err := c.SetProxy(h.Proxy); err != nil {
		return nil, err
	}

	if h.CACert != "" {
		pemCerts, err := os.ReadFile(h.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificates: %w", err)
		}
		if err := c.TrustPEM(pemCerts); err != nil {
			return nil, fmt.Errorf("%s: %w", h.CACert, err)
		}
	}

	return c, nil
}
