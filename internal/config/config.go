package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	appName        = "bulkdl"
	configFileName = appName

	inputFile         = "links.json"
	downloadDir       = "./"
	maxConcurrency    = 5
	delay             = 100 * time.Millisecond
	filenameOffset    = 3
	requestTimeout    = 60 * time.Second
	userAgent         = "bulkdl/1.0"
	maxRedirects      = 10
	historyFileName   = "history.db"
	logFileName       = "bulkdl.log"
	requestsPerSecond = 0
)

// flagConfig stores the parsed values from the cli flags.
type flagConfig struct {
	input             *string
	downloadDir       *string
	maxConcurrency    *int
	delay             *time.Duration
	filenameOffset    *int
	requestsPerSecond *float64
	history           *bool
	historyDB         *string
	tui               *bool
	debug             *bool
	logFile           *string
	timeout           *time.Duration
	userAgent         *string
	proxy             *string
	caCert            *string
	listRuns          *bool
	showRun           *string
	deleteRun         *string
}

// Config holds the configuration options for the application.
type Config struct {
	Input             string        `yaml:"input,omitempty"`
	DownloadDir       string        `yaml:"dir,omitempty"`
	MaxConcurrency    int           `yaml:"maxConcurrency,omitempty"`
	Delay             time.Duration `yaml:"delay,omitempty"`
	FilenameOffset    int           `yaml:"filenameOffset,omitempty"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty"`
	History           bool          `yaml:"history,omitempty"`
	HistoryDB         string        `yaml:"historyDb,omitempty"`
	UseTUI            bool          `yaml:"tui,omitempty"`
	Debug             bool          `yaml:"debug,omitempty"`
	LogFile           string        `yaml:"logFile,omitempty"`
	HTTP              *HTTPConfig   `yaml:"http,omitempty"`

	// History queries are only taken from flags. When one is set no download runs.
	ListRuns  bool   `yaml:"-"`
	ShowRun   string `yaml:"-"`
	DeleteRun string `yaml:"-"`
}

// HTTPConfig holds configuration options for the HTTP fetcher.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	UserAgent    string        `yaml:"userAgent,omitempty"`
	MaxRedirects int           `yaml:"maxRedirects,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
	CACert       string        `yaml:"caCert,omitempty"`
}

// HistoryQuery reports whether a history flag was given instead of a download.
func (c *Config) HistoryQuery() bool {
	return c.ListRuns || c.ShowRun != "" || c.DeleteRun != ""
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it uses default configuration
// but STILL applies CLI flags.
func GetConfig() (*Config, error) {
	configFilePath := filepath.Join(xdg.ConfigHome, configFileName)
	defaults := DefaultConfig()

	var cfg Config

	b, err := os.ReadFile(configFilePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFilePath, err)
		}
	}

	httpCfg := zeroOr(cfg.HTTP, defaults.HTTP)

	conf := Config{
		Input:             zeroOr(cfg.Input, defaults.Input),
		DownloadDir:       zeroOr(cfg.DownloadDir, defaults.DownloadDir),
		MaxConcurrency:    zeroOr(cfg.MaxConcurrency, defaults.MaxConcurrency),
		Delay:             zeroOr(cfg.Delay, defaults.Delay),
		FilenameOffset:    zeroOr(cfg.FilenameOffset, defaults.FilenameOffset),
		RequestsPerSecond: zeroOr(cfg.RequestsPerSecond, defaults.RequestsPerSecond),
		History:           zeroOr(cfg.History, defaults.History),
		HistoryDB:         zeroOr(cfg.HistoryDB, defaults.HistoryDB),
		UseTUI:            zeroOr(cfg.UseTUI, defaults.UseTUI),
		Debug:             zeroOr(cfg.Debug, defaults.Debug),
		LogFile:           zeroOr(cfg.LogFile, defaults.LogFile),
		HTTP: &HTTPConfig{
			Timeout:      zeroOr(httpCfg.Timeout, defaults.HTTP.Timeout),
			UserAgent:    zeroOr(httpCfg.UserAgent, defaults.HTTP.UserAgent),
			MaxRedirects: zeroOr(httpCfg.MaxRedirects, defaults.HTTP.MaxRedirects),
			Proxy:        zeroOr(httpCfg.Proxy, defaults.HTTP.Proxy),
			CACert:       zeroOr(httpCfg.CACert, defaults.HTTP.CACert),
		},
	}

	conf.applyFlagsToConfig()

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func DefaultConfig() Config {
	return Config{
		Input:             inputFile,
		DownloadDir:       downloadDir,
		MaxConcurrency:    maxConcurrency,
		Delay:             delay,
		FilenameOffset:    filenameOffset,
		RequestsPerSecond: requestsPerSecond,
		HistoryDB:         filepath.Join(xdg.DataHome, appName, historyFileName),
		LogFile:           filepath.Join(xdg.StateHome, appName, logFileName),
		HTTP: &HTTPConfig{
			Timeout:      requestTimeout,
			UserAgent:    userAgent,
			MaxRedirects: maxRedirects,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}

// applyFlagsToConfig takes the value of the cli flags applied at the start and plugs them into the config.
func (c *Config) applyFlagsToConfig() {
	fc := flagConfig{
		input:             flag.String("i", c.Input, "path to the JSON file holding the list of URLs"),
		downloadDir:       flag.String("dd", c.DownloadDir, "directory the files are written to, created if missing"),
		maxConcurrency:    flag.Int("c", c.MaxConcurrency, "max number of downloads that run together"),
		delay:             flag.Duration("delay", c.Delay, "pause after each successful download"),
		filenameOffset:    flag.Int("offset", c.FilenameOffset, "position of the filename segment counted from the end of the URL path"),
		requestsPerSecond: flag.Float64("rps", c.RequestsPerSecond, "max requests started per second across all workers, 0 for no limit"),
		history:           flag.Bool("history", c.History, "record every outcome in the run history database"),
		historyDB:         flag.String("db", c.HistoryDB, "path to the run history database"),
		tui:               flag.Bool("tui", c.UseTUI, "show an interactive progress view instead of plain lines"),
		debug:             flag.Bool("debug", c.Debug, "enable debug logging"),
		logFile:           flag.String("log", c.LogFile, "path to the log file"),
		timeout:           flag.Duration("timeout", c.HTTP.Timeout, "timeout for a single request, 0 for none"),
		userAgent:         flag.String("ua", c.HTTP.UserAgent, "User-Agent header sent with every request"),
		proxy:             flag.String("proxy", c.HTTP.Proxy, "proxy URL for all requests, overrides the environment"),
		caCert:            flag.String("ca-cert", c.HTTP.CACert, "PEM file with extra CA certificates to trust"),
		listRuns:          flag.Bool("runs", false, "list recorded runs and exit"),
		showRun:           flag.String("run", "", "print the outcomes of a recorded run and exit"),
		deleteRun:         flag.String("rm-run", "", "delete a recorded run and exit"),
	}

	flag.Parse()

	c.Input = *fc.input
	c.DownloadDir = *fc.downloadDir
	c.MaxConcurrency = *fc.maxConcurrency
	c.Delay = *fc.delay
	c.FilenameOffset = *fc.filenameOffset
	c.RequestsPerSecond = *fc.requestsPerSecond
	c.History = *fc.history
	c.HistoryDB = *fc.historyDB
	c.UseTUI = *fc.tui
	c.Debug = *fc.debug
	c.LogFile = *fc.logFile
	c.HTTP.Timeout = *fc.timeout
	c.HTTP.UserAgent = *fc.userAgent
	c.HTTP.Proxy = *fc.proxy
	c.HTTP.CACert = *fc.caCert
	c.ListRuns = *fc.listRuns
	c.ShowRun = *fc.showRun
	c.DeleteRun = *fc.deleteRun
}

func (c *Config) validate() error {
	if c.Input == "" || c.DownloadDir == "" || c.MaxConcurrency <= 0 || c.Delay < 0 || c.FilenameOffset <= 0 || c.RequestsPerSecond < 0 {
		return ErrInvalidConfig
	}

	if (c.History || c.HistoryQuery()) && c.HistoryDB == "" {
		return ErrInvalidConfig
	}

	for _, id := range []string{c.ShowRun, c.DeleteRun} {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return ErrInvalidConfig
		}
	}

	return c.HTTP.validate()
}

func (h *HTTPConfig) validate() error {
	if h.Timeout < 0 || h.MaxRedirects < 0 {
		return ErrInvalidConfig
	}

	if h.Proxy != "" {
		u, err := url.Parse(h.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidConfig
		}
	}

	return nil
}
