package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/touchstone-names/pkg/api"
	"github.com/hazyhaar/touchstone-names/pkg/chassis"
	"github.com/hazyhaar/touchstone-names/pkg/importer"
	"github.com/hazyhaar/touchstone-names/pkg/names"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type config struct {
	Addr              string          `yaml:"addr"`
	LogLevel          string          `yaml:"log_level"`
	TitlesFile        string          `yaml:"titles_file"`
	AbbreviationsFile string          `yaml:"abbreviations_file"`
	Encoder           string          `yaml:"encoder"` // double_metaphone or double_metaphone_4
	MaxTokens         int             `yaml:"max_tokens"`
	MaxBatch          int             `yaml:"max_batch"`
	DefaultThreshold  names.Threshold `yaml:"default_threshold"`
	TLS               tlsConfig       `yaml:"tls"`
	Sources           []importer.Spec `yaml:"sources"`
	SourcesFile       string          `yaml:"sources_file"` // extra sources, appended to Sources
	StatusDB          string          `yaml:"status_db"`    // empty disables source tracking
	CheckInterval     time.Duration   `yaml:"check_interval"`
}

// tlsConfig switches serve to the chassis: HTTPS on TCP, HTTP/3 and MCP on QUIC.
type tlsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "normalize":
		cmdNormalize(os.Args[2:])
	case "match":
		cmdMatch(os.Args[2:])
	case "lookup":
		cmdLookup(os.Args[2:])
	case "sources":
		cmdSources(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: touchstone-names <command> [flags]

Commands:
  serve       Start the HTTP server
  mcp         Serve the MCP tools on stdio
  normalize   Print the canonical form of each name
  match       Compare two names phonetically
  lookup      Ingest the configured sources and look names up
  sources     List source presets and configured sources
  version     Print the version
`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, logger := mustSetup(*cfgPath, os.Stderr)
	svc := mustService(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var status *importer.StatusDB
	if cfg.StatusDB != "" {
		var err error
		if status, err = openStatus(cfg); err != nil {
			logger.Error("status db", "error", err)
			os.Exit(1)
		}
		defer status.Close()
		svc.Sources = status
		go importer.NewChecker(status, logger, cfg.CheckInterval).Start(ctx)
	}

	metrics := api.NewMetrics(svc.Directory)
	router := api.NewRouter(svc, metrics)

	// Sources load in the background so the listener is up at once; lookups
	// see names as they arrive. SIGHUP re-ingests into the same directory.
	// SIGINT/SIGTERM: graceful shutdown.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sighup)
		ingestLoop(ctx, sighup, logger, func() {
			ingest(ctx, svc.Directory, cfg.Sources, logger, status)
		})
	}()

	if cfg.TLS.Enabled {
		serveChassis(ctx, cfg, svc, router, metrics, logger)
		return
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("touchstone-names listening", "addr", cfg.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// serveChassis serves router over TLS and QUIC, with the MCP tools on QUIC.
func serveChassis(ctx context.Context, cfg config, svc *api.Service, router http.Handler, metrics *api.Metrics, logger *slog.Logger) {
	tlsCfg, err := chassis.TLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		logger.Error("tls", "error", err)
		os.Exit(1)
	}
	if cfg.TLS.CertFile == "" {
		logger.Warn("tls: using a self-signed development certificate")
	}

	mcpSrv := server.NewMCPServer("touchstone-names", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(mcpSrv, svc, metrics)

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		TLS:       tlsCfg,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err == nil {
		err = srv.Listen()
	}
	if err != nil {
		logger.Error("chassis", "error", err)
		os.Exit(1)
	}

	if err := srv.Serve(ctx); err != nil {
		logger.Error("chassis stopped", "error", err)
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func defaultConfig() config {
	return config{
		Addr:             ":8421",
		LogLevel:         "info",
		Encoder:          "double_metaphone",
		MaxTokens:        names.DefaultMaxTokens,
		MaxBatch:         api.DefaultMaxBatch,
		DefaultThreshold: names.Strong,
		CheckInterval:    6 * time.Hour,
	}
}

// loadConfig reads path over the defaults. A missing file yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	for i := range cfg.Sources {
		if err := cfg.Sources[i].Validate(); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if cfg.SourcesFile != "" {
		extra, err := importer.LoadSpecs(cfg.SourcesFile)
		if err != nil {
			return cfg, err
		}
		cfg.Sources = append(cfg.Sources, extra...)
	}
	if cfg.CheckInterval <= 0 {
		return cfg, fmt.Errorf("config %s: check_interval must be positive", path)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}

// mustSetup loads the config and builds the logger, exiting on failure.
// MCP mode passes os.Stderr too: stdout carries the protocol.
func mustSetup(cfgPath string, logOut *os.File) (config, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger
}

// newService builds the normalizer, comparator and the process-wide directory.
// An unset table file falls back to the embedded table.
func newService(cfg config, logger *slog.Logger) (*api.Service, error) {
	n, err := names.LoadNormalizer(cfg.TitlesFile, cfg.AbbreviationsFile)
	if err != nil {
		return nil, err
	}
	enc, err := names.EncoderByName(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	c := names.NewComparator(enc)
	return &api.Service{
		Directory:        names.NewDirectory[string](n, c, names.WithMaxTokens(cfg.MaxTokens), names.WithLogger(logger)),
		Normalizer:       n,
		Comparator:       c,
		DefaultThreshold: cfg.DefaultThreshold,
		MaxBatch:         cfg.MaxBatch,
		Logger:           logger,
	}, nil
}

func mustService(cfg config, logger *slog.Logger) *api.Service {
	svc, err := newService(cfg, logger)
	if err != nil {
		logger.Error("build service", "error", err)
		os.Exit(1)
	}
	return svc
}

// openStatus opens the status database and registers the configured sources.
func openStatus(cfg config) (*importer.StatusDB, error) {
	db, err := importer.OpenStatusDB(cfg.StatusDB)
	if err != nil {
		return nil, err
	}
	if err := db.Sync(cfg.Sources); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ingest loads every configured source into dir, logging per-source
// failures and recording outcomes in status when it is non-nil.
// ingestLoop runs load once, then again on every signal, until ctx is done.
func ingestLoop(ctx context.Context, sig <-chan os.Signal, logger *slog.Logger, load func()) {
	load()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			logger.Info("SIGHUP received, re-ingesting sources")
			load()
		}
	}
}

func ingest(ctx context.Context, dir *names.Directory[string], specs []importer.Spec, logger *slog.Logger, status *importer.StatusDB) {
	if len(specs) == 0 {
		return
	}
	var hooks []func(importer.Spec, *importer.Result, error)
	if status != nil {
		hooks = append(hooks, func(spec importer.Spec, res *importer.Result, err error) {
			if rerr := status.RecordIngest(spec, res, err); rerr != nil {
				logger.Warn("record ingest", "source", spec.Name, "error", rerr)
			}
		})
	}
	results, err := importer.IngestAll(ctx, dir, specs, logger, hooks...)
	if err != nil {
		logger.Warn("some sources failed", "error", err)
	}
	stats := dir.Stats()
	logger.Info("directory ready",
		"sources", len(results),
		"ids", stats.Names,
		"strong_keys", stats.StrongKeys,
		"weak_keys", stats.WeakKeys,
	)
}
