package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/touchstone-names/pkg/api"
	"github.com/mark3labs/mcp-go/server"
)

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, logger := mustSetup(*cfgPath, os.Stderr)
	svc := mustService(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ingest(ctx, svc.Directory, cfg.Sources, logger, nil)

	srv := server.NewMCPServer("touchstone-names", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, svc, nil)

	logger.Info("serving MCP on stdio")
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server", "error", err)
		os.Exit(1)
	}
}
