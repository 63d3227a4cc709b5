package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Checker periodically verifies that every tracked source is still reachable:
// a HEAD request for remote paths, a stat for local ones.
type Checker struct {
	status   *StatusDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker that verifies sources every interval.
func NewChecker(status *StatusDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		status:   status,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll checks every source and persists the results.
func (c *Checker) CheckAll(ctx context.Context) {
	sources, err := c.status.List()
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return
	}

	var ok, failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}
		status, checkErr := c.checkOne(ctx, src.Path)
		msg := ""
		if checkErr != nil {
			msg = checkErr.Error()
		}
		if err := c.status.RecordCheck(src.Name, status, msg); err != nil {
			c.logger.Error("source check: record", "source", src.Name, "error", err)
		}

		if status >= 200 && status < 400 {
			ok++
			continue
		}
		failed++
		c.logger.Warn("source unreachable", "source", src.Name, "path", src.Path, "status", status, "error", msg)
	}
	if len(sources) > 0 {
		c.logger.Info("source check complete", "total", ok+failed, "ok", ok, "failed", failed)
	}
}

// checkOne returns the HTTP status of a remote path, or 200/404 for a local
// file that exists or not. A network error yields status 0.
func (c *Checker) checkOne(ctx context.Context, p string) (int, error) {
	if !isRemote(p) {
		if _, err := os.Stat(p); err != nil {
			return http.StatusNotFound, err
		}
		return http.StatusOK, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", p, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
