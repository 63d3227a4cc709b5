// CLAUDE:SUMMARY Feeds records from configured sources into a name index in batches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Indexer receives batches of (name, id) pairs. *names.Directory[string]
// satisfies it.
type Indexer interface {
	AddNames(names []string, ids []string) error
}

// Result summarises one ingested source.
type Result struct {
	Source   string        `json:"source"`
	Read     int           `json:"read"`
	Indexed  int           `json:"indexed"`
	Rejected int           `json:"rejected"`
	Duration time.Duration `json:"duration"`
}

// Ingest reads every record of spec and adds it to idx. Names the index
// rejects are counted, not fatal; read errors abort the source.
func Ingest(ctx context.Context, idx Indexer, spec Spec, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	a, err := Get(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	workDir, err := os.MkdirTemp("", "touchstone-names-*")
	if err != nil {
		return nil, fmt.Errorf("work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	local, err := localize(ctx, &spec, workDir)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	start := time.Now()
	res := &Result{Source: spec.Name}
	names := make([]string, 0, spec.BatchSize)
	ids := make([]string, 0, spec.BatchSize)

	flush := func() error {
		if len(names) == 0 {
			return nil
		}
		rejected, err := addBatch(idx, names, ids)
		if err != nil {
			return err
		}
		res.Indexed += len(names) - rejected
		res.Rejected += rejected
		names = names[:0]
		ids = ids[:0]
		return nil
	}

	err = a.Read(ctx, &spec, local, func(r Record) error {
		res.Read++
		names = append(names, r.Name)
		ids = append(ids, r.ID)
		if len(names) >= spec.BatchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	logger.Info("source ingested",
		"source", spec.Name,
		"kind", spec.Kind,
		"read", res.Read,
		"indexed", res.Indexed,
		"rejected", res.Rejected,
		"duration", res.Duration,
	)
	return res, nil
}

// IngestAll ingests every spec in order. A failing source is logged and
// skipped; all failures are returned together. Each hook sees the outcome
// of every source, failed ones included.
func IngestAll(ctx context.Context, idx Indexer, specs []Spec, logger *slog.Logger, hooks ...func(Spec, *Result, error)) ([]*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		results []*Result
		errs    []error
	)
	for _, spec := range specs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := Ingest(ctx, idx, spec, logger)
		for _, hook := range hooks {
			hook(spec, res, err)
		}
		if err != nil {
			logger.Error("source failed", "source", spec.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// addBatch returns how many names of the batch the index rejected. Only a
// batch-level error (anything but a joined per-name error) is returned.
func addBatch(idx Indexer, names, ids []string) (int, error) {
	err := idx.AddNames(names, ids)
	if err == nil {
		return 0, nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return len(joined.Unwrap()), nil
	}
	return 0, err
}
