// Package runner drives a single retrieval: fetch, then store or print.
package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opensandbox/sqlsteal/internal/display"
	"github.com/opensandbox/sqlsteal/internal/fetch"
	"github.com/opensandbox/sqlsteal/internal/journal"
	"github.com/opensandbox/sqlsteal/internal/metrics"
	"github.com/opensandbox/sqlsteal/internal/storage"
)

const (
	OutcomeStored = "stored"
	OutcomeError  = "error"
)

// Fetcher reads one remote file.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*fetch.Result, error)
}

// Recorder persists the outcome of a run.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Runner wires a fetcher to its outputs. Sink and Journal are optional.
type Runner struct {
	Fetcher Fetcher
	Sink    storage.Sink
	Journal Recorder
	Stdout  io.Writer
	Stderr  io.Writer
	Log     zerolog.Logger

	Driver string
	Host   string
	RunID  string
}

// Run fetches path and either stores or prints it. Only fetch and store
// failures are returned; dir and binary results are normal outcomes.
func (r *Runner) Run(ctx context.Context, path string) error {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	log := r.Log.With().Str("run_id", r.RunID).Str("path", path).Logger()
	entry := journal.Entry{RunID: r.RunID, Driver: r.Driver, Host: r.Host, Path: path}

	start := time.Now()
	res, err := r.Fetcher.Fetch(ctx, path)
	if err != nil {
		log.Debug().Err(err).Msg("fetch failed")
		r.finish(ctx, log, entry, OutcomeError, err)
		return err
	}
	metrics.ObserveFetch(r.Driver, time.Since(start), len(res.Content))
	entry.Size = len(res.Content)
	if res.Content != nil {
		sum := sha256.Sum256(res.Content)
		entry.SHA256 = hex.EncodeToString(sum[:])
	}

	if !res.IsDir && r.Sink != nil {
		location, err := r.Sink.Store(ctx, res.Content, path)
		if err != nil {
			r.finish(ctx, log, entry, OutcomeError, err)
			return err
		}
		entry.Location = location
		log.Info().Str("location", location).Int("size", entry.Size).Msg("stored file")
		r.finish(ctx, log, entry, OutcomeStored, nil)
		return nil
	}

	content := res.Content
	if res.IsDir {
		content = nil
	}
	kind := display.Print(r.Stdout, r.Stderr, path, content)
	r.finish(ctx, log, entry, string(kind), nil)
	return nil
}

func (r *Runner) finish(ctx context.Context, log zerolog.Logger, entry journal.Entry, outcome string, runErr error) {
	entry.Outcome = outcome
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	metrics.ObserveOutcome(r.Driver, outcome)

	if r.Journal == nil {
		return
	}
	if err := r.Journal.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Msg("failed to record retrieval")
	}
}
