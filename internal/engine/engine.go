// Package engine sequences database and filestore backup/restore into
// complete operations: backup, restore, and the composite
// backup-then-restore migration.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/database"
	apperrors "github.com/lupppig/obackup/internal/errors"
	"github.com/lupppig/obackup/internal/filestore"
	"github.com/lupppig/obackup/internal/logger"
	"github.com/lupppig/obackup/internal/preflight"
	"github.com/lupppig/obackup/internal/target"
)

// State tracks where an engine instance is in its lifecycle. Complete and
// Failed are terminal for the current operation.
type State int

const (
	StateIdle State = iota
	StateBackingUp
	StateRestoring
	StateComplete
	StateFailed
)

// Options filters and extends an operation.
type Options struct {
	DBOnly        bool // skip the filestore
	FilestoreOnly bool // skip the database
	OutputDir     string
	SaveArchive   bool // composite flow: keep a durable copy of the intermediate backup
}

// Engine runs one operation at a time. Each instance owns a scratch
// directory keyed by its creation timestamp, so concurrent callers
// construct separate instances and never collide on filenames.
type Engine struct {
	store config.Store
	obs   Observer
	log   *logger.Logger

	db  *database.Postgres
	fs  *filestore.Manager
	est *preflight.Estimator

	timestamp  string
	scratchDir string
	state      State
	cancelled  atomic.Bool
}

// New constructs an engine with an injected profile store and observer.
// Callers must Close the engine to release its scratch directory.
func New(store config.Store, obs Observer, log *logger.Logger) (*Engine, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	timestamp := time.Now().Format("20060102_150405")
	scratchDir, err := os.MkdirTemp("", "obackup_"+timestamp+"_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	est := preflight.NewEstimator(log)
	return &Engine{
		store:      store,
		obs:        obs,
		log:        log,
		db:         database.New(log),
		fs:         filestore.NewManager(log, est),
		est:        est,
		timestamp:  timestamp,
		scratchDir: scratchDir,
		state:      StateIdle,
	}, nil
}

func (e *Engine) State() State { return e.state }

// Cancel requests a stop. The engine polls the flag between pipeline steps;
// a step already running (a dump, a transfer) is never interrupted
// mid-command.
func (e *Engine) Cancel() { e.cancelled.Store(true) }

func (e *Engine) checkCancelled() error {
	if e.cancelled.Load() {
		return apperrors.New(apperrors.TypeInternal, "operation cancelled", "")
	}
	return nil
}

// Close removes the scratch directory. Idempotent; safe on every exit path.
func (e *Engine) Close() error {
	if e.scratchDir == "" {
		return nil
	}
	err := os.RemoveAll(e.scratchDir)
	e.scratchDir = ""
	return err
}

// TestConnection verifies the database is reachable with the profile's
// credentials and, when a filestore path is configured, that the directory
// exists on the profile's target. A missing filestore directory is a
// warning, not a failure.
func (e *Engine) TestConnection(ctx context.Context, profile config.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := e.db.TestConnection(ctx, profile); err != nil {
		return err
	}

	if profile.FilestorePath == "" {
		return nil
	}

	t, err := target.ForProfile(profile, e.store)
	if err != nil {
		return err
	}
	defer t.Close()

	if target.PathExists(ctx, t, profile.FilestorePath) {
		return nil
	}
	nested := profile.FilestorePath + "/filestore/" + profile.Database
	if target.PathExists(ctx, t, nested) {
		return nil
	}
	e.event(fmt.Sprintf("Filestore path not found: %s or %s", profile.FilestorePath, nested), LevelWarning)
	return nil
}

func (e *Engine) fail(err error) error {
	e.state = StateFailed
	e.event(fmt.Sprintf("Operation failed: %v", err), LevelError)
	return err
}
