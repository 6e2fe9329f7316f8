package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lupppig/obackup/internal/archive"
	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/database"
)

// BackupAndRestore backs up the source instance and restores it into the
// destination in one pass. Both ends are connectivity-tested before any
// destructive action, so a bad destination leaves it untouched. With
// opts.SaveArchive the intermediate backup is also packaged durably.
func (e *Engine) BackupAndRestore(ctx context.Context, source, dest config.Profile, opts Options) error {
	e.state = StateBackingUp
	e.progress(0, "Starting backup and restore...")

	if err := database.CheckDependencies(); err != nil {
		return e.fail(err)
	}

	e.event("=== BACKING UP FROM SOURCE ===", LevelInfo)
	e.event(fmt.Sprintf("Source: %s:%d/%s", source.Host, source.Port, source.Database), LevelInfo)
	if err := e.TestConnection(ctx, source); err != nil {
		return e.fail(fmt.Errorf("source connection failed: %w", err))
	}
	if err := e.TestConnection(ctx, dest); err != nil {
		return e.fail(fmt.Errorf("destination connection failed: %w", err))
	}

	dumpPath, fsPath, err := e.backupParts(ctx, source, Options{DBOnly: opts.DBOnly})
	if err != nil {
		return e.fail(err)
	}

	if err := e.checkCancelled(); err != nil {
		return e.fail(err)
	}

	e.state = StateRestoring
	e.event("=== RESTORING TO DESTINATION ===", LevelInfo)
	e.event(fmt.Sprintf("Destination: %s:%d/%s", dest.Host, dest.Port, dest.Database), LevelInfo)

	// The dump never leaves the scratch directory in this flow; pipe it
	// straight into the restore tool.
	var dump io.Reader
	if dumpPath != "" {
		f, err := os.Open(dumpPath)
		if err != nil {
			return e.fail(err)
		}
		defer f.Close()
		dump = f
	}

	contents := archive.Contents{FilestorePath: fsPath}
	if err := e.restoreContents(ctx, dest, contents, dump, opts); err != nil {
		return e.fail(err)
	}

	if opts.SaveArchive {
		archivePath, err := e.packageArchive(source, opts.OutputDir, dumpPath, fsPath)
		if err != nil {
			return e.fail(err)
		}
		e.event(fmt.Sprintf("Backup saved to: %s", archivePath), LevelSuccess)
	}

	e.state = StateComplete
	e.event("Backup and restore completed successfully", LevelSuccess)
	e.progress(100, "Complete")
	return nil
}
