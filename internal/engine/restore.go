package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lupppig/obackup/internal/archive"
	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/database"
	apperrors "github.com/lupppig/obackup/internal/errors"
	"github.com/lupppig/obackup/internal/manifest"
)

// Restore unpacks a backup archive and loads it into the profile's
// database and filestore. The target database is dropped and recreated;
// an existing filestore is renamed aside, never deleted.
func (e *Engine) Restore(ctx context.Context, profile config.Profile, archivePath string, opts Options) error {
	e.state = StateRestoring
	e.progress(0, "Starting restore...")

	if err := profile.Validate(); err != nil {
		return e.fail(err)
	}
	if err := database.CheckDependencies(); err != nil {
		return e.fail(err)
	}
	if err := e.verifyManifest(archivePath); err != nil {
		return e.fail(err)
	}

	e.progress(10, "Extracting backup...")
	e.event(fmt.Sprintf("Extracting backup: %s...", filepath.Base(archivePath)), LevelInfo)

	extractDir := filepath.Join(e.scratchDir, "restore_"+e.timestamp)
	contents, err := archive.Extract(archivePath, extractDir)
	if err != nil {
		return e.fail(err)
	}
	e.progress(20, "Backup extracted")

	if err := e.restoreContents(ctx, profile, contents, nil, opts); err != nil {
		return e.fail(err)
	}

	e.state = StateComplete
	e.event("Restore completed successfully", LevelSuccess)
	e.progress(100, "Restore complete")
	return nil
}

// restoreContents loads the dump and filestore into the profile's instance.
// The dump comes from contents.DumpPath, or is piped from dump when the
// caller holds it as a stream instead of a file.
func (e *Engine) restoreContents(ctx context.Context, profile config.Profile, contents archive.Contents, dump io.Reader, opts Options) error {
	if (contents.DumpPath != "" || dump != nil) && !opts.FilestoreOnly {
		if err := e.checkCancelled(); err != nil {
			return err
		}
		e.progress(30, "Restoring database...")
		e.event(fmt.Sprintf("Restoring database: %s...", profile.Database), LevelInfo)

		if err := e.db.Restore(ctx, profile, contents.DumpPath, dump); err != nil {
			// The old database is already gone at this point. Say so
			// plainly: the operator must re-run restore from the
			// preserved dump, there is no automatic rollback.
			e.event(fmt.Sprintf(
				"Database restore failed after the existing database was dropped; %s is now empty. Re-run restore from the backup archive. Cause: %v",
				profile.Database, err), LevelError)
			return err
		}
		e.event("Database restored successfully", LevelSuccess)
		e.progress(70, "Database restore complete")
	}

	if contents.FilestorePath != "" && !opts.DBOnly && profile.FilestorePath != "" {
		if err := e.checkCancelled(); err != nil {
			return err
		}
		e.progress(80, "Restoring filestore...")
		if err := e.fs.Restore(ctx, profile, contents.FilestorePath, e.timestamp); err != nil {
			return err
		}
		e.progress(95, "Filestore restore complete")
	}

	return nil
}

// verifyManifest checks the archive against its integrity sidecar when one
// exists. A missing sidecar degrades to a warning; a checksum mismatch is
// fatal before any destructive step runs.
func (e *Engine) verifyManifest(archivePath string) error {
	m, err := manifest.Load(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			e.event("Manifest not found for backup, skipping integrity check", LevelWarning)
			return nil
		}
		return err
	}

	ok, err := m.Verify(archivePath)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.New(apperrors.TypeIntegrity,
			fmt.Sprintf("backup archive checksum does not match its manifest: %s", filepath.Base(archivePath)),
			"The archive may be corrupt or tampered with; take a fresh backup.")
	}
	e.event("Integrity verification passed", LevelInfo)
	return nil
}
