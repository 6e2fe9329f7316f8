package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lupppig/obackup/internal/archive"
	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/database"
	"github.com/lupppig/obackup/internal/manifest"
	"github.com/lupppig/obackup/internal/target"
)

// Backup dumps the database, archives the filestore, and packages both into
// a portable archive under opts.OutputDir. Returns the archive path.
func (e *Engine) Backup(ctx context.Context, profile config.Profile, opts Options) (string, error) {
	e.state = StateBackingUp
	e.progress(0, "Starting backup...")

	if err := profile.Validate(); err != nil {
		return "", e.fail(err)
	}
	if !opts.FilestoreOnly {
		if err := database.CheckDependencies(); err != nil {
			return "", e.fail(err)
		}
	}

	e.event(fmt.Sprintf("Starting backup of %s...", profile.Database), LevelInfo)

	dumpPath, fsPath, err := e.backupParts(ctx, profile, opts)
	if err != nil {
		return "", e.fail(err)
	}

	archivePath, err := e.packageArchive(profile, opts.OutputDir, dumpPath, fsPath)
	if err != nil {
		return "", e.fail(err)
	}

	e.state = StateComplete
	e.event(fmt.Sprintf("Backup complete: %s", archivePath), LevelSuccess)
	e.progress(100, "Backup complete")
	return archivePath, nil
}

// backupParts produces the dump and filestore archive in the scratch
// directory, honoring the DBOnly/FilestoreOnly filters.
func (e *Engine) backupParts(ctx context.Context, profile config.Profile, opts Options) (dumpPath, fsPath string, err error) {
	if !opts.FilestoreOnly {
		e.progress(20, "Backing up database...")
		e.event(fmt.Sprintf("Backing up database: %s...", profile.Database), LevelInfo)

		dumpPath, err = e.db.Backup(ctx, profile, e.scratchDir)
		if err != nil {
			return "", "", err
		}
		e.event("Database backed up successfully", LevelSuccess)
		e.progress(40, "Database backup complete")
	}

	if err := e.checkCancelled(); err != nil {
		return "", "", err
	}

	if !opts.DBOnly && profile.FilestorePath != "" {
		e.progress(50, "Backing up filestore...")

		t, err := target.ForProfile(profile, e.store)
		if err != nil {
			return "", "", err
		}
		defer t.Close()

		fsPath, err = e.fs.Backup(ctx, profile, t, e.scratchDir, e.timestamp)
		if err != nil {
			return "", "", err
		}
		e.progress(70, "Filestore backup complete")
	}

	return dumpPath, fsPath, e.checkCancelled()
}

// packageArchive builds the combined portable archive and its integrity
// sidecar in outputDir.
func (e *Engine) packageArchive(profile config.Profile, outputDir, dumpPath, fsPath string) (string, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_backup_%s.tar.gz", profile.Database, e.timestamp)
	archivePath := filepath.Join(outputDir, name)

	e.progress(80, "Creating archive...")
	e.event(fmt.Sprintf("Creating backup archive: %s...", name), LevelInfo)

	meta := archive.Metadata{
		Timestamp:      e.timestamp,
		DBName:         profile.Database,
		ProductVersion: profile.ProductVersion,
	}
	if err := archive.Create(archivePath, dumpPath, fsPath, meta); err != nil {
		return "", err
	}

	if _, err := manifest.Write(archivePath, profile.Database, profile.ProductVersion, e.timestamp); err != nil {
		e.event(fmt.Sprintf("Could not write manifest: %v", err), LevelWarning)
	}

	e.progress(90, "Backup archive created")
	return archivePath, nil
}
