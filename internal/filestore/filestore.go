// Package filestore archives and restores the attachment directory that
// accompanies an Odoo database, locally or through an SSH target.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lupppig/obackup/internal/archive"
	"github.com/lupppig/obackup/internal/config"
	apperrors "github.com/lupppig/obackup/internal/errors"
	"github.com/lupppig/obackup/internal/logger"
	"github.com/lupppig/obackup/internal/preflight"
	"github.com/lupppig/obackup/internal/target"
)

// Remote archives are staged under /tmp before download.
const remoteStageDir = "/tmp"

type Manager struct {
	log *logger.Logger
	est *preflight.Estimator
}

func NewManager(log *logger.Logger, est *preflight.Estimator) *Manager {
	return &Manager{log: log, est: est}
}

// Backup archives the profile's filestore into scratchDir and returns the
// local archive path. A missing or unconfigured filestore is not an error:
// it logs a warning and returns an empty path, and the backup proceeds
// without a filestore blob.
func (m *Manager) Backup(ctx context.Context, profile config.Profile, t target.Target, scratchDir, timestamp string) (string, error) {
	path := profile.FilestorePath
	if path == "" {
		m.warn("Filestore path not specified")
		return "", nil
	}

	if t.Local() {
		return m.backupLocal(path, scratchDir)
	}
	return m.backupRemote(ctx, profile, t, path, scratchDir, timestamp)
}

func (m *Manager) backupLocal(path, scratchDir string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		m.warn(fmt.Sprintf("Local filestore path does not exist: %s", path))
		return "", nil
	}

	m.info(fmt.Sprintf("Backing up local filestore: %s...", path))

	archivePath := filepath.Join(scratchDir, archive.FilestoreEntry)
	if err := archive.CompressDir(path, archivePath, "filestore"); err != nil {
		return "", fmt.Errorf("failed to archive filestore: %w", err)
	}

	m.info("Filestore backed up successfully")
	return archivePath, nil
}

func (m *Manager) backupRemote(ctx context.Context, profile config.Profile, t target.Target, path, scratchDir, timestamp string) (string, error) {
	m.info(fmt.Sprintf("Backing up remote filestore via SSH: %s...", path))

	// The configured path may be the data dir rather than the database's
	// filestore; fall back to the conventional nested layout.
	if !target.PathExists(ctx, t, path) && profile.Database != "" {
		path = path + "/filestore/" + profile.Database
		m.info(fmt.Sprintf("Adjusted filestore path to: %s", path))
	}

	estimatedMB := m.est.EstimateSize(ctx, t, path, false)

	report := m.est.CheckDiskSpace(ctx, t, remoteStageDir, estimatedMB)
	if !report.OK {
		return "", apperrors.New(apperrors.TypeResource,
			fmt.Sprintf("insufficient disk space on remote server: available %dMB, required %dMB",
				report.AvailableMB, report.RequiredMB),
			fmt.Sprintf("Free up space in %s on the remote server.", remoteStageDir))
	}
	m.info(fmt.Sprintf("Disk space check passed (Available: %dMB, Required: %dMB)", report.AvailableMB, report.RequiredMB))

	remoteTemp := fmt.Sprintf("%s/filestore_%s.tar.gz", remoteStageDir, timestamp)

	m.info("Creating remote archive...")
	res, err := t.Exec(ctx, fmt.Sprintf("cd %s && tar -czf %s .",
		target.ShellQuote(path), target.ShellQuote(remoteTemp)))
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", apperrors.New(apperrors.TypeTool,
			fmt.Sprintf("failed to create remote archive: %s", strings.TrimSpace(res.Stderr)),
			"Check that the filestore path exists and tar is installed on the remote host.")
	}

	// The remote temp file is removed on every exit path from here on,
	// including a failed download.
	defer func() {
		m.info("Cleaning up remote temporary files...")
		_, _ = t.Exec(ctx, "rm -f "+target.ShellQuote(remoteTemp))
	}()

	session, err := t.OpenTransfer()
	if err != nil {
		return "", err
	}
	defer session.Close()

	localPath := filepath.Join(scratchDir, archive.FilestoreEntry)
	m.info("Downloading filestore archive...")
	if err := session.Download(ctx, remoteTemp, localPath); err != nil {
		return "", fmt.Errorf("failed to download filestore archive: %w", err)
	}

	m.info("Remote filestore backed up successfully")
	return localPath, nil
}

// Restore extracts a filestore archive into the profile's canonical
// filestore directory. Existing contents are renamed aside, never deleted.
func (m *Manager) Restore(ctx context.Context, profile config.Profile, archivePath, timestamp string) error {
	if archivePath == "" {
		m.warn("No filestore archive found in backup")
		return nil
	}

	targetPath := ResolveTargetPath(profile.FilestorePath, profile.Database)
	m.info(fmt.Sprintf("Restoring filestore to: %s...", targetPath))

	if _, err := os.Stat(targetPath); err == nil {
		backupPath := fmt.Sprintf("%s.bak.%s", targetPath, timestamp)
		m.info(fmt.Sprintf("Moving existing filestore to: %s", backupPath))
		if err := os.Rename(targetPath, backupPath); err != nil {
			return fmt.Errorf("failed to move existing filestore aside: %w", err)
		}
	}

	if err := os.MkdirAll(targetPath, 0o755); err != nil {
		return err
	}

	if err := archive.ExtractTarGz(archivePath, targetPath); err != nil {
		return apperrors.Wrap(err, apperrors.TypeFormat, "failed to extract filestore archive", "")
	}

	m.info("Filestore restored successfully")
	return nil
}

// ResolveTargetPath maps a configured base path to the canonical filestore
// directory for a database. The rule is a string heuristic kept for
// compatibility with existing configurations: a base path that happens to
// end with the database name or contain a "filestore" segment for other
// reasons will be misread. An explicit structured field would remove the
// ambiguity; do not change the rule without a migration.
func ResolveTargetPath(basePath, dbName string) string {
	switch {
	case strings.HasSuffix(basePath, dbName):
		return basePath
	case strings.Contains(basePath, "filestore"):
		return filepath.Join(basePath, dbName)
	default:
		return filepath.Join(basePath, "filestore", dbName)
	}
}

func (m *Manager) info(msg string) {
	if m.log != nil {
		m.log.Info(msg)
	}
}

func (m *Manager) warn(msg string) {
	if m.log != nil {
		m.log.Warn(msg)
	}
}
