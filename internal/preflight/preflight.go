// Package preflight estimates backup sizes and checks free disk space before
// a transfer is committed to. Probes are best effort: a failed probe logs a
// warning and lets the operation proceed rather than blocking it.
package preflight

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/lupppig/obackup/internal/logger"
	"github.com/lupppig/obackup/internal/target"
)

const (
	// Dump size is not measured ahead of time; assume a fixed
	// conservative figure.
	databaseEstimateMB = 100

	// Filestores (mostly already-compressed attachments) typically
	// shrink to 30-50% under gzip.
	compressionRatio = 0.4

	// Safety margin applied on top of the estimate.
	safetyFactor = 1.2
)

// Report is the outcome of one disk-space check. Never persisted.
type Report struct {
	AvailableMB int64
	RequiredMB  int64
	OK          bool
}

type Estimator struct {
	log *logger.Logger
}

func NewEstimator(log *logger.Logger) *Estimator {
	return &Estimator{log: log}
}

// EstimateSize returns the approximate compressed size in MB of backing up
// path. Database backups use a fixed figure; filestore backups measure the
// directory through the target connection.
func (e *Estimator) EstimateSize(ctx context.Context, t target.Target, path string, isDatabase bool) float64 {
	if isDatabase {
		return databaseEstimateMB
	}

	res, err := t.Exec(ctx, fmt.Sprintf("du -sm %s | cut -f1", target.ShellQuote(path)))
	if err != nil || res.ExitCode != 0 {
		e.warn("could not estimate size", err, res)
		return databaseEstimateMB
	}

	sizeMB, err := strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
	if err != nil {
		e.warn("could not parse directory size", err, res)
		return databaseEstimateMB
	}

	return float64(sizeMB) * compressionRatio
}

// CheckDiskSpace reports whether the volume holding path has room for an
// estimated transfer plus a 20% margin. Probe failures fail open: the
// operation proceeds with a warning rather than aborting on a flaky probe.
func (e *Estimator) CheckDiskSpace(ctx context.Context, t target.Target, path string, estimatedMB float64) Report {
	requiredMB := int64(estimatedMB * safetyFactor)

	availableMB, err := e.availableMB(ctx, t, path)
	if err != nil {
		if e.log != nil {
			e.log.Warn("could not check disk space, proceeding anyway", "path", path, "error", err)
		}
		return Report{OK: true}
	}

	if e.log != nil {
		e.log.Debug("disk space probe",
			"path", path,
			"available", humanize.IBytes(uint64(availableMB)*1024*1024),
			"required", humanize.IBytes(uint64(requiredMB)*1024*1024))
	}

	return Report{
		AvailableMB: availableMB,
		RequiredMB:  requiredMB,
		OK:          availableMB >= requiredMB,
	}
}

func (e *Estimator) availableMB(ctx context.Context, t target.Target, path string) (int64, error) {
	if t.Local() {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			return 0, err
		}
		return int64(usage.Free / (1024 * 1024)), nil
	}

	res, err := t.Exec(ctx, fmt.Sprintf("df -BM %s | tail -1 | awk '{print $4}'", target.ShellQuote(path)))
	if err != nil {
		return 0, err
	}
	if res.ExitCode != 0 {
		return 0, fmt.Errorf("df exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	out := strings.TrimSuffix(strings.TrimSpace(res.Stdout), "M")
	availableMB, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected df output %q: %w", res.Stdout, err)
	}
	return availableMB, nil
}

func (e *Estimator) warn(msg string, err error, res target.ExecResult) {
	if e.log == nil {
		return
	}
	if err != nil {
		e.log.Warn(msg, "error", err)
	} else {
		e.log.Warn(msg, "stderr", strings.TrimSpace(res.Stderr))
	}
}
