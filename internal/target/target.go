// Package target provides uniform command execution and file transfer
// against the machine that holds a profile's filestore, either the local
// host or a remote reached over SSH.
package target

import (
	"context"
)

// ExecResult carries the outcome of one shell command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Target executes commands and opens file-transfer sessions. Implementations
// are not safe for concurrent use; the engine runs one operation at a time.
type Target interface {
	// Exec runs command through the target's shell and blocks until its
	// output streams close. A nonzero exit is reported in the result, not
	// as an error; errors mean the command could not be run at all.
	Exec(ctx context.Context, command string) (ExecResult, error)

	// OpenTransfer acquires a file-transfer session. The caller owns the
	// session and must Close it on every exit path.
	OpenTransfer() (Transfer, error)

	// Local reports whether commands run on this machine directly.
	Local() bool

	Close() error
}

// Transfer moves files between the local machine and the target.
type Transfer interface {
	Download(ctx context.Context, remotePath, localPath string) error
	Upload(ctx context.Context, localPath, remotePath string) error
	Close() error
}

// PathExists probes a directory path through the target's shell.
func PathExists(ctx context.Context, t Target, path string) bool {
	res, err := t.Exec(ctx, "test -d "+ShellQuote(path))
	return err == nil && res.ExitCode == 0
}
