package target

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// LocalTarget runs commands as direct subprocesses of this process.
type LocalTarget struct{}

func NewLocalTarget() *LocalTarget {
	return &LocalTarget{}
}

func (t *LocalTarget) Exec(ctx context.Context, command string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

func (t *LocalTarget) OpenTransfer() (Transfer, error) {
	return &localTransfer{}, nil
}

func (t *LocalTarget) Local() bool { return true }

func (t *LocalTarget) Close() error { return nil }

// localTransfer copies files on the local filesystem so callers can treat
// local and remote targets identically.
type localTransfer struct{}

func (lt *localTransfer) Download(ctx context.Context, remotePath, localPath string) error {
	return copyFile(remotePath, localPath)
}

func (lt *localTransfer) Upload(ctx context.Context, localPath, remotePath string) error {
	return copyFile(localPath, remotePath)
}

func (lt *localTransfer) Close() error { return nil }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
