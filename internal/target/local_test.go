package target

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExec(t *testing.T) {
	tgt := NewLocalTarget()
	defer tgt.Close()

	res, err := tgt.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestLocalExec_NonzeroExit(t *testing.T) {
	tgt := NewLocalTarget()
	defer tgt.Close()

	res, err := tgt.Exec(context.Background(), "echo oops >&2; exit 3")
	require.NoError(t, err, "a nonzero exit is a result, not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestLocalTransfer(t *testing.T) {
	tgt := NewLocalTarget()
	defer tgt.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	session, err := tgt.OpenTransfer()
	require.NoError(t, err)
	defer session.Close()

	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, session.Download(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPathExists(t *testing.T) {
	tgt := NewLocalTarget()
	defer tgt.Close()

	dir := t.TempDir()
	assert.True(t, PathExists(context.Background(), tgt, dir))
	assert.False(t, PathExists(context.Background(), tgt, filepath.Join(dir, "missing")))
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"$HOME;rm -rf /", `'$HOME;rm -rf /'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellQuote(tt.in))
	}
}
