package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLoadVerify(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "acme_backup.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("archive bytes"), 0o644))

	m, err := Write(archivePath, "acme", "17.0", "20240101_120000")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, int64(13), m.Size)

	loaded, err := Load(archivePath)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, "acme", loaded.DBName)
	assert.Equal(t, m.Checksum, loaded.Checksum)

	ok, err := loaded.Verify(archivePath)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "b.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("original"), 0o644))

	m, err := Write(archivePath, "acme", "17.0", "ts")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(archivePath, []byte("tampered"), 0o644))

	ok, err := m.Verify(archivePath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tar.gz"))
	assert.True(t, os.IsNotExist(err))
}
