package archive

import (
	"archive/tar"
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lupppig/obackup/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateExtract_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	dumpPath := filepath.Join(dir, "acme.sql")
	writeFile(t, dumpPath, "CREATE TABLE res_partner (id serial);")

	fsDir := filepath.Join(dir, "fs")
	writeFile(t, filepath.Join(fsDir, "ab", "attachment1"), "binary-ish data")
	fsBlob := filepath.Join(dir, "filestore.tar.gz")
	require.NoError(t, CompressDir(fsDir, fsBlob, "filestore"))

	archivePath := filepath.Join(dir, "acme_backup.tar.gz")
	meta := Metadata{
		Timestamp:      "20240101_120000",
		DBName:         "acme",
		ProductVersion: "17.0",
	}
	require.NoError(t, Create(archivePath, dumpPath, fsBlob, meta))

	contents, err := Extract(archivePath, filepath.Join(dir, "out"))
	require.NoError(t, err)

	assert.Equal(t, "acme", contents.Metadata.DBName)
	assert.Equal(t, "20240101_120000", contents.Metadata.Timestamp)
	assert.Equal(t, "17.0", contents.Metadata.ProductVersion)
	assert.True(t, contents.Metadata.HasFilestore)
	assert.NotEmpty(t, contents.FilestorePath)

	got, err := os.ReadFile(contents.DumpPath)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE res_partner (id serial);", string(got))

	blob, err := os.ReadFile(contents.FilestorePath)
	require.NoError(t, err)
	want, err := os.ReadFile(fsBlob)
	require.NoError(t, err)
	assert.Equal(t, want, blob, "filestore blob must survive byte-identical")
}

func TestCreateExtract_NoFilestore(t *testing.T) {
	dir := t.TempDir()

	dumpPath := filepath.Join(dir, "acme.sql")
	writeFile(t, dumpPath, "SELECT 1;")

	archivePath := filepath.Join(dir, "out.tar.gz")
	require.NoError(t, Create(archivePath, dumpPath, "", Metadata{DBName: "acme"}))

	contents, err := Extract(archivePath, filepath.Join(dir, "out"))
	require.NoError(t, err)

	assert.False(t, contents.Metadata.HasFilestore)
	assert.Empty(t, contents.FilestorePath)
	assert.NotEmpty(t, contents.DumpPath)
}

// Archives in the wild carry the wrong extension; extraction must go by
// content only.
func TestExtract_FormatIndependence(t *testing.T) {
	dir := t.TempDir()
	payload := "SELECT 42;"

	makeZip := func(path string) {
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := zip.NewWriter(f)
		w, err := zw.Create("database.sql")
		require.NoError(t, err)
		_, err = w.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())
	}

	makeTar := func(path string, gzipped bool) {
		f, err := os.Create(path)
		require.NoError(t, err)
		var tw *tar.Writer
		var gz *gzip.Writer
		if gzipped {
			gz = gzip.NewWriter(f)
			tw = tar.NewWriter(gz)
		} else {
			tw = tar.NewWriter(f)
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: "database.sql", Size: int64(len(payload)), Mode: 0o644}))
		_, err = tw.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, tw.Close())
		if gz != nil {
			require.NoError(t, gz.Close())
		}
		require.NoError(t, f.Close())
	}

	tests := []struct {
		name string
		path string
		make func(string)
	}{
		{"zip labeled tar.gz", filepath.Join(dir, "a.tar.gz"), makeZip},
		{"gzip tar labeled zip", filepath.Join(dir, "b.zip"), func(p string) { makeTar(p, true) }},
		{"plain tar labeled tar.gz", filepath.Join(dir, "c.tar.gz"), func(p string) { makeTar(p, false) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.make(tt.path)
			contents, err := Extract(tt.path, filepath.Join(dir, "out-"+filepath.Base(tt.path)))
			require.NoError(t, err)
			got, err := os.ReadFile(contents.DumpPath)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
		})
	}
}

func TestExtract_UnrecognizedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.tar.gz")
	writeFile(t, path, "this is not an archive of any kind, just text padding beyond the header probes")

	_, err := Extract(path, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeFormat))
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "x.bin")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("a")
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	format, err := Detect(zipPath)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)

	gzPath := filepath.Join(dir, "y.bin")
	srcDir := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(srcDir, "f"), "data")
	require.NoError(t, CompressDir(srcDir, gzPath, ""))

	format, err = Detect(gzPath)
	require.NoError(t, err)
	assert.Equal(t, FormatGzipTar, format)

	txtPath := filepath.Join(dir, "z.bin")
	writeFile(t, txtPath, "short")
	format, err = Detect(txtPath)
	require.NoError(t, err)
	assert.Equal(t, FormatUnknown, format)
}

func TestExtractTarStream_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar")

	f, err := os.Create(path)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape", Size: 4, Mode: 0o644}))
	_, err = tw.Write([]byte("oops"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	err = ExtractTar(path, filepath.Join(dir, "out"))
	assert.Error(t, err)
}
