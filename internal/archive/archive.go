// Package archive builds and parses the portable backup container: one
// database dump, a metadata record, and optionally the filestore blob,
// packed into a single compressed file.
package archive

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/lupppig/obackup/internal/errors"
)

// Internal naming convention inside the container.
const (
	DumpEntry      = "database.sql"
	MetadataEntry  = "metadata.json"
	FilestoreEntry = "filestore.tar.gz"
)

// Metadata describes a backup archive. has_filestore is true iff the
// archive carries a filestore blob.
type Metadata struct {
	Timestamp      string `json:"timestamp"`
	DBName         string `json:"db_name"`
	ProductVersion string `json:"product_version"`
	HasFilestore   bool   `json:"has_filestore"`
}

// Contents is the result of unpacking an archive. FilestorePath is empty
// when the archive carries no filestore blob.
type Contents struct {
	DumpPath      string
	FilestorePath string
	Metadata      Metadata
}

// Create packs the dump, the metadata record, and the optional filestore
// blob into a tar.gz at outPath.
func Create(outPath, dumpPath, filestorePath string, meta Metadata) error {
	meta.HasFilestore = filestorePath != ""

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := writeBytes(tw, MetadataEntry, metaBytes); err != nil {
		return err
	}

	if dumpPath != "" {
		if err := AddFile(tw, dumpPath, DumpEntry); err != nil {
			return fmt.Errorf("failed to add database dump: %w", err)
		}
	}

	if filestorePath != "" {
		if err := AddFile(tw, filestorePath, FilestoreEntry); err != nil {
			return fmt.Errorf("failed to add filestore blob: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

func writeBytes(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: name,
		Size: int64(len(data)),
		Mode: 0o644,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// Extract unpacks an archive into destDir and locates its constituents.
// The container format is sniffed from content (zip, then gzip tar, then
// plain tar); a Format error is returned only when no probe matches.
// Constituents are found by name convention in the extracted tree, never by
// the extension the file happened to carry on disk.
func Extract(archivePath, destDir string) (Contents, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Contents{}, err
	}

	format, err := Detect(archivePath)
	if err != nil {
		return Contents{}, err
	}

	switch format {
	case FormatZip:
		err = ExtractZip(archivePath, destDir)
	case FormatGzipTar:
		err = ExtractTarGz(archivePath, destDir)
	case FormatTar:
		err = ExtractTar(archivePath, destDir)
	default:
		return Contents{}, apperrors.New(apperrors.TypeFormat,
			fmt.Sprintf("unable to extract %s: file format not recognized", filepath.Base(archivePath)),
			"Supported containers are zip, tar.gz, and tar.")
	}
	if err != nil {
		return Contents{}, apperrors.Wrap(err, apperrors.TypeFormat,
			fmt.Sprintf("failed to extract %s archive", format), "The archive may be truncated or corrupt.")
	}

	return locate(destDir)
}

func locate(destDir string) (Contents, error) {
	var c Contents

	err := filepath.Walk(destDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		switch {
		case info.Name() == MetadataEntry:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &c.Metadata); err != nil {
				return fmt.Errorf("invalid metadata record: %w", err)
			}
		case info.Name() == FilestoreEntry:
			c.FilestorePath = path
		case strings.HasSuffix(info.Name(), ".sql") && c.DumpPath == "":
			c.DumpPath = path
		}
		return nil
	})
	if err != nil {
		return Contents{}, err
	}

	return c, nil
}
