package archive

import (
	"bytes"
	"io"
	"os"
)

// Format is the detected container format of a backup file.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatGzipTar
	FormatTar
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatGzipTar:
		return "tar.gz"
	case FormatTar:
		return "tar"
	default:
		return "unknown"
	}
}

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	tarMagic  = []byte("ustar")
)

// Detect sniffs the container format from file content. The extension is
// never consulted: archives in the wild are routinely mislabeled (.tar.gz
// files that are zips, and vice versa).
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	// 257+8 covers the ustar magic inside the first tar header.
	header := make([]byte, 265)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return FormatZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzipTar, nil
	case len(header) >= 262 && bytes.Equal(header[257:262], tarMagic):
		return FormatTar, nil
	}
	return FormatUnknown, nil
}
