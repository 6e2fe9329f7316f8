// Package manifest writes integrity sidecars next to backup archives so a
// restore can detect a corrupted or tampered file before touching the
// destination database.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

const Suffix = ".manifest"

type Manifest struct {
	ID             string    `json:"id"`
	DBName         string    `json:"db_name,omitempty"`
	ProductVersion string    `json:"product_version,omitempty"`
	Timestamp      string    `json:"timestamp,omitempty"`
	Checksum       string    `json:"checksum"` // SHA-256 of the archive
	Size           int64     `json:"size,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Write computes the archive's checksum and writes the sidecar next to it.
func Write(archivePath, dbName, productVersion, timestamp string) (*Manifest, error) {
	checksum, size, err := checksumFile(archivePath)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		ID:             uuid.NewString(),
		DBName:         dbName,
		ProductVersion: productVersion,
		Timestamp:      timestamp,
		Checksum:       checksum,
		Size:           size,
		CreatedAt:      time.Now(),
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(archivePath+Suffix, data, 0o644); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the sidecar for an archive. A missing sidecar is reported via
// os.IsNotExist so callers can degrade to a warning.
func Load(archivePath string) (*Manifest, error) {
	data, err := os.ReadFile(archivePath + Suffix)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Verify recomputes the archive checksum against the sidecar.
func (m *Manifest) Verify(archivePath string) (bool, error) {
	if m.Checksum == "" {
		return true, nil
	}
	actual, _, err := checksumFile(archivePath)
	if err != nil {
		return false, err
	}
	return actual == m.Checksum, nil
}

func checksumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
