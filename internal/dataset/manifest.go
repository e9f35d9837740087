package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrChecksumMismatch is returned by Verify when a file's digest or size
// differs from the manifest.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Manifest lists the files of a bundle directory with their digests.
type Manifest struct {
	DatasetID string       `json:"dataset_id"`
	Files     []FileRecord `json:"files"`
}

// FileRecord is one manifest entry. Name is relative to the bundle directory.
type FileRecord struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// BuildManifest hashes the named files in dir.
func BuildManifest(dir, datasetID string, names ...string) (Manifest, error) {
	m := Manifest{DatasetID: datasetID, Files: make([]FileRecord, 0, len(names))}

	for _, name := range names {
		sum, size, err := fileSHA256(filepath.Join(dir, name))
		if err != nil {
			return Manifest{}, err
		}

		m.Files = append(m.Files, FileRecord{Name: name, SHA256: sum, Bytes: size})
	}

	return m, nil
}

// Has reports whether the manifest lists name.
func (m Manifest) Has(name string) bool {
	for _, f := range m.Files {
		if f.Name == name {
			return true
		}
	}

	return false
}

// Verify re-hashes every listed file under dir. All mismatches are reported.
func (m Manifest) Verify(dir string) error {
	var errs []error

	for _, rec := range m.Files {
		sum, size, err := fileSHA256(filepath.Join(dir, rec.Name))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if sum != rec.SHA256 || size != rec.Bytes {
			errs = append(errs, fmt.Errorf("%s: %w (sha256 %s, want %s)", rec.Name, ErrChecksumMismatch, sum, rec.SHA256))
		}
	}

	return errors.Join(errs...)
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	return m, nil
}

func fileSHA256(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()

	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("read file for checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}
