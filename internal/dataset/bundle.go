package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/example/go-seqprep/internal/embedding"
	"github.com/example/go-seqprep/internal/safetensors"
)

// Bundle file names inside an output directory.
const (
	DatasetFile      = "dataset.cbor"
	EmbeddingsFile   = "embeddings.safetensors"
	ManifestFile     = "manifest.json"
	EmbeddingsTensor = "embeddings"
)

// Bundle is a dataset loaded from a directory together with its matrix, if
// one was exported.
type Bundle struct {
	Dir      string
	Dataset  *Dataset
	Matrix   *embedding.Matrix
	Manifest Manifest
}

// WriteBundle writes the dataset, the matrix (when m is non-nil) and the
// manifest into dir, creating it if needed.
func WriteBundle(dir string, d *Dataset, m *embedding.Matrix, dtype safetensors.DType) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create output dir: %w", err)
	}

	files := []string{DatasetFile}

	if m != nil {
		if dtype == "" {
			dtype = safetensors.F32
		}

		if d.Matrix == nil {
			d.Matrix = &MatrixInfo{}
		}

		d.Matrix.Rows, d.Matrix.Dim, d.Matrix.DType = m.Rows(), m.Dim(), string(dtype)

		if err := writeMatrix(filepath.Join(dir, EmbeddingsFile), d, m, dtype); err != nil {
			return Manifest{}, err
		}

		files = append(files, EmbeddingsFile)
	}

	if err := WriteFile(filepath.Join(dir, DatasetFile), d); err != nil {
		return Manifest{}, err
	}

	manifest, err := BuildManifest(dir, d.ID, files...)
	if err != nil {
		return Manifest{}, err
	}

	if err := WriteManifest(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return Manifest{}, err
	}

	return manifest, nil
}

func writeMatrix(path string, d *Dataset, m *embedding.Matrix, dtype safetensors.DType) error {
	tensor := safetensors.Tensor{
		Name:  EmbeddingsTensor,
		DType: dtype,
		Shape: []int64{int64(m.Rows()), int64(m.Dim())},
		Data:  m.Data(),
	}

	metadata := map[string]string{
		"dataset_id":  d.ID,
		"vocab_size":  strconv.Itoa(len(d.Words)),
		"padding_row": strconv.Itoa(m.PaddingRow()),
	}

	return safetensors.WriteFile(path, []safetensors.Tensor{tensor}, metadata)
}

// OpenBundle loads a bundle directory. A missing manifest or matrix is not
// an error; the matrix is loaded only if the dataset records one.
func OpenBundle(dir string) (*Bundle, error) {
	d, err := ReadFile(filepath.Join(dir, DatasetFile))
	if err != nil {
		return nil, err
	}

	b := &Bundle{Dir: dir, Dataset: d}

	manifest, err := ReadManifest(filepath.Join(dir, ManifestFile))
	switch {
	case err == nil:
		b.Manifest = manifest
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if d.Matrix != nil {
		b.Matrix, err = readMatrix(filepath.Join(dir, EmbeddingsFile), d)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func readMatrix(path string, d *Dataset) (*embedding.Matrix, error) {
	store, err := safetensors.OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if id := store.Metadata()["dataset_id"]; id != d.ID {
		return nil, fmt.Errorf("%s: dataset id %q does not match %q", path, id, d.ID)
	}

	shape := []int64{int64(d.Matrix.Rows), int64(d.Matrix.Dim)}

	t, err := store.TensorWithShape(EmbeddingsTensor, shape)
	if err != nil {
		return nil, err
	}

	return embedding.FromData(d.Matrix.Rows, d.Matrix.Dim, t.Data)
}

// Verify checks the bundle files against the manifest.
func (b *Bundle) Verify() error {
	if len(b.Manifest.Files) == 0 {
		return fmt.Errorf("%s: no manifest", b.Dir)
	}

	return b.Manifest.Verify(b.Dir)
}
