// Package embedding assembles a dense embedding matrix from a word
// vocabulary and a pretrained vector source.
package embedding

import (
	"fmt"

	"github.com/example/go-seqprep/internal/vectors"
)

// Vocabulary is the ID-ordered view of a word index.
// *vocab.Mapping satisfies it.
type Vocabulary interface {
	Len() int
	Item(id int) (string, bool)
}

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	rows int
	dim  int
	data []float32
}

// NewMatrix returns a zero matrix of shape (rows, dim).
func NewMatrix(rows, dim int) *Matrix {
	if rows < 0 || dim < 0 {
		panic(fmt.Sprintf("embedding: invalid shape (%d, %d)", rows, dim))
	}

	return &Matrix{rows: rows, dim: dim, data: make([]float32, rows*dim)}
}

// FromData wraps row-major data of shape (rows, dim). The slice is copied.
func FromData(rows, dim int, data []float32) (*Matrix, error) {
	if rows < 0 || dim < 0 {
		return nil, fmt.Errorf("embedding: invalid shape (%d, %d)", rows, dim)
	}

	if len(data) != rows*dim {
		return nil, fmt.Errorf("embedding: shape (%d, %d) expects %d values, got %d", rows, dim, rows*dim, len(data))
	}

	return &Matrix{rows: rows, dim: dim, data: append([]float32(nil), data...)}, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Dim returns the number of columns.
func (m *Matrix) Dim() int { return m.dim }

// Shape returns (rows, dim).
func (m *Matrix) Shape() (int, int) { return m.rows, m.dim }

// PaddingRow returns the index of the reserved trailing row.
func (m *Matrix) PaddingRow() int { return m.rows - 1 }

// At returns element (i, j).
func (m *Matrix) At(i, j int) float32 { return m.data[i*m.dim+j] }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float32 {
	return append([]float32(nil), m.data[i*m.dim:(i+1)*m.dim]...)
}

// Data returns a copy of the row-major backing data.
func (m *Matrix) Data() []float32 {
	return append([]float32(nil), m.data...)
}

// IsZeroRow reports whether every element of row i is zero.
func (m *Matrix) IsZeroRow(i int) bool {
	for _, v := range m.data[i*m.dim : (i+1)*m.dim] {
		if v != 0 {
			return false
		}
	}

	return true
}

// Coverage reports how much of the vocabulary had a pretrained vector.
type Coverage struct {
	Found   int
	Missing []string // ID order
}

// Ratio returns Found / (Found + len(Missing)), or 0 for an empty vocabulary.
func (c Coverage) Ratio() float64 {
	total := c.Found + len(c.Missing)
	if total == 0 {
		return 0
	}

	return float64(c.Found) / float64(total)
}

// Assemble builds the (N+1, D) matrix for words, where N is words.Len() and D
// is vecs.Dim(). Row id holds the pretrained vector of the word with that ID,
// or zeros if there is none. Row N is never written. Neither input is
// modified.
func Assemble(words Vocabulary, vecs vectors.Source) (*Matrix, Coverage) {
	n := words.Len()
	m := NewMatrix(n+1, vecs.Dim())

	var cov Coverage

	for id := 0; id < n; id++ {
		word, _ := words.Item(id)

		vec, ok := vecs.Vector(word)
		if !ok || len(vec) != m.dim {
			cov.Missing = append(cov.Missing, word)
			continue
		}

		copy(m.data[id*m.dim:(id+1)*m.dim], vec)
		cov.Found++
	}

	return m, cov
}
