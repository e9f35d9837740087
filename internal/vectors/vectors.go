// Package vectors parses pretrained word-vector files into an immutable
// token -> vector table.
//
// The text format has one entry per line: a token followed by D
// whitespace-separated floats. An optional first line "count dim" (the
// word2vec/fastText text header) is recognised when DetectHeader is set.
package vectors

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when an entry's component count differs
	// from the table dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrMalformedEntry is returned for entries without components or with
	// non-numeric components.
	ErrMalformedEntry = errors.New("malformed vector entry")
)

// DimensionMismatchError describes an entry of the wrong length.
type DimensionMismatchError struct {
	Line  int
	Token string
	Got   int
	Want  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vectors line %d token %q: %d components, want %d: %v",
		e.Line, e.Token, e.Got, e.Want, ErrDimensionMismatch)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// EntryError describes an entry that could not be parsed.
type EntryError struct {
	Line   int
	Token  string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("vectors line %d token %q: %s: %v", e.Line, e.Token, e.Reason, ErrMalformedEntry)
}

func (e *EntryError) Unwrap() error { return ErrMalformedEntry }

// MismatchPolicy decides what happens to an entry with the wrong dimension.
type MismatchPolicy string

const (
	// MismatchAbort fails the parse with a *DimensionMismatchError.
	MismatchAbort MismatchPolicy = "abort"
	// MismatchSkip drops the entry and logs a warning.
	MismatchSkip MismatchPolicy = "skip"
)

// Options configures Parse.
type Options struct {
	OnMismatch   MismatchPolicy
	DetectHeader bool
	Logger       *slog.Logger
}

// Source is the read-only view consumed by the embedding assembler.
type Source interface {
	Dim() int
	Vector(token string) ([]float32, bool)
}

// Table maps tokens to vectors of a single dimension.
type Table struct {
	dim     int
	vectors map[string][]float32
	skipped int
}

var _ Source = (*Table)(nil)

// Dim returns the vector dimension, or 0 for an empty table.
func (t *Table) Dim() int { return t.dim }

// Len returns the number of tokens.
func (t *Table) Len() int { return len(t.vectors) }

// Skipped returns the number of entries dropped under MismatchSkip.
func (t *Table) Skipped() int { return t.skipped }

// Vector returns the vector for token. The slice is shared with the table
// and must not be modified.
func (t *Table) Vector(token string) ([]float32, bool) {
	v, ok := t.vectors[token]
	return v, ok
}

// Tokens returns all tokens in sorted order.
func (t *Table) Tokens() []string {
	out := make([]string, 0, len(t.vectors))
	for tok := range t.vectors {
		out = append(out, tok)
	}

	sort.Strings(out)

	return out
}

// NewTable builds a table from in-memory vectors. All vectors must share one
// length; the input map is copied.
func NewTable(vectors map[string][]float32) (*Table, error) {
	t := &Table{vectors: make(map[string][]float32, len(vectors))}

	for _, tok := range sortedKeys(vectors) {
		v := vectors[tok]
		if len(v) == 0 {
			return nil, &EntryError{Token: tok, Reason: "no components"}
		}

		if t.dim == 0 {
			t.dim = len(v)
		} else if len(v) != t.dim {
			return nil, &DimensionMismatchError{Token: tok, Got: len(v), Want: t.dim}
		}

		t.vectors[tok] = append([]float32(nil), v...)
	}

	return t, nil
}

func sortedKeys(m map[string][]float32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
