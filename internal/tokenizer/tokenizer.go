// Package tokenizer provides word-level tokenization for seqprep.
// A tokenizer is fitted once on a set of texts; its word index ranks words by
// descending frequency with the same ordering rules as tag vocabularies.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-seqprep/internal/vocab"
)

var (
	// ErrNotFitted is returned by Encode before Fit.
	ErrNotFitted = errors.New("tokenizer has not been fitted")
	// ErrAlreadyFitted is returned by a second Fit; the word index is built once.
	ErrAlreadyFitted = errors.New("tokenizer is already fitted")
)

// Tokenizer fits a word index over texts and encodes text into word IDs.
type Tokenizer interface {
	// Fit builds the word index from texts.
	Fit(texts []string) error
	// Encode splits text and returns one word ID per token.
	Encode(text string) ([]int, error)
	// Index returns the fitted word index, or nil before Fit.
	Index() *vocab.Mapping
}

// Options configures a WordTokenizer.
type Options struct {
	// Lower folds tokens to lower case before counting and lookup.
	Lower bool `cbor:"lower" json:"lower"`
}

// WordTokenizer splits on whitespace and never drops a token, so each input
// token maps to exactly one ID.
type WordTokenizer struct {
	opts  Options
	index *vocab.Mapping
}

var _ Tokenizer = (*WordTokenizer)(nil)

// NewWordTokenizer returns an unfitted tokenizer.
func NewWordTokenizer(opts Options) *WordTokenizer {
	return &WordTokenizer{opts: opts}
}

// FromIndex returns a tokenizer that is already fitted with index.
func FromIndex(index *vocab.Mapping, opts Options) (*WordTokenizer, error) {
	if index == nil {
		return nil, errors.New("tokenizer: nil word index")
	}

	return &WordTokenizer{opts: opts, index: index}, nil
}

// Options returns the options the tokenizer was created with.
func (t *WordTokenizer) Options() Options { return t.opts }

// Normalize returns the index key for one token.
func (t *WordTokenizer) Normalize(token string) string {
	if t.opts.Lower {
		return strings.ToLower(token)
	}

	return token
}

// Split returns the normalized tokens of text.
func (t *WordTokenizer) Split(text string) []string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = t.Normalize(f)
	}

	return fields
}

// Fit counts the tokens of texts and builds the word index.
func (t *WordTokenizer) Fit(texts []string) error {
	if t.index != nil {
		return ErrAlreadyFitted
	}

	counter := vocab.NewCounter()
	for _, text := range texts {
		counter.AddAll(t.Split(text)...)
	}

	t.index = vocab.Build(counter)

	return nil
}

// ID returns the word ID of a single token.
func (t *WordTokenizer) ID(token string) (int, bool) {
	if t.index == nil {
		return 0, false
	}

	return t.index.ID(t.Normalize(token))
}

// Encode tokenizes text and returns word IDs. Unknown words fail with an
// error wrapping vocab.ErrKeyNotFound.
func (t *WordTokenizer) Encode(text string) ([]int, error) {
	if t.index == nil {
		return nil, ErrNotFitted
	}

	ids, err := t.index.Lookup(t.Split(text))
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}

	return ids, nil
}

// Index returns the fitted word index.
func (t *WordTokenizer) Index() *vocab.Mapping { return t.index }
