package server

import (
	"errors"
	"fmt"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/embedding"
	"github.com/example/go-seqprep/internal/encode"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vocab"
)

// ErrNoMatrix is returned by Embedding when the dataset has no matrix.
var ErrNoMatrix = errors.New("dataset has no embedding matrix")

// VocabInfo describes the loaded vocabularies.
type VocabInfo struct {
	DatasetID  string   `json:"dataset_id"`
	Words      int      `json:"words"`
	Tags       []string `json:"tags"`
	PaddingRow int      `json:"padding_row"`
	Dim        int      `json:"dim"`
}

// Backend answers the queries served over HTTP.
type Backend interface {
	Info() VocabInfo
	// EncodeWords maps tokens to word IDs.
	EncodeWords(tokens []string) ([]int, error)
	// EncodePairs maps parallel tokens and tags to IDs.
	EncodePairs(tokens, tags []string) (encode.Sequence, error)
	// Embedding returns the word ID and matrix row for word.
	Embedding(word string) (int, []float32, error)
}

// Model is the Backend over a prepared dataset bundle.
type Model struct {
	info    VocabInfo
	words   *tokenizer.WordTokenizer
	encoder *encode.Encoder
	matrix  *embedding.Matrix
}

var _ Backend = (*Model)(nil)

// NewModel builds a Model from a loaded bundle.
func NewModel(b *dataset.Bundle) (*Model, error) {
	words, err := b.Dataset.Tokenizer()
	if err != nil {
		return nil, err
	}

	tags, err := b.Dataset.TagIndex()
	if err != nil {
		return nil, err
	}

	info := VocabInfo{
		DatasetID:  b.Dataset.ID,
		Words:      words.Index().Len(),
		Tags:       tags.Items(),
		PaddingRow: words.Index().Len(),
	}

	if b.Matrix != nil {
		info.Dim = b.Matrix.Dim()
	}

	return &Model{
		info:    info,
		words:   words,
		encoder: encode.New(words, tags),
		matrix:  b.Matrix,
	}, nil
}

func (m *Model) Info() VocabInfo {
	info := m.info
	info.Tags = append([]string(nil), m.info.Tags...)

	return info
}

func (m *Model) EncodeWords(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := m.words.ID(tok)
		if !ok {
			return nil, &encode.Error{
				Axis: encode.AxisWord,
				Err:  &vocab.KeyNotFoundError{Item: tok, Position: i},
			}
		}

		ids[i] = id
	}

	return ids, nil
}

func (m *Model) EncodePairs(tokens, tags []string) (encode.Sequence, error) {
	if len(tokens) != len(tags) {
		return encode.Sequence{}, fmt.Errorf("got %d tokens and %d tags", len(tokens), len(tags))
	}

	s := make(corpus.Sentence, len(tokens))
	for i := range tokens {
		s[i] = corpus.Pair{Token: tokens[i], Tag: tags[i]}
	}

	return m.encoder.Sentence(s)
}

func (m *Model) Embedding(word string) (int, []float32, error) {
	if m.matrix == nil {
		return 0, nil, ErrNoMatrix
	}

	id, ok := m.words.ID(word)
	if !ok {
		return 0, nil, &vocab.KeyNotFoundError{Item: word}
	}

	return id, m.matrix.Row(id), nil
}
