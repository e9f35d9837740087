// Package encode turns sentences into parallel word-ID and tag-ID sequences.
package encode

import (
	"fmt"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/vocab"
)

// Axis names which side of a pair failed to encode.
type Axis string

const (
	AxisWord Axis = "word"
	AxisTag  Axis = "tag"
)

// Vocabulary resolves an item to its ID.
// *vocab.Mapping and *tokenizer.WordTokenizer both satisfy it.
type Vocabulary interface {
	ID(item string) (int, bool)
}

// Sequence is the encoded form of one sentence. Both slices have the
// sentence's length.
type Sequence struct {
	Words []int `cbor:"words" json:"words"`
	Tags  []int `cbor:"tags" json:"tags"`
}

// Len returns the sequence length.
func (s Sequence) Len() int { return len(s.Words) }

// Error reports an item missing from its vocabulary. It unwraps to
// *vocab.KeyNotFoundError and so matches vocab.ErrKeyNotFound.
type Error struct {
	Sentence int
	Axis     Axis
	Err      *vocab.KeyNotFoundError
}

func (e *Error) Error() string {
	return fmt.Sprintf("encode sentence %d: %s %v", e.Sentence, e.Axis, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Encoder holds the word and tag vocabularies used for lookups.
type Encoder struct {
	words Vocabulary
	tags  Vocabulary
}

// New returns an Encoder. Both vocabularies must cover every item that will
// be encoded; there is no unknown-item fallback.
func New(words, tags Vocabulary) *Encoder {
	return &Encoder{words: words, tags: tags}
}

// Sentence encodes one sentence.
func (e *Encoder) Sentence(s corpus.Sentence) (Sequence, error) {
	return e.sentence(0, s)
}

// Corpus encodes every sentence of c in order.
func (e *Encoder) Corpus(c corpus.Corpus) ([]Sequence, error) {
	out := make([]Sequence, len(c))
	for i, s := range c {
		seq, err := e.sentence(i, s)
		if err != nil {
			return nil, err
		}

		out[i] = seq
	}

	return out, nil
}

func (e *Encoder) sentence(idx int, s corpus.Sentence) (Sequence, error) {
	seq := Sequence{
		Words: make([]int, len(s)),
		Tags:  make([]int, len(s)),
	}

	for pos, p := range s {
		id, ok := e.words.ID(p.Token)
		if !ok {
			return Sequence{}, missing(idx, AxisWord, p.Token, pos)
		}

		seq.Words[pos] = id

		id, ok = e.tags.ID(p.Tag)
		if !ok {
			return Sequence{}, missing(idx, AxisTag, p.Tag, pos)
		}

		seq.Tags[pos] = id
	}

	return seq, nil
}

func missing(sentence int, axis Axis, item string, pos int) error {
	return &Error{
		Sentence: sentence,
		Axis:     axis,
		Err:      &vocab.KeyNotFoundError{Item: item, Position: pos},
	}
}

// Pad returns a copy of ids with every row exactly maxLen long. Short rows
// are filled with padID at the front; long rows lose their leading IDs.
// A maxLen <= 0 pads to the longest row.
func Pad(ids [][]int, maxLen, padID int) [][]int {
	if maxLen <= 0 {
		for _, row := range ids {
			maxLen = max(maxLen, len(row))
		}
	}

	out := make([][]int, len(ids))
	for i, row := range ids {
		padded := make([]int, maxLen)

		if len(row) >= maxLen {
			copy(padded, row[len(row)-maxLen:])
		} else {
			fill := maxLen - len(row)
			for j := 0; j < fill; j++ {
				padded[j] = padID
			}

			copy(padded[fill:], row)
		}

		out[i] = padded
	}

	return out
}

// WordIDs returns the word slices of seqs.
func WordIDs(seqs []Sequence) [][]int {
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = s.Words
	}

	return out
}

// TagIDs returns the tag slices of seqs.
func TagIDs(seqs []Sequence) [][]int {
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = s.Tags
	}

	return out
}
