// Package dataset persists a prepared corpus: vocabularies, encoded
// sequences and the optional embedding matrix, plus a checksum manifest.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/example/go-seqprep/internal/encode"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vocab"
)

// FormatVersion is bumped on incompatible changes to Dataset.
const FormatVersion = 1

// MatrixInfo describes the embedding matrix written next to the dataset.
type MatrixInfo struct {
	Rows    int    `cbor:"rows" json:"rows"`
	Dim     int    `cbor:"dim" json:"dim"`
	DType   string `cbor:"dtype" json:"dtype"`
	Found   int    `cbor:"found" json:"found"`
	Missing int    `cbor:"missing" json:"missing"`
}

// Dataset is the content of dataset.cbor. Words and Tags are in ID order.
type Dataset struct {
	Version          int               `cbor:"version" json:"version"`
	ID               string            `cbor:"id" json:"id"`
	CreatedAt        time.Time         `cbor:"created_at" json:"created_at"`
	TokenizerOptions tokenizer.Options `cbor:"tokenizer" json:"tokenizer"`
	Words            []vocab.Entry     `cbor:"words" json:"words"`
	Tags             []vocab.Entry     `cbor:"tags" json:"tags"`
	Sequences        []encode.Sequence `cbor:"sequences" json:"sequences"`
	Matrix           *MatrixInfo       `cbor:"matrix,omitempty" json:"matrix,omitempty"`
	Padded           *Padded           `cbor:"padded,omitempty" json:"padded,omitempty"`
}

// Padded holds fixed-length copies of the sequences. WordPad is the
// embedding padding row; TagPad is one past the last tag ID.
type Padded struct {
	MaxLen  int     `cbor:"max_len" json:"max_len"`
	WordPad int     `cbor:"word_pad" json:"word_pad"`
	TagPad  int     `cbor:"tag_pad" json:"tag_pad"`
	Words   [][]int `cbor:"words" json:"words"`
	Tags    [][]int `cbor:"tags" json:"tags"`
}

// New returns a Dataset with a fresh random ID.
func New(words *tokenizer.WordTokenizer, tags *vocab.Mapping, seqs []encode.Sequence) *Dataset {
	return &Dataset{
		Version:          FormatVersion,
		ID:               uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
		TokenizerOptions: words.Options(),
		Words:            words.Index().Entries(),
		Tags:             tags.Entries(),
		Sequences:        seqs,
	}
}

// WordIndex rebuilds the word mapping.
func (d *Dataset) WordIndex() (*vocab.Mapping, error) {
	m, err := vocab.FromEntries(d.Words)
	if err != nil {
		return nil, fmt.Errorf("dataset word index: %w", err)
	}

	return m, nil
}

// TagIndex rebuilds the tag mapping.
func (d *Dataset) TagIndex() (*vocab.Mapping, error) {
	m, err := vocab.FromEntries(d.Tags)
	if err != nil {
		return nil, fmt.Errorf("dataset tag index: %w", err)
	}

	return m, nil
}

// Tokenizer returns a fitted tokenizer over the stored word index.
func (d *Dataset) Tokenizer() (*tokenizer.WordTokenizer, error) {
	words, err := d.WordIndex()
	if err != nil {
		return nil, err
	}

	return tokenizer.FromIndex(words, d.TokenizerOptions)
}

// Encoder returns an encoder over the stored vocabularies.
func (d *Dataset) Encoder() (*encode.Encoder, error) {
	tok, err := d.Tokenizer()
	if err != nil {
		return nil, err
	}

	tags, err := d.TagIndex()
	if err != nil {
		return nil, err
	}

	return encode.New(tok, tags), nil
}

// Pad fills d.Padded with every sequence padded or truncated to maxLen
// (the longest sequence when maxLen <= 0).
func (d *Dataset) Pad(maxLen int) {
	p := &Padded{WordPad: len(d.Words), TagPad: len(d.Tags)}
	p.Words = encode.Pad(encode.WordIDs(d.Sequences), maxLen, p.WordPad)
	p.Tags = encode.Pad(encode.TagIDs(d.Sequences), maxLen, p.TagPad)

	if len(p.Words) > 0 {
		p.MaxLen = len(p.Words[0])
	} else {
		p.MaxLen = max(maxLen, 0)
	}

	d.Padded = p
}

// Tokens returns the total number of encoded positions.
func (d *Dataset) Tokens() int {
	n := 0
	for _, s := range d.Sequences {
		n += s.Len()
	}

	return n
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}

	return em
}

// Encode writes d to w as CBOR.
func Encode(w io.Writer, d *Dataset) error {
	if err := encMode.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	return nil
}

// Decode reads a CBOR dataset from r.
func Decode(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := cbor.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	if d.Version != FormatVersion {
		return nil, fmt.Errorf("decode dataset: unsupported format version %d", d.Version)
	}

	return &d, nil
}

// WriteFile encodes d into path.
func WriteFile(path string, d *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := Encode(w, d); err != nil {
		f.Close()
		return err
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write dataset %s: %w", path, err)
	}

	return f.Close()
}

// ReadFile decodes the dataset at path.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	d, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}
