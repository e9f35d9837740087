// Package corpus parses labeled-sequence text into sentences of token/tag
// pairs.
//
// The input format has one token per line, "<token> ... <tag>", and a blank
// line between sentences. All ASCII digits are collapsed to '0' and sentences
// starting with a "START" marker are dropped.
package corpus

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Sentinel marks a boundary record. A sentence whose first token
	// contains it is excluded from the corpus.
	Sentinel = "START"

	// SpacePlaceholder replaces a leading space so that a whitespace token
	// survives field splitting.
	SpacePlaceholder = "$"
)

// ErrMalformedLine is returned under ShortLineReject for a line that does not
// have separate token and tag fields.
var ErrMalformedLine = errors.New("malformed corpus line")

// LineError reports a rejected corpus line.
type LineError struct {
	Line int    // 1-based line number
	Text string // line after normalization
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("corpus line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Pair is one token and its tag.
type Pair struct {
	Token string `cbor:"token" json:"token"`
	Tag   string `cbor:"tag" json:"tag"`
}

// Sentence is a non-empty ordered sequence of pairs.
type Sentence []Pair

// Tokens returns the sentence tokens in order.
func (s Sentence) Tokens() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Token
	}

	return out
}

// Tags returns the sentence tags in order.
func (s Sentence) Tags() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Tag
	}

	return out
}

// Text joins the tokens with single spaces, the form a word tokenizer is
// fitted on.
func (s Sentence) Text() string {
	return strings.Join(s.Tokens(), " ")
}

// Corpus is an ordered list of sentences in file order.
type Corpus []Sentence

// Tokens returns the total number of pairs across all sentences.
func (c Corpus) Tokens() int {
	n := 0
	for _, s := range c {
		n += len(s)
	}

	return n
}

// Texts returns Sentence.Text for every sentence.
func (c Corpus) Texts() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Text()
	}

	return out
}

// NormalizeDigits replaces every ASCII digit with '0'.
func NormalizeDigits(s string) string {
	if strings.IndexFunc(s, isASCIIDigit) < 0 {
		return s
	}

	return strings.Map(func(r rune) rune {
		if isASCIIDigit(r) {
			return '0'
		}

		return r
	}, s)
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSentinel reports whether a completed sentence is a boundary record.
func isSentinel(s Sentence) bool {
	return len(s) > 0 && strings.Contains(s[0].Token, Sentinel)
}
