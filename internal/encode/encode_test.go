package encode

import (
	"errors"
	"testing"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vocab"
)

func scenarioCorpus(t *testing.T) corpus.Corpus {
	t.Helper()

	c, err := corpus.Load([]string{"Bob B-PER", "went O", "", "A A-PER", "went O", ""}, corpus.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	return c
}

func fittedTokenizer(t *testing.T, c corpus.Corpus) *tokenizer.WordTokenizer {
	t.Helper()

	tok := tokenizer.NewWordTokenizer(tokenizer.Options{Lower: true})
	if err := tok.Fit(c.Texts()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	return tok
}

func TestCorpus_LengthsMatchSentences(t *testing.T) {
	c := scenarioCorpus(t)
	enc := New(fittedTokenizer(t, c), vocab.BuildTags(c))

	seqs, err := enc.Corpus(c)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}

	if len(seqs) != len(c) {
		t.Fatalf("got %d sequences, want %d", len(seqs), len(c))
	}

	for i, s := range c {
		if len(seqs[i].Words) != len(s) || len(seqs[i].Tags) != len(s) || seqs[i].Len() != len(s) {
			t.Errorf("sequence %d lengths words=%d tags=%d, sentence=%d",
				i, len(seqs[i].Words), len(seqs[i].Tags), len(s))
		}
	}
}

func TestCorpus_Scenario(t *testing.T) {
	c := scenarioCorpus(t)
	enc := New(fittedTokenizer(t, c), vocab.BuildTags(c))

	seqs, err := enc.Corpus(c)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}

	// words: went=0 (2x), then a, bob lowercased in lexicographic order.
	// tags: O=0, A-PER=1, B-PER=2.
	want := []Sequence{
		{Words: []int{2, 0}, Tags: []int{2, 0}},
		{Words: []int{1, 0}, Tags: []int{1, 0}},
	}

	for i := range want {
		if !equalInts(seqs[i].Words, want[i].Words) || !equalInts(seqs[i].Tags, want[i].Tags) {
			t.Errorf("seqs[%d] = %+v, want %+v", i, seqs[i], want[i])
		}
	}
}

func TestSentence_MissingTag(t *testing.T) {
	c := scenarioCorpus(t)
	enc := New(fittedTokenizer(t, c), vocab.BuildTags(c))

	_, err := enc.Sentence(corpus.Sentence{{Token: "Bob", Tag: "I-LOC"}})
	if !errors.Is(err, vocab.ErrKeyNotFound) {
		t.Fatalf("expected vocab.ErrKeyNotFound, got %v", err)
	}

	var encErr *Error
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *Error, got %T", err)
	}

	if encErr.Axis != AxisTag || encErr.Err.Item != "I-LOC" {
		t.Errorf("Error = %+v, want tag axis for I-LOC", encErr)
	}
}

func TestCorpus_MissingWordReportsSentence(t *testing.T) {
	train := scenarioCorpus(t)
	enc := New(fittedTokenizer(t, train), vocab.BuildTags(train))

	other := corpus.Corpus{
		{{Token: "went", Tag: "O"}},
		{{Token: "went", Tag: "O"}, {Token: "Alice", Tag: "B-PER"}},
	}

	_, err := enc.Corpus(other)

	var encErr *Error
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	if encErr.Sentence != 1 || encErr.Axis != AxisWord || encErr.Err.Position != 1 {
		t.Errorf("Error = sentence %d axis %s pos %d, want 1 word 1",
			encErr.Sentence, encErr.Axis, encErr.Err.Position)
	}
}

func TestCorpus_Empty(t *testing.T) {
	enc := New(vocab.Build(vocab.NewCounter()), vocab.Build(vocab.NewCounter()))

	seqs, err := enc.Corpus(nil)
	if err != nil {
		t.Fatalf("Corpus(nil): %v", err)
	}

	if len(seqs) != 0 {
		t.Errorf("got %d sequences, want 0", len(seqs))
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// --- Pad ---

func TestPad(t *testing.T) {
	ids := [][]int{{1, 2}, {3, 4, 5, 6}, {}}

	tests := []struct {
		name   string
		maxLen int
		want   [][]int
	}{
		{"pads front", 3, [][]int{{9, 1, 2}, {4, 5, 6}, {9, 9, 9}}},
		{"longest when zero", 0, [][]int{{9, 9, 1, 2}, {3, 4, 5, 6}, {9, 9, 9, 9}}},
		{"truncates front", 1, [][]int{{2}, {6}, {9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pad(ids, tt.maxLen, 9)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}

			for i := range got {
				if !equalInts(got[i], tt.want[i]) {
					t.Errorf("row %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}

	if !equalInts(ids[0], []int{1, 2}) {
		t.Errorf("input modified: %v", ids[0])
	}
}

func TestPad_ScenarioUsesPaddingRow(t *testing.T) {
	c := scenarioCorpus(t)
	tok := fittedTokenizer(t, c)

	seqs, err := New(tok, vocab.BuildTags(c)).Corpus(c)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}

	padID := tok.Index().Len()
	got := Pad(WordIDs(seqs), 3, padID)

	for i, row := range got {
		if row[0] != padID || !equalInts(row[1:], seqs[i].Words) {
			t.Errorf("row %d = %v, want [%d %v]", i, row, padID, seqs[i].Words)
		}
	}

	if tags := TagIDs(seqs); !equalInts(tags[1], seqs[1].Tags) {
		t.Errorf("TagIDs()[1] = %v, want %v", tags[1], seqs[1].Tags)
	}
}
