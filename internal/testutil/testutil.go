// Package testutil provides fixture writers and skip helpers shared by the
// package tests.
//
// Typical usage:
//
//	func TestPrepare(t *testing.T) {
//	    dir := t.TempDir()
//	    corpusPath := testutil.WriteCorpus(t, dir, testutil.ScenarioCorpus...)
//	    vecPath := testutil.WriteVectors(t, dir, map[string][]float32{"went": {1, 2}})
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// GloVeEnv names the environment variable pointing at a real vector file
// for large-input tests.
const GloVeEnv = "SEQPREP_TEST_VECTORS"

// ScenarioCorpus is the two-sentence corpus used across package tests.
var ScenarioCorpus = []string{"Bob B-PER", "went O", "", "A A-PER", "went O", ""}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write fixture %s: %v", path, err)
	}

	return path
}

// WriteCorpus writes lines as corpus.txt in dir.
func WriteCorpus(tb testing.TB, dir string, lines ...string) string {
	tb.Helper()

	return WriteFile(tb, dir, "corpus.txt", strings.Join(lines, "\n")+"\n")
}

// WriteVectors writes vecs as vectors.txt in dir, one token per line in
// sorted order.
func WriteVectors(tb testing.TB, dir string, vecs map[string][]float32) string {
	tb.Helper()

	tokens := make([]string, 0, len(vecs))
	for tok := range vecs {
		tokens = append(tokens, tok)
	}

	sort.Strings(tokens)

	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok)

		for _, v := range vecs[tok] {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}

		b.WriteByte('\n')
	}

	return WriteFile(tb, dir, "vectors.txt", b.String())
}

// RequireVectorFile skips the test unless GloVeEnv names an existing file,
// and returns that path.
func RequireVectorFile(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv(GloVeEnv)
	if p == "" {
		tb.Skipf("no vector file configured; set %s to run", GloVeEnv)
		return ""
	}

	if _, err := os.Stat(p); err != nil {
		tb.Skipf("vector file not found at %s=%q", GloVeEnv, p)
		return ""
	}

	return p
}
