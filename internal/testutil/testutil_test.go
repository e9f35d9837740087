package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-seqprep/internal/testutil"
)

func TestWriteVectors_SortedLines(t *testing.T) {
	path := testutil.WriteVectors(t, t.TempDir(), map[string][]float32{
		"the": {0.1, 0.2},
		"cat": {-1, 2.5},
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	want := "cat -1 2.5\nthe 0.1 0.2\n"
	if string(data) != want {
		t.Fatalf("vectors file = %q, want %q", data, want)
	}
}

func TestWriteCorpus(t *testing.T) {
	path := testutil.WriteCorpus(t, t.TempDir(), testutil.ScenarioCorpus...)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if !strings.HasPrefix(string(data), "Bob B-PER\nwent O\n\n") {
		t.Fatalf("corpus file = %q", data)
	}

	if filepath.Base(path) != "corpus.txt" {
		t.Errorf("path = %q", path)
	}
}

func TestRequireVectorFile_SkipsWhenUnset(t *testing.T) {
	t.Setenv(testutil.GloVeEnv, "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireVectorFile(fakeT)

	if !skipped {
		t.Error("expected RequireVectorFile to skip when the variable is empty")
	}
}

func TestRequireVectorFile_SkipsWhenMissing(t *testing.T) {
	t.Setenv(testutil.GloVeEnv, filepath.Join(t.TempDir(), "missing.txt"))

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireVectorFile(fakeT)

	if !skipped {
		t.Error("expected RequireVectorFile to skip when the file is absent")
	}
}

func TestRequireVectorFile_ReturnsPath(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "v.txt", "a 1\n")
	t.Setenv(testutil.GloVeEnv, path)

	if got := testutil.RequireVectorFile(t); got != path {
		t.Errorf("RequireVectorFile() = %q, want %q", got, path)
	}
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip calls.
type skipTracker struct {
	testing.TB
	onSkip func()
}

func (s *skipTracker) Helper() {}

func (s *skipTracker) Skipf(_ string, _ ...any) {
	s.onSkip()
	// Do NOT call s.TB.Skip: that would actually skip the outer test.
}
