// Package doctor provides preflight checks for seqprep inputs and outputs.
package doctor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/vectors"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// DefaultSampleLines is the number of vector lines parsed when SampleLines is 0.
const DefaultSampleLines = 100

// Config holds the inputs for each doctor check. Empty paths skip the
// corresponding check, except CorpusPath which is required.
type Config struct {
	CorpusPath string
	ShortLines corpus.ShortLinePolicy

	// VectorsPath is sampled, not parsed in full.
	VectorsPath  string
	DetectHeader bool
	OnMismatch   vectors.MismatchPolicy
	SampleLines  int

	OutputDir string

	// DatasetDir, if set, is opened and checked against its manifest.
	DatasetDir string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(w io.Writer, check string, err error) {
	r.failures = append(r.failures, fmt.Sprintf("%s: %v", check, err))
	fmt.Fprintf(w, "%s %s: %v\n", FailMark, check, err)
}

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- corpus -----------------------------------------------------------
	if cfg.CorpusPath == "" {
		res.fail(w, "corpus", errors.New("no corpus path configured"))
	} else if c, err := corpus.ReadFile(cfg.CorpusPath, corpus.Options{ShortLines: cfg.ShortLines}); err != nil {
		res.fail(w, "corpus", err)
	} else if len(c) == 0 {
		res.fail(w, "corpus", fmt.Errorf("%s contains no sentences", cfg.CorpusPath))
	} else {
		fmt.Fprintf(w, "%s corpus: %s (%d sentences, %d tokens)\n", PassMark, cfg.CorpusPath, len(c), c.Tokens())
	}

	// ---- vectors ----------------------------------------------------------
	if cfg.VectorsPath == "" {
		fmt.Fprintf(w, "%s vectors: skipped (no path)\n", PassMark)
	} else if tab, err := sampleVectors(cfg.VectorsPath, cfg.SampleLines, vectors.Options{
		OnMismatch:   cfg.OnMismatch,
		DetectHeader: cfg.DetectHeader,
	}); err != nil {
		res.fail(w, "vectors", err)
	} else if tab.Len() == 0 {
		fmt.Fprintf(w, "%s vectors: %s (empty, matrix will have 0 columns)\n", PassMark, cfg.VectorsPath)
	} else {
		fmt.Fprintf(w, "%s vectors: %s (dim %d, %d sampled, %d skipped)\n",
			PassMark, cfg.VectorsPath, tab.Dim(), tab.Len(), tab.Skipped())
	}

	// ---- output directory -------------------------------------------------
	if cfg.OutputDir == "" {
		fmt.Fprintf(w, "%s output dir: skipped (no path)\n", PassMark)
	} else if err := checkWritable(cfg.OutputDir); err != nil {
		res.fail(w, "output dir", err)
	} else {
		fmt.Fprintf(w, "%s output dir: %s\n", PassMark, cfg.OutputDir)
	}

	// ---- dataset ----------------------------------------------------------
	if cfg.DatasetDir != "" {
		if err := checkDataset(cfg.DatasetDir); err != nil {
			res.fail(w, "dataset", err)
		} else {
			fmt.Fprintf(w, "%s dataset: %s\n", PassMark, cfg.DatasetDir)
		}
	}

	return res
}

// sampleVectors parses the first lines of a vector file with the same
// options the pipeline uses.
func sampleVectors(path string, lines int, opts vectors.Options) (*vectors.Table, error) {
	if lines <= 0 {
		lines = DefaultSampleLines
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sample strings.Builder

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for i := 0; i < lines && sc.Scan(); i++ {
		sample.WriteString(sc.Text())
		sample.WriteByte('\n')
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	return vectors.Parse(strings.NewReader(sample.String()), opts)
}

// checkWritable creates dir if needed and writes a probe file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".seqprep-doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}

	name := f.Name()
	_ = f.Close()

	return os.Remove(name)
}

func checkDataset(dir string) error {
	b, err := dataset.OpenBundle(dir)
	if err != nil {
		return err
	}

	return b.Verify()
}
