// Package pipeline runs the preparation stages end to end: load the corpus
// and the pretrained vectors, build vocabularies, encode and assemble the
// embedding matrix.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/embedding"
	"github.com/example/go-seqprep/internal/encode"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vectors"
	"github.com/example/go-seqprep/internal/vocab"
)

// Options configures Run. VectorsPath may be empty, in which case no matrix
// is assembled.
type Options struct {
	CorpusPath  string
	VectorsPath string

	Corpus    corpus.Options
	Tokenizer tokenizer.Options
	Vectors   vectors.Options

	// WrapVectors, if set, wraps the vector file reader, e.g. for progress
	// reporting. size is the file size in bytes.
	WrapVectors func(r io.Reader, size int64) io.Reader

	Logger *slog.Logger
}

// Result holds every intermediate product of a run.
type Result struct {
	Corpus      corpus.Corpus
	CorpusStats corpus.Stats
	Tokenizer   *tokenizer.WordTokenizer
	Tags        *vocab.Mapping
	Sequences   []encode.Sequence

	Vectors  *vectors.Table
	Matrix   *embedding.Matrix
	Coverage embedding.Coverage

	Duration time.Duration
}

// Run executes the pipeline. The two input files are read concurrently.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.CorpusPath == "" {
		return nil, errors.New("pipeline: corpus path is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	if opts.Corpus.Logger == nil {
		opts.Corpus.Logger = log
	}

	if opts.Vectors.Logger == nil {
		opts.Vectors.Logger = log
	}

	start := time.Now()
	res := &Result{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, stats, err := loadCorpus(gctx, opts.CorpusPath, opts.Corpus)
		if err != nil {
			return err
		}

		res.Corpus, res.CorpusStats = c, stats

		return nil
	})

	if opts.VectorsPath != "" {
		g.Go(func() error {
			t, err := loadVectors(gctx, opts.VectorsPath, opts.Vectors, opts.WrapVectors)
			if err != nil {
				return err
			}

			res.Vectors = t

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Tags = vocab.BuildTags(res.Corpus)

	res.Tokenizer = tokenizer.NewWordTokenizer(opts.Tokenizer)
	if err := res.Tokenizer.Fit(res.Corpus.Texts()); err != nil {
		return nil, fmt.Errorf("fit tokenizer: %w", err)
	}

	seqs, err := encode.New(res.Tokenizer, res.Tags).Corpus(res.Corpus)
	if err != nil {
		return nil, err
	}

	res.Sequences = seqs

	if res.Vectors != nil {
		res.Matrix, res.Coverage = embedding.Assemble(res.Tokenizer.Index(), res.Vectors)
	}

	res.Duration = time.Since(start)

	log.Info("pipeline finished",
		slog.Int("sentences", len(res.Corpus)),
		slog.Int("tokens", res.Corpus.Tokens()),
		slog.Int("filtered", res.CorpusStats.Filtered),
		slog.Int("words", res.Tokenizer.Index().Len()),
		slog.Int("tags", res.Tags.Len()),
		slog.Int("covered", res.Coverage.Found),
		slog.Int64("duration_ms", res.Duration.Milliseconds()),
	)

	return res, nil
}

// Dataset packages the result for export.
func (r *Result) Dataset() *dataset.Dataset {
	d := dataset.New(r.Tokenizer, r.Tags, r.Sequences)
	if r.Matrix != nil {
		d.Matrix = &dataset.MatrixInfo{
			Rows:    r.Matrix.Rows(),
			Dim:     r.Matrix.Dim(),
			Found:   r.Coverage.Found,
			Missing: len(r.Coverage.Missing),
		}
	}

	return d
}

func loadCorpus(ctx context.Context, path string, opts corpus.Options) (corpus.Corpus, corpus.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, corpus.Stats{}, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	l := corpus.NewLoader(opts)
	if err := l.Consume(&ctxReader{ctx: ctx, r: f}); err != nil {
		return nil, corpus.Stats{}, fmt.Errorf("%s: %w", path, err)
	}

	c := l.Finish()

	return c, l.Stats(), nil
}

func loadVectors(ctx context.Context, path string, opts vectors.Options, wrap func(io.Reader, int64) io.Reader) (*vectors.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = &ctxReader{ctx: ctx, r: f}

	if wrap != nil {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat vectors %s: %w", path, err)
		}

		r = wrap(r, info.Size())
	}

	t, err := vectors.Parse(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
