package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/config"
	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/pipeline"
	"github.com/example/go-seqprep/internal/safetensors"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vectors"
)

func newPrepareCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build vocabularies, encode the corpus and export the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dtype, err := safetensors.ParseDType(cfg.Export.DType)
			if err != nil {
				return err
			}

			if outDir != "" {
				cfg.Paths.OutputDir = outDir
			}

			opts := pipelineOptions(cfg)

			var progress *uiprogress.Progress
			if cfg.Vectors.Progress && opts.VectorsPath != "" {
				progress = uiprogress.New()
				progress.SetOut(cmd.ErrOrStderr())
				progress.Start()

				opts.WrapVectors = func(r io.Reader, size int64) io.Reader {
					return newProgressReader(progress, r, size)
				}
			}

			res, err := pipeline.Run(cmd.Context(), opts)
			if progress != nil {
				progress.Stop()
			}

			if err != nil {
				return err
			}

			d := res.Dataset()
			if cfg.Export.MaxLen > 0 {
				d.Pad(cfg.Export.MaxLen)
			}

			manifest, err := dataset.WriteBundle(cfg.Paths.OutputDir, d, res.Matrix, dtype)
			if err != nil {
				return err
			}

			slog.Info("dataset written",
				slog.String("dir", cfg.Paths.OutputDir),
				slog.String("dataset_id", d.ID),
				slog.Int("files", len(manifest.Files)),
			)

			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintf(out, "prepared %d sentences (%d tokens): %d words, %d tags -> %s\n",
				len(res.Corpus), res.Corpus.Tokens(), res.Tokenizer.Index().Len(), res.Tags.Len(), cfg.Paths.OutputDir)

			if res.Matrix != nil {
				rows, dim := res.Matrix.Shape()
				_, _ = fmt.Fprintf(out, "embeddings: %d x %d %s, coverage %.1f%% (%d/%d)\n",
					rows, dim, dtype, 100*res.Coverage.Ratio(), res.Coverage.Found, res.Tokenizer.Index().Len())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides paths.output_dir)")

	return cmd
}

// pipelineOptions maps the loaded config onto pipeline options.
func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		CorpusPath:  cfg.Paths.Corpus,
		VectorsPath: cfg.Paths.Embeddings,
		Corpus:      corpus.Options{ShortLines: corpus.ShortLinePolicy(cfg.Corpus.ShortLines)},
		Tokenizer:   tokenizer.Options{Lower: cfg.Corpus.LowerWords},
		Vectors: vectors.Options{
			OnMismatch:   vectors.MismatchPolicy(cfg.Vectors.OnMismatch),
			DetectHeader: cfg.Vectors.DetectHeader,
		},
	}
}

// progressReader advances a progress bar by the bytes read through it.
type progressReader struct {
	r    io.Reader
	bar  *uiprogress.Bar
	read int
}

func newProgressReader(p *uiprogress.Progress, r io.Reader, size int64) *progressReader {
	bar := p.AddBar(int(size))
	bar.AppendCompleted()
	bar.PrependElapsed()

	return &progressReader{r: r, bar: bar}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += n
		_ = p.bar.Set(p.read)
	}

	return n, err
}
