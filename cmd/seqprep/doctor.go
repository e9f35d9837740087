package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/doctor"
	"github.com/example/go-seqprep/internal/vectors"
)

func newDoctorCmd() *cobra.Command {
	var (
		datasetDir  string
		sampleLines int
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run input, output and dataset checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			result := doctor.Run(doctor.Config{
				CorpusPath:   cfg.Paths.Corpus,
				ShortLines:   corpus.ShortLinePolicy(cfg.Corpus.ShortLines),
				VectorsPath:  cfg.Paths.Embeddings,
				DetectHeader: cfg.Vectors.DetectHeader,
				OnMismatch:   vectors.MismatchPolicy(cfg.Vectors.OnMismatch),
				SampleLines:  sampleLines,
				OutputDir:    cfg.Paths.OutputDir,
				DatasetDir:   datasetDir,
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "Also open and verify a prepared dataset directory")
	cmd.Flags().IntVar(&sampleLines, "sample-lines", doctor.DefaultSampleLines, "Vector file lines to parse")

	return cmd
}
