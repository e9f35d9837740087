package main

import (
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/pipeline"
	"github.com/example/go-seqprep/internal/vocab"
)

const (
	vocabWords = "words"
	vocabTags  = "tags"
)

func newVocabCmd() *cobra.Command {
	var (
		datasetDir string
		limit      int
	)

	cmd := &cobra.Command{
		Use:       "vocab [words|tags]",
		Short:     "Print the most frequent words or tags with their IDs",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{vocabWords, vocabTags},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			kind := vocabWords
			if len(args) == 1 {
				kind = args[0]
			}

			var words, tags []vocab.Entry

			if datasetDir != "" {
				d, err := dataset.ReadFile(filepath.Join(datasetDir, dataset.DatasetFile))
				if err != nil {
					return err
				}

				words, tags = d.Words, d.Tags
			} else {
				opts := pipelineOptions(cfg)
				opts.VectorsPath = ""

				res, err := pipeline.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}

				words, tags = res.Tokenizer.Index().Entries(), res.Tags.Entries()
			}

			entries := words
			if kind == vocabTags {
				entries = tags
			}

			renderEntries(cmd.OutOrStdout(), entries, limit)

			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "Read the vocabulary from a prepared dataset directory")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to print (0 prints all)")

	return cmd
}

func renderEntries(w io.Writer, entries []vocab.Entry, limit int) {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	data := make([][]string, 0, len(entries))
	for id, e := range entries {
		data = append(data, []string{strconv.Itoa(id), e.Item, strconv.Itoa(e.Count)})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "ITEM", "COUNT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
