package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/dataset"
)

func newInspectCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "inspect DIR",
		Short: "Describe a prepared dataset directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := dataset.OpenBundle(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderBundle(out, b)

			if !verify {
				return nil
			}

			if err := b.Verify(); err != nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(out, "manifest ok (%d files)\n", len(b.Manifest.Files))

			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check file checksums against the manifest")

	return cmd
}

func renderBundle(w io.Writer, b *dataset.Bundle) {
	d := b.Dataset

	data := [][]string{
		{"Dataset:", d.ID},
		{"Created:", d.CreatedAt.Format(time.RFC3339)},
		{"Format:", strconv.Itoa(d.Version)},
		{"Sentences:", strconv.Itoa(len(d.Sequences))},
		{"Tokens:", strconv.Itoa(d.Tokens())},
		{"Words:", strconv.Itoa(len(d.Words))},
		{"Tags:", strconv.Itoa(len(d.Tags))},
		{"Lowercase:", strconv.FormatBool(d.TokenizerOptions.Lower)},
	}

	if m := d.Matrix; m != nil {
		data = append(data,
			[]string{"Embeddings:", fmt.Sprintf("%d x %d %s", m.Rows, m.Dim, m.DType)},
			[]string{"Coverage:", formatCount(m.Found, m.Found+m.Missing)},
			[]string{"Padding row:", strconv.Itoa(m.Rows - 1)},
		)
	} else {
		data = append(data, []string{"Embeddings:", "none"})
	}

	if p := d.Padded; p != nil {
		data = append(data, []string{"Padded:", fmt.Sprintf("%d x %d (word pad %d, tag pad %d)", len(p.Words), p.MaxLen, p.WordPad, p.TagPad)})
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")
	table.AppendBulk(data)
	table.Render()
}

// formatCount renders n/total as "n/total (p%)".
func formatCount(n, total int) string {
	if total == 0 {
		return fmt.Sprintf("%d/%d", n, total)
	}

	return fmt.Sprintf("%d/%d (%.1f%%)", n, total, 100*float64(n)/float64(total))
}
