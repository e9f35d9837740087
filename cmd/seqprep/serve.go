package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/server"
)

func newServeCmd() *cobra.Command {
	var datasetDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a prepared dataset over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if datasetDir == "" {
				datasetDir = cfg.Paths.OutputDir
			}

			b, err := dataset.OpenBundle(datasetDir)
			if err != nil {
				return err
			}

			model, err := server.NewModel(b)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, model).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "Dataset directory (defaults to paths.output_dir)")

	return cmd
}
