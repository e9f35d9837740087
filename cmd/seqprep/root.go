package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/config"
	"github.com/example/go-seqprep/internal/server"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "seqprep",
		Short:         "Prepare labeled sequence corpora for training",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			loaded, err = loaded.Normalize()
			if err != nil {
				return err
			}

			activeCfg = loaded
			setupLogger(loaded.LogLevel)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newPrepareCmd())
	cmd.AddCommand(newVocabCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// requireConfig returns the config loaded by PersistentPreRunE. Normalize
// always fills corpus.short_lines, so an empty value means nothing was loaded.
func requireConfig() (config.Config, error) {
	if activeCfg.Corpus.ShortLines == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}
