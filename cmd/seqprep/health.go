package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/go-seqprep/internal/server"
)

func newHealthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.Server.ListenAddr
			}

			if strings.HasPrefix(addr, ":") {
				addr = "127.0.0.1" + addr
			}

			if err := server.ProbeHTTP(addr); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")

			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP server address to probe")

	return cmd
}
