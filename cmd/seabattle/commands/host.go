package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhinci/Morskoy-boy/session"
)

// host: wait for an opponent on --port.
func hostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Host a match and wait for an opponent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := cfg.Port
			start := func(ctx context.Context, s *session.Session) error {
				if err := s.Host(ctx, port); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Waiting for an opponent on port %d...\n", port)
				return nil
			}
			return play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), start)
		},
	}
}
