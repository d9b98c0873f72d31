package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhinci/Morskoy-boy/session"
)

const dialTimeout = 10 * time.Second

// join <address>: dial a hosting opponent.
func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [address]",
		Short: "Join a match hosted at address (default 127.0.0.1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Address = args[0]
			}
			address, port := cfg.Address, cfg.Port
			start := func(ctx context.Context, s *session.Session) error {
				dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
				defer cancel()
				return s.Join(dialCtx, address, port)
			}
			return play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), start)
		},
	}
}
