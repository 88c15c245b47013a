package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orbitsec/spacerisk/internal/app"
)

// NewServeCmd boots the full API server in the foreground.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SpaceRisk API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			application, err := app.New(cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
	return cmd
}
