package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/ansfeed/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loaded data over a read-only HTTP API",
		Long: `Start an HTTP server exposing operators, their quarterly expenses and
expense statistics from the target database populated by 'ansfeed load'.

Endpoints:
  GET /healthz
  GET /api/operators?page=&limit=&q=
  GET /api/operators/{taxID}
  GET /api/operators/{taxID}/expenses
  GET /api/operators/{taxID}/statistics
  GET /api/statistics?top=`,
		Example: `  ansfeed serve --addr :9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			adp, err := cc.Connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = adp.Close() }()

			srv := api.NewServer(api.Config{
				Addr:              cc.Cfg.Server.Addr,
				ReadHeaderTimeout: cc.Cfg.Server.ReadHeaderTimeout,
				Adapter:           adp,
				Logger:            cc.Logger,
			})
			cc.Logger.Info("serving API", "addr", cc.Cfg.Server.Addr, "target", cc.Cfg.Target.Type)
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	return cmd
}
