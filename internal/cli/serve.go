package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depgraph/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dependency resolution over HTTP",
		Long: `Serve starts the HTTP API. GET /package/{name}/{version} returns the
dependency tree wrapped in {"message": ..., "payload": ...}. Scoped packages
are served at /package/@scope/name/version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv := server.New(c.newResolver(cfg), server.Options{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				CORSOrigins:  cfg.Server.CORSOrigins,
				Logger:       c.Logger,
			})
			c.Logger.Debug("registry", "url", cfg.Registry.URL, "concurrency", cfg.Resolve.Concurrency)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: :8080 or $PORT)")
	return cmd
}
