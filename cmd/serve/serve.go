// Package serve provides the serve command
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flower-explorer/vistool/internal/api"
	"github.com/flower-explorer/vistool/internal/app"
	"github.com/flower-explorer/vistool/internal/conf"
)

// Command creates the serve command, which runs the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		listen   string
		noIngest bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long:  "Serve starts the JSON API. An empty catalog is ingested from the data root first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				settings.WebServer.Listen = listen
			}
			return runServe(cmd, settings, !noIngest)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides webserver.listen")
	cmd.Flags().BoolVar(&noIngest, "no-ingest", false, "Disable POST /api/v1/ingest")
	return cmd
}

func runServe(cmd *cobra.Command, settings *conf.Settings, allowIngest bool) error {
	if !settings.WebServer.Enabled {
		return fmt.Errorf("webserver is disabled in configuration")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Bootstrap(ctx, cmd.OutOrStdout()); err != nil {
		return err
	}

	pipeline := a.Pipeline
	if !allowIngest {
		pipeline = nil
	}
	return api.NewServer(settings, a.Catalog, pipeline, a.Logger, a.Metrics).Run(ctx)
}
