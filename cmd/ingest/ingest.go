// Package ingest provides the ingest command
package ingest

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flower-explorer/vistool/internal/app"
	"github.com/flower-explorer/vistool/internal/conf"
)

// Command creates the ingest command, which scans the data root and updates the catalog.
func Command(settings *conf.Settings) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scan the data root and update the catalog",
		Long: `Ingest walks <location>/<date>/<subsite>/<camera> folders below the data root, registers
flights, cameras and images, and applies camera position estimates. Running it again is safe:
existing rows are kept and only new paths and positions are merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				settings.Ingest.Workers = workers
			}
			return runIngest(cmd, settings)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel camera folder scanners (0 = one per CPU)")
	return cmd
}

func runIngest(cmd *cobra.Command, settings *conf.Settings) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(settings)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Store.Initialize(ctx); err != nil {
		return err
	}

	report, err := a.Pipeline.Run(ctx)
	if err != nil {
		return err
	}
	report.Print(cmd.OutOrStdout())
	return nil
}
