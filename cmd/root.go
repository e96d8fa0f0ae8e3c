// Package cmd assembles the vistool command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flower-explorer/vistool/cmd/catalog"
	"github.com/flower-explorer/vistool/cmd/config"
	"github.com/flower-explorer/vistool/cmd/ingest"
	"github.com/flower-explorer/vistool/cmd/serve"
	"github.com/flower-explorer/vistool/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "vistool",
		Short:        "Drone imagery catalog for flower surveys",
		Version:      settings.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default searches the standard locations)")
	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		ingest.Command(settings),
		serve.Command(settings),
		catalog.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var (
			loaded *conf.Settings
			err    error
		)
		// Flags are bound to viper, so both paths see command line values over file values
		if configFile != "" {
			loaded, err = conf.LoadFile(configFile)
		} else {
			loaded, err = conf.Reload()
		}
		if err != nil {
			return err
		}
		loaded.Version = settings.Version
		*settings = *loaded
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Data.Path, "data", viper.GetString("data.path"), "Data root holding <location>/<date>/<subsite>/<camera> folders")
	flags.StringVar(&settings.Catalog.SQLite.Path, "catalog", viper.GetString("catalog.sqlite.path"), "Path to the SQLite catalog file")

	bindings := map[string]string{
		"debug":               "debug",
		"data.path":           "data",
		"catalog.sqlite.path": "catalog",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
