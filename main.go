package main

import (
	"fmt"
	"os"

	"github.com/flower-explorer/vistool/cmd"
	"github.com/flower-explorer/vistool/internal/conf"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
