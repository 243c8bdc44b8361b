// Command scheduler runs the production-scheduling engine: it loads a data
// bundle, builds the effective dependency graph, and runs one of the
// scheduling scenarios described in spec.md §4.
package main

import (
	"fmt"
	"os"

	"github.com/qlp-hq/production-scheduler/internal/config"
	"github.com/qlp-hq/production-scheduler/internal/logger"
)

func main() {
	config.LoadEnv()
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
