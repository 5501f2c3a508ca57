// Package cmd implements the catalog-proxy command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog-proxy",
	Short: "Caching, key-rotating proxy for the game catalog API",
	Long: `catalog-proxy fronts an external game-catalog REST API (and a
video-platform search API) with a durable response cache, rotation
across a pool of API keys, and per-attempt timeouts with bounded
retries. It serves the query surface a catalog-browsing front end
needs: popular games, platform/genre listings, search, game details,
screenshots, and video search.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
