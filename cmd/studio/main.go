// Command studio runs the photography studio API and its maintenance tasks.
//
//	studio serve                  # start the HTTP server
//	studio route:list             # list API routes
//	studio seed:admin --email a@b.c --password secret1
//	studio import --dir ./shoot --email a@b.c --category wedding
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "studio",
	Short:         "Photography studio backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(importCmd)
}
