package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/studio/config"
	"github.com/shashiranjanraj/studio/internal/kernel"
	"github.com/shashiranjanraj/studio/internal/server"
	"github.com/shashiranjanraj/studio/pkg/logger"
)

// studio serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			if err := app.Close(closeCtx); err != nil {
				logger.Error("shutdown: release connections", "error", err)
			}
		}()

		addr := ":" + config.AppPort()
		logger.Info("server listening", "addr", addr, "env", config.AppEnv())
		return server.Run(ctx, addr, app.Handler())
	},
}

// studio route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := kernel.New(kernel.Options{Stores: kernel.MemoryStores()})
		infos := app.Router().Routes()

		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

// commandTimeout bounds one-shot maintenance commands.
const commandTimeout = 5 * time.Minute
