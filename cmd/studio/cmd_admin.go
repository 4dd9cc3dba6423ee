package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/studio/app/services"
	"github.com/shashiranjanraj/studio/internal/kernel"
)

var (
	adminName     string
	adminEmail    string
	adminPassword string
)

// studio seed:admin
var seedAdminCmd = &cobra.Command{
	Use:   "seed:admin",
	Short: "Create an admin account, or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		return withApp(func(ctx context.Context, app *kernel.App) error {
			u, err := app.Auth.CreateAdmin(ctx, adminName, adminEmail, adminPassword)
			if err != nil {
				return err
			}
			fmt.Printf("admin ready: %s (%s)\n", u.Email, u.ID.Hex())
			return nil
		})
	},
}

var (
	importDir       string
	importEmail     string
	importCategory  string
	importPortfolio bool
	importFeatured  bool
)

// studio import
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import image files from a directory into the gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importDir == "" || importEmail == "" {
			return errors.New("--dir and --email are required")
		}
		return withApp(func(ctx context.Context, app *kernel.App) error {
			results, err := app.Import.ImportDir(ctx, importEmail, importDir, services.ImportInput{
				Category:    importCategory,
				InPortfolio: importPortfolio,
				Featured:    importFeatured,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "FILE\tIMAGE\tERROR")
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Source, r.ImageID, r.Error)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d imported, %d failed\n", len(results)-failed, failed)
			return nil
		})
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "display name")
	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "login email")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "login password (min 6 characters)")

	importCmd.Flags().StringVar(&importDir, "dir", "", "directory to scan (not recursive)")
	importCmd.Flags().StringVar(&importEmail, "email", "", "email of the owning user")
	importCmd.Flags().StringVar(&importCategory, "category", "", "category for every imported image")
	importCmd.Flags().BoolVar(&importPortfolio, "portfolio", false, "show the images in the portfolio")
	importCmd.Flags().BoolVar(&importFeatured, "featured", false, "mark the images as featured")
}

// withApp boots the application, runs fn and releases connections.
func withApp(fn func(ctx context.Context, app *kernel.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	app, err := kernel.Boot(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background()) //nolint:errcheck
	return fn(ctx, app)
}
