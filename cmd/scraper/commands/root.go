package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scraper [ingredient]",
	Short: "scraper looks up the best storefront match for an ingredient and records its price.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScrape,

	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the CLI; errors are printed to stderr with exit status 1
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp loads configuration and wires the application
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}
