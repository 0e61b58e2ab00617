package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pricelens/backend/internal/domain"
	"github.com/spf13/cobra"
)

const defaultIngredient = "garlic"

var (
	scrapeLoadAll bool
	scrapeRefresh bool
	scrapeJSON    bool
)

func init() {
	rootCmd.Flags().BoolVar(&scrapeLoadAll, "all", false, "Load and expand every listed product instead of the first few.")
	rootCmd.Flags().BoolVar(&scrapeRefresh, "refresh", false, "Ignore cached results and scrape again.")
	rootCmd.Flags().BoolVar(&scrapeJSON, "json", false, "Print the result as JSON.")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ingredient := defaultIngredient
	if len(args) > 0 {
		ingredient = args[0]
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ScrapeService.Scrape(cmd.Context(), &domain.ScrapeRequest{
		Ingredient:   ingredient,
		LoadAll:      scrapeLoadAll,
		ForceRefresh: scrapeRefresh,
	})
	if result != nil {
		if printErr := printResult(os.Stdout, result, scrapeJSON); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		if result != nil && errors.Is(err, domain.ErrStoreFailure) {
			return fmt.Errorf("best match found but not saved: %w", err)
		}
		return err
	}
	return nil
}

func printResult(w io.Writer, result *domain.ScrapeResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	best := result.Best
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (%s, %d candidates)", result.IngredientKey, result.Source, result.Candidates))
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Title", best.Title})
	t.AppendRow(table.Row{"Canonical name", best.Name.CanonicalName})
	t.AppendRow(table.Row{"Price", fmt.Sprintf("$%.2f", best.Price.CurrentPrice)})
	t.AppendRow(table.Row{"Size", best.SizeText})
	t.AppendRow(table.Row{"Price per unit", formatPerUnit(best.PricePerUnit)})
	if best.Deal != "" {
		t.AppendRow(table.Row{"Deal", best.Deal})
	}
	if len(best.Tags) > 0 {
		t.AppendRow(table.Row{"Tags", strings.Join(best.Tags, ", ")})
	}
	if best.Category != "" {
		t.AppendRow(table.Row{"Category", best.Category})
	}
	t.AppendRow(table.Row{"History updated", result.HistoryAdded})
	if result.Partial {
		t.AppendRow(table.Row{"Partial", "scrape stopped early"})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func formatPerUnit(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.4f", *v)
}
