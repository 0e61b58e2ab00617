package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pricelens/backend/internal/domain"
	"github.com/spf13/cobra"
)

var historyJSON bool

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the record as JSON.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <ingredient>",
	Short: "Prints the latest snapshot and price history of an ingredient.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		record, err := a.Store.GetRecord(cmd.Context(), domain.IngredientKey(args[0]))
		if err != nil {
			return err
		}
		return printRecord(os.Stdout, record, historyJSON)
	},
}

func printRecord(w io.Writer, record *domain.IngredientRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	title := record.IngredientKey
	if record.Latest.Title != nil {
		title = fmt.Sprintf("%s: %s", record.IngredientKey, *record.Latest.Title)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Observed", "Store", "Price", "Size", "Per unit"})
	for _, e := range record.PriceHistory {
		t.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Store,
			fmt.Sprintf("$%.2f", e.Price),
			e.Size,
			formatPerUnit(e.PricePerUnit),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Entries", len(record.PriceHistory)})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
