package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/model"
)

var (
	historyCategory string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear identification history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored identifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := history.Filter{Limit: historyLimit}
		if historyCategory != "" {
			filter.Category = model.ParseCategory(historyCategory)
		}
		recs, err := st.List(ctx, filter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored identifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
		return nil
	},
}

func openHistory(cmd *cobra.Command) (history.Store, error) {
	if err := cfg.Validate("history"); err != nil {
		return nil, err
	}
	return history.Open(cmd.Context(), history.Options{
		Driver:      cfg.History.Driver,
		DatabaseURL: cfg.History.DatabaseURL,
		MaxRecords:  cfg.History.MaxRecords,
	})
}

func init() {
	historyListCmd.Flags().StringVar(&historyCategory, "category", "", "only show this category")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to print")

	historyCmd.AddCommand(historyListCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
