package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gemgram/gemgram/internal/stats"
	"github.com/gemgram/gemgram/modules/store/sqlite"
	"github.com/gemgram/gemgram/pkg/app"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print operational counters from the stats store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			days, _ := cmd.Flags().GetInt("days")
			asJSON, _ := cmd.Flags().GetBool("json")

			if dbPath == "" {
				dbPath = filepath.Join(app.DefaultDataDir(), "stats.db")
			}
			// Opening would create an empty database; a read-only command
			// should not leave files behind.
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no stats database at %s (has the bot run yet?)", dbPath)
			}

			reader, db, err := sqlite.OpenCounterStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			totals, err := reader.Totals(ctx)
			if err != nil {
				return fmt.Errorf("reading totals: %w", err)
			}
			recent, err := reader.RecentDays(ctx, days)
			if err != nil {
				return fmt.Errorf("reading recent days: %w", err)
			}

			if asJSON {
				return printStatsJSON(totals, recent)
			}
			printStatsText(totals, recent)
			return nil
		},
	}
	cmd.Flags().String("db", "", "Stats database path (default: <data-dir>/stats.db)")
	cmd.Flags().Int("days", 7, "How many recent days to show")
	cmd.Flags().Bool("json", false, "Emit JSON instead of text")
	return cmd
}

func printStatsJSON(totals map[string]int64, recent []stats.DayCounters) error {
	out := struct {
		Totals map[string]int64    `json:"totals"`
		Days   []stats.DayCounters `json:"days"`
	}{Totals: totals, Days: recent}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printStatsText(totals map[string]int64, recent []stats.DayCounters) {
	if len(totals) == 0 {
		fmt.Println("No counters recorded.")
		return
	}

	fmt.Println("Totals:")
	for _, name := range sortedKeys(totals) {
		fmt.Printf("  %-22s %d\n", name, totals[name])
	}

	if len(recent) == 0 {
		return
	}
	fmt.Println("\nRecent days:")
	for _, day := range recent {
		fmt.Printf("  %s:\n", day.Day)
		for _, name := range sortedKeys(day.Counters) {
			fmt.Printf("    %-20s %d\n", name, day.Counters[name])
		}
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
