package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meshintel/repopipe/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past pipeline runs",
	Long: `History lists runs recorded with --history-db, newest first. Only run
outcomes are stored: repositories, row count, created/updated, commit SHA.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("db", "repopipe-history.db", "path of the history SQLite database")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no history database at %s", dbPath)
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPLETED\tACTION\tROWS\tSOURCE\tDESTINATION\tCOMMIT")
	for _, e := range entries {
		commit := e.CommitSHA
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.CompletedAt.Format("2006-01-02 15:04"), e.Action, e.Rows, e.Source, e.Destination, commit)
	}
	return w.Flush()
}
