package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magtheo/Differ-sub000/internal/journal"
)

var (
	journalLimit int
	journalBatch string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recently committed files",
	Long: `List the files written by apply, newest first.

The journal is off unless [journal] enabled = true is set in the config file
or DIFFER_JOURNAL names a database path.`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of entries to show")
	journalCmd.Flags().StringVar(&journalBatch, "batch", "", "Show only this batch id")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	j, err := e.journal()
	if err != nil {
		return err
	}
	if j == nil {
		return errors.New("journal is disabled")
	}
	defer j.Close()

	var entries []journal.Entry
	if journalBatch != "" {
		entries, err = j.Batch(journalBatch)
	} else {
		entries, err = j.Recent(journalLimit)
	}
	if err != nil {
		return err
	}
	for _, en := range entries {
		fmt.Fprintf(e.out, "%s  %s  %-6s %s (%d)\n",
			en.Created.Local().Format("2006-01-02 15:04:05"), shortID(en.Batch), en.Op, en.File, en.Requests)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
