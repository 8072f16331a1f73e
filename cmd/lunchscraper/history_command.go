package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lunchscraper/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scrape runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				return showRun(cmd, store, id)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			writeRunTable(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-slot detail for one run id")
	return cmd
}

func writeRunTable(out io.Writer, runs []history.Run) {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.TargetDate,
			string(run.Status),
			strconv.Itoa(len(run.Slots)),
			strconv.Itoa(run.MenuFiles),
			yesNo(run.Notified),
			formatTimestamp(run.StartedAt),
			formatDuration(run.Duration()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Date", "Status", "Slots", "Menus", "Notified", "Started", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight},
	))
}

func showRun(cmd *cobra.Command, store *history.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	slots, err := store.SlotsForRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Date:       %s\n", run.TargetDate)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Menu files: %d\n", run.MenuFiles)
	fmt.Fprintf(out, "Notified:   %s\n", yesNo(run.Notified))
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
	}
	if len(slots) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, []string{
			slot.Slot,
			string(slot.Status),
			strconv.Itoa(slot.Restaurants),
			strconv.Itoa(slot.Menus),
			strconv.Itoa(slot.Skipped),
			formatDuration(slot.Duration),
			orDash(slot.ErrorMessage),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Slot", "Status", "Restaurants", "Menus", "Skipped", "Duration", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
