package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lunchscraper/internal/jobrun"
	"lunchscraper/internal/scraper"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	var slotFlags []string
	var continueOnError bool
	var runPreflight bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape restaurants and menus for every configured slot",
		Long: "Run walks each configured time slot in order: discover available restaurants,\n" +
			"append them to the daily listing, then fetch and store each restaurant's menu.\n" +
			"A completion notification is sent once all slots finish.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			summary, runErr := jobrun.Run(cmd.Context(), cfg, jobrun.Options{
				LogLevel:        ctx.resolvedLogLevel(),
				Date:            dateFlag,
				Slots:           slotFlags,
				ContinueOnError: continueOnError,
				Preflight:       runPreflight,
				Now:             ctx.now,
				Console:         ctx.consoleOutputs(),
			})
			if !quiet && len(summary.Slots) > 0 {
				writeRunSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Target date (YYYY-MM-DD); defaults to tomorrow")
	cmd.Flags().StringArrayVarP(&slotFlags, "slot", "s", nil, "Limit the run to these HH:MM slots (repeatable)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep processing later slots after a slot fails")
	cmd.Flags().BoolVar(&runPreflight, "preflight", false, "Run readiness checks before scraping and abort if any fail")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip the summary table")
	return cmd
}

func writeRunSummary(out io.Writer, summary scraper.RunSummary) {
	rows := make([][]string, 0, len(summary.Slots))
	for _, slot := range summary.Slots {
		rows = append(rows, []string{
			slot.Slot.String(),
			string(slot.Status()),
			strconv.Itoa(slot.Restaurants),
			strconv.Itoa(slot.MenusWritten),
			strconv.Itoa(slot.Skipped),
			formatDuration(slot.Duration),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Slot", "Status", "Restaurants", "Menus", "Skipped", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Date: %s  Status: %s  Menu files: %d  Notified: %s\n",
		summary.Date, summary.Status, summary.MenuFiles, yesNo(summary.Notified))
	if failed := summary.FailedSlots(); len(failed) > 0 {
		fmt.Fprintf(out, "Failed slots: %s\n", strings.Join(failed, ", "))
	}
}
