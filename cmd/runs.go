package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/config"
	"wton-stake/pkg/plan"
)

var (
	runStatusFilter string
	forceDelete     bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long: `Every 'wton-stake run' is recorded with the outcome of each step.

Examples:
  wton-stake runs list
  wton-stake runs view 3f2a
  wton-stake runs view latest
  wton-stake runs delete 3f2a`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsViewCmd = &cobra.Command{
	Use:   "view <id|latest>",
	Short: "Show every step of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsView,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsViewCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsListCmd.Flags().StringVar(&runStatusFilter, "status", "", "Filter by status (running, completed, partial, failed)")
	runsDeleteCmd.Flags().BoolVar(&forceDelete, "force", false, "Delete a run that is still marked running")
}

func openJournal() (*plan.Manager, error) {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Create run manager
	return plan.NewManager(cfg.PlanStoragePath)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	manager, err := openJournal()
	if err != nil {
		return err
	}

	var runs []*plan.Run
	for _, r := range manager.ListRuns() {
		if runStatusFilter == "" || string(r.Status) == runStatusFilter {
			runs = append(runs, r)
		}
	}

	if jsonOutput {
		summaries := make([]*plan.RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = r.ToSummary()
		}
		printJSON(summaries)
		return nil
	}

	fmt.Println(journalInfo(manager))

	if len(runs) == 0 {
		color.Yellow("No runs found.\n")
		fmt.Println("\nStart one with:")
		color.Cyan("  wton-stake run\n")
		return nil
	}

	printBanner("RUNS", 110)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nID\tSTARTED\tSTATUS\tSTEPS\tFAILED\tACCOUNT")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Started.Format("2006-01-02 15:04:05"), getRunStatusColor(r.Status),
			len(r.Steps), len(r.FailedSteps()), r.Account)
	}

	w.Flush()
	printFooter(110)
	return nil
}

// journalInfo names the journal file and how many runs it holds
func journalInfo(manager *plan.Manager) string {
	storage := manager.GetStorage()
	return fmt.Sprintf("\nJournal: %s (%d runs recorded)", storage.GetFilePath(), storage.Count())
}

func runRunsView(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	manager, err := openJournal()
	if err != nil {
		return err
	}

	var run *plan.Run
	if args[0] == "latest" {
		run, err = manager.LatestRun()
	} else {
		run, err = manager.GetRun(args[0])
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(run)
		return nil
	}

	printBanner("RUN DETAILS", 70)

	fmt.Printf("\n  ID:                %s\n", color.CyanString(run.ID))
	fmt.Printf("  Status:            %s\n", getRunStatusColor(run.Status))
	fmt.Printf("  Started:           %s\n", run.Started.Format("2006-01-02 15:04:05"))
	if run.Finished != nil {
		fmt.Printf("  Finished:          %s (%s)\n", run.Finished.Format("2006-01-02 15:04:05"),
			run.Finished.Sub(run.Started).Round(time.Millisecond))
	}
	fmt.Printf("  Chain ID:          %d\n", run.ChainID)
	fmt.Printf("  Account:           %s\n", run.Account)
	if run.Layer2 != "" {
		fmt.Printf("  Layer2:            %s\n", run.Layer2)
	}

	var phase plan.Phase
	for _, s := range run.Steps {
		if s.Phase != phase {
			phase = s.Phase
			color.Cyan("\n  %s", phaseTitle(phase))
		}

		fmt.Printf("    [%s] %-24s %s\n", s.Timestamp.Format("15:04:05"), s.Name, getStepStatusColor(s.Status))
		if s.Detail != "" {
			fmt.Printf("      %s\n", s.Detail)
		}
		if s.TxHash != "" {
			fmt.Printf("      Tx:    %s\n", color.CyanString(s.TxHash))
		}
		if s.Error != "" {
			fmt.Printf("      Error: %s\n", color.RedString(s.Error))
		}
	}

	printFooter(70)
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	manager, err := openJournal()
	if err != nil {
		return err
	}

	run, err := manager.GetRun(args[0])
	if err != nil {
		return err
	}

	if err := confirm(cmd, fmt.Sprintf("Delete run %s?", run.ID)); err != nil {
		return err
	}

	if err := manager.DeleteRun(run.ID, forceDelete); err != nil {
		return err
	}

	color.Green("\n✓ Run '%s' has been deleted.\n", run.ID)
	return nil
}
