package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/pkg/plan"
	"wton-stake/pkg/token"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole wrap, swap, stake, mine and seigniorage sequence",
	Long: `Run every step against the configured node:

  1. Wrap ETH into WETH
  2. Approve the router, quote and swap WETH for WTON
  3. Approve the DepositManager and stake WTON against the layer2
  4. Mine blocks
  5. Impersonate the layer2 and call updateSeigniorage

Failures in the swap, stake and seigniorage phases are reported and the run
continues; a mining failure stops it. Every run is recorded and can be
inspected later with 'wton-stake runs view <id>'.

Examples:
  wton-stake run
  wton-stake run --yes --json`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Cancel on Ctrl+C; the current step finishes cleanly
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{journal: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !jsonOutput {
		displaySettings(a, a.executor.Settings())
	}

	run, err := a.executor.Run(ctx)
	if jsonOutput {
		printJSON(run)
	} else if run != nil {
		displayRunResult(run)
	}

	return runResultError(run, err)
}

// runExitCode is 0 for a completed run, 2 for a partial one and 1 when the
// run failed or could not start
func runExitCode(run *plan.Run, err error) int {
	if err != nil || run == nil {
		return 1
	}

	switch run.Status {
	case plan.RunCompleted:
		return 0
	case plan.RunPartial:
		return 2
	default:
		return 1
	}
}

func runResultError(run *plan.Run, err error) error {
	switch code := runExitCode(run, err); {
	case code == 0:
		return nil
	case err != nil:
		return err
	case run == nil:
		return fmt.Errorf("run did not start")
	default:
		return &exitError{code: code, err: fmt.Errorf("run %s finished with status %s", run.ID, run.Status)}
	}
}

func displaySettings(a *app, s plan.Settings) {
	weth, wton := a.cfg.Tokens.WETH, a.cfg.Tokens.WTON

	printBanner("WTON STAKE RUN", 70)
	fmt.Printf("\n  Account:        %s\n", color.CyanString(a.sender.Address().Hex()))
	fmt.Printf("  Chain ID:       %s\n", a.client.ChainID())
	fmt.Printf("  Wrap:           %s ETH\n", token.FormatUnits(s.EthToWrap, token.EtherDecimals))
	fmt.Printf("  Swap:           %s %s -> %s (fee %d)\n", weth.Format(s.WethToSwap), weth.Symbol, wton.Symbol, s.FeeTier)
	fmt.Printf("  Minimum out:    %s %s\n", wton.Format(s.MinWtonOut), wton.Symbol)
	fmt.Printf("  Stake:          %s %s\n", wton.Format(s.WtonToStake), wton.Symbol)
	if s.Layer2 == (common.Address{}) {
		fmt.Printf("  Layer2:         registry index %d\n", s.Layer2Index)
	} else {
		fmt.Printf("  Layer2:         %s\n", color.CyanString(s.Layer2.Hex()))
	}
	fmt.Printf("  Blocks to mine: %d\n", s.BlocksToMine)
	fmt.Printf("  Layer2 top-up:  %s ETH\n", token.FormatUnits(s.Layer2TopUp, token.EtherDecimals))
	printFooter(70)
}

func displayRunResult(run *plan.Run) {
	printBanner("RUN RESULT", 70)
	fmt.Printf("\n  Run ID:  %s\n", color.CyanString(run.ID))
	fmt.Printf("  Status:  %s\n", getRunStatusColor(run.Status))
	fmt.Printf("  Steps:   %d (%d failed)\n", len(run.Steps), len(run.FailedSteps()))

	if failed := run.FailedSteps(); len(failed) > 0 {
		color.Yellow("\n  Failed steps:")
		for _, s := range failed {
			fmt.Printf("    %s/%s: %s\n", s.Phase, s.Name, color.RedString(s.Error))
		}
	}
	if run.Status == plan.RunPartial {
		color.Yellow("\n  Some steps failed; on-chain state may not match the full sequence.")
	}

	fmt.Println("\nView the run again with:")
	color.Cyan("  wton-stake runs view %s", run.ID)
	printFooter(70)
}

func getRunStatusColor(status plan.RunStatus) string {
	switch status {
	case plan.RunCompleted:
		return color.GreenString(string(status))
	case plan.RunRunning:
		return color.CyanString(string(status))
	case plan.RunPartial:
		return color.YellowString(string(status))
	case plan.RunFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func getStepStatusColor(status plan.StepStatus) string {
	switch status {
	case plan.StepSucceeded:
		return color.GreenString(string(status))
	case plan.StepFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
