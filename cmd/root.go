package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wton-stake/config"
	"wton-stake/pkg/logging"
)

// errCancelled is returned when a confirmation prompt is declined
var errCancelled = errors.New("cancelled by user")

var (
	configFile string
	logger     = zap.NewNop()

	stdin       io.Reader = os.Stdin
	interactive           = func() bool {
		fd := os.Stdin.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

var rootCmd = &cobra.Command{
	Use:   "wton-stake",
	Short: "Swap ETH for WTON and stake it against a layer2 on a local fork",
	Long: `wton-stake drives a local Hardhat or Anvil fork of Ethereum mainnet through
the Tokamak staking flow: wrap ETH into WETH, swap WETH for WTON on Uniswap V3,
stake the WTON against a layer2 with the DepositManager, mine blocks and
accrue seigniorage by impersonating the layer2.

Examples:
  wton-stake run
  wton-stake swap 1 WETH to WTON
  wton-stake deposit 500
  wton-stake mine 10
  wton-stake seigniorage
  wton-stake runs list`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			config.SetConfigFile(configFile)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		l, err := logging.New(verbose, jsonOutput)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// exitError carries a process exit code other than 1
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command. Commands return their errors instead of
// exiting so deferred cleanup and the final log flush always happen.
func Execute() error {
	err := rootCmd.Execute()
	_ = logger.Sync()
	return err
}

// ExitCode maps the error returned by Execute to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is $HOME/.wton-stake.yaml)")
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printBanner(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	color.Green("%s%s", strings.Repeat(" ", pad), title)
	fmt.Println(strings.Repeat("=", width))
}

func printFooter(width int) {
	fmt.Println("\n" + strings.Repeat("=", width) + "\n")
}

func printTx(cfg *config.Config, hash string) {
	if hash == "" {
		return
	}
	fmt.Printf("  Transaction: %s\n", color.CyanString(hash))
	fmt.Printf("  Explorer:    %s\n", color.HiBlackString(cfg.TxURL(hash)))
}

// confirm asks a yes/no question unless --yes or --json was given. It
// returns errCancelled when the answer is not yes, and refuses to guess
// when stdin is not a terminal.
func confirm(cmd *cobra.Command, prompt string) error {
	skip, _ := cmd.Flags().GetBool("yes")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if skip || jsonOutput {
		return nil
	}

	if !interactive() {
		return fmt.Errorf("%s needs confirmation but stdin is not a terminal, pass --yes", cmd.Name())
	}

	reader := bufio.NewReader(stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return errCancelled
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response == "y" || response == "yes" {
		return nil
	}
	return errCancelled
}
