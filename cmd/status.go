package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/config"
	"wton-stake/pkg/client"
	"wton-stake/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a transaction",
	Long: `Check whether a transaction is pending, succeeded or reverted.

Examples:
  wton-stake status 0x1234...abcd
  wton-stake status 0x1234...abcd --watch
  wton-stake status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch until the transaction is mined")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid transaction hash: %s", args[0])
	}
	hash := common.BytesToHash(raw)

	if watchStatus {
		if jsonOutput {
			return fmt.Errorf("watch mode not supported with JSON output")
		}
		if watchInterval <= 0 {
			return fmt.Errorf("interval must be a positive number of seconds, got %d", watchInterval)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, cfg.RPCURL, client.Options{ReceiptTimeout: cfg.ReceiptTimeout}, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if watchStatus {
		return watchTxStatus(ctx, c, cfg, hash)
	}
	return checkTxStatus(ctx, c, cfg, hash, jsonOutput)
}

func checkTxStatus(ctx context.Context, c *client.EthClient, cfg *config.Config, hash common.Hash, jsonOutput bool) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	info, err := c.TransactionInfo(ctx, hash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(info)
	} else {
		displayStatus(cfg, info)
	}
	return nil
}

func watchTxStatus(ctx context.Context, c *client.EthClient, cfg *config.Config, hash common.Hash) error {
	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first, then until mined
	for {
		if checkAndDisplayStatus(ctx, c, cfg, hash) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// checkAndDisplayStatus reports whether the transaction has been mined
func checkAndDisplayStatus(ctx context.Context, c *client.EthClient, cfg *config.Config, hash common.Hash) bool {
	info, err := c.TransactionInfo(ctx, hash)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(cfg, info)
	return !info.Pending
}

func displayStatus(cfg *config.Config, info *types.TxInfo) {
	printBanner("TRANSACTION STATUS", 70)

	fmt.Printf("\n  Hash:            %s\n", color.CyanString(info.Hash))
	fmt.Printf("  Status:          %s\n", getColoredStatus(info))
	if info.From != "" {
		fmt.Printf("  From:            %s\n", info.From)
	}
	fmt.Printf("  To:              %s\n", info.To)
	fmt.Printf("  Nonce:           %d\n", info.Nonce)
	fmt.Printf("  Value (wei):     %s\n", info.Value)
	fmt.Printf("  Gas Limit:       %d\n", info.GasLimit)

	if !info.Pending {
		fmt.Printf("  Block:           %d\n", info.BlockNumber)
		fmt.Printf("  Gas Used:        %d\n", info.GasUsed)
	}

	fmt.Printf("  Explorer:        %s\n", color.HiBlackString(cfg.TxURL(info.Hash)))
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(info *types.TxInfo) string {
	switch {
	case info.Pending:
		return color.YellowString("PENDING")
	case info.Status != nil && *info.Status == 1:
		return color.GreenString("SUCCESS")
	case info.Status != nil:
		return color.RedString("REVERTED")
	default:
		return "UNKNOWN"
	}
}
