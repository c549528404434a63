package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/pkg/parser"
	"wton-stake/pkg/plan"
	"wton-stake/pkg/token"
	"wton-stake/pkg/types"
)

var minOut string

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap WETH for WTON through the Uniswap V3 router",
	Long: `Approve the router, quote and swap WETH for WTON.

The minimum output is the quote rounded down to whole WTON, or --min-out
when that is larger. ETH and TON are accepted as aliases of WETH and WTON.

Examples:
  wton-stake swap 1 WETH to WTON
  wton-stake swap 0.25 ETH to TON --min-out 100
  wton-stake swap 1 WETH to WTON --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&minOut, "min-out", "", "Minimum WTON to receive (default amounts.min_wton_out)")
}

func runSwap(cmd *cobra.Command, args []string) error {
	// Parse the command
	commandStr := strings.Join(args, " ")
	swapReq, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		return err
	}
	if err := parser.ValidateSwapRequest(swapReq); err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	weth, wton := a.cfg.Tokens.WETH, a.cfg.Tokens.WTON

	amountIn, err := weth.Parse(swapReq.Amount)
	if err != nil {
		return err
	}

	floor := a.executor.Settings().MinWtonOut
	if minOut != "" {
		if floor, err = wton.Parse(minOut); err != nil {
			return fmt.Errorf("invalid --min-out: %w", err)
		}
	}

	// Quote first so the user sees what they will get
	pool, quote, err := a.executor.QuoteSwap(ctx, amountIn)
	if err != nil {
		return err
	}

	if !jsonOutput {
		displayQuote(pool, quote, swapReq, plan.MinimumOut(quote.AmountOut, wton.Decimals, floor), wton)
	}

	// Ask for confirmation
	if err := confirm(cmd, "Proceed with swap?"); err != nil {
		return err
	}

	result, err := a.executor.Swap(ctx, amountIn, floor)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"source_amount": weth.Format(amountIn),
			"source_token":  weth.Symbol,
			"dest_amount":   wton.Format(result.Quote.AmountOut),
			"dest_token":    wton.Symbol,
			"min_out":       wton.Format(result.Params.AmountOutMinimum),
			"pool":          result.Pool.Address.Hex(),
			"tx_hash":       result.Receipt.TxHash.Hex(),
			"status":        "swapped",
		})
		return nil
	}

	color.Green("\n✓ Swap executed successfully!")
	printTx(a.cfg, result.Receipt.TxHash.Hex())

	if verbose {
		fmt.Printf("\nSwap details:\n")
		fmt.Printf("  Fee:        %s\n", result.Params.Fee)
		fmt.Printf("  Deadline:   %s\n", result.Params.Deadline)
		fmt.Printf("  Gas Used:   %d\n", result.Receipt.GasUsed)
		fmt.Printf("  Block:      %s\n", result.Receipt.BlockNumber)
	}

	fmt.Println("\nYou can check the transaction using:")
	color.Cyan("  wton-stake status %s\n", result.Receipt.TxHash.Hex())
	return nil
}

func displayQuote(pool *types.PoolInfo, quote *types.Quote, swapReq *types.SwapRequest, minimum *big.Int, wton token.Token) {
	printBanner("SWAP QUOTE", 60)

	fmt.Printf("\n  Pool:              %s\n", color.CyanString(pool.Address.Hex()))
	fmt.Printf("  From:              %s %s\n", swapReq.Amount, color.YellowString(swapReq.SourceToken))
	fmt.Printf("  To:                ~%s %s\n", wton.Format(quote.AmountOut), color.YellowString(swapReq.DestToken))
	fmt.Printf("  Minimum Received:  %s %s\n", wton.Format(minimum), wton.Symbol)
	fmt.Printf("  Fee Tier:          %s\n", pool.Fee)

	printFooter(60)
}
