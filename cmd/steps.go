package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/pkg/token"
)

var wrapCmd = &cobra.Command{
	Use:   "wrap [amount]",
	Short: "Wrap ETH into WETH",
	Long: `Wrap ETH into WETH. Defaults to amounts.eth_to_wrap.

Examples:
  wton-stake wrap
  wton-stake wrap 2.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWrap,
}

var quoteCmd = &cobra.Command{
	Use:   "quote [amount]",
	Short: "Quote swapping WETH for WTON without sending a transaction",
	Long: `Find the WETH/WTON pool and quote an exact input swap through it.
Defaults to amounts.weth_to_swap.

Examples:
  wton-stake quote
  wton-stake quote 0.5 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuote,
}

var depositCmd = &cobra.Command{
	Use:   "deposit [amount]",
	Short: "Stake WTON against the layer2",
	Long: `Approve the DepositManager and stake WTON against the configured layer2.
Defaults to amounts.wton_to_stake.

Examples:
  wton-stake deposit
  wton-stake deposit 500`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeposit,
}

var mineCmd = &cobra.Command{
	Use:   "mine [blocks]",
	Short: "Mine blocks on the dev node",
	Long: `Mine blocks on the Hardhat or Anvil node. Defaults to blocks_to_mine.

Examples:
  wton-stake mine
  wton-stake mine 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMine,
}

var seigniorageCmd = &cobra.Command{
	Use:   "seigniorage",
	Short: "Impersonate the layer2 and call updateSeigniorage",
	Long: `Top up the layer2's ETH balance, impersonate it on the dev node and call
SeigManager.updateSeigniorage from it. Impersonation is stopped afterwards.`,
	Args: cobra.NoArgs,
	RunE: runSeigniorage,
}

func init() {
	rootCmd.AddCommand(wrapCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(seigniorageCmd)
}

// amountArg parses args[0] in units of decimals, or returns fallback
func amountArg(args []string, decimals uint8, fallback *big.Int) (*big.Int, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	return token.ParseUnits(args[0], decimals)
}

func printJSON(v interface{}) {
	output, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(output))
}

func runWrap(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	amount, err := amountArg(args, token.EtherDecimals, a.executor.Settings().EthToWrap)
	if err != nil {
		return err
	}

	receipt, err := a.executor.Wrap(ctx, amount)
	if err != nil {
		return err
	}

	if jsonOutput {
		result := map[string]interface{}{
			"amount": token.FormatUnits(amount, token.EtherDecimals),
		}
		if receipt != nil {
			result["tx_hash"] = receipt.TxHash.Hex()
		}
		printJSON(result)
		return nil
	}

	printSuccess(color.GreenString("✓ Wrapped %s ETH", token.FormatUnits(amount, token.EtherDecimals)))
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	weth, wton := a.cfg.Tokens.WETH, a.cfg.Tokens.WTON
	amount, err := amountArg(args, weth.Decimals, a.executor.Settings().WethToSwap)
	if err != nil {
		return err
	}

	pool, quote, err := a.executor.QuoteSwap(ctx, amount)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"pool":       pool,
			"quote":      quote,
			"amount_in":  weth.Format(amount),
			"amount_out": wton.Format(quote.AmountOut),
		})
		return nil
	}

	printBanner("SWAP QUOTE", 60)
	fmt.Printf("\n  Pool:              %s\n", color.CyanString(pool.Address.Hex()))
	fmt.Printf("  Fee:               %s\n", pool.Fee)
	fmt.Printf("  From:              %s %s\n", weth.Format(amount), color.YellowString(weth.Symbol))
	fmt.Printf("  To:                ~%s %s\n", wton.Format(quote.AmountOut), color.YellowString(wton.Symbol))
	fmt.Printf("  Ticks Crossed:     %d\n", quote.InitializedTicksCrossed)
	fmt.Printf("  Gas Estimate:      %s\n", quote.GasEstimate)
	printFooter(60)
	return nil
}

func runDeposit(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	wton := a.cfg.Tokens.WTON
	amount, err := amountArg(args, wton.Decimals, a.executor.Settings().WtonToStake)
	if err != nil {
		return err
	}

	if err := confirm(cmd, fmt.Sprintf("Stake %s %s?", wton.Format(amount), wton.Symbol)); err != nil {
		return err
	}

	position, err := a.executor.Deposit(ctx, amount)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(position)
		return nil
	}

	printBanner("STAKE POSITION", 60)
	fmt.Printf("\n  Layer2:            %s\n", color.CyanString(position.Layer2.Hex()))
	fmt.Printf("  Coinage:           %s\n", position.Coinage.Hex())
	fmt.Printf("  Coinage Balance:   %s\n", wton.Format(position.CoinageBalance))
	fmt.Printf("  Stake:             %s %s\n", wton.Format(position.Stake), wton.Symbol)
	fmt.Printf("  %s Balance:      %s\n", wton.Symbol, wton.Format(position.WTONBalance))
	printFooter(60)
	return nil
}

func runMine(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	blocks := a.executor.Settings().BlocksToMine
	if len(args) > 0 {
		blocks, err = strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid block count: %s", args[0])
		}
	}

	before, after, err := a.executor.Mine(ctx, blocks)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]uint64{"blocks": blocks, "before": before, "after": after})
		return nil
	}

	printSuccess(color.GreenString("✓ Mined %d blocks (%d -> %d)", blocks, before, after))
	return nil
}

func runSeigniorage(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.executor.UpdateSeigniorage(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"tx_hash":      receipt.TxHash.Hex(),
			"block_number": receipt.BlockNumber,
			"gas_used":     receipt.GasUsed,
		})
		return nil
	}

	printSuccess(color.GreenString("✓ Seigniorage updated"))
	printTx(a.cfg, receipt.TxHash.Hex())
	return nil
}
