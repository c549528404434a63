package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wton-stake/config"
	"wton-stake/pkg/client"
	"wton-stake/pkg/contracts"
	"wton-stake/pkg/token"
)

var (
	filterSymbol string
	checkOnChain bool
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the configured tokens",
	Long: `List the tokens the tool swaps and stakes.

With --check, symbol and decimals are read from the token contracts and
compared with the configuration.

Examples:
  wton-stake list-tokens
  wton-stake list-tokens --symbol WTON
  wton-stake list-tokens --check`,
	RunE: runListTokens,
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show the account's ETH, WETH and WTON balances",
	Args:  cobra.NoArgs,
	RunE:  runBalances,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(balancesCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().BoolVar(&checkOnChain, "check", false, "Verify symbol and decimals on chain")
}

// tokenCheck is a configured token together with what its contract reports
type tokenCheck struct {
	token.Token
	ChainSymbol   string `json:"chain_symbol,omitempty"`
	ChainDecimals *uint8 `json:"chain_decimals,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (c tokenCheck) matches() bool {
	return c.Error == "" && c.ChainSymbol == c.Symbol && c.ChainDecimals != nil && *c.ChainDecimals == c.Decimals
}

func runListTokens(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var tokens []tokenCheck
	for _, t := range []token.Token{cfg.Tokens.WETH, cfg.Tokens.WTON} {
		if filterSymbol != "" && !strings.Contains(strings.ToUpper(t.Symbol), strings.ToUpper(filterSymbol)) {
			continue
		}
		tokens = append(tokens, tokenCheck{Token: t})
	}

	if checkOnChain && len(tokens) > 0 {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Reading token contracts..."
			s.Start()
		}

		err = checkTokens(context.Background(), cfg, tokens)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			return err
		}
	}

	// Output
	if jsonOutput {
		printJSON(tokens)
	} else {
		displayTokens(tokens)
	}
	return nil
}

func checkTokens(ctx context.Context, cfg *config.Config, tokens []tokenCheck) error {
	c, err := client.Dial(ctx, cfg.RPCURL, client.Options{ReceiptTimeout: cfg.ReceiptTimeout}, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	for i := range tokens {
		erc20 := contracts.NewERC20(tokens[i].Symbol, tokens[i].Address, c)

		symbol, err := erc20.Symbol(ctx)
		if err != nil {
			tokens[i].Error = err.Error()
			continue
		}
		decimals, err := erc20.Decimals(ctx)
		if err != nil {
			tokens[i].Error = err.Error()
			continue
		}

		tokens[i].ChainSymbol = symbol
		tokens[i].ChainDecimals = &decimals
	}
	return nil
}

func displayTokens(tokens []tokenCheck) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	printBanner("CONFIGURED TOKENS", 90)
	fmt.Println()

	for _, t := range tokens {
		fmt.Printf("  %-10s  %2d decimals  %s  %s\n",
			color.YellowString(t.Symbol),
			t.Decimals,
			color.HiBlackString(t.Address.Hex()),
			t.Name)

		switch {
		case t.Error != "":
			fmt.Printf("              %s\n", color.RedString("check failed: %s", t.Error))
		case t.ChainDecimals == nil:
		case t.matches():
			fmt.Printf("              %s\n", color.GreenString("✓ matches on-chain symbol and decimals"))
		default:
			fmt.Printf("              %s\n", color.RedString("✗ contract reports %s with %d decimals", t.ChainSymbol, *t.ChainDecimals))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}

func runBalances(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	ctx := context.Background()

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	balances, err := a.executor.Balances(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]string{
			"account": a.sender.Address().Hex(),
			"eth":     token.FormatUnits(balances.ETH, token.EtherDecimals),
			"weth":    a.cfg.Tokens.WETH.Format(balances.WETH),
			"wton":    a.cfg.Tokens.WTON.Format(balances.WTON),
		})
		return nil
	}

	printBanner("BALANCES", 60)
	fmt.Printf("\n  Account:  %s\n", color.CyanString(a.sender.Address().Hex()))
	fmt.Printf("  ETH:      %s\n", token.FormatUnits(balances.ETH, token.EtherDecimals))
	fmt.Printf("  %-8s  %s\n", a.cfg.Tokens.WETH.Symbol+":", a.cfg.Tokens.WETH.Format(balances.WETH))
	fmt.Printf("  %-8s  %s\n", a.cfg.Tokens.WTON.Symbol+":", a.cfg.Tokens.WTON.Format(balances.WTON))
	printFooter(60)
	return nil
}
