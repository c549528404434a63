package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wton-stake/config"
	"wton-stake/pkg/client"
	"wton-stake/pkg/contracts"
	"wton-stake/pkg/deposit"
	"wton-stake/pkg/devnode"
	"wton-stake/pkg/plan"
)

// app holds everything a command needs to talk to the node
type app struct {
	cfg      *config.Config
	client   *client.EthClient
	sender   client.Sender
	node     *devnode.Node
	weth     *contracts.WETH
	wton     *contracts.ERC20
	executor *plan.Executor
	journal  *plan.Manager
}

type appOptions struct {
	journal bool // record the run in the run journal
}

func newApp(ctx context.Context, cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	gas, err := cfg.Gas()
	if err != nil {
		return nil, err
	}
	ns, err := devnode.ParseNamespace(cfg.DevNode)
	if err != nil {
		return nil, err
	}

	c, err := client.Dial(ctx, cfg.RPCURL, client.Options{ReceiptTimeout: cfg.ReceiptTimeout}, logger)
	if err != nil {
		return nil, err
	}

	sender, err := client.NewSender(ctx, c, cfg.PrivateKey, gas)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	logger.Debug("connected",
		zap.String("rpc", cfg.RPCURL),
		zap.Int64("chain_id", c.ChainID().Int64()),
		zap.String("account", sender.Address().Hex()),
		zap.String("dev_node", string(ns)))

	a := &app{
		cfg:    cfg,
		client: c,
		sender: sender,
		node:   devnode.New(c.RPC(), ns, logger),
		weth:   contracts.NewWETH(cfg.Tokens.WETH.Address, c),
		wton:   contracts.NewERC20("WTON", cfg.Tokens.WTON.Address, c),
	}

	addrs := cfg.Contracts
	staking := deposit.NewManager(deposit.Contracts{
		WTON:                  a.wton,
		DepositManager:        contracts.NewDepositManager(addrs.DepositManager, c),
		DepositManagerAddress: addrs.DepositManager,
		SeigManager:           contracts.NewSeigManager(addrs.SeigManager, c),
		OpenCoinage: func(address common.Address) deposit.BalanceReader {
			return contracts.NewCoinage(address, c)
		},
		Registry: contracts.NewLayer2Registry(addrs.Layer2Registry, c),
	}, settings.Layer2, settings.Layer2Index, logger)

	pricer := plan.NewPricer(
		contracts.NewFactory(addrs.Factory, c),
		func(address common.Address) plan.PoolReader { return contracts.NewPool(address, c) },
		contracts.NewQuoter(addrs.Quoter, c),
	)

	deps := plan.Deps{
		Chain:   c,
		ChainID: c.ChainID().Int64(),
		Sender:  sender,
		Impersonate: func(account common.Address) client.Sender {
			return client.NewNodeSender(c.RPC(), account, gas)
		},
		WETH:          a.weth,
		WTON:          a.wton,
		WETHToken:     cfg.Tokens.WETH,
		WTONToken:     cfg.Tokens.WTON,
		Router:        contracts.NewSwapRouter(addrs.SwapRouter, c),
		RouterAddress: addrs.SwapRouter,
		Pricer:        pricer,
		Staking:       staking,
		SeigManager:   contracts.NewSeigManager(addrs.SeigManager, c),
		Node:          a.node,
		Logger:        logger,
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if !jsonOutput {
		deps.Reporter = newConsoleReporter(cfg)
	}

	if opts.journal {
		manager, err := plan.NewManager(cfg.PlanStoragePath)
		if err != nil {
			c.Close()
			return nil, err
		}
		a.journal = manager
		deps.Journal = manager
	}

	a.executor, err = plan.NewExecutor(deps, settings)
	if err != nil {
		c.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) Close() {
	a.client.Close()
}

// consoleReporter narrates each step with a spinner and a result line
type consoleReporter struct {
	cfg     *config.Config
	spinner *spinner.Spinner
	phase   plan.Phase
}

func newConsoleReporter(cfg *config.Config) *consoleReporter {
	return &consoleReporter{
		cfg:     cfg,
		spinner: spinner.New(spinner.CharSets[14], 100*time.Millisecond),
	}
}

func (r *consoleReporter) StepStarted(phase plan.Phase, name string) {
	if phase != r.phase {
		r.phase = phase
		color.Cyan("\n%s", phaseTitle(phase))
	}

	r.spinner.Suffix = fmt.Sprintf(" %s...", name)
	r.spinner.Start()
}

func (r *consoleReporter) StepFinished(step plan.Step) {
	r.spinner.Stop()

	if step.Status == plan.StepFailed {
		fmt.Printf("  %s %-24s %s\n", color.RedString("✗"), step.Name, color.RedString(step.Error))
	} else {
		fmt.Printf("  %s %-24s %s\n", color.GreenString("✓"), step.Name, step.Detail)
	}

	if step.TxHash != "" {
		fmt.Printf("    %s\n", color.HiBlackString(r.cfg.TxURL(step.TxHash)))
	}
}

func phaseTitle(phase plan.Phase) string {
	switch phase {
	case plan.PhaseSwap:
		return "SWAP ETH -> WETH -> WTON"
	case plan.PhaseDeposit:
		return "STAKE WTON"
	case plan.PhaseMine:
		return "MINE BLOCKS"
	case plan.PhaseSeigniorage:
		return "UPDATE SEIGNIORAGE"
	default:
		return string(phase)
	}
}
