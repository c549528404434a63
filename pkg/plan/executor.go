package plan

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wton-stake/pkg/client"
	"wton-stake/pkg/deposit"
	"wton-stake/pkg/token"
	"wton-stake/pkg/types"
)

// Chain reads native balances
type Chain interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Token is an ERC20 moved by the run
type Token interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Approve(ctx context.Context, sender client.Sender, spender common.Address, amount *big.Int) (*ethtypes.Receipt, error)
}

// Wrapper is the wrapped native currency token
type Wrapper interface {
	Token
	Deposit(ctx context.Context, sender client.Sender, value *big.Int) (*ethtypes.Receipt, error)
}

// Swapper executes single pool swaps
type Swapper interface {
	ExactInputSingle(ctx context.Context, sender client.Sender, params *types.SwapParams) (*ethtypes.Receipt, error)
}

// SeigniorageUpdater accrues layer2 rewards
type SeigniorageUpdater interface {
	UpdateSeigniorage(ctx context.Context, sender client.Sender) (*ethtypes.Receipt, error)
}

// DevNode drives the simulated chain
type DevNode interface {
	Mine(ctx context.Context, blocks uint64) error
	SetBalance(ctx context.Context, account common.Address, wei *big.Int) error
	ImpersonateAccount(ctx context.Context, account common.Address) error
	StopImpersonatingAccount(ctx context.Context, account common.Address) error
	LatestBlock(ctx context.Context) (uint64, error)
}

// Journal persists runs as they progress
type Journal interface {
	StartRun(chainID int64, account, layer2 string) (*Run, error)
	RecordStep(id string, step Step) error
	SetLayer2(id, layer2 string) error
	FinishRun(id string, status RunStatus) error
}

// Reporter is told about every step as it happens
type Reporter interface {
	StepStarted(phase Phase, name string)
	StepFinished(step Step)
}

type nopReporter struct{}

func (nopReporter) StepStarted(Phase, string) {}
func (nopReporter) StepFinished(Step)         {}

// Deps are the collaborators of an Executor
type Deps struct {
	Chain   Chain
	ChainID int64

	// Sender signs the account's own transactions
	Sender client.Sender
	// Impersonate returns a sender for an account the node impersonates
	Impersonate func(account common.Address) client.Sender

	WETH      Wrapper
	WTON      Token
	WETHToken token.Token
	WTONToken token.Token

	Router        Swapper
	RouterAddress common.Address
	Pricer        *Pricer

	Staking     *deposit.Manager
	SeigManager SeigniorageUpdater
	Node        DevNode

	// Optional
	Journal  Journal
	Reporter Reporter
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d *Deps) validate() error {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}

	check("chain", d.Chain != nil)
	check("sender", d.Sender != nil)
	check("impersonate", d.Impersonate != nil)
	check("weth", d.WETH != nil)
	check("wton", d.WTON != nil)
	check("router", d.Router != nil)
	check("pricer", d.Pricer != nil)
	check("staking", d.Staking != nil)
	check("seig manager", d.SeigManager != nil)
	check("dev node", d.Node != nil)

	if len(missing) > 0 {
		return fmt.Errorf("executor dependencies missing: %v", missing)
	}
	return nil
}

// Executor sequences the wrap, swap, stake, mine and accrue steps
type Executor struct {
	deps     Deps
	settings Settings
	logger   *zap.Logger
	reporter Reporter
	now      func() time.Time

	run *Run
}

// NewExecutor creates a new executor instance
func NewExecutor(deps Deps, settings Settings) (*Executor, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	e := &Executor{
		deps:     deps,
		settings: settings,
		logger:   deps.Logger,
		reporter: deps.Reporter,
		now:      deps.Now,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.reporter == nil {
		e.reporter = nopReporter{}
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e, nil
}

// Settings returns the settings the executor was built with
func (e *Executor) Settings() Settings {
	return e.settings
}

// Run performs every phase in order. Failures in the swap, deposit and
// seigniorage phases are recorded and the run continues; a mining failure
// aborts it. The returned run describes every step either way.
func (e *Executor) Run(ctx context.Context) (*Run, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}

	phases := []struct {
		phase Phase
		fatal bool
		run   func(context.Context) error
	}{
		{PhaseSwap, false, e.swapPhase},
		{PhaseDeposit, false, e.depositPhase},
		{PhaseMine, true, e.minePhase},
		{PhaseSeigniorage, false, e.seignioragePhase},
	}

	status := RunCompleted
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			e.finish(RunFailed)
			return e.run, fmt.Errorf("run cancelled before %s phase: %w", p.phase, err)
		}

		e.logger.Info("starting phase", zap.String("run", e.run.ID), zap.String("phase", string(p.phase)))

		if err := p.run(ctx); err != nil {
			if p.fatal {
				e.finish(RunFailed)
				return e.run, fmt.Errorf("%s phase failed: %w", p.phase, err)
			}

			status = RunPartial
			e.logger.Error("phase failed, continuing",
				zap.String("run", e.run.ID),
				zap.String("phase", string(p.phase)),
				zap.Error(err))
		}
	}

	e.finish(status)
	return e.run, nil
}

func (e *Executor) begin() error {
	account := e.deps.Sender.Address().Hex()
	layer2 := ""
	if e.settings.Layer2 != (common.Address{}) {
		layer2 = e.settings.Layer2.Hex()
	}

	if e.deps.Journal == nil {
		e.run = &Run{
			ID:      uuid.New().String(),
			Started: e.now(),
			Status:  RunRunning,
			ChainID: e.deps.ChainID,
			Account: account,
			Layer2:  layer2,
			Steps:   []Step{},
		}
		return nil
	}

	run, err := e.deps.Journal.StartRun(e.deps.ChainID, account, layer2)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	e.run = run
	return nil
}

func (e *Executor) finish(status RunStatus) {
	now := e.now()
	e.run.Finished = &now
	e.run.Status = status

	if e.deps.Journal != nil {
		if err := e.deps.Journal.FinishRun(e.run.ID, status); err != nil {
			e.logger.Warn("failed to finish run", zap.String("run", e.run.ID), zap.Error(err))
		}
	}

	e.logger.Info("run finished", zap.String("run", e.run.ID), zap.String("status", string(status)))
}

// step runs fn as one named step, then reports and records its outcome
func (e *Executor) step(phase Phase, name string, fn func() (string, *ethtypes.Receipt, error)) error {
	e.reporter.StepStarted(phase, name)

	detail, receipt, err := fn()
	s := Step{
		Phase:     phase,
		Name:      name,
		Status:    StepSucceeded,
		Detail:    detail,
		Timestamp: e.now(),
	}
	if receipt != nil {
		s.TxHash = receipt.TxHash.Hex()
	}

	fields := []zap.Field{zap.String("phase", string(phase)), zap.String("step", name)}
	if s.TxHash != "" {
		fields = append(fields, zap.String("tx", s.TxHash))
	}

	if err != nil {
		s.Status = StepFailed
		s.Error = err.Error()
		e.logger.Warn("step failed", append(fields, zap.Error(err))...)
	} else {
		e.logger.Debug("step succeeded", append(fields, zap.String("detail", detail))...)
	}

	e.record(s)
	e.reporter.StepFinished(s)
	return err
}

func (e *Executor) record(s Step) {
	if e.run == nil {
		return
	}

	e.run.Steps = append(e.run.Steps, s)
	if e.deps.Journal != nil {
		if err := e.deps.Journal.RecordStep(e.run.ID, s); err != nil {
			e.logger.Warn("failed to record step", zap.String("run", e.run.ID), zap.Error(err))
		}
	}
}

func (e *Executor) setLayer2(layer2 common.Address) {
	if e.run == nil || e.run.Layer2 == layer2.Hex() {
		return
	}

	e.run.Layer2 = layer2.Hex()
	if e.deps.Journal != nil {
		if err := e.deps.Journal.SetLayer2(e.run.ID, e.run.Layer2); err != nil {
			e.logger.Warn("failed to record layer2", zap.String("run", e.run.ID), zap.Error(err))
		}
	}
}

// Balances are the account's holdings of the three assets involved
type Balances struct {
	ETH  *big.Int `json:"eth"`
	WETH *big.Int `json:"weth"`
	WTON *big.Int `json:"wton"`
}

// Balances reads the account's ETH, WETH and WTON balances
func (e *Executor) Balances(ctx context.Context) (*Balances, error) {
	account := e.deps.Sender.Address()

	eth, err := e.deps.Chain.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get ETH balance: %w", err)
	}

	weth, err := e.deps.WETH.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get WETH balance: %w", err)
	}

	wton, err := e.deps.WTON.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get WTON balance: %w", err)
	}

	return &Balances{ETH: eth, WETH: weth, WTON: wton}, nil
}

// FormatBalances renders balances in whole token units
func (e *Executor) FormatBalances(b *Balances) string {
	return fmt.Sprintf("ETH %s, WETH %s, WTON %s",
		token.FormatUnits(b.ETH, token.EtherDecimals),
		e.deps.WETHToken.Format(b.WETH),
		e.deps.WTONToken.Format(b.WTON))
}

func (e *Executor) balancesStep(ctx context.Context, phase Phase, name string) error {
	return e.step(phase, name, func() (string, *ethtypes.Receipt, error) {
		b, err := e.Balances(ctx)
		if err != nil {
			return "", nil, err
		}
		return e.FormatBalances(b), nil, nil
	})
}

func (e *Executor) swapPhase(ctx context.Context) error {
	if err := e.balancesStep(ctx, PhaseSwap, "balances"); err != nil {
		return err
	}

	if _, err := e.Wrap(ctx, e.settings.EthToWrap); err != nil {
		return err
	}

	if err := e.balancesStep(ctx, PhaseSwap, "balances_after_wrap"); err != nil {
		return err
	}

	if _, err := e.Swap(ctx, e.settings.WethToSwap, e.settings.MinWtonOut); err != nil {
		return err
	}

	return e.balancesStep(ctx, PhaseSwap, "balances_after_swap")
}

// Wrap converts amount wei of ETH into WETH
func (e *Executor) Wrap(ctx context.Context, amount *big.Int) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	err := e.step(PhaseSwap, "wrap", func() (string, *ethtypes.Receipt, error) {
		if amount == nil || amount.Sign() == 0 {
			return "nothing to wrap", nil, nil
		}

		r, err := e.deps.WETH.Deposit(ctx, e.deps.Sender, amount)
		receipt = r
		return fmt.Sprintf("wrapped %s ETH into WETH", token.FormatUnits(amount, token.EtherDecimals)), r, err
	})
	return receipt, err
}

// QuoteSwap finds the WETH/WTON pool and quotes swapping amountIn through it
func (e *Executor) QuoteSwap(ctx context.Context, amountIn *big.Int) (*types.PoolInfo, *types.Quote, error) {
	weth, wton := e.deps.WETHToken, e.deps.WTONToken

	var pool *types.PoolInfo
	err := e.step(PhaseSwap, "pool", func() (string, *ethtypes.Receipt, error) {
		p, err := e.deps.Pricer.PoolInfo(ctx, weth.Address, wton.Address, big.NewInt(e.settings.FeeTier))
		if err != nil {
			return "", nil, err
		}
		pool = p
		return fmt.Sprintf("pool %s token0 %s token1 %s fee %s",
			p.Address.Hex(), p.Token0.Hex(), p.Token1.Hex(), p.Fee), nil, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var quote *types.Quote
	err = e.step(PhaseSwap, "quote", func() (string, *ethtypes.Receipt, error) {
		q, err := e.deps.Pricer.Quote(ctx, weth.Address, wton.Address, amountIn, pool.Fee)
		if err != nil {
			return "", nil, err
		}
		quote = q
		return fmt.Sprintf("swap will result in %s %s for %s %s",
			wton.Format(q.AmountOut), wton.Symbol, weth.Format(amountIn), weth.Symbol), nil, nil
	})
	if err != nil {
		return pool, nil, err
	}

	return pool, quote, nil
}

// SwapResult describes an executed swap
type SwapResult struct {
	Pool    *types.PoolInfo   `json:"pool"`
	Quote   *types.Quote      `json:"quote"`
	Params  *types.SwapParams `json:"params"`
	Receipt *ethtypes.Receipt `json:"receipt,omitempty"`
}

// Swap approves the router and swaps amountIn WETH for WTON. The minimum
// output is the quote rounded down to whole WTON, raised to floor.
func (e *Executor) Swap(ctx context.Context, amountIn, floor *big.Int) (*SwapResult, error) {
	weth, wton := e.deps.WETHToken, e.deps.WTONToken

	err := e.step(PhaseSwap, "approve_router", func() (string, *ethtypes.Receipt, error) {
		r, err := e.deps.WETH.Approve(ctx, e.deps.Sender, e.deps.RouterAddress, amountIn)
		return fmt.Sprintf("router approved to spend %s %s", weth.Format(amountIn), weth.Symbol), r, err
	})
	if err != nil {
		return nil, err
	}

	pool, quote, err := e.QuoteSwap(ctx, amountIn)
	if err != nil {
		return nil, err
	}

	minOut := MinimumOut(quote.AmountOut, wton.Decimals, floor)
	params := types.NewSwapParams(weth.Address, wton.Address, pool.Fee, e.deps.Sender.Address(),
		amountIn, minOut, e.settings.SwapDeadline, e.now())

	result := &SwapResult{Pool: pool, Quote: quote, Params: params}
	err = e.step(PhaseSwap, "swap", func() (string, *ethtypes.Receipt, error) {
		r, err := e.deps.Router.ExactInputSingle(ctx, e.deps.Sender, params)
		result.Receipt = r
		return fmt.Sprintf("swapped %s %s for at least %s %s",
			weth.Format(amountIn), weth.Symbol, wton.Format(minOut), wton.Symbol), r, err
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

func (e *Executor) depositPhase(ctx context.Context) error {
	_, err := e.Deposit(ctx, e.settings.WtonToStake)
	return err
}

func (e *Executor) resolveLayer2(ctx context.Context, phase Phase) (common.Address, error) {
	var layer2 common.Address
	err := e.step(phase, "layer2", func() (string, *ethtypes.Receipt, error) {
		l2, err := e.deps.Staking.ResolveLayer2(ctx)
		if err != nil {
			return "", nil, err
		}
		layer2 = l2
		return fmt.Sprintf("layer2 %s", l2.Hex()), nil, nil
	})
	if err != nil {
		return common.Address{}, err
	}

	e.setLayer2(layer2)
	return layer2, nil
}

// Deposit stakes amount of WTON against the layer2 and reads back the
// resulting position
func (e *Executor) Deposit(ctx context.Context, amount *big.Int) (*deposit.Position, error) {
	wton := e.deps.WTONToken
	staking := e.deps.Staking

	layer2, err := e.resolveLayer2(ctx, PhaseDeposit)
	if err != nil {
		return nil, err
	}

	err = e.step(PhaseDeposit, "approve_deposit_manager", func() (string, *ethtypes.Receipt, error) {
		r, allowance, err := staking.Approve(ctx, e.deps.Sender, amount)
		if err != nil {
			return "", r, err
		}
		return fmt.Sprintf("deposit manager approved to spend %s %s", wton.Format(allowance), wton.Symbol), r, nil
	})
	if err != nil {
		return nil, err
	}

	err = e.step(PhaseDeposit, "deposit", func() (string, *ethtypes.Receipt, error) {
		r, err := staking.Deposit(ctx, e.deps.Sender, layer2, amount)
		return fmt.Sprintf("deposited %s %s", wton.Format(amount), wton.Symbol), r, err
	})
	if err != nil {
		return nil, err
	}

	var position *deposit.Position
	err = e.step(PhaseDeposit, "position", func() (string, *ethtypes.Receipt, error) {
		p, err := staking.Position(ctx, layer2, e.deps.Sender.Address())
		if err != nil {
			return "", nil, err
		}
		position = p
		return fmt.Sprintf("coinage balance %s, %s balance %s",
			wton.Format(p.CoinageBalance), wton.Symbol, wton.Format(p.WTONBalance)), nil, nil
	})
	if err != nil {
		return nil, err
	}

	return position, nil
}

func (e *Executor) minePhase(ctx context.Context) error {
	_, _, err := e.Mine(ctx, e.settings.BlocksToMine)
	return err
}

// Mine advances the chain by blocks and returns the heights before and after
func (e *Executor) Mine(ctx context.Context, blocks uint64) (before, after uint64, err error) {
	node := e.deps.Node

	err = e.step(PhaseMine, "mine", func() (string, *ethtypes.Receipt, error) {
		b, err := node.LatestBlock(ctx)
		if err != nil {
			return "", nil, err
		}
		before = b

		if err := node.Mine(ctx, blocks); err != nil {
			return fmt.Sprintf("block %d", before), nil, err
		}

		a, err := node.LatestBlock(ctx)
		if err != nil {
			return "", nil, err
		}
		after = a

		return fmt.Sprintf("mined %d blocks, block %d -> %d", blocks, before, after), nil, nil
	})
	return before, after, err
}

func (e *Executor) seignioragePhase(ctx context.Context) error {
	_, err := e.UpdateSeigniorage(ctx)
	return err
}

// UpdateSeigniorage tops up the layer2's ETH, impersonates it and calls
// updateSeigniorage from it. Impersonation is always stopped afterwards.
func (e *Executor) UpdateSeigniorage(ctx context.Context) (receipt *ethtypes.Receipt, err error) {
	node := e.deps.Node

	layer2, err := e.resolveLayer2(ctx, PhaseSeigniorage)
	if err != nil {
		return nil, err
	}

	err = e.step(PhaseSeigniorage, "top_up", func() (string, *ethtypes.Receipt, error) {
		topUp := e.settings.Layer2TopUp
		if topUp != nil && topUp.Sign() > 0 {
			if err := node.SetBalance(ctx, layer2, topUp); err != nil {
				return "", nil, err
			}
		}

		balance, err := e.deps.Chain.BalanceAt(ctx, layer2, nil)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get layer2 balance: %w", err)
		}
		return fmt.Sprintf("layer2 ETH balance %s", token.FormatUnits(balance, token.EtherDecimals)), nil, nil
	})
	if err != nil {
		return nil, err
	}

	err = e.step(PhaseSeigniorage, "impersonate", func() (string, *ethtypes.Receipt, error) {
		return fmt.Sprintf("impersonating %s", layer2.Hex()), nil, node.ImpersonateAccount(ctx, layer2)
	})
	if err != nil {
		return nil, err
	}

	defer func() {
		// Runs even when ctx is already cancelled
		stopCtx := context.WithoutCancel(ctx)
		stopErr := e.step(PhaseSeigniorage, "stop_impersonating", func() (string, *ethtypes.Receipt, error) {
			return "", nil, node.StopImpersonatingAccount(stopCtx, layer2)
		})
		if err == nil && stopErr != nil {
			err = stopErr
		}
	}()

	err = e.step(PhaseSeigniorage, "update_seigniorage", func() (string, *ethtypes.Receipt, error) {
		r, err := e.deps.SeigManager.UpdateSeigniorage(ctx, e.deps.Impersonate(layer2))
		receipt = r
		if err != nil {
			return "", r, err
		}
		return "updateSeigniorage ran successfully", r, nil
	})
	if err != nil {
		return receipt, err
	}

	return receipt, nil
}
