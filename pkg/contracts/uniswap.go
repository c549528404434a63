package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wton-stake/pkg/client"
	"wton-stake/pkg/types"
)

// Factory is the pool factory
type Factory struct {
	*Contract
}

// NewFactory binds the pool factory at address
func NewFactory(address common.Address, backend Backend) *Factory {
	return &Factory{Contract: newContract("Factory", factoryABI, address, backend)}
}

// GetPool returns the pool for the token pair and fee tier
func (f *Factory) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error) {
	pool, err := f.callAddress(ctx, "getPool", tokenA, tokenB, fee)
	if err != nil {
		return common.Address{}, err
	}

	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s/%s fee %s: %w", tokenA.Hex(), tokenB.Hex(), fee, ErrPoolNotFound)
	}
	return pool, nil
}

// Pool is a single liquidity pool
type Pool struct {
	*Contract
}

// NewPool binds the pool at address
func NewPool(address common.Address, backend Backend) *Pool {
	return &Pool{Contract: newContract("Pool", poolABI, address, backend)}
}

// Token0 returns the lower sorted token of the pair
func (p *Pool) Token0(ctx context.Context) (common.Address, error) {
	return p.callAddress(ctx, "token0")
}

// Token1 returns the higher sorted token of the pair
func (p *Pool) Token1(ctx context.Context) (common.Address, error) {
	return p.callAddress(ctx, "token1")
}

// Fee returns the pool fee in hundredths of a bip
func (p *Pool) Fee(ctx context.Context) (*big.Int, error) {
	return p.callBigInt(ctx, "fee")
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quoter simulates swaps without executing them
type Quoter struct {
	*Contract
}

// NewQuoter binds the quoter at address
func NewQuoter(address common.Address, backend Backend) *Quoter {
	return &Quoter{Contract: newContract("Quoter", quoterABI, address, backend)}
}

// QuoteExactInputSingle returns the expected output of a single pool swap.
// The quoter reverts internally to compute the result, so it is only ever
// called through eth_call.
func (q *Quoter) QuoteExactInputSingle(ctx context.Context, params types.QuoteParams) (*types.Quote, error) {
	out, err := q.Call(ctx, "quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		AmountIn:          params.AmountIn,
		Fee:               params.Fee,
		SqrtPriceLimitX96: orZero(params.SqrtPriceLimitX96),
	})
	if err != nil {
		return nil, err
	}

	if len(out) != 4 {
		return nil, fmt.Errorf("unexpected quoteExactInputSingle output length %d", len(out))
	}

	amountOut, ok1 := out[0].(*big.Int)
	priceAfter, ok2 := out[1].(*big.Int)
	ticks, ok3 := out[2].(uint32)
	gas, ok4 := out[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("unexpected quoteExactInputSingle output types %T %T %T %T", out[0], out[1], out[2], out[3])
	}

	return &types.Quote{
		AmountOut:               amountOut,
		SqrtPriceX96After:       priceAfter,
		InitializedTicksCrossed: ticks,
		GasEstimate:             gas,
	}, nil
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// SwapRouter executes swaps
type SwapRouter struct {
	*Contract
}

// NewSwapRouter binds the swap router at address
func NewSwapRouter(address common.Address, backend Backend) *SwapRouter {
	return &SwapRouter{Contract: newContract("SwapRouter", swapRouterABI, address, backend)}
}

// EncodeExactInputSingle returns the calldata of an exactInputSingle call
func (r *SwapRouter) EncodeExactInputSingle(params *types.SwapParams) ([]byte, error) {
	data, err := r.abi.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		Fee:               params.Fee,
		Recipient:         params.Recipient,
		AmountIn:          params.AmountIn,
		AmountOutMinimum:  params.AmountOutMinimum,
		SqrtPriceLimitX96: orZero(params.SqrtPriceLimitX96),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack exactInputSingle data: %w", err)
	}
	return data, nil
}

// ExactInputSingle swaps AmountIn of TokenIn for at least AmountOutMinimum
// of TokenOut. The router's exactInputSingle has no deadline field, so the
// call is wrapped in multicall(deadline, ...) which reverts once the
// deadline has passed.
func (r *SwapRouter) ExactInputSingle(ctx context.Context, sender client.Sender, params *types.SwapParams) (*ethtypes.Receipt, error) {
	call, err := r.EncodeExactInputSingle(params)
	if err != nil {
		return nil, err
	}

	return r.Transact(ctx, sender, nil, "multicall", orZero(params.Deadline), [][]byte{call})
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
