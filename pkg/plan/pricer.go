package plan

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"wton-stake/pkg/token"
	"wton-stake/pkg/types"
)

// PoolFactory locates pools
type PoolFactory interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error)
}

// PoolReader reads the immutable fields of a pool
type PoolReader interface {
	Token0(ctx context.Context) (common.Address, error)
	Token1(ctx context.Context) (common.Address, error)
	Fee(ctx context.Context) (*big.Int, error)
}

// QuoteSource simulates swaps
type QuoteSource interface {
	QuoteExactInputSingle(ctx context.Context, params types.QuoteParams) (*types.Quote, error)
}

// Pricer handles pool discovery and quoting for the swap
type Pricer struct {
	factory  PoolFactory
	openPool func(address common.Address) PoolReader
	quoter   QuoteSource
}

// NewPricer creates a new pricer instance
func NewPricer(factory PoolFactory, openPool func(address common.Address) PoolReader, quoter QuoteSource) *Pricer {
	return &Pricer{
		factory:  factory,
		openPool: openPool,
		quoter:   quoter,
	}
}

// PoolInfo finds the pool for the pair and reads token0, token1 and fee
// concurrently. The first failure cancels the other reads.
func (p *Pricer) PoolInfo(ctx context.Context, tokenIn, tokenOut common.Address, fee *big.Int) (*types.PoolInfo, error) {
	address, err := p.factory.GetPool(ctx, tokenIn, tokenOut, fee)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool address: %w", err)
	}

	pool := p.openPool(address)
	info := &types.PoolInfo{Address: address}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := pool.Token0(gctx)
		if err != nil {
			return fmt.Errorf("failed to read token0: %w", err)
		}
		info.Token0 = t
		return nil
	})
	g.Go(func() error {
		t, err := pool.Token1(gctx)
		if err != nil {
			return fmt.Errorf("failed to read token1: %w", err)
		}
		info.Token1 = t
		return nil
	})
	g.Go(func() error {
		f, err := pool.Fee(gctx)
		if err != nil {
			return fmt.Errorf("failed to read fee: %w", err)
		}
		info.Fee = f
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return info, nil
}

// Quote returns the expected output of swapping amountIn through the pool
// with the given fee
func (p *Pricer) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, fee *big.Int) (*types.Quote, error) {
	quote, err := p.quoter.QuoteExactInputSingle(ctx, types.QuoteParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               fee,
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return quote, nil
}

// MinimumOut is the larger of floor and the quoted output rounded down to
// whole tokens
func MinimumOut(quoted *big.Int, decimals uint8, floor *big.Int) *big.Int {
	minimum := token.Truncate(quoted, decimals)
	if floor != nil && floor.Cmp(minimum) > 0 {
		return new(big.Int).Set(floor)
	}
	return minimum
}
