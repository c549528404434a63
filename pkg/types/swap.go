package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultDeadlineWindow is how long a swap stays valid after it is built
const DefaultDeadlineWindow = 20 * time.Minute

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// SwapParams holds the arguments of a single exact-input swap.
// Field names match the router's tuple components.
type SwapParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// NewSwapParams builds swap parameters with no price limit and a deadline
// window from now
func NewSwapParams(tokenIn, tokenOut common.Address, fee *big.Int, recipient common.Address, amountIn, amountOutMinimum *big.Int, window time.Duration, now time.Time) *SwapParams {
	if window <= 0 {
		window = DefaultDeadlineWindow
	}

	return &SwapParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               fee,
		Recipient:         recipient,
		Deadline:          big.NewInt(now.Add(window).Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  amountOutMinimum,
		SqrtPriceLimitX96: big.NewInt(0),
	}
}

// QuoteParams holds the arguments for quoting a single exact-input swap
type QuoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quote is the quoter's simulated result
type Quote struct {
	AmountOut               *big.Int `json:"amount_out"`
	SqrtPriceX96After       *big.Int `json:"sqrt_price_x96_after"`
	InitializedTicksCrossed uint32   `json:"initialized_ticks_crossed"`
	GasEstimate             *big.Int `json:"gas_estimate"`
}

// PoolInfo describes a liquidity pool
type PoolInfo struct {
	Address common.Address `json:"address"`
	Token0  common.Address `json:"token0"`
	Token1  common.Address `json:"token1"`
	Fee     *big.Int       `json:"fee"`
}

// TxInfo holds formatted transaction information for display
type TxInfo struct {
	Hash        string  `json:"hash"`
	Nonce       uint64  `json:"nonce"`
	From        string  `json:"from,omitempty"`
	To          string  `json:"to"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gas_price"`
	GasLimit    uint64  `json:"gas_limit"`
	Pending     bool    `json:"pending"`
	BlockNumber uint64  `json:"block_number,omitempty"`
	GasUsed     uint64  `json:"gas_used,omitempty"`
	Status      *uint64 `json:"status,omitempty"`
}
