package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wton-stake/pkg/client"
)

// ERC20 is a fungible token
type ERC20 struct {
	*Contract
}

// NewERC20 binds an ERC20 token at address
func NewERC20(name string, address common.Address, backend Backend) *ERC20 {
	return &ERC20{Contract: newContract(name, erc20ABI, address, backend)}
}

// BalanceOf returns the token balance of owner
func (t *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.callBigInt(ctx, "balanceOf", owner)
}

// Allowance returns how much spender may transfer on behalf of owner
func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBigInt(ctx, "allowance", owner, spender)
}

// Approve lets spender transfer up to amount of the sender's tokens.
// Any failure is reported as ErrApprovalFailed.
func (t *ERC20) Approve(ctx context.Context, sender client.Sender, spender common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	receipt, err := t.Transact(ctx, sender, nil, "approve", spender, amount)
	if err != nil {
		return receipt, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}
	return receipt, nil
}

// Decimals returns the token precision
func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.Call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected %s.decimals output type %T", t.Name, out[0])
	}
	return v, nil
}

// Symbol returns the token ticker
func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	out, err := t.Call(ctx, "symbol")
	if err != nil {
		return "", err
	}

	v, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s.symbol output type %T", t.Name, out[0])
	}
	return v, nil
}

// WETH is the wrapped native currency token
type WETH struct {
	*ERC20
}

// NewWETH binds the wrapped ether contract at address
func NewWETH(address common.Address, backend Backend) *WETH {
	return &WETH{ERC20: &ERC20{Contract: newContract("WETH", wethABI, address, backend)}}
}

// Deposit wraps value wei of native currency into WETH
func (w *WETH) Deposit(ctx context.Context, sender client.Sender, value *big.Int) (*ethtypes.Receipt, error) {
	return w.Transact(ctx, sender, value, "deposit")
}
