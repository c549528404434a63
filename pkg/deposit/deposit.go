package deposit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wton-stake/pkg/client"
)

// ErrNoLayer2 is returned when no layer2 is configured and the registry
// cannot provide one
var ErrNoLayer2 = errors.New("no layer2 available")

// Token is the staked ERC20
type Token interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, sender client.Sender, spender common.Address, amount *big.Int) (*ethtypes.Receipt, error)
}

// Depositor accepts stakes against a layer2
type Depositor interface {
	Deposit(ctx context.Context, sender client.Sender, layer2 common.Address, amount *big.Int) (*ethtypes.Receipt, error)
}

// StakeReader looks up coinages and stakes
type StakeReader interface {
	Coinages(ctx context.Context, layer2 common.Address) (common.Address, error)
	StakeOf(ctx context.Context, layer2, account common.Address) (*big.Int, error)
}

// BalanceReader reads a token balance
type BalanceReader interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// Registry enumerates registered layer2s
type Registry interface {
	NumLayer2s(ctx context.Context) (uint64, error)
	Layer2ByIndex(ctx context.Context, index uint64) (common.Address, error)
}

// Contracts are the on-chain collaborators of a Manager
type Contracts struct {
	WTON                  Token
	DepositManager        Depositor
	DepositManagerAddress common.Address
	SeigManager           StakeReader
	OpenCoinage           func(address common.Address) BalanceReader

	// Registry is only consulted when no layer2 address is configured
	Registry Registry
}

// Manager stakes WTON with the deposit manager
type Manager struct {
	contracts   Contracts
	layer2      common.Address
	layer2Index uint64
	logger      *zap.Logger
}

// NewManager creates a deposit manager for layer2, or for the registry
// entry at layer2Index when layer2 is the zero address
func NewManager(contracts Contracts, layer2 common.Address, layer2Index uint64, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		contracts:   contracts,
		layer2:      layer2,
		layer2Index: layer2Index,
		logger:      logger,
	}
}

// ResolveLayer2 returns the configured layer2 or looks it up in the registry
func (m *Manager) ResolveLayer2(ctx context.Context) (common.Address, error) {
	if m.layer2 != (common.Address{}) {
		return m.layer2, nil
	}

	if m.contracts.Registry == nil {
		return common.Address{}, ErrNoLayer2
	}

	count, err := m.contracts.Registry.NumLayer2s(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to count layer2s: %w", err)
	}
	if m.layer2Index >= count {
		return common.Address{}, fmt.Errorf("layer2 index %d out of range (%d registered): %w", m.layer2Index, count, ErrNoLayer2)
	}

	layer2, err := m.contracts.Registry.Layer2ByIndex(ctx, m.layer2Index)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get layer2 %d: %w", m.layer2Index, err)
	}

	m.logger.Debug("resolved layer2 from registry",
		zap.Uint64("index", m.layer2Index),
		zap.String("layer2", layer2.Hex()))

	m.layer2 = layer2
	return layer2, nil
}

// Approve lets the deposit manager pull amount of the sender's WTON and
// returns the resulting allowance
func (m *Manager) Approve(ctx context.Context, sender client.Sender, amount *big.Int) (*ethtypes.Receipt, *big.Int, error) {
	receipt, err := m.contracts.WTON.Approve(ctx, sender, m.contracts.DepositManagerAddress, amount)
	if err != nil {
		return receipt, nil, err
	}

	allowance, err := m.contracts.WTON.Allowance(ctx, sender.Address(), m.contracts.DepositManagerAddress)
	if err != nil {
		return receipt, nil, fmt.Errorf("failed to read allowance: %w", err)
	}

	return receipt, allowance, nil
}

// Deposit stakes amount of the sender's WTON against layer2
func (m *Manager) Deposit(ctx context.Context, sender client.Sender, layer2 common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("deposit amount must be greater than 0")
	}

	m.logger.Info("depositing WTON",
		zap.String("layer2", layer2.Hex()),
		zap.String("amount", amount.String()))

	return m.contracts.DepositManager.Deposit(ctx, sender, layer2, amount)
}

// Position is an account's stake in a layer2
type Position struct {
	Layer2         common.Address `json:"layer2"`
	Coinage        common.Address `json:"coinage"`
	CoinageBalance *big.Int       `json:"coinage_balance"`
	Stake          *big.Int       `json:"stake"`
	WTONBalance    *big.Int       `json:"wton_balance"`
}

// Position reads the coinage balance, stake and remaining WTON of account
func (m *Manager) Position(ctx context.Context, layer2, account common.Address) (*Position, error) {
	coinage, err := m.contracts.SeigManager.Coinages(ctx, layer2)
	if err != nil {
		return nil, fmt.Errorf("failed to get coinage of %s: %w", layer2.Hex(), err)
	}

	coinageBalance, err := m.contracts.OpenCoinage(coinage).BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get coinage balance: %w", err)
	}

	stake, err := m.contracts.SeigManager.StakeOf(ctx, layer2, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get stake: %w", err)
	}

	balance, err := m.contracts.WTON.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get WTON balance: %w", err)
	}

	return &Position{
		Layer2:         layer2,
		Coinage:        coinage,
		CoinageBalance: coinageBalance,
		Stake:          stake,
		WTONBalance:    balance,
	}, nil
}
