package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wton-stake/pkg/client"
)

// DepositManager accepts WTON stakes on behalf of layer2 operators
type DepositManager struct {
	*Contract
}

// NewDepositManager binds the deposit manager at address
func NewDepositManager(address common.Address, backend Backend) *DepositManager {
	return &DepositManager{Contract: newContract("DepositManager", depositManagerABI, address, backend)}
}

// Deposit stakes amount of the sender's WTON against layer2
func (d *DepositManager) Deposit(ctx context.Context, sender client.Sender, layer2 common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	return d.Transact(ctx, sender, nil, "deposit", layer2, amount)
}

// SeigManager tracks stakes and distributes seigniorage
type SeigManager struct {
	*Contract
}

// NewSeigManager binds the seigniorage manager at address
func NewSeigManager(address common.Address, backend Backend) *SeigManager {
	return &SeigManager{Contract: newContract("SeigManager", seigManagerABI, address, backend)}
}

// Coinages returns the coinage token of layer2
func (s *SeigManager) Coinages(ctx context.Context, layer2 common.Address) (common.Address, error) {
	return s.callAddress(ctx, "coinages", layer2)
}

// StakeOf returns the stake account holds in layer2
func (s *SeigManager) StakeOf(ctx context.Context, layer2, account common.Address) (*big.Int, error) {
	return s.callBigInt(ctx, "stakeOf", layer2, account)
}

// UpdateSeigniorage accrues rewards for the calling layer2. The sender must
// be the layer2 itself.
func (s *SeigManager) UpdateSeigniorage(ctx context.Context, sender client.Sender) (*ethtypes.Receipt, error) {
	return s.Transact(ctx, sender, nil, "updateSeigniorage")
}

// Coinage is a layer2's auto-compounding stake token
type Coinage struct {
	*Contract
}

// NewCoinage binds the coinage token at address
func NewCoinage(address common.Address, backend Backend) *Coinage {
	return &Coinage{Contract: newContract("Coinage", coinageABI, address, backend)}
}

// BalanceOf returns the coinage balance of account
func (c *Coinage) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "balanceOf", account)
}

// Layer2Registry lists the registered layer2 operators
type Layer2Registry struct {
	*Contract
}

// NewLayer2Registry binds the registry at address
func NewLayer2Registry(address common.Address, backend Backend) *Layer2Registry {
	return &Layer2Registry{Contract: newContract("Layer2Registry", layer2RegistryABI, address, backend)}
}

// NumLayer2s returns how many layer2s are registered
func (r *Layer2Registry) NumLayer2s(ctx context.Context) (uint64, error) {
	n, err := r.callBigInt(ctx, "numLayer2s")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// Layer2ByIndex returns the layer2 registered at index
func (r *Layer2Registry) Layer2ByIndex(ctx context.Context, index uint64) (common.Address, error) {
	return r.callAddress(ctx, "layer2ByIndex", new(big.Int).SetUint64(index))
}
