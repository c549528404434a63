package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wton-stake/pkg/client"
)

var (
	// ErrReverted is returned when a mined transaction has a failed status
	ErrReverted = errors.New("transaction reverted")

	// ErrApprovalFailed wraps every failure of a token approval
	ErrApprovalFailed = errors.New("token approval failed")

	// ErrPoolNotFound is returned when the factory has no pool for a pair
	ErrPoolNotFound = errors.New("pool not found")
)

// Caller executes read-only contract calls. ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Backend reads contract state and waits for transactions to be mined
type Backend interface {
	Caller
	WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Contract binds an ABI to a deployed address
type Contract struct {
	Name    string
	Address common.Address

	abi     abi.ABI
	backend Backend
}

func newContract(name string, parsed abi.ABI, address common.Address, backend Backend) *Contract {
	return &Contract{
		Name:    name,
		Address: address,
		abi:     parsed,
		backend: backend,
	}
}

// ABI returns the parsed contract interface
func (c *Contract) ABI() abi.ABI {
	return c.abi
}

// Call performs an eth_call of method and returns the decoded outputs
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s data: %w", c.Name, method, err)
	}

	to := c.Address
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", c.Name, method, err)
	}

	out, err := c.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s result: %w", c.Name, method, err)
	}

	return out, nil
}

// Transact sends a transaction calling method, waits for it to be mined and
// checks that it succeeded
func (c *Contract) Transact(ctx context.Context, sender client.Sender, value *big.Int, method string, args ...interface{}) (*ethtypes.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s data: %w", c.Name, method, err)
	}

	return c.send(ctx, sender, value, method, data)
}

func (c *Contract) send(ctx context.Context, sender client.Sender, value *big.Int, method string, data []byte) (*ethtypes.Receipt, error) {
	hash, err := sender.Send(ctx, client.TxRequest{To: c.Address, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to send %s.%s: %w", c.Name, method, err)
	}

	receipt, err := c.backend.WaitReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s.%s receipt: %w", c.Name, method, err)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s.%s in %s: %w", c.Name, method, hash.Hex(), ErrReverted)
	}

	return receipt, nil
}

func (c *Contract) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s.%s output type %T", c.Name, method, out[0])
	}
	return v, nil
}

func (c *Contract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}

	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s.%s output type %T", c.Name, method, out[0])
	}
	return v, nil
}

func mustParseABI(name, definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse %s ABI: %v", name, err))
	}
	return parsed
}

var (
	erc20ABI          = mustParseABI("ERC20", ERC20ABI)
	wethABI           = mustParseABI("WETH", WETHABI)
	factoryABI        = mustParseABI("Factory", FactoryABI)
	poolABI           = mustParseABI("Pool", PoolABI)
	quoterABI         = mustParseABI("Quoter", QuoterABI)
	swapRouterABI     = mustParseABI("SwapRouter", SwapRouterABI)
	depositManagerABI = mustParseABI("DepositManager", DepositManagerABI)
	seigManagerABI    = mustParseABI("SeigManager", SeigManagerABI)
	coinageABI        = mustParseABI("Coinage", CoinageABI)
	layer2RegistryABI = mustParseABI("Layer2Registry", Layer2RegistryABI)
)
