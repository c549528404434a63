package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"wton-stake/pkg/types"
)

const (
	DefaultReceiptTimeout = 2 * time.Minute
	DefaultPollInterval   = time.Second
)

// Options tunes how the client waits for transactions
type Options struct {
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
}

// EthClient wraps a go-ethereum client together with the raw RPC
// connection it was built on
type EthClient struct {
	eth     *ethclient.Client
	rpc     *rpc.Client
	chainID *big.Int
	opts    Options
	logger  *zap.Logger
}

// Dial connects to the node at rpcURL and verifies the connection by
// reading the chain ID
func Dial(ctx context.Context, rpcURL string, opts Options, logger *zap.Logger) (*EthClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = DefaultReceiptTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	eth := ethclient.NewClient(rpcClient)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	logger.Debug("connected to node", zap.String("rpc_url", rpcURL), zap.String("chain_id", chainID.String()))

	return &EthClient{
		eth:     eth,
		rpc:     rpcClient,
		chainID: chainID,
		opts:    opts,
		logger:  logger,
	}, nil
}

// ChainID returns the chain ID read at dial time
func (c *EthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Eth returns the underlying go-ethereum client
func (c *EthClient) Eth() *ethclient.Client {
	return c.eth
}

// RPC returns the raw JSON-RPC connection
func (c *EthClient) RPC() *rpc.Client {
	return c.rpc
}

// CallContract executes an eth_call
func (c *EthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

// BalanceAt returns the native balance of account
func (c *EthClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, blockNumber)
}

// BlockNumber returns the latest block number
func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// WaitReceipt polls for the receipt of hash until it is mined or the
// receipt timeout elapses
func (c *EthClient) WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		if errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("transaction not yet mined", zap.String("tx", hash.Hex()))
		} else {
			c.logger.Debug("receipt retrieval failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// TransactionInfo retrieves information about a transaction
func (c *EthClient) TransactionInfo(ctx context.Context, hash common.Hash) (*types.TxInfo, error) {
	tx, isPending, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	info := &types.TxInfo{
		Hash:     tx.Hash().Hex(),
		Nonce:    tx.Nonce(),
		Value:    tx.Value().String(),
		GasPrice: tx.GasPrice().String(),
		GasLimit: tx.Gas(),
		Pending:  isPending,
	}

	if tx.To() != nil {
		info.To = tx.To().Hex()
	}
	if from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(c.chainID), tx); err == nil {
		info.From = from.Hex()
	}

	if isPending {
		return info, nil
	}

	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	status := receipt.Status
	info.BlockNumber = receipt.BlockNumber.Uint64()
	info.GasUsed = receipt.GasUsed
	info.Status = &status

	return info, nil
}

// Close closes the client connection
func (c *EthClient) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}
