// Package devnode drives the test-only JSON-RPC methods of a local
// development node (Hardhat or Anvil).
package devnode

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"wton-stake/pkg/client"
)

// Namespace is the RPC method prefix of the development node
type Namespace string

const (
	Hardhat Namespace = "hardhat"
	Anvil   Namespace = "anvil"
)

// ParseNamespace validates a configured node flavour
func ParseNamespace(s string) (Namespace, error) {
	switch ns := Namespace(strings.ToLower(strings.TrimSpace(s))); ns {
	case "":
		return Hardhat, nil
	case Hardhat, Anvil:
		return ns, nil
	default:
		return "", fmt.Errorf("unsupported dev node %q (expected hardhat or anvil)", s)
	}
}

// Node issues development helpers against a local node
type Node struct {
	rpc    client.RPCCaller
	ns     Namespace
	logger *zap.Logger
}

// New creates a Node using the namespace's method names
func New(rpc client.RPCCaller, ns Namespace, logger *zap.Logger) *Node {
	if ns == "" {
		ns = Hardhat
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{rpc: rpc, ns: ns, logger: logger}
}

// Namespace returns the node flavour
func (n *Node) Namespace() Namespace {
	return n.ns
}

func (n *Node) method(name string) string {
	return string(n.ns) + "_" + name
}

func (n *Node) call(ctx context.Context, result interface{}, name string, args ...interface{}) error {
	method := n.method(name)
	n.logger.Debug("dev node call", zap.String("method", method))

	if err := n.rpc.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	return nil
}

// Mine produces the given number of empty blocks immediately
func (n *Node) Mine(ctx context.Context, blocks uint64) error {
	if blocks == 0 {
		return nil
	}
	return n.call(ctx, nil, "mine", hexutil.Uint64(blocks))
}

// SetBalance overwrites the native balance of account
func (n *Node) SetBalance(ctx context.Context, account common.Address, wei *big.Int) error {
	if wei == nil || wei.Sign() < 0 {
		return fmt.Errorf("invalid balance %v for %s", wei, account.Hex())
	}
	return n.call(ctx, nil, "setBalance", account, (*hexutil.Big)(wei))
}

// ImpersonateAccount lets the node sign transactions from account
func (n *Node) ImpersonateAccount(ctx context.Context, account common.Address) error {
	return n.call(ctx, nil, "impersonateAccount", account)
}

// StopImpersonatingAccount reverts ImpersonateAccount
func (n *Node) StopImpersonatingAccount(ctx context.Context, account common.Address) error {
	return n.call(ctx, nil, "stopImpersonatingAccount", account)
}

// LatestBlock returns the current block height
func (n *Node) LatestBlock(ctx context.Context) (uint64, error) {
	var height hexutil.Uint64
	if err := n.rpc.CallContext(ctx, &height, "eth_blockNumber"); err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return uint64(height), nil
}
