package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// DefaultGasLimit is used when gas estimation fails and no limit is configured
const DefaultGasLimit = 500000

// ErrNoAccounts is returned when the node exposes no unlocked accounts
var ErrNoAccounts = errors.New("node has no unlocked accounts")

// TxRequest is an unsigned contract call or transfer
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Sender submits transactions on behalf of one account
type Sender interface {
	Address() common.Address
	Send(ctx context.Context, req TxRequest) (common.Hash, error)
}

// GasSettings overrides gas estimation. Zero values mean "ask the node".
type GasSettings struct {
	Limit uint64
	Price *big.Int
}

// TxBackend is the subset of ethclient.Client needed to sign and submit
// transactions locally
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// RPCCaller is the subset of rpc.Client used for raw node methods
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// KeyedSender signs transactions with a local private key
type KeyedSender struct {
	backend    TxBackend
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	address    common.Address
	gas        GasSettings
	logger     *zap.Logger
}

// NewKeyedSender creates a sender from a hex encoded private key
func NewKeyedSender(backend TxBackend, chainID *big.Int, hexKey string, gas GasSettings, logger *zap.Logger) (*KeyedSender, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &KeyedSender{
		backend:    backend,
		chainID:    chainID,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		gas:        gas,
		logger:     logger,
	}, nil
}

// Address returns the account derived from the private key
func (s *KeyedSender) Address() common.Address {
	return s.address
}

// Send builds, signs and submits a legacy EIP-155 transaction
func (s *KeyedSender) Send(ctx context.Context, req TxRequest) (common.Hash, error) {
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.gasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gasLimit := s.gasLimit(ctx, req, value)

	tx := ethtypes.NewTransaction(nonce, req.To, value, gasLimit, gasPrice, req.Data)

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), s.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Debug("transaction sent",
		zap.String("tx", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
		zap.String("to", req.To.Hex()))

	return signedTx.Hash(), nil
}

func (s *KeyedSender) gasPrice(ctx context.Context) (*big.Int, error) {
	if s.gas.Price != nil && s.gas.Price.Sign() > 0 {
		return s.gas.Price, nil
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (s *KeyedSender) gasLimit(ctx context.Context, req TxRequest, value *big.Int) uint64 {
	if s.gas.Limit > 0 {
		return s.gas.Limit
	}

	to := req.To
	estimated, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		s.logger.Warn("gas estimation failed, using default limit",
			zap.Uint64("gas", DefaultGasLimit), zap.Error(err))
		return DefaultGasLimit
	}

	return estimated * 120 / 100 // 20% buffer
}

// NodeSender submits transactions through eth_sendTransaction, leaving the
// signing to the node. Works for the node's unlocked accounts and for
// impersonated addresses on a dev node.
type NodeSender struct {
	rpc     RPCCaller
	address common.Address
	gas     GasSettings
}

// NewNodeSender creates a sender for an account managed by the node
func NewNodeSender(rpc RPCCaller, address common.Address, gas GasSettings) *NodeSender {
	return &NodeSender{
		rpc:     rpc,
		address: address,
		gas:     gas,
	}
}

// Address returns the sending account
func (s *NodeSender) Address() common.Address {
	return s.address
}

// Send submits the transaction with eth_sendTransaction
func (s *NodeSender) Send(ctx context.Context, req TxRequest) (common.Hash, error) {
	args := map[string]interface{}{
		"from": s.address,
		"to":   req.To,
	}
	if len(req.Data) > 0 {
		args["data"] = hexutil.Bytes(req.Data)
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		args["value"] = (*hexutil.Big)(req.Value)
	}
	if s.gas.Limit > 0 {
		args["gas"] = hexutil.Uint64(s.gas.Limit)
	}
	if s.gas.Price != nil && s.gas.Price.Sign() > 0 {
		args["gasPrice"] = (*hexutil.Big)(s.gas.Price)
	}

	var hash common.Hash
	if err := s.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction from %s: %w", s.address.Hex(), err)
	}

	return hash, nil
}

// DefaultAccount returns the first account the node has unlocked
func DefaultAccount(ctx context.Context, rpc RPCCaller) (common.Address, error) {
	var accounts []common.Address
	if err := rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return common.Address{}, fmt.Errorf("failed to list node accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, ErrNoAccounts
	}
	return accounts[0], nil
}

// NewSender returns a KeyedSender when a private key is configured and a
// NodeSender for the node's default account otherwise
func NewSender(ctx context.Context, c *EthClient, privateKey string, gas GasSettings) (Sender, error) {
	if privateKey != "" {
		return NewKeyedSender(c.Eth(), c.ChainID(), privateKey, gas, c.logger)
	}

	account, err := DefaultAccount(ctx, c.RPC())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("using node account", zap.String("account", account.Hex()))
	return NewNodeSender(c.RPC(), account, gas), nil
}
