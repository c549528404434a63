package plan

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"wton-stake/pkg/client"
	"wton-stake/pkg/types"
)

var (
	testAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testLayer2  = common.HexToAddress("0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF")
	testPool    = common.HexToAddress("0xC29271E3a68A7647Fd1399298Ef18FeCA3879F59")
	testRouter  = common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	testDM      = common.HexToAddress("0x0b58ca72b12f01fc05f8f252e226f3e2089bd00e")
	testCoinage = common.HexToAddress("0x2Be5E8c109e2197D077D13A82dAead6a9b3433C5")

	errBoom = errors.New("boom")
)

func okReceipt(n int64) *ethtypes.Receipt {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: common.BigToHash(big.NewInt(n))}
}

type fakeSender struct {
	address common.Address
}

func (s fakeSender) Address() common.Address { return s.address }

func (s fakeSender) Send(ctx context.Context, req client.TxRequest) (common.Hash, error) {
	return common.Hash{}, nil
}

type fakeChain struct {
	balances map[common.Address]*big.Int
}

func (c *fakeChain) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	if b, ok := c.balances[account]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

type fakeToken struct {
	balance    *big.Int
	approveErr error
	depositErr error
	approvals  map[common.Address]*big.Int
	deposited  *big.Int
}

func (f *fakeToken) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

func (f *fakeToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if a, ok := f.approvals[spender]; ok {
		return a, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeToken) Approve(ctx context.Context, sender client.Sender, spender common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	if f.approvals == nil {
		f.approvals = make(map[common.Address]*big.Int)
	}
	f.approvals[spender] = amount
	return okReceipt(1), nil
}

func (f *fakeToken) Deposit(ctx context.Context, sender client.Sender, value *big.Int) (*ethtypes.Receipt, error) {
	if f.depositErr != nil {
		return nil, f.depositErr
	}
	f.deposited = value
	return okReceipt(2), nil
}

type fakeFactory struct {
	err error
}

func (f *fakeFactory) GetPool(ctx context.Context, a, b common.Address, fee *big.Int) (common.Address, error) {
	return testPool, f.err
}

type fakePool struct {
	token0, token1 common.Address
	fee            *big.Int
	feeErr         error

	mu    sync.Mutex
	reads int
}

func (p *fakePool) read() {
	p.mu.Lock()
	p.reads++
	p.mu.Unlock()
}

func (p *fakePool) Token0(ctx context.Context) (common.Address, error) {
	p.read()
	return p.token0, nil
}

func (p *fakePool) Token1(ctx context.Context) (common.Address, error) {
	p.read()
	return p.token1, nil
}

func (p *fakePool) Fee(ctx context.Context) (*big.Int, error) {
	p.read()
	return p.fee, p.feeErr
}

type fakeQuoter struct {
	out  *big.Int
	err  error
	last types.QuoteParams
}

func (q *fakeQuoter) QuoteExactInputSingle(ctx context.Context, params types.QuoteParams) (*types.Quote, error) {
	q.last = params
	if q.err != nil {
		return nil, q.err
	}
	return &types.Quote{AmountOut: q.out, SqrtPriceX96After: big.NewInt(1), GasEstimate: big.NewInt(80000)}, nil
}

type fakeRouter struct {
	err  error
	last *types.SwapParams
}

func (r *fakeRouter) ExactInputSingle(ctx context.Context, sender client.Sender, params *types.SwapParams) (*ethtypes.Receipt, error) {
	r.last = params
	if r.err != nil {
		return nil, r.err
	}
	return okReceipt(3), nil
}

type fakeDepositManager struct {
	err    error
	amount *big.Int
}

func (d *fakeDepositManager) Deposit(ctx context.Context, sender client.Sender, layer2 common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.amount = amount
	return okReceipt(4), nil
}

type fakeSeig struct {
	updateErr error
	updatedBy common.Address
}

func (s *fakeSeig) Coinages(ctx context.Context, layer2 common.Address) (common.Address, error) {
	return testCoinage, nil
}

func (s *fakeSeig) StakeOf(ctx context.Context, layer2, account common.Address) (*big.Int, error) {
	return big.NewInt(1000), nil
}

func (s *fakeSeig) UpdateSeigniorage(ctx context.Context, sender client.Sender) (*ethtypes.Receipt, error) {
	s.updatedBy = sender.Address()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return okReceipt(5), nil
}

type fakeCoinage struct{}

func (fakeCoinage) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return big.NewInt(999), nil
}

type fakeNode struct {
	height  uint64
	mineErr error
	calls   []string
}

func (n *fakeNode) Mine(ctx context.Context, blocks uint64) error {
	n.calls = append(n.calls, "mine")
	if n.mineErr != nil {
		return n.mineErr
	}
	n.height += blocks
	return nil
}

func (n *fakeNode) SetBalance(ctx context.Context, account common.Address, wei *big.Int) error {
	n.calls = append(n.calls, "setBalance")
	return nil
}

func (n *fakeNode) ImpersonateAccount(ctx context.Context, account common.Address) error {
	n.calls = append(n.calls, "impersonate")
	return nil
}

func (n *fakeNode) StopImpersonatingAccount(ctx context.Context, account common.Address) error {
	n.calls = append(n.calls, "stopImpersonating")
	return nil
}

func (n *fakeNode) LatestBlock(ctx context.Context) (uint64, error) {
	return n.height, nil
}

type recordingReporter struct {
	started  []string
	finished []Step
}

func (r *recordingReporter) StepStarted(phase Phase, name string) {
	r.started = append(r.started, string(phase)+"/"+name)
}

func (r *recordingReporter) StepFinished(step Step) {
	r.finished = append(r.finished, step)
}
