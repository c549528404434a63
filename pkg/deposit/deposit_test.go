package deposit

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wton-stake/pkg/client"
)

var (
	account        = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	layer2         = common.HexToAddress("0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF")
	depositManager = common.HexToAddress("0x0b58ca72b12f01fc05f8f252e226f3e2089bd00e")
	coinage        = common.HexToAddress("0x2Be5E8c109e2197D077D13A82dAead6a9b3433C5")
)

type mockSender struct{}

func (mockSender) Address() common.Address { return account }

func (mockSender) Send(ctx context.Context, req client.TxRequest) (common.Hash, error) {
	return common.Hash{}, nil
}

type mockToken struct {
	balance    *big.Int
	allowances map[common.Address]*big.Int
	approveErr error
}

func (m *mockToken) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return m.balance, nil
}

func (m *mockToken) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if a, ok := m.allowances[spender]; ok {
		return a, nil
	}
	return big.NewInt(0), nil
}

func (m *mockToken) Approve(ctx context.Context, sender client.Sender, spender common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	if m.allowances == nil {
		m.allowances = make(map[common.Address]*big.Int)
	}
	m.allowances[spender] = amount
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

type mockDepositor struct {
	layer2 common.Address
	amount *big.Int
}

func (m *mockDepositor) Deposit(ctx context.Context, sender client.Sender, layer2 common.Address, amount *big.Int) (*ethtypes.Receipt, error) {
	m.layer2 = layer2
	m.amount = amount
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

type mockSeig struct {
	stake *big.Int
}

func (m *mockSeig) Coinages(ctx context.Context, l2 common.Address) (common.Address, error) {
	if l2 != layer2 {
		return common.Address{}, errors.New("unknown layer2")
	}
	return coinage, nil
}

func (m *mockSeig) StakeOf(ctx context.Context, l2, acct common.Address) (*big.Int, error) {
	return m.stake, nil
}

type mockBalance struct {
	balance *big.Int
}

func (m mockBalance) BalanceOf(ctx context.Context, acct common.Address) (*big.Int, error) {
	return m.balance, nil
}

type mockRegistry struct {
	layer2s []common.Address
}

func (m *mockRegistry) NumLayer2s(ctx context.Context) (uint64, error) {
	return uint64(len(m.layer2s)), nil
}

func (m *mockRegistry) Layer2ByIndex(ctx context.Context, index uint64) (common.Address, error) {
	return m.layer2s[index], nil
}

func newTestManager(wton *mockToken, dm *mockDepositor, registry Registry, l2 common.Address, index uint64) *Manager {
	return NewManager(Contracts{
		WTON:                  wton,
		DepositManager:        dm,
		DepositManagerAddress: depositManager,
		SeigManager:           &mockSeig{stake: big.NewInt(500)},
		OpenCoinage: func(address common.Address) BalanceReader {
			return mockBalance{balance: big.NewInt(499)}
		},
		Registry: registry,
	}, l2, index, nil)
}

func TestResolveLayer2_Configured(t *testing.T) {
	m := newTestManager(&mockToken{}, &mockDepositor{}, nil, layer2, 0)

	got, err := m.ResolveLayer2(context.Background())
	require.NoError(t, err)
	assert.Equal(t, layer2, got)
}

func TestResolveLayer2_Registry(t *testing.T) {
	other := common.HexToAddress("0x1")
	registry := &mockRegistry{layer2s: []common.Address{other, layer2}}
	m := newTestManager(&mockToken{}, &mockDepositor{}, registry, common.Address{}, 1)

	got, err := m.ResolveLayer2(context.Background())
	require.NoError(t, err)
	assert.Equal(t, layer2, got)
}

func TestResolveLayer2_OutOfRange(t *testing.T) {
	registry := &mockRegistry{layer2s: []common.Address{layer2}}
	m := newTestManager(&mockToken{}, &mockDepositor{}, registry, common.Address{}, 3)

	_, err := m.ResolveLayer2(context.Background())
	assert.ErrorIs(t, err, ErrNoLayer2)
}

func TestResolveLayer2_NoRegistry(t *testing.T) {
	m := newTestManager(&mockToken{}, &mockDepositor{}, nil, common.Address{}, 0)

	_, err := m.ResolveLayer2(context.Background())
	assert.ErrorIs(t, err, ErrNoLayer2)
}

func TestApprove(t *testing.T) {
	wton := &mockToken{}
	m := newTestManager(wton, &mockDepositor{}, nil, layer2, 0)

	amount := big.NewInt(1000)
	receipt, allowance, err := m.Approve(context.Background(), mockSender{}, amount)
	require.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Equal(t, amount, allowance)
	assert.Equal(t, amount, wton.allowances[depositManager])
}

func TestApprove_Fails(t *testing.T) {
	approveErr := errors.New("token approval failed")
	m := newTestManager(&mockToken{approveErr: approveErr}, &mockDepositor{}, nil, layer2, 0)

	_, allowance, err := m.Approve(context.Background(), mockSender{}, big.NewInt(1))
	assert.ErrorIs(t, err, approveErr)
	assert.Nil(t, allowance)
}

func TestDeposit(t *testing.T) {
	dm := &mockDepositor{}
	m := newTestManager(&mockToken{}, dm, nil, layer2, 0)

	_, err := m.Deposit(context.Background(), mockSender{}, layer2, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, layer2, dm.layer2)
	assert.Equal(t, int64(1000), dm.amount.Int64())
}

func TestDeposit_ZeroAmount(t *testing.T) {
	dm := &mockDepositor{}
	m := newTestManager(&mockToken{}, dm, nil, layer2, 0)

	_, err := m.Deposit(context.Background(), mockSender{}, layer2, big.NewInt(0))
	assert.Error(t, err)
	assert.Nil(t, dm.amount)
}

func TestPosition(t *testing.T) {
	m := newTestManager(&mockToken{balance: big.NewInt(9000)}, &mockDepositor{}, nil, layer2, 0)

	pos, err := m.Position(context.Background(), layer2, account)
	require.NoError(t, err)
	assert.Equal(t, coinage, pos.Coinage)
	assert.Equal(t, int64(499), pos.CoinageBalance.Int64())
	assert.Equal(t, int64(500), pos.Stake.Int64())
	assert.Equal(t, int64(9000), pos.WTONBalance.Int64())
}

func TestPosition_UnknownLayer2(t *testing.T) {
	m := newTestManager(&mockToken{}, &mockDepositor{}, nil, layer2, 0)

	_, err := m.Position(context.Background(), common.HexToAddress("0x2"), account)
	assert.Error(t, err)
}
