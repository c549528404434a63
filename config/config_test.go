package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wton-stake/pkg/token"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, "hardhat", cfg.DevNode)
	assert.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 20*time.Minute, cfg.SwapDeadline)
	assert.Equal(t, uint64(10), cfg.BlocksToMine)
	assert.Equal(t, int64(3000), cfg.FeeTier)
	assert.Equal(t, common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"), cfg.Contracts.SwapRouter)
	assert.Equal(t, common.HexToAddress("0x0b55a0f463b6DEFb81c6063973763951712D0E5F"), cfg.Contracts.SeigManager)
	assert.Equal(t, token.WETH, cfg.Tokens.WETH)
	assert.Equal(t, token.WTON, cfg.Tokens.WTON)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", settings.EthToWrap.String())
	assert.Equal(t, "1000000000000000000", settings.WethToSwap.String())
	assert.Equal(t, "0", settings.MinWtonOut.String())
	assert.Equal(t, "1000000000000000000000000000000", settings.WtonToStake.String())
	assert.Equal(t, "100000000000000000000", settings.Layer2TopUp.String())
	assert.Equal(t, common.HexToAddress("0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF"), settings.Layer2)

	gas, err := cfg.Gas()
	require.NoError(t, err)
	assert.Zero(t, gas.Limit)
	assert.Nil(t, gas.Price)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WTON_STAKE_RPC_URL", "http://node:8545")
	t.Setenv("WTON_STAKE_DEV_NODE", "anvil")
	t.Setenv("WTON_STAKE_AMOUNTS_WETH_TO_SWAP", "0.5")
	t.Setenv("WTON_STAKE_FEE_TIER", "500")
	t.Setenv("WTON_STAKE_GAS_PRICE", "1.5")
	t.Setenv("WTON_STAKE_SWAP_DEADLINE", "5m")
	t.Setenv("WTON_STAKE_CONTRACTS_QUOTER", "0x1111111111111111111111111111111111111111")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, "anvil", cfg.DevNode)
	assert.Equal(t, 5*time.Minute, cfg.SwapDeadline)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Contracts.Quoter)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", settings.WethToSwap.String())
	assert.Equal(t, int64(500), settings.FeeTier)

	gas, err := cfg.Gas()
	require.NoError(t, err)
	assert.Equal(t, "1500000000", gas.Price.String())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wton-stake.yaml")
	content := `
rpc_url: http://127.0.0.1:9545
layer2: ""
layer2_index: 2
blocks_to_mine: 3
amounts:
  wton_to_stake: "25.5"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9545", cfg.RPCURL)
	assert.Equal(t, uint64(3), cfg.BlocksToMine)

	settings, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, settings.Layer2)
	assert.Equal(t, uint64(2), settings.Layer2Index)
	assert.Equal(t, "25500000000000000000000000000", settings.WtonToStake.String())
}

func TestLoadMissingConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := load(v)
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad contract address", "WTON_STAKE_CONTRACTS_FACTORY", "0xnothex"},
		{"bad layer2", "WTON_STAKE_LAYER2", "layer2"},
		{"bad dev node", "WTON_STAKE_DEV_NODE", "ganache"},
		{"bad amount", "WTON_STAKE_AMOUNTS_ETH_TO_WRAP", "ten"},
		{"zero stake", "WTON_STAKE_AMOUNTS_WTON_TO_STAKE", "0"},
		{"bad fee tier", "WTON_STAKE_FEE_TIER", "1234"},
		{"bad gas price", "WTON_STAKE_GAS_PRICE", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}

func TestTxURL(t *testing.T) {
	cfg := &Config{ExplorerURL: "https://etherscan.io/"}
	assert.Equal(t, "https://etherscan.io/tx/0xabc", cfg.TxURL("0xabc"))
}

func TestGetSet(t *testing.T) {
	cfg := &Config{RPCURL: "http://example:8545"}
	Set(cfg)
	t.Cleanup(func() { Set(nil) })

	assert.Same(t, cfg, Get())
}
