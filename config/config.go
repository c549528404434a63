package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"wton-stake/pkg/client"
	"wton-stake/pkg/devnode"
	"wton-stake/pkg/plan"
	"wton-stake/pkg/token"
)

// ContractsConfig holds the addresses of the deployed contracts
type ContractsConfig struct {
	Factory        common.Address `mapstructure:"factory"`
	Quoter         common.Address `mapstructure:"quoter"`
	SwapRouter     common.Address `mapstructure:"swap_router"`
	DepositManager common.Address `mapstructure:"deposit_manager"`
	Layer2Registry common.Address `mapstructure:"layer2_registry"`
	SeigManager    common.Address `mapstructure:"seig_manager"`
}

// AmountsConfig holds run amounts in whole token units
type AmountsConfig struct {
	EthToWrap   string `mapstructure:"eth_to_wrap"`
	WethToSwap  string `mapstructure:"weth_to_swap"`
	MinWtonOut  string `mapstructure:"min_wton_out"`
	WtonToStake string `mapstructure:"wton_to_stake"`
	Layer2TopUp string `mapstructure:"layer2_topup"`
}

// TokensConfig holds the token records
type TokensConfig struct {
	WETH token.Token `mapstructure:"weth"`
	WTON token.Token `mapstructure:"wton"`
}

// Config holds the application configuration
type Config struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	PrivateKey      string        `mapstructure:"private_key"`
	DevNode         string        `mapstructure:"dev_node"`
	ExplorerURL     string        `mapstructure:"explorer_url"`
	GasLimit        uint64        `mapstructure:"gas_limit"`
	GasPrice        string        `mapstructure:"gas_price"` // gwei, empty or 0 to use the node's suggestion
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
	PlanStoragePath string        `mapstructure:"plan_storage_path"`

	Contracts   ContractsConfig `mapstructure:"contracts"`
	Layer2      string          `mapstructure:"layer2"` // empty to pick from the registry
	Layer2Index uint64          `mapstructure:"layer2_index"`

	Amounts      AmountsConfig `mapstructure:"amounts"`
	BlocksToMine uint64        `mapstructure:"blocks_to_mine"`
	FeeTier      int64         `mapstructure:"fee_tier"`
	SwapDeadline time.Duration `mapstructure:"swap_deadline"`

	Tokens TokensConfig `mapstructure:"tokens"`
}

var globalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "http://localhost:8545")
	v.SetDefault("private_key", "")
	v.SetDefault("dev_node", string(devnode.Hardhat))
	v.SetDefault("explorer_url", "https://etherscan.io")
	v.SetDefault("gas_limit", 0)
	v.SetDefault("gas_price", "")
	v.SetDefault("receipt_timeout", client.DefaultReceiptTimeout)
	v.SetDefault("plan_storage_path", "")

	// Ethereum mainnet deployments
	v.SetDefault("contracts.factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("contracts.quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("contracts.swap_router", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	v.SetDefault("contracts.deposit_manager", "0x0b58ca72b12f01fc05f8f252e226f3e2089bd00e")
	v.SetDefault("contracts.layer2_registry", "0x0b3E174A2170083e770D5d4Cf56774D221b7063e")
	v.SetDefault("contracts.seig_manager", "0x0b55a0f463b6DEFb81c6063973763951712D0E5F")

	v.SetDefault("layer2", "0xf3B17FDB808c7d0Df9ACd24dA34700ce069007DF")
	v.SetDefault("layer2_index", 0)

	v.SetDefault("amounts.eth_to_wrap", "10")
	v.SetDefault("amounts.weth_to_swap", "1")
	v.SetDefault("amounts.min_wton_out", "0")
	v.SetDefault("amounts.wton_to_stake", "1000")
	v.SetDefault("amounts.layer2_topup", "100")
	v.SetDefault("blocks_to_mine", 10)
	v.SetDefault("fee_tier", 3000)
	v.SetDefault("swap_deadline", 20*time.Minute)

	for key, t := range map[string]token.Token{"tokens.weth": token.WETH, "tokens.wton": token.WTON} {
		v.SetDefault(key+".chain_id", t.ChainID)
		v.SetDefault(key+".address", t.Address.Hex())
		v.SetDefault(key+".decimals", t.Decimals)
		v.SetDefault(key+".symbol", t.Symbol)
		v.SetDefault(key+".name", t.Name)
		v.SetDefault(key+".is_token", t.IsToken)
		v.SetDefault(key+".is_native", t.IsNative)
		v.SetDefault(key+".wrapped", t.Wrapped)
	}
}

// SetConfigFile makes Load read path instead of searching for .wton-stake.yaml
func SetConfigFile(path string) {
	viper.SetConfigFile(path)
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".wton-stake")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	cfg, err := load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// WTON_STAKE_AMOUNTS_ETH_TO_WRAP overrides amounts.eth_to_wrap
	v.SetEnvPrefix("WTON_STAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every address, amount and setting
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required. Set WTON_STAKE_RPC_URL or add it to .wton-stake.yaml")
	}
	if _, err := devnode.ParseNamespace(c.DevNode); err != nil {
		return err
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receipt_timeout must be positive")
	}
	if _, err := c.Gas(); err != nil {
		return err
	}
	if _, err := c.Settings(); err != nil {
		return err
	}

	for name, t := range map[string]token.Token{"weth": c.Tokens.WETH, "wton": c.Tokens.WTON} {
		if t.Address == (common.Address{}) {
			return fmt.Errorf("tokens.%s.address is required", name)
		}
	}

	return nil
}

// Layer2Address returns the configured layer2, or the zero address when
// it should be read from the registry
func (c *Config) Layer2Address() (common.Address, error) {
	if c.Layer2 == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(c.Layer2) {
		return common.Address{}, fmt.Errorf("invalid layer2 address: %s", c.Layer2)
	}
	return common.HexToAddress(c.Layer2), nil
}

// Gas returns the gas overrides for sent transactions
func (c *Config) Gas() (client.GasSettings, error) {
	gas := client.GasSettings{Limit: c.GasLimit}
	if c.GasPrice == "" {
		return gas, nil
	}

	price, err := token.ParseUnits(c.GasPrice, 9)
	if err != nil {
		return gas, fmt.Errorf("invalid gas_price: %w", err)
	}
	if price.Sign() > 0 {
		gas.Price = price
	}
	return gas, nil
}

// Settings converts the configured amounts into a run's settings
func (c *Config) Settings() (plan.Settings, error) {
	layer2, err := c.Layer2Address()
	if err != nil {
		return plan.Settings{}, err
	}

	parse := func(name, amount string, decimals uint8) (*big.Int, error) {
		v, err := token.ParseUnits(amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("invalid amounts.%s: %w", name, err)
		}
		return v, nil
	}

	weth, wton := c.Tokens.WETH, c.Tokens.WTON
	s := plan.Settings{
		FeeTier:      c.FeeTier,
		SwapDeadline: c.SwapDeadline,
		BlocksToMine: c.BlocksToMine,
		Layer2:       layer2,
		Layer2Index:  c.Layer2Index,
	}

	if s.EthToWrap, err = parse("eth_to_wrap", c.Amounts.EthToWrap, token.EtherDecimals); err != nil {
		return plan.Settings{}, err
	}
	if s.WethToSwap, err = parse("weth_to_swap", c.Amounts.WethToSwap, weth.Decimals); err != nil {
		return plan.Settings{}, err
	}
	if s.MinWtonOut, err = parse("min_wton_out", c.Amounts.MinWtonOut, wton.Decimals); err != nil {
		return plan.Settings{}, err
	}
	if s.WtonToStake, err = parse("wton_to_stake", c.Amounts.WtonToStake, wton.Decimals); err != nil {
		return plan.Settings{}, err
	}
	if s.Layer2TopUp, err = parse("layer2_topup", c.Amounts.Layer2TopUp, token.EtherDecimals); err != nil {
		return plan.Settings{}, err
	}

	if err := s.Validate(); err != nil {
		return plan.Settings{}, err
	}
	return s, nil
}

// TxURL returns the explorer link of a transaction
func (c *Config) TxURL(hash string) string {
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
