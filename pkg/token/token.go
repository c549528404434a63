package token

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an ERC20 token on a single network
type Token struct {
	ChainID  int64          `json:"chain_id" mapstructure:"chain_id"`
	Address  common.Address `json:"address" mapstructure:"address"`
	Decimals uint8          `json:"decimals" mapstructure:"decimals"`
	Symbol   string         `json:"symbol" mapstructure:"symbol"`
	Name     string         `json:"name" mapstructure:"name"`
	IsToken  bool           `json:"is_token" mapstructure:"is_token"`
	IsNative bool           `json:"is_native" mapstructure:"is_native"`
	Wrapped  bool           `json:"wrapped" mapstructure:"wrapped"`
}

// Ethereum mainnet token records
var (
	WETH = Token{
		ChainID:  1,
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Decimals: 18,
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		IsToken:  true,
		IsNative: true,
		Wrapped:  true,
	}

	WTON = Token{
		ChainID:  1,
		Address:  common.HexToAddress("0xc4A11aaf6ea915Ed7Ac194161d2fC9384F15bff2"),
		Decimals: 27,
		Symbol:   "WTON",
		Name:     "Wrapped TON",
		IsToken:  true,
		IsNative: true,
		Wrapped:  true,
	}
)

// EtherDecimals is the precision of the native currency
const EtherDecimals = 18

// Parse converts a human readable amount into the token's smallest unit
func (t Token) Parse(amount string) (*big.Int, error) {
	return ParseUnits(amount, t.Decimals)
}

// Format renders an amount in the token's smallest unit as a decimal string
func (t Token) Format(amount *big.Int) string {
	return FormatUnits(amount, t.Decimals)
}

// String returns the token symbol and address
func (t Token) String() string {
	return fmt.Sprintf("%s (%s)", t.Symbol, t.Address.Hex())
}

// ParseUnits converts a decimal string such as "1.5" into an integer scaled
// by 10^decimals. The conversion is exact; precision beyond decimals is rejected.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	amount = strings.TrimPrefix(amount, "+")

	whole, frac, hasDot := strings.Cut(amount, ".")
	if hasDot && whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}

	return value, nil
}

// FormatUnits is the inverse of ParseUnits. The result always carries at
// least one fractional digit ("1.0") and has trailing zeros trimmed.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0.0"
	}

	negative := value.Sign() < 0
	digits := new(big.Int).Abs(value).String()

	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}

	split := len(digits) - int(decimals)
	whole, frac := digits[:split], strings.TrimRight(digits[split:], "0")
	if frac == "" {
		frac = "0"
	}

	if negative {
		return "-" + whole + "." + frac
	}
	return whole + "." + frac
}

// Truncate drops the fractional part of value, keeping whole units only
func Truncate(value *big.Int, decimals uint8) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int).Quo(value, unit)
	return whole.Mul(whole, unit)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
