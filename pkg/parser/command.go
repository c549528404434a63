package parser

import (
	"fmt"
	"regexp"
	"strings"

	"wton-stake/pkg/types"
)

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 WETH to WTON"
//   - "0.5 ETH to TON"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	// <amount> <source_token> TO <dest_token>
	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 WETH to WTON')")
	}

	return &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeTokenSymbol(matches[2]),
		DestToken:   NormalizeTokenSymbol(matches[3]),
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
// and names a pair the router is configured for
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.SourceToken == req.DestToken {
		return fmt.Errorf("cannot swap %s to itself", req.SourceToken)
	}
	if req.SourceToken != "WETH" || req.DestToken != "WTON" {
		return fmt.Errorf("unsupported pair %s -> %s (only WETH -> WTON)", req.SourceToken, req.DestToken)
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// The router only trades the wrapped forms
	aliases := map[string]string{
		"ETH": "WETH",
		"TON": "WTON",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
