// Package parser reads the "<amount> <token> to <token>" shorthand the
// CLI accepts for swaps and quotes.
package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// SwapRequest is a parsed swap command. Tokens are symbols or hex addresses.
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s+(0X[0-9A-F]{40}|[A-Z0-9]+)\s+TO\s+(0X[0-9A-F]{40}|[A-Z0-9]+)$`)

// ParseSwapCommand parses a swap command
// Examples:
//   - "swap 10 USDC to USDT"
//   - "1.5 WETH to USDC"
//   - "100 0xa0b8...eb48 to USDT"
func ParseSwapCommand(command string) (*SwapRequest, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '10 USDC to USDT')")
	}

	req := &SwapRequest{
		Amount:      matches[1],
		SourceToken: normalizeToken(matches[2]),
		DestToken:   normalizeToken(matches[3]),
	}
	if err := ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *SwapRequest) error {
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
		return fmt.Errorf("source and destination token are both %s", req.SourceToken)
	}
	return nil
}

// hex addresses were upper-cased with the rest of the command
func normalizeToken(tok string) string {
	if strings.HasPrefix(tok, "0X") {
		return "0x" + strings.ToLower(tok[2:])
	}
	return tok
}
