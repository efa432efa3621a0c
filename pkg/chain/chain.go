// Package chain reads token state from an EVM node over JSON-RPC. It never
// signs or sends transactions.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

var parsedERC20 abi.ABI

func init() {
	var err error
	parsedERC20, err = abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("chain: bad erc20 abi: %v", err))
	}
}

// Client is a read-only view of token contracts on one network
type Client struct {
	eth *ethclient.Client
}

// Dial connects to the RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return &Client{eth: eth}, nil
}

// ChainID returns the network's chain id
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// BalanceOf returns the ERC20 balance of account
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.call(ctx, token, "balanceOf", &balance, account); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns how much spender may pull from owner
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := c.call(ctx, token, "allowance", &allowance, owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

// Decimals returns the token's decimals
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	if err := c.call(ctx, token, "decimals", &decimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

// Symbol returns the token's symbol
func (c *Client) Symbol(ctx context.Context, token common.Address) (string, error) {
	var symbol string
	if err := c.call(ctx, token, "symbol", &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// IsContract reports whether code is deployed at address
func (c *Client) IsContract(ctx context.Context, address common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	return len(code) > 0, nil
}

// Close closes the client connection
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

func (c *Client) call(ctx context.Context, token common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := parsedERC20.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s on %s: %w", method, token.Hex(), err)
	}
	if len(result) == 0 {
		return fmt.Errorf("%s on %s returned no data (not a token contract?)", method, token.Hex())
	}

	values, err := parsedERC20.Unpack(method, result)
	if err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return fmt.Errorf("%s returned %d values", method, len(values))
	}
	return assign(out, values[0], method)
}

func assign(out, v interface{}, method string) error {
	switch dst := out.(type) {
	case **big.Int:
		n, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("%s: unexpected type %T", method, v)
		}
		*dst = n
	case *uint8:
		n, ok := v.(uint8)
		if !ok {
			return fmt.Errorf("%s: unexpected type %T", method, v)
		}
		*dst = n
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: unexpected type %T", method, v)
		}
		*dst = s
	default:
		return fmt.Errorf("%s: unsupported output %T", method, out)
	}
	return nil
}
