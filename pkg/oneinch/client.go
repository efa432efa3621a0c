// Package oneinch talks to the 1inch aggregation API (v4) to price a swap
// and fetch router calldata the adapter can execute.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oneinch-swapper/pkg/instruction"
)

const DefaultBaseURL = "https://api.1inch.io"

// Client wraps the 1inch HTTP API for one chain
type Client struct {
	Base    string
	ChainID int64
	APIKey  string
	HTTP    *http.Client
}

// Token is a token as described by the API
type Token struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// Quote is the priced route without calldata
type Quote struct {
	FromToken       Token  `json:"fromToken"`
	ToToken         Token  `json:"toToken"`
	FromTokenAmount string `json:"fromTokenAmount"`
	ToTokenAmount   string `json:"toTokenAmount"`
	EstimatedGas    uint64 `json:"estimatedGas"`
}

// Tx is the router transaction returned by the swap endpoint
type Tx struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Data     hexutil.Bytes  `json:"data"`
	Value    string         `json:"value"`
	GasPrice string         `json:"gasPrice"`
	Gas      uint64         `json:"gas"`
}

// Swap is a priced route plus the router calldata that executes it
type Swap struct {
	FromToken       Token  `json:"fromToken"`
	ToToken         Token  `json:"toToken"`
	FromTokenAmount string `json:"fromTokenAmount"`
	ToTokenAmount   string `json:"toTokenAmount"`
	Tx              Tx     `json:"tx"`
}

// SwapParams are the inputs of a swap request
type SwapParams struct {
	From     common.Address
	To       common.Address
	Amount   *big.Int
	Slippage float64 // percent, 0.1 .. 50
	// Sender is the address that will call the router (the adapter).
	Sender common.Address
	// DestReceiver overrides who the router pays; defaults to Sender.
	DestReceiver common.Address
}

// APIError is a non-200 answer from the API
type APIError struct {
	StatusCode  int    `json:"statusCode"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("1inch API returned status code %d", e.StatusCode)
	}
	return fmt.Sprintf("1inch API returned status code %d: %s", e.StatusCode, e.Description)
}

// NewClient creates a client for chainID; an empty base uses DefaultBaseURL
func NewClient(base string, chainID int64, apiKey string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		Base:    strings.TrimRight(base, "/"),
		ChainID: chainID,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetQuote prices amount of from into to
func (c *Client) GetQuote(ctx context.Context, from, to common.Address, amount *big.Int) (*Quote, error) {
	if err := checkPair(from, to, amount); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("fromTokenAddress", from.Hex())
	q.Set("toTokenAddress", to.Hex())
	q.Set("amount", amount.String())

	var out Quote
	if err := c.get(ctx, "quote", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSwap fetches router calldata for the swap. The calldata is decoded
// before returning so callers never hand the adapter something it rejects.
func (c *Client) GetSwap(ctx context.Context, p SwapParams) (*Swap, *instruction.Instruction, error) {
	if err := checkPair(p.From, p.To, p.Amount); err != nil {
		return nil, nil, err
	}
	if p.Sender == (common.Address{}) {
		return nil, nil, fmt.Errorf("sender address is required")
	}
	if p.Slippage <= 0 || p.Slippage > 50 {
		return nil, nil, fmt.Errorf("slippage must be in (0, 50], got %v", p.Slippage)
	}

	q := url.Values{}
	q.Set("fromTokenAddress", p.From.Hex())
	q.Set("toTokenAddress", p.To.Hex())
	q.Set("amount", p.Amount.String())
	q.Set("fromAddress", p.Sender.Hex())
	q.Set("slippage", fmt.Sprintf("%g", p.Slippage))
	q.Set("disableEstimate", "true")
	if p.DestReceiver != (common.Address{}) {
		q.Set("destReceiver", p.DestReceiver.Hex())
	}

	var out Swap
	if err := c.get(ctx, "swap", q, &out); err != nil {
		return nil, nil, err
	}

	in, err := instruction.Decode(out.Tx.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("1inch returned unusable calldata: %w", err)
	}
	if in.SrcToken != p.From {
		return nil, nil, fmt.Errorf("1inch calldata spends %s, requested %s", in.SrcToken.Hex(), p.From.Hex())
	}
	return &out, in, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out interface{}) error {
	u := fmt.Sprintf("%s/v4.0/%d/%s?%s", c.Base, c.ChainID, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func checkPair(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("token addresses are required")
	}
	if from == to {
		return fmt.Errorf("cannot swap a token for itself")
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}
