package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"oneinch-swapper/pkg/instruction"
	"oneinch-swapper/pkg/ledger"
)

var (
	ErrReturnNotEnough = errors.New("router: return amount is not enough")
	ErrUnsupportedPair = errors.New("router: unsupported token pair")
)

// MockRouter swaps between one fixed token pair at a fixed rate, paying out
// of its own reserves. It understands both swap and unoswap calldata.
type MockRouter struct {
	address common.Address
	base    common.Address
	quote   common.Address
	rateNum *big.Int
	rateDen *big.Int

	bonus     *big.Int
	shortfall *big.Int
	misreport *big.Int
	revertErr error
}

// MockOption configures a MockRouter
type MockOption func(*MockRouter)

// WithRate sets the output rate to num/den destination units per source unit
func WithRate(num, den int64) MockOption {
	return func(m *MockRouter) {
		m.rateNum = big.NewInt(num)
		m.rateDen = big.NewInt(den)
	}
}

// WithBonus pays n extra destination units on every swap
func WithBonus(n int64) MockOption {
	return func(m *MockRouter) { m.bonus = big.NewInt(n) }
}

// WithShortfall delivers n fewer destination units than computed and skips
// the router's own minimum-return check, like a broken router would.
func WithShortfall(n int64) MockOption {
	return func(m *MockRouter) { m.shortfall = big.NewInt(n) }
}

// WithMisreport makes Swap return v regardless of what it delivered
func WithMisreport(v int64) MockOption {
	return func(m *MockRouter) { m.misreport = big.NewInt(v) }
}

// WithRevert makes every Swap fail with err after pulling funds
func WithRevert(err error) MockOption {
	return func(m *MockRouter) { m.revertErr = err }
}

// NewMockRouter creates a mock router at address serving the base/quote
// pair at an integer rate.
func NewMockRouter(address, base, quote common.Address, rate int64, opts ...MockOption) *MockRouter {
	m := &MockRouter{
		address: address,
		base:    base,
		quote:   quote,
		rateNum: big.NewInt(rate),
		rateDen: big.NewInt(1),
		bonus:   new(big.Int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Address returns the router's account on the ledger
func (m *MockRouter) Address() common.Address {
	return m.address
}

// Pair returns the base and quote tokens the router serves
func (m *MockRouter) Pair() (common.Address, common.Address) {
	return m.base, m.quote
}

// Swap pulls the source amount from sender and pays the destination token
// to the declared receiver (sender when none is declared).
func (m *MockRouter) Swap(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := instruction.Decode(calldata)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	dst, err := m.counterpart(in.SrcToken)
	if err != nil {
		return nil, err
	}
	if in.DeclaresDstToken() && in.DstToken != dst {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, in.SrcToken.Hex(), in.DstToken.Hex())
	}

	if err := st.TransferFrom(in.SrcToken, m.address, sender, m.address, in.Amount); err != nil {
		return nil, fmt.Errorf("router: pull source: %w", err)
	}
	if m.revertErr != nil {
		return nil, m.revertErr
	}

	out := new(big.Int).Mul(in.Amount, m.rateNum)
	out.Quo(out, m.rateDen)
	out.Add(out, m.bonus)
	if m.shortfall != nil {
		out.Sub(out, m.shortfall)
		if out.Sign() < 0 {
			out.SetInt64(0)
		}
	} else if out.Cmp(in.MinReturn) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrReturnNotEnough, out, in.MinReturn)
	}

	receiver := in.DstReceiver
	if receiver == (common.Address{}) {
		receiver = sender
	}
	if out.Sign() > 0 {
		if err := st.Transfer(dst, m.address, receiver, out); err != nil {
			return nil, fmt.Errorf("router: pay destination: %w", err)
		}
	}

	if m.misreport != nil {
		return new(big.Int).Set(m.misreport), nil
	}
	return out, nil
}

func (m *MockRouter) counterpart(src common.Address) (common.Address, error) {
	switch src {
	case m.base:
		return m.quote, nil
	case m.quote:
		return m.base, nil
	default:
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnsupportedPair, src.Hex())
	}
}
