// Package router defines the external swap router capability and an
// in-process mock of the 1inch AggregationRouterV4.
package router

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"oneinch-swapper/pkg/ledger"
)

// Router executes opaque swap calldata on behalf of sender. It may move
// arbitrary tokens through st and may fail. Its return value is a claim,
// not a fact: callers measure balances instead.
type Router interface {
	Address() common.Address
	Swap(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error)
}
