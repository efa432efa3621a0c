package swapper

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement is the outcome of one successful swap
type Settlement struct {
	ID       string         `json:"id"`
	Caller   common.Address `json:"caller"`
	Method   string         `json:"method"`
	SrcToken common.Address `json:"src_token"`
	DstToken common.Address `json:"dst_token"`

	// AmountIn is what was pulled from the caller.
	AmountIn *big.Int `json:"amount_in"`
	// AmountReturned is the adapter's measured destination-token delta.
	AmountReturned *big.Int `json:"amount_returned"`
	// AmountOut is what the caller received: always the declared minimum.
	AmountOut *big.Int `json:"amount_out"`
	// Surplus stays with the adapter.
	Surplus *big.Int `json:"surplus"`
	// RouterReported is the router's own claim, kept for diagnostics only.
	RouterReported *big.Int `json:"router_reported,omitempty"`
}
