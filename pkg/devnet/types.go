// Package devnet persists a local swap environment (ledger, pause gate,
// mock router and settlement history) between CLI invocations and wires
// it into a running adapter.
package devnet

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"oneinch-swapper/pkg/ledger"
	"oneinch-swapper/pkg/pausable"
	"oneinch-swapper/pkg/swapper"
)

// WorldVersion is bumped when the state file layout changes
const WorldVersion = 1

// RouterState describes the mock router deployed on the devnet
type RouterState struct {
	Address common.Address `json:"address"`
	Base    common.Address `json:"base"`
	Quote   common.Address `json:"quote"`
	Rate    int64          `json:"rate"`
	Bonus   int64          `json:"bonus"`
}

// World is everything persisted in the state file
type World struct {
	Version     int       `json:"version"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	Operator common.Address            `json:"operator"`
	Adapter  common.Address            `json:"adapter"`
	Router   RouterState               `json:"router"`
	Tokens   map[string]common.Address `json:"tokens"`

	Pause       pausable.State        `json:"pause"`
	Ledger      ledger.Snapshot       `json:"ledger"`
	Settlements []*swapper.Settlement `json:"settlements"`
}

// Validate checks the world is internally consistent
func (w *World) Validate() error {
	if w.Version != WorldVersion {
		return fmt.Errorf("unsupported state version %d (want %d)", w.Version, WorldVersion)
	}
	if w.Operator == (common.Address{}) {
		return fmt.Errorf("operator is required")
	}
	if w.Adapter == (common.Address{}) {
		return fmt.Errorf("adapter address is required")
	}
	if w.Router.Address == (common.Address{}) {
		return fmt.Errorf("router address is required")
	}
	if w.Router.Base == w.Router.Quote {
		return fmt.Errorf("router base and quote tokens must differ")
	}
	if w.Router.Rate <= 0 {
		return fmt.Errorf("router rate must be greater than 0")
	}
	return nil
}

// TokenSymbol returns the symbol registered for address, or its hex form
func (w *World) TokenSymbol(address common.Address) string {
	for sym, addr := range w.Tokens {
		if addr == address {
			return sym
		}
	}
	return address.Hex()
}

// ResolveToken accepts a registered symbol or a hex address
func (w *World) ResolveToken(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if addr, ok := w.Tokens[strings.ToUpper(s)]; ok {
		return addr, nil
	}
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("token '%s' not found", s)
}
