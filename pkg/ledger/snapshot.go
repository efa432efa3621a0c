package ledger

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Snapshot is the serializable form of a ledger
type Snapshot struct {
	Balances   []BalanceEntry   `json:"balances"`
	Allowances []AllowanceEntry `json:"allowances"`
	Events     []Event          `json:"events"`
}

// BalanceEntry is one non-zero balance
type BalanceEntry struct {
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Amount  string         `json:"amount"`
}

// AllowanceEntry is one non-zero allowance
type AllowanceEntry struct {
	Token   common.Address `json:"token"`
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

// Snapshot captures committed state, sorted for stable output
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Balances:   make([]BalanceEntry, 0, len(l.balances)),
		Allowances: make([]AllowanceEntry, 0, len(l.allowances)),
		Events:     make([]Event, len(l.events)),
	}
	for k, v := range l.balances {
		if v.IsZero() {
			continue
		}
		snap.Balances = append(snap.Balances, BalanceEntry{Token: k.token, Account: k.account, Amount: v.Dec()})
	}
	for k, v := range l.allowances {
		if v.IsZero() {
			continue
		}
		snap.Allowances = append(snap.Allowances, AllowanceEntry{Token: k.token, Owner: k.owner, Spender: k.spender, Amount: v.Dec()})
	}
	copy(snap.Events, l.events)

	sort.Slice(snap.Balances, func(i, j int) bool {
		a, b := snap.Balances[i], snap.Balances[j]
		if c := bytes.Compare(a.Token[:], b.Token[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Account[:], b.Account[:]) < 0
	})
	sort.Slice(snap.Allowances, func(i, j int) bool {
		a, b := snap.Allowances[i], snap.Allowances[j]
		if c := bytes.Compare(a.Token[:], b.Token[:]); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(a.Owner[:], b.Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Spender[:], b.Spender[:]) < 0
	})

	return snap
}

// FromSnapshot rebuilds a ledger from a snapshot
func FromSnapshot(snap Snapshot) (*Ledger, error) {
	l := New()
	for _, b := range snap.Balances {
		v, err := parseAmount(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance %s/%s: %w", b.Token.Hex(), b.Account.Hex(), err)
		}
		l.balances[balanceKey{b.Token, b.Account}] = v
	}
	for _, a := range snap.Allowances {
		v, err := parseAmount(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("allowance %s/%s: %w", a.Token.Hex(), a.Owner.Hex(), err)
		}
		l.allowances[allowanceKey{a.Token, a.Owner, a.Spender}] = v
	}
	l.events = append(l.events, snap.Events...)
	return l, nil
}

// Restore replaces the committed state with snap
func (l *Ledger) Restore(snap Snapshot) error {
	fresh, err := FromSnapshot(snap)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = fresh.balances
	l.allowances = fresh.allowances
	l.events = fresh.events
	return nil
}

func parseAmount(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return toU256(b)
}
