package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrOverflow              = errors.New("uint256 overflow")
	ErrNegativeAmount        = errors.New("negative amount")
)

// State is the token capability seen by the adapter and the router
// during one atomic unit.
type State interface {
	BalanceOf(token, account common.Address) *big.Int
	Allowance(token, owner, spender common.Address) *big.Int
	Transfer(token, from, to common.Address, amount *big.Int) error
	TransferFrom(token, spender, from, to common.Address, amount *big.Int) error
	Approve(token, owner, spender common.Address, amount *big.Int) error
	Emit(ev Event)
}

type balanceKey struct {
	token   common.Address
	account common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Ledger is a serialized multi-token ledger. Every mutation happens inside
// an atomic unit that is either fully committed or fully reverted.
type Ledger struct {
	mu         sync.Mutex
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	events     []Event
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		balances:   make(map[balanceKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// Atomic runs fn as one indivisible unit. If fn returns an error or panics,
// every balance, allowance and event written by fn is reverted.
func (l *Ledger) Atomic(fn func(tx *Tx) error) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l}
	defer func() {
		if r := recover(); r != nil {
			tx.revert()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.revert()
		return err
	}
	return nil
}

// View runs fn with read access to the ledger. Writes made through the
// State passed to fn are discarded.
func (l *Ledger) View(fn func(st State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l}
	defer tx.revert()
	return fn(tx)
}

// Mint credits amount of token to account out of thin air (devnet faucet)
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	return l.Atomic(func(tx *Tx) error {
		if to == (common.Address{}) {
			return fmt.Errorf("mint: %w", ErrZeroAddress)
		}
		v, err := toU256(amount)
		if err != nil {
			return err
		}
		bal := tx.balance(token, to)
		next, overflow := new(uint256.Int).AddOverflow(bal, v)
		if overflow {
			return fmt.Errorf("mint: %w", ErrOverflow)
		}
		tx.setBalance(token, to, next)
		tx.Emit(transferEvent(token, common.Address{}, to, v))
		return nil
	})
}

// BalanceOf returns the committed balance of account in token
func (l *Ledger) BalanceOf(token, account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.balances[balanceKey{token, account}]; ok {
		return v.ToBig()
	}
	return new(big.Int)
}

// Allowance returns the committed allowance granted by owner to spender
func (l *Ledger) Allowance(token, owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.allowances[allowanceKey{token, owner, spender}]; ok {
		return v.ToBig()
	}
	return new(big.Int)
}

// Approve sets an allowance in its own atomic unit
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	return l.Atomic(func(tx *Tx) error {
		return tx.Approve(token, owner, spender, amount)
	})
}

// Transfer moves tokens in its own atomic unit
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	return l.Atomic(func(tx *Tx) error {
		return tx.Transfer(token, from, to, amount)
	})
}

// Events returns a copy of the committed event log
func (l *Ledger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Tx is the State handed to an atomic unit. It records an undo journal
// for every write.
type Tx struct {
	l       *Ledger
	journal []func()
}

var _ State = (*Tx)(nil)

// BalanceOf returns the balance as seen inside the unit
func (tx *Tx) BalanceOf(token, account common.Address) *big.Int {
	return tx.balance(token, account).ToBig()
}

// Allowance returns the allowance as seen inside the unit
func (tx *Tx) Allowance(token, owner, spender common.Address) *big.Int {
	return tx.allowance(token, owner, spender).ToBig()
}

// Transfer moves amount of token from one account to another
func (tx *Tx) Transfer(token, from, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	return tx.move(token, from, to, v)
}

// TransferFrom moves amount of token from owner to recipient on behalf of
// spender, consuming spender's allowance.
func (tx *Tx) TransferFrom(token, spender, from, to common.Address, amount *big.Int) error {
	v, err := toU256(amount)
	if err != nil {
		return err
	}

	current := tx.allowance(token, from, spender)
	if current.Lt(v) {
		return fmt.Errorf("%w: allowance %s, need %s", ErrInsufficientAllowance, current.Dec(), v.Dec())
	}
	// An allowance of MaxUint256 is treated as infinite and never decreases.
	if !current.Eq(maxU256) {
		tx.setAllowance(token, from, spender, new(uint256.Int).Sub(current, v))
	}

	return tx.move(token, from, to, v)
}

// Approve sets the allowance owner grants spender
func (tx *Tx) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return fmt.Errorf("approve: %w", ErrZeroAddress)
	}
	v, err := toU256(amount)
	if err != nil {
		return err
	}
	tx.setAllowance(token, owner, spender, v)
	tx.Emit(approvalEvent(token, owner, spender, v))
	return nil
}

// Emit appends an event to the log; it is dropped if the unit reverts
func (tx *Tx) Emit(ev Event) {
	l := tx.l
	ev.Seq = uint64(len(l.events))
	l.events = append(l.events, ev)
	n := len(l.events) - 1
	tx.journal = append(tx.journal, func() { l.events = l.events[:n] })
}

func (tx *Tx) move(token, from, to common.Address, v *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("transfer: %w", ErrZeroAddress)
	}

	fromBal := tx.balance(token, from)
	if fromBal.Lt(v) {
		return fmt.Errorf("%w: balance %s, need %s", ErrInsufficientBalance, fromBal.Dec(), v.Dec())
	}
	tx.setBalance(token, from, new(uint256.Int).Sub(fromBal, v))

	toBal := tx.balance(token, to)
	next, overflow := new(uint256.Int).AddOverflow(toBal, v)
	if overflow {
		return fmt.Errorf("transfer: %w", ErrOverflow)
	}
	tx.setBalance(token, to, next)

	tx.Emit(transferEvent(token, from, to, v))
	return nil
}

func (tx *Tx) balance(token, account common.Address) *uint256.Int {
	if v, ok := tx.l.balances[balanceKey{token, account}]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

func (tx *Tx) allowance(token, owner, spender common.Address) *uint256.Int {
	if v, ok := tx.l.allowances[allowanceKey{token, owner, spender}]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

func (tx *Tx) setBalance(token, account common.Address, v *uint256.Int) {
	m := tx.l.balances
	k := balanceKey{token, account}
	prev, existed := m[k]
	m[k] = v
	tx.journal = append(tx.journal, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func (tx *Tx) setAllowance(token, owner, spender common.Address, v *uint256.Int) {
	m := tx.l.allowances
	k := allowanceKey{token, owner, spender}
	prev, existed := m[k]
	m[k] = v
	tx.journal = append(tx.journal, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// revert undoes the journal in reverse order
func (tx *Tx) revert() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		tx.journal[i]()
	}
	tx.journal = nil
}

var maxU256 = new(uint256.Int).SetAllOne()

// MaxUint256 returns 2^256-1, the conventional "infinite" allowance
func MaxUint256() *big.Int {
	return maxU256.ToBig()
}

func toU256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil {
		return new(uint256.Int), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}
