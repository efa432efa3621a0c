// Package swapper implements the pausable swap adapter: it takes custody of
// the caller's source token, delegates to an untrusted router, measures the
// destination-token delta itself and pays the caller exactly the declared
// minimum. Anything above the minimum is retained by the adapter.
package swapper

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"oneinch-swapper/pkg/instruction"
	"oneinch-swapper/pkg/ledger"
	"oneinch-swapper/pkg/pausable"
	"oneinch-swapper/pkg/router"
)

// Events emitted by the adapter
const (
	EventPaused   = "Paused"
	EventUnpaused = "Unpaused"
	EventSwapped  = "Swapped"
)

// Config is fixed at construction
type Config struct {
	// Address is the adapter's own account on the ledger.
	Address common.Address
	// DstToken is the settlement token paid to callers.
	DstToken common.Address
	// SrcToken, when set, is the only source token accepted.
	SrcToken common.Address
}

// Recorder receives adapter outcomes, typically for metrics
type Recorder interface {
	SwapSettled(s *Settlement)
	SwapFailed(reason string)
	PauseChanged(paused bool)
}

type nopRecorder struct{}

func (nopRecorder) SwapSettled(*Settlement) {}
func (nopRecorder) SwapFailed(string)       {}
func (nopRecorder) PauseChanged(bool)       {}

// Adapter is the swap entry point
type Adapter struct {
	cfg      Config
	gate     *pausable.Gate
	ledger   *ledger.Ledger
	router   router.Router
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Adapter
type Option func(*Adapter)

// WithLogger sets the logger (default: no-op)
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithRecorder sets the outcome recorder
func WithRecorder(r Recorder) Option {
	return func(a *Adapter) { a.recorder = r }
}

// New creates an adapter. The gate's operator is the adapter's operator.
func New(cfg Config, gate *pausable.Gate, l *ledger.Ledger, r router.Router, opts ...Option) (*Adapter, error) {
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("adapter address is required")
	}
	if cfg.DstToken == (common.Address{}) {
		return nil, fmt.Errorf("destination token is required")
	}
	if cfg.SrcToken == cfg.DstToken {
		return nil, fmt.Errorf("source and destination token must differ")
	}
	if gate == nil || l == nil || r == nil {
		return nil, fmt.Errorf("gate, ledger and router are required")
	}

	a := &Adapter{
		cfg:      cfg,
		gate:     gate,
		ledger:   l,
		router:   r,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the construction-time configuration
func (a *Adapter) Config() Config {
	return a.cfg
}

// Operator returns the identity allowed to pause
func (a *Adapter) Operator() common.Address {
	return a.gate.Operator()
}

// RouterAddress returns the router the adapter delegates to
func (a *Adapter) RouterAddress() common.Address {
	return a.router.Address()
}

// Paused reports the gate state
func (a *Adapter) Paused() bool {
	return a.gate.Paused()
}

// State returns the gate state
func (a *Adapter) State() pausable.State {
	return a.gate.State()
}

// Surplus returns the destination-token balance retained by the adapter
func (a *Adapter) Surplus() *big.Int {
	return a.ledger.BalanceOf(a.cfg.DstToken, a.cfg.Address)
}

// Pause stops all swaps. Only the operator may call it.
func (a *Adapter) Pause(caller common.Address) error {
	return a.transition(caller, true)
}

// Unpause resumes swaps. Only the operator may call it.
func (a *Adapter) Unpause(caller common.Address) error {
	return a.transition(caller, false)
}

func (a *Adapter) transition(caller common.Address, pause bool) error {
	name, op := EventUnpaused, a.gate.Unpause
	if pause {
		name, op = EventPaused, a.gate.Pause
	}

	err := a.ledger.Atomic(func(tx *ledger.Tx) error {
		if err := op(caller); err != nil {
			return err
		}
		tx.Emit(ledger.Event{
			Address: a.cfg.Address,
			Name:    name,
			Fields:  map[string]string{"account": caller.Hex()},
		})
		return nil
	})
	if err != nil {
		a.logger.Warn("pause transition rejected",
			zap.String("event", name),
			zap.String("caller", caller.Hex()),
			zap.Error(err))
		return err
	}

	a.logger.Info("pause state changed",
		zap.String("event", name),
		zap.String("operator", caller.Hex()))
	a.recorder.PauseChanged(pause)
	return nil
}

// Swap executes one router instruction for caller. The caller must have
// approved the adapter for the instruction's source amount. On any error
// no balance, allowance or event is changed.
func (a *Adapter) Swap(ctx context.Context, caller common.Address, calldata []byte) (*Settlement, error) {
	var settlement *Settlement
	err := a.ledger.Atomic(func(tx *ledger.Tx) error {
		return a.gate.WhenNotPaused(func() error {
			s, err := a.execute(ctx, tx, caller, calldata)
			if err != nil {
				return err
			}
			settlement = s
			return nil
		})
	})
	if err != nil {
		reason := Reason(err)
		a.logger.Warn("swap failed",
			zap.String("caller", caller.Hex()),
			zap.String("reason", reason),
			zap.Error(err))
		a.recorder.SwapFailed(reason)
		return nil, err
	}

	a.logger.Info("swap settled",
		zap.String("id", settlement.ID),
		zap.String("caller", caller.Hex()),
		zap.String("method", settlement.Method),
		zap.String("src_token", settlement.SrcToken.Hex()),
		zap.Stringer("amount_in", settlement.AmountIn),
		zap.Stringer("amount_returned", settlement.AmountReturned),
		zap.Stringer("amount_out", settlement.AmountOut),
		zap.Stringer("surplus", settlement.Surplus))
	a.recorder.SwapSettled(settlement)
	return settlement, nil
}

func (a *Adapter) execute(ctx context.Context, tx *ledger.Tx, caller common.Address, calldata []byte) (*Settlement, error) {
	in, err := instruction.Decode(calldata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInstruction, err)
	}
	if err := a.checkTokens(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterExecution, err)
	}

	self := a.cfg.Address
	dst := a.cfg.DstToken
	routerAddr := a.router.Address()

	srcBaseline := tx.BalanceOf(in.SrcToken, self)

	if err := tx.TransferFrom(in.SrcToken, self, caller, self, in.Amount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := tx.Approve(in.SrcToken, self, routerAddr, in.Amount); err != nil {
		return nil, fmt.Errorf("%w: approve router: %w", ErrTransferFailed, err)
	}

	dstBaseline := tx.BalanceOf(dst, self)

	reported, err := a.router.Swap(ctx, tx, self, in.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterExecution, err)
	}

	// The router must consume exactly the custody amount; anything left
	// over would be caller funds stranded in the adapter.
	if left := tx.BalanceOf(in.SrcToken, self); left.Cmp(srcBaseline) != 0 {
		return nil, fmt.Errorf("%w: source balance %s after swap, expected %s", ErrRouterExecution, left, srcBaseline)
	}
	if err := tx.Approve(in.SrcToken, self, routerAddr, new(big.Int)); err != nil {
		return nil, fmt.Errorf("%w: reset approval: %w", ErrRouterExecution, err)
	}

	returned := new(big.Int).Sub(tx.BalanceOf(dst, self), dstBaseline)
	if returned.Sign() < 0 {
		returned.SetInt64(0)
	}
	if returned.Cmp(in.MinReturn) < 0 {
		return nil, &SlippageError{MinReturn: new(big.Int).Set(in.MinReturn), Returned: returned}
	}

	out := new(big.Int).Set(in.MinReturn)
	if out.Sign() > 0 {
		if err := tx.Transfer(dst, self, caller, out); err != nil {
			return nil, fmt.Errorf("%w: payout: %w", ErrTransferFailed, err)
		}
	}
	surplus := new(big.Int).Sub(returned, out)

	s := &Settlement{
		ID:             uuid.New().String(),
		Caller:         caller,
		Method:         in.Method,
		SrcToken:       in.SrcToken,
		DstToken:       dst,
		AmountIn:       new(big.Int).Set(in.Amount),
		AmountReturned: returned,
		AmountOut:      out,
		Surplus:        surplus,
		RouterReported: reported,
	}
	tx.Emit(ledger.Event{
		Address: self,
		Name:    EventSwapped,
		Fields: map[string]string{
			"id":        s.ID,
			"caller":    caller.Hex(),
			"src_token": in.SrcToken.Hex(),
			"dst_token": dst.Hex(),
			"amount_in": s.AmountIn.String(),
			"returned":  returned.String(),
			"out":       out.String(),
			"surplus":   surplus.String(),
		},
	})
	return s, nil
}

func (a *Adapter) checkTokens(in *instruction.Instruction) error {
	if in.SrcToken == a.cfg.DstToken {
		return fmt.Errorf("%w: source token %s is the settlement token", ErrTokenMismatch, in.SrcToken.Hex())
	}
	if a.cfg.SrcToken != (common.Address{}) && in.SrcToken != a.cfg.SrcToken {
		return fmt.Errorf("%w: source token %s, adapter accepts %s", ErrTokenMismatch, in.SrcToken.Hex(), a.cfg.SrcToken.Hex())
	}
	if in.DeclaresDstToken() && in.DstToken != a.cfg.DstToken {
		return fmt.Errorf("%w: destination token %s, adapter settles %s", ErrTokenMismatch, in.DstToken.Hex(), a.cfg.DstToken.Hex())
	}
	return nil
}
