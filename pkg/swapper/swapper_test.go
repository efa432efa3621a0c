package swapper

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"oneinch-swapper/pkg/instruction"
	"oneinch-swapper/pkg/ledger"
	"oneinch-swapper/pkg/pausable"
	"oneinch-swapper/pkg/router"
)

var (
	baseToken  = common.HexToAddress("0x00000000000000000000000000000000000ba5e0")
	quoteToken = common.HexToAddress("0x0000000000000000000000000000000000000a07")
	otherToken = common.HexToAddress("0x000000000000000000000000000000000000beef")
	operator   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	caller     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	adapterAcc = common.HexToAddress("0x0000000000000000000000000000000000000003")
	routerAcc  = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

type fixture struct {
	ledger  *ledger.Ledger
	gate    *pausable.Gate
	adapter *Adapter
	rec     *fakeRecorder
}

func newFixture(t *testing.T, r router.Router) *fixture {
	t.Helper()

	l := ledger.New()
	for _, mint := range []struct {
		token, to common.Address
		amount    int64
	}{
		{baseToken, caller, 1000},
		{baseToken, routerAcc, 1000},
		{quoteToken, routerAcc, 1000},
	} {
		if err := l.Mint(mint.token, mint.to, big.NewInt(mint.amount)); err != nil {
			t.Fatalf("Mint: %v", err)
		}
	}

	gate := pausable.New(operator)
	rec := &fakeRecorder{}
	a, err := New(Config{Address: adapterAcc, DstToken: quoteToken}, gate, l, r, WithRecorder(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{ledger: l, gate: gate, adapter: a, rec: rec}
}

func (f *fixture) approve(t *testing.T, amount int64) {
	t.Helper()
	if err := f.ledger.Approve(baseToken, caller, adapterAcc, big.NewInt(amount)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func (f *fixture) balance(token, account common.Address) int64 {
	return f.ledger.BalanceOf(token, account).Int64()
}

type balances map[string]int64

func (f *fixture) snapshot() balances {
	out := balances{}
	for _, acc := range []struct {
		name    string
		address common.Address
	}{{"caller", caller}, {"adapter", adapterAcc}, {"router", routerAcc}} {
		out[acc.name+"/base"] = f.balance(baseToken, acc.address)
		out[acc.name+"/quote"] = f.balance(quoteToken, acc.address)
	}
	out["allowance"] = f.ledger.Allowance(baseToken, caller, adapterAcc).Int64()
	out["router_allowance"] = f.ledger.Allowance(baseToken, adapterAcc, routerAcc).Int64()
	out["events"] = int64(len(f.ledger.Events()))
	return out
}

func assertUnchanged(t *testing.T, before, after balances) {
	t.Helper()
	for k, v := range before {
		if after[k] != v {
			t.Errorf("%s changed: %d -> %d", k, v, after[k])
		}
	}
}

func swapCalldata(t *testing.T, src, dst common.Address, amount, minReturn int64) []byte {
	t.Helper()
	calldata, err := instruction.EncodeSwap(adapterAcc, instruction.Description{
		SrcToken:        src,
		DstToken:        dst,
		SrcReceiver:     adapterAcc,
		DstReceiver:     adapterAcc,
		Amount:          big.NewInt(amount),
		MinReturnAmount: big.NewInt(minReturn),
		Permit:          common.RightPadBytes([]byte("test"), 32),
	}, common.RightPadBytes([]byte("test"), 32))
	if err != nil {
		t.Fatalf("EncodeSwap: %v", err)
	}
	return calldata
}

type fakeRecorder struct {
	mu      sync.Mutex
	settled int
	failed  []string
	pauses  []bool
}

func (r *fakeRecorder) SwapSettled(*Settlement) { r.mu.Lock(); r.settled++; r.mu.Unlock() }
func (r *fakeRecorder) SwapFailed(reason string) {
	r.mu.Lock()
	r.failed = append(r.failed, reason)
	r.mu.Unlock()
}
func (r *fakeRecorder) PauseChanged(p bool) {
	r.mu.Lock()
	r.pauses = append(r.pauses, p)
	r.mu.Unlock()
}

// funcRouter lets a test script arbitrary router behaviour
type funcRouter func(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error)

func (funcRouter) Address() common.Address { return routerAcc }
func (f funcRouter) Swap(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error) {
	return f(ctx, st, sender, calldata)
}

func TestSwapPaysExactlyMinimum(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	f.approve(t, 10)

	s, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if got := f.balance(baseToken, caller); got != 990 {
		t.Errorf("caller base = %d, want 990", got)
	}
	if got := f.balance(quoteToken, caller); got != 10 {
		t.Errorf("caller quote = %d, want 10", got)
	}
	if got := f.balance(quoteToken, adapterAcc); got != 0 {
		t.Errorf("adapter quote = %d, want 0", got)
	}
	if got := f.balance(baseToken, adapterAcc); got != 0 {
		t.Errorf("adapter base = %d, want 0", got)
	}
	if s.AmountIn.Int64() != 10 || s.AmountOut.Int64() != 10 || s.Surplus.Sign() != 0 {
		t.Errorf("settlement = %+v", s)
	}
	if s.ID == "" {
		t.Error("settlement ID must be set")
	}
	if got := f.ledger.Allowance(baseToken, adapterAcc, routerAcc); got.Sign() != 0 {
		t.Errorf("router allowance left at %s", got)
	}
	if f.rec.settled != 1 {
		t.Errorf("recorder settled = %d, want 1", f.rec.settled)
	}
}

func TestSwapRetainsSurplus(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(2)))
	f.approve(t, 10)

	s, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if got := f.balance(quoteToken, caller); got != 10 {
		t.Errorf("caller quote = %d, want 10", got)
	}
	if got := f.balance(quoteToken, adapterAcc); got != 2 {
		t.Errorf("adapter quote = %d, want 2", got)
	}
	if got := f.adapter.Surplus().Int64(); got != 2 {
		t.Errorf("Surplus = %d, want 2", got)
	}
	if s.AmountReturned.Int64() != 12 || s.Surplus.Int64() != 2 {
		t.Errorf("settlement returned/surplus = %s/%s, want 12/2", s.AmountReturned, s.Surplus)
	}
}

func TestSurplusAccumulatesAcrossSwaps(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 2))
	f.approve(t, 30)

	for i := 0; i < 3; i++ {
		if _, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 15)); err != nil {
			t.Fatalf("Swap %d: %v", i, err)
		}
	}
	if got := f.balance(quoteToken, caller); got != 45 {
		t.Errorf("caller quote = %d, want 45", got)
	}
	if got := f.adapter.Surplus().Int64(); got != 15 {
		t.Errorf("Surplus = %d, want 15", got)
	}
}

func TestSwapWhilePaused(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	f.approve(t, 10)
	if err := f.adapter.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !f.adapter.Paused() {
		t.Fatal("must be paused after Pause")
	}

	before := f.snapshot()
	_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
	assertUnchanged(t, before, f.snapshot())

	if len(f.rec.failed) != 1 || f.rec.failed[0] != "paused" {
		t.Errorf("recorder failed = %v, want [paused]", f.rec.failed)
	}
}

func TestPausedRejectsEvenMalformedInstruction(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	if err := f.adapter.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	_, err := f.adapter.Swap(context.Background(), caller, []byte{0x01})
	if !errors.Is(err, ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused checked before decoding", err)
	}
}

func TestSwapAfterPauseUnpause(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(1)))
	f.approve(t, 20)

	first, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if err != nil {
		t.Fatalf("Swap before pause: %v", err)
	}

	if err := f.adapter.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.adapter.Unpause(operator); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if f.adapter.State() != pausable.Active {
		t.Fatalf("State = %v, want active", f.adapter.State())
	}

	second, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if err != nil {
		t.Fatalf("Swap after unpause: %v", err)
	}
	if first.AmountOut.Cmp(second.AmountOut) != 0 || first.Surplus.Cmp(second.Surplus) != 0 {
		t.Errorf("settlements differ: %+v vs %+v", first, second)
	}
	if got := f.balance(quoteToken, caller); got != 20 {
		t.Errorf("caller quote = %d, want 20", got)
	}
}

func TestPauseStateMachine(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))

	if err := f.adapter.Unpause(operator); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("Unpause while active: err = %v, want ErrNotPaused", err)
	}
	if err := f.adapter.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.adapter.Pause(operator); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("Pause twice: err = %v, want ErrAlreadyPaused", err)
	}
	if !f.adapter.Paused() {
		t.Fatal("failed Pause must not change state")
	}

	var names []string
	for _, ev := range f.ledger.Events() {
		if ev.Address == adapterAcc {
			names = append(names, ev.Name)
		}
	}
	if len(names) != 1 || names[0] != EventPaused {
		t.Errorf("adapter events = %v, want [Paused]", names)
	}
	if len(f.rec.pauses) != 1 || !f.rec.pauses[0] {
		t.Errorf("recorder pauses = %v, want [true]", f.rec.pauses)
	}
}

func TestOnlyOperatorCanPause(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	events := len(f.ledger.Events())

	if err := f.adapter.Pause(caller); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Pause by caller: err = %v, want ErrUnauthorized", err)
	}
	if f.adapter.Paused() {
		t.Fatal("unauthorized Pause must not change state")
	}

	if err := f.adapter.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.adapter.Unpause(caller); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Unpause by caller: err = %v, want ErrUnauthorized", err)
	}
	if !f.adapter.Paused() {
		t.Fatal("unauthorized Unpause must not change state")
	}
	if got := len(f.ledger.Events()); got != events+1 {
		t.Errorf("events = %d, want %d", got, events+1)
	}
}

func TestSwapSlippageRollsBack(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithShortfall(1)))
	f.approve(t, 10)
	before := f.snapshot()

	_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("err = %v, want ErrSlippageExceeded", err)
	}
	var slip *SlippageError
	if !errors.As(err, &slip) {
		t.Fatalf("err %T is not a *SlippageError", err)
	}
	if slip.Returned.Int64() != 9 || slip.MinReturn.Int64() != 10 {
		t.Errorf("slippage = %s/%s, want 9/10", slip.Returned, slip.MinReturn)
	}
	assertUnchanged(t, before, f.snapshot())
}

func TestSwapIgnoresRouterClaims(t *testing.T) {
	tests := []struct {
		name     string
		opts     []router.MockOption
		wantErr  error
		returned int64
	}{
		{"router overstates short delivery", []router.MockOption{router.WithShortfall(5), router.WithMisreport(1000)}, ErrSlippageExceeded, 0},
		{"router understates generous delivery", []router.MockOption{router.WithBonus(3), router.WithMisreport(0)}, nil, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, tt.opts...))
			f.approve(t, 10)

			s, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if s.AmountReturned.Int64() != tt.returned {
				t.Errorf("AmountReturned = %s, want %d", s.AmountReturned, tt.returned)
			}
			if s.RouterReported.Sign() != 0 {
				t.Errorf("RouterReported = %s, want 0", s.RouterReported)
			}
			if got := f.balance(quoteToken, caller); got != 10 {
				t.Errorf("caller quote = %d, want 10", got)
			}
		})
	}
}

func TestSwapRouterFailurePropagates(t *testing.T) {
	cause := errors.New("execution reverted: UNISWAP: K")
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithRevert(cause)))
	f.approve(t, 10)
	before := f.snapshot()

	_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, ErrRouterExecution) {
		t.Fatalf("err = %v, want ErrRouterExecution", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, must wrap the router's own error", err)
	}
	assertUnchanged(t, before, f.snapshot())
}

func TestSwapRouterOwnMinimumCheck(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	f.approve(t, 10)

	_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 11))
	if !errors.Is(err, ErrRouterExecution) || !errors.Is(err, router.ErrReturnNotEnough) {
		t.Fatalf("err = %v, want router's ErrReturnNotEnough", err)
	}
}

func TestSwapRouterLeavesSourceUnspent(t *testing.T) {
	half := funcRouter(func(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error) {
		in, err := instruction.Decode(calldata)
		if err != nil {
			return nil, err
		}
		spent := new(big.Int).Rsh(in.Amount, 1)
		if err := st.TransferFrom(in.SrcToken, routerAcc, sender, routerAcc, spent); err != nil {
			return nil, err
		}
		if err := st.Transfer(quoteToken, routerAcc, sender, in.MinReturn); err != nil {
			return nil, err
		}
		return in.MinReturn, nil
	})
	f := newFixture(t, half)
	f.approve(t, 10)
	before := f.snapshot()

	_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, ErrRouterExecution) {
		t.Fatalf("err = %v, want ErrRouterExecution", err)
	}
	assertUnchanged(t, before, f.snapshot())
}

func TestSwapRouterDrainsAdapterSurplus(t *testing.T) {
	// A router that takes the adapter's retained surplus and hands back
	// only part of it must not be credited with a positive return.
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(5)))
	f.approve(t, 20)
	if _, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10)); err != nil {
		t.Fatalf("seed swap: %v", err)
	}

	thief := funcRouter(func(ctx context.Context, st ledger.State, sender common.Address, calldata []byte) (*big.Int, error) {
		in, err := instruction.Decode(calldata)
		if err != nil {
			return nil, err
		}
		if err := st.TransferFrom(in.SrcToken, routerAcc, sender, routerAcc, in.Amount); err != nil {
			return nil, err
		}
		if err := st.Transfer(quoteToken, sender, routerAcc, big.NewInt(5)); err != nil {
			return nil, err
		}
		return big.NewInt(100), nil
	})
	a, err := New(Config{Address: adapterAcc, DstToken: quoteToken}, f.gate, f.ledger, thief)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = a.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 1))
	var slip *SlippageError
	if !errors.As(err, &slip) {
		t.Fatalf("err = %v, want *SlippageError", err)
	}
	if slip.Returned.Sign() != 0 {
		t.Errorf("Returned = %s, want 0", slip.Returned)
	}
	if got := f.adapter.Surplus().Int64(); got != 5 {
		t.Errorf("Surplus = %d, want 5", got)
	}
}

func TestSwapTransferFailures(t *testing.T) {
	tests := []struct {
		name    string
		approve int64
		amount  int64
		wantErr error
	}{
		{"no approval", 0, 10, ledger.ErrInsufficientAllowance},
		{"approval too small", 9, 10, ledger.ErrInsufficientAllowance},
		{"balance too small", 5000, 2000, ledger.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
			if tt.approve > 0 {
				f.approve(t, tt.approve)
			}
			before := f.snapshot()

			_, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, tt.amount, 1))
			if !errors.Is(err, ErrTransferFailed) {
				t.Fatalf("err = %v, want ErrTransferFailed", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want cause %v", err, tt.wantErr)
			}
			assertUnchanged(t, before, f.snapshot())
		})
	}
}

func TestSwapMalformedInstruction(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	f.approve(t, 10)

	tests := []struct {
		name     string
		calldata []byte
		wantErr  error
	}{
		{"empty", nil, instruction.ErrShortCalldata},
		{"unknown selector", []byte{0xca, 0xfe, 0xba, 0xbe}, instruction.ErrUnknownSelector},
		{"wrong destination token", swapCalldata(t, baseToken, otherToken, 10, 10), ErrTokenMismatch},
		{"source is settlement token", swapCalldata(t, quoteToken, baseToken, 10, 10), ErrTokenMismatch},
		{"zero destination token", swapCalldata(t, baseToken, common.Address{}, 10, 10), ErrTokenMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.snapshot()
			_, err := f.adapter.Swap(context.Background(), caller, tt.calldata)
			if !errors.Is(err, ErrMalformedInstruction) {
				t.Fatalf("err = %v, want ErrMalformedInstruction", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			assertUnchanged(t, before, f.snapshot())
		})
	}
}

func TestSwapEnforcesConfiguredSourceToken(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	a, err := New(Config{Address: adapterAcc, DstToken: quoteToken, SrcToken: otherToken}, f.gate, f.ledger,
		router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.approve(t, 10)

	_, err = a.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("err = %v, want ErrTokenMismatch", err)
	}
}

func TestSwapUnoswap(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(4)))
	f.approve(t, 10)

	pair := common.HexToAddress("0x3041cbd36888becc7bbcbc0045e3b1f144466f5f")
	calldata, err := instruction.EncodeUnoswap(baseToken, big.NewInt(10), big.NewInt(9), []instruction.Pool{instruction.NewPool(pair, false, false)})
	if err != nil {
		t.Fatalf("EncodeUnoswap: %v", err)
	}

	s, err := f.adapter.Swap(context.Background(), caller, calldata)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if s.Method != instruction.MethodUnoswap {
		t.Errorf("Method = %q", s.Method)
	}
	if got := f.balance(quoteToken, caller); got != 9 {
		t.Errorf("caller quote = %d, want 9", got)
	}
	if got := f.adapter.Surplus().Int64(); got != 5 {
		t.Errorf("Surplus = %d, want 5", got)
	}
}

func TestSwapCancelledContext(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1))
	f.approve(t, 10)
	before := f.snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.adapter.Swap(ctx, caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := Reason(err); got != "router_execution_failed" {
		t.Errorf("Reason = %q, want router_execution_failed", got)
	}
	assertUnchanged(t, before, f.snapshot())
}

func TestSwapEmitsSwappedEvent(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(2)))
	f.approve(t, 10)

	s, err := f.adapter.Swap(context.Background(), caller, swapCalldata(t, baseToken, quoteToken, 10, 10))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	events := f.ledger.Events()
	last := events[len(events)-1]
	if last.Name != EventSwapped || last.Address != adapterAcc {
		t.Fatalf("last event = %+v, want Swapped from adapter", last)
	}
	if last.Fields["id"] != s.ID || last.Fields["surplus"] != "2" || last.Fields["out"] != "10" {
		t.Errorf("event fields = %v", last.Fields)
	}
}

func TestConcurrentSwapsAndPause(t *testing.T) {
	f := newFixture(t, router.NewMockRouter(routerAcc, baseToken, quoteToken, 1, router.WithBonus(1)))
	f.approve(t, 1000)
	calldata := swapCalldata(t, baseToken, quoteToken, 10, 10)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.adapter.Swap(context.Background(), caller, calldata)
			if err != nil && !errors.Is(err, ErrPaused) {
				t.Errorf("Swap: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.adapter.Pause(operator)
	}()
	wg.Wait()

	if got, want := f.balance(baseToken, caller), int64(1000-10*succeeded); got != want {
		t.Errorf("caller base = %d, want %d", got, want)
	}
	if got, want := f.balance(quoteToken, caller), int64(10*succeeded); got != want {
		t.Errorf("caller quote = %d, want %d", got, want)
	}
	if got, want := f.adapter.Surplus().Int64(), int64(succeeded); got != want {
		t.Errorf("Surplus = %d, want %d", got, want)
	}
	if !f.adapter.Paused() {
		t.Error("adapter must end paused")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	gate := pausable.New(operator)
	l := ledger.New()
	r := router.NewMockRouter(routerAcc, baseToken, quoteToken, 1)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing address", Config{DstToken: quoteToken}},
		{"missing destination", Config{Address: adapterAcc}},
		{"same tokens", Config{Address: adapterAcc, DstToken: quoteToken, SrcToken: quoteToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, gate, l, r); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := New(Config{Address: adapterAcc, DstToken: quoteToken}, gate, l, nil); err == nil {
		t.Fatal("expected error for nil router")
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrPaused, "paused"},
		{ErrTokenMismatch, "malformed_instruction"},
		{&SlippageError{MinReturn: big.NewInt(2), Returned: big.NewInt(1)}, "slippage_exceeded"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
