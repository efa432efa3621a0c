package pausable

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	operator = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestNewGateIsActive(t *testing.T) {
	g := New(operator)
	if g.Paused() {
		t.Fatal("new gate must be active")
	}
	if g.State() != Active {
		t.Fatalf("State = %v, want active", g.State())
	}
	if g.Operator() != operator {
		t.Fatalf("Operator = %s, want %s", g.Operator().Hex(), operator.Hex())
	}
}

func TestPauseUnpauseCycle(t *testing.T) {
	g := New(operator)

	if err := g.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !g.Paused() {
		t.Fatal("must be paused after Pause")
	}
	if err := g.Unpause(operator); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if g.Paused() {
		t.Fatal("must be active again after Unpause")
	}
}

func TestTransitionErrors(t *testing.T) {
	tests := []struct {
		name      string
		start     State
		caller    common.Address
		op        func(*Gate, common.Address) error
		wantErr   error
		wantState State
	}{
		{"pause twice", Paused, operator, (*Gate).Pause, ErrAlreadyPaused, Paused},
		{"unpause while active", Active, operator, (*Gate).Unpause, ErrNotPaused, Active},
		{"stranger pauses", Active, stranger, (*Gate).Pause, ErrUnauthorized, Active},
		{"stranger unpauses", Paused, stranger, (*Gate).Unpause, ErrUnauthorized, Paused},
		{"stranger pauses while paused", Paused, stranger, (*Gate).Pause, ErrUnauthorized, Paused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(operator)
			g.Restore(tt.start)

			err := tt.op(g, tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if g.State() != tt.wantState {
				t.Fatalf("State = %v, want %v", g.State(), tt.wantState)
			}
		})
	}
}

func TestWhenNotPaused(t *testing.T) {
	g := New(operator)

	ran := false
	if err := g.WhenNotPaused(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("WhenNotPaused: %v", err)
	}
	if !ran {
		t.Fatal("fn must run while active")
	}

	if err := g.Pause(operator); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	ran = false
	err := g.WhenNotPaused(func() error { ran = true; return nil })
	if !errors.Is(err, ErrPaused) {
		t.Fatalf("err = %v, want ErrPaused", err)
	}
	if ran {
		t.Fatal("fn must not run while paused")
	}
}

func TestPauseWaitsForGuardedCall(t *testing.T) {
	g := New(operator)
	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = g.WhenNotPaused(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	paused := make(chan error, 1)
	go func() { paused <- g.Pause(operator) }()

	select {
	case <-paused:
		t.Fatal("Pause completed while a guarded call was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	if err := <-paused; err != nil {
		t.Fatalf("Pause: %v", err)
	}
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(struct{ S State }{Paused})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"S":"paused"}` {
		t.Fatalf("got %s", b)
	}

	var out struct{ S State }
	if err := json.Unmarshal([]byte(`{"S":"active"}`), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.S != Active {
		t.Fatalf("S = %v, want active", out.S)
	}
	if err := json.Unmarshal([]byte(`{"S":"frozen"}`), &out); err == nil {
		t.Fatal("expected error for unknown state")
	}
}
