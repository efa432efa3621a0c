package devnet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"oneinch-swapper/pkg/ledger"
	"oneinch-swapper/pkg/pausable"
	"oneinch-swapper/pkg/router"
	"oneinch-swapper/pkg/swapper"
)

// ErrPersist is returned when a change could not be saved. The change has
// been rolled back in memory.
var ErrPersist = errors.New("failed to persist state")

// InitParams describes a fresh devnet
type InitParams struct {
	Operator    common.Address
	BaseSymbol  string
	QuoteSymbol string
	Rate        int64
	Bonus       int64
	// Reserve is minted to the router in both tokens.
	Reserve *big.Int
	Force   bool
}

// Manager provides high-level operations on the devnet
type Manager struct {
	storage  *Storage
	logger   *zap.Logger
	recorder swapper.Recorder
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger handed to opened adapters
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithRecorder sets the recorder handed to opened adapters
func WithRecorder(r swapper.Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// NewManager creates a new devnet manager
func NewManager(storagePath string, opts ...ManagerOption) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	m := &Manager{storage: storage, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// StatePath returns where the world is persisted
func (m *Manager) StatePath() string {
	return m.storage.GetFilePath()
}

// Init deploys a new world: adapter, mock router and two tokens, all at
// addresses derived from the operator's nonce sequence.
func (m *Manager) Init(p InitParams) (*World, error) {
	if m.storage.Exists() && !p.Force {
		return nil, fmt.Errorf("state already exists at %s (use --force to overwrite)", m.storage.GetFilePath())
	}
	if p.Operator == (common.Address{}) {
		return nil, fmt.Errorf("operator address is required")
	}

	base := strings.ToUpper(strings.TrimSpace(p.BaseSymbol))
	quote := strings.ToUpper(strings.TrimSpace(p.QuoteSymbol))
	if base == "" || quote == "" || base == quote {
		return nil, fmt.Errorf("two distinct token symbols are required")
	}

	baseAddr := crypto.CreateAddress(p.Operator, 0)
	quoteAddr := crypto.CreateAddress(p.Operator, 1)
	routerAddr := crypto.CreateAddress(p.Operator, 2)
	adapterAddr := crypto.CreateAddress(p.Operator, 3)

	l := ledger.New()
	if p.Reserve != nil && p.Reserve.Sign() > 0 {
		for _, token := range []common.Address{baseAddr, quoteAddr} {
			if err := l.Mint(token, routerAddr, p.Reserve); err != nil {
				return nil, fmt.Errorf("failed to fund router: %w", err)
			}
		}
	}

	now := time.Now()
	world := &World{
		Version:     WorldVersion,
		Created:     now,
		LastUpdated: now,
		Operator:    p.Operator,
		Adapter:     adapterAddr,
		Router: RouterState{
			Address: routerAddr,
			Base:    baseAddr,
			Quote:   quoteAddr,
			Rate:    p.Rate,
			Bonus:   p.Bonus,
		},
		Tokens: map[string]common.Address{
			base:  baseAddr,
			quote: quoteAddr,
		},
		Pause:       pausable.Active,
		Ledger:      l.Snapshot(),
		Settlements: []*swapper.Settlement{},
	}
	if err := world.Validate(); err != nil {
		return nil, err
	}

	if err := m.storage.Save(world); err != nil {
		return nil, err
	}
	return world, nil
}

// Session is a live adapter built from the persisted world
type Session struct {
	World   *World
	Ledger  *ledger.Ledger
	Gate    *pausable.Gate
	Router  *router.MockRouter
	Adapter *swapper.Adapter

	mu      sync.Mutex
	manager *Manager
}

// Open loads the world and wires an adapter over it
func (m *Manager) Open() (*Session, error) {
	world, err := m.storage.Load()
	if err != nil {
		return nil, err
	}

	l, err := ledger.FromSnapshot(world.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}

	gate := pausable.New(world.Operator)
	gate.Restore(world.Pause)

	rs := world.Router
	r := router.NewMockRouter(rs.Address, rs.Base, rs.Quote, rs.Rate, router.WithBonus(rs.Bonus))

	opts := []swapper.Option{swapper.WithLogger(m.logger)}
	if m.recorder != nil {
		opts = append(opts, swapper.WithRecorder(m.recorder))
	}
	adapter, err := swapper.New(swapper.Config{Address: world.Adapter, DstToken: rs.Quote}, gate, l, r, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	return &Session{
		World:   world,
		Ledger:  l,
		Gate:    gate,
		Router:  r,
		Adapter: adapter,
		manager: m,
	}, nil
}

// Swap runs the adapter, records the settlement and saves the world. If
// the save fails the swap is rolled back and the error wraps ErrPersist.
func (s *Session) Swap(ctx context.Context, caller common.Address, calldata []byte) (*swapper.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.checkpoint()
	settlement, err := s.Adapter.Swap(ctx, caller, calldata)
	if err != nil {
		return nil, err
	}
	s.World.Settlements = append(s.World.Settlements, settlement)

	if err := s.save(); err != nil {
		return nil, s.rollback(cp, err)
	}
	return settlement, nil
}

// Pause pauses the adapter and saves the world
func (s *Session) Pause(caller common.Address) error {
	return s.transition(s.Adapter.Pause, caller)
}

// Unpause resumes the adapter and saves the world
func (s *Session) Unpause(caller common.Address) error {
	return s.transition(s.Adapter.Unpause, caller)
}

func (s *Session) transition(op func(common.Address) error, caller common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.checkpoint()
	if err := op(caller); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		return s.rollback(cp, err)
	}
	return nil
}

// Settlements returns a copy of the recorded settlement history
func (s *Session) Settlements() []*swapper.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*swapper.Settlement, len(s.World.Settlements))
	copy(out, s.World.Settlements)
	return out
}

// Commit writes the session's ledger and gate back to storage
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// checkpoint is the in-memory state before a mutation
type checkpoint struct {
	ledger      ledger.Snapshot
	pause       pausable.State
	settlements int
	saved       ledger.Snapshot
	savedPause  pausable.State
	updated     time.Time
}

func (s *Session) checkpoint() checkpoint {
	return checkpoint{
		ledger:      s.Ledger.Snapshot(),
		pause:       s.Gate.State(),
		settlements: len(s.World.Settlements),
		saved:       s.World.Ledger,
		savedPause:  s.World.Pause,
		updated:     s.World.LastUpdated,
	}
}

// save must be called with s.mu held
func (s *Session) save() error {
	s.World.Ledger = s.Ledger.Snapshot()
	s.World.Pause = s.Gate.State()
	s.World.LastUpdated = time.Now()
	return s.manager.storage.Save(s.World)
}

// rollback puts the session back to cp after a failed save
func (s *Session) rollback(cp checkpoint, cause error) error {
	s.World.Settlements = s.World.Settlements[:cp.settlements]
	s.World.Ledger = cp.saved
	s.World.Pause = cp.savedPause
	s.World.LastUpdated = cp.updated

	if s.Gate.State() != cp.pause {
		s.Gate.Restore(cp.pause)
		if s.manager.recorder != nil {
			s.manager.recorder.PauseChanged(cp.pause == pausable.Paused)
		}
	}
	if err := s.Ledger.Restore(cp.ledger); err != nil {
		s.manager.logger.Error("failed to roll back ledger", zap.Error(err))
		return fmt.Errorf("%w: %w (rollback: %v)", ErrPersist, cause, err)
	}
	s.manager.logger.Warn("rolled back unsaved change", zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrPersist, cause)
}
