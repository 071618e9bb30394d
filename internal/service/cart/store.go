package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"foodexplorer/internal/domain"
	storepkg "foodexplorer/internal/store"
)

// Storage keys. The combined key predates the orders-only key; both are
// written on every change so older readers keep working.
const (
	CartStorageKey   = "food_explorer_cart"
	OrdersStorageKey = "food_explorer_orders"
)

var (
	ErrNotReady           = errors.New("cart store is not initialized")
	ErrAlreadyInitialized = errors.New("cart store is already initialized")
)

// Store is the single source of truth for cart lines and order history.
// Every transition is mirrored to storage before the lock is released.
type Store struct {
	mu      sync.Mutex
	state   domain.CartSnapshot
	ready   bool
	storage storepkg.Storage
	logger  *zap.Logger

	subMu  sync.Mutex
	subs   map[int]func(domain.CartSnapshot)
	nextID int
}

func NewStore(storage storepkg.Storage, logger *zap.Logger) *Store {
	return &Store{
		state:   emptySnapshot(),
		storage: storage,
		logger:  logger.Named("cart"),
		subs:    make(map[int]func(domain.CartSnapshot)),
	}
}

// Load reads the persisted snapshot and initializes the store with it.
// Missing or unreadable keys count as empty; the problem is only logged.
func (s *Store) Load(ctx context.Context) error {
	return s.Initialize(ctx, s.readSnapshot(ctx))
}

func (s *Store) readSnapshot(ctx context.Context) domain.CartSnapshot {
	snap := emptySnapshot()

	var combined domain.CartSnapshot
	combinedOK := s.readKey(ctx, CartStorageKey, &combined)
	if combinedOK && combined.Items != nil {
		snap.Items = s.repairItems(combined.Items)
	}

	var orders []domain.Order
	switch {
	case s.readKey(ctx, OrdersStorageKey, &orders):
		if orders != nil {
			snap.Orders = orders
		}
	case combinedOK && combined.Orders != nil:
		snap.Orders = combined.Orders
	}
	if over := len(snap.Orders) - MaxOrders; over > 0 {
		snap.Orders = snap.Orders[over:]
	}
	return snap
}

// repairItems restores the one-line-per-code and positive-quantity rules on
// persisted lines. Duplicates are merged into the first occurrence.
func (s *Store) repairItems(items []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(items))
	index := make(map[string]int, len(items))
	dropped, merged := 0, 0
	for _, line := range items {
		if line.Code == "" || line.Quantity < 1 {
			dropped++
			continue
		}
		if i, ok := index[line.Code]; ok {
			out[i].Quantity += line.Quantity
			merged++
			continue
		}
		index[line.Code] = len(out)
		out = append(out, line)
	}
	if dropped > 0 || merged > 0 {
		s.logger.Warn("repair persisted cart items",
			zap.Int("dropped", dropped),
			zap.Int("merged", merged))
	}
	return out
}

func (s *Store) readKey(ctx context.Context, key string, target any) bool {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storepkg.ErrNotFound) {
			s.logger.Warn("read persisted cart data", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.logger.Warn("parse persisted cart data", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Initialize replaces the whole state. It is a boot-time transition and may
// only run once.
func (s *Store) Initialize(ctx context.Context, snapshot domain.CartSnapshot) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	if snapshot.Items == nil {
		snapshot.Items = []domain.CartLine{}
	}
	if snapshot.Orders == nil {
		snapshot.Orders = []domain.Order{}
	}
	next, err := Apply(s.state, Initialize{Snapshot: snapshot})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.ready = true
	s.persist(ctx)
	out := s.state.Clone()
	s.mu.Unlock()

	s.notify(out)
	return nil
}

func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) error {
	return s.dispatch(ctx, AddToCart{Product: product, Quantity: quantity})
}

func (s *Store) RemoveFromCart(ctx context.Context, code string) error {
	return s.dispatch(ctx, RemoveFromCart{Code: code})
}

func (s *Store) UpdateQuantity(ctx context.Context, code string, quantity int) error {
	return s.dispatch(ctx, UpdateQuantity{Code: code, Quantity: quantity})
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.dispatch(ctx, ClearCart{})
}

func (s *Store) RecordOrder(ctx context.Context, order domain.Order) error {
	return s.dispatch(ctx, RecordOrder{Order: order})
}

// PlaceOrder records order and empties the cart as one transition pair under
// a single lock hold, so no other mutation can land between them.
func (s *Store) PlaceOrder(ctx context.Context, order domain.Order) error {
	return s.dispatch(ctx, RecordOrder{Order: order}, ClearCart{})
}

func (s *Store) dispatch(ctx context.Context, cmds ...Command) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return ErrNotReady
	}
	next := s.state
	for _, cmd := range cmds {
		var err error
		next, err = Apply(next, cmd)
		if err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.state = next
	s.persist(ctx)
	out := s.state.Clone()
	s.mu.Unlock()

	s.notify(out)
	return nil
}

// persist writes both storage keys. Failures leave memory as is.
func (s *Store) persist(ctx context.Context) {
	combined, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Error("encode cart snapshot", zap.Error(err))
		return
	}
	orders, err := json.Marshal(s.state.Orders)
	if err != nil {
		s.logger.Error("encode order history", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, CartStorageKey, string(combined)); err != nil {
		s.logger.Error("save cart data", zap.String("key", CartStorageKey), zap.Error(err))
	}
	if err := s.storage.Set(ctx, OrdersStorageKey, string(orders)); err != nil {
		s.logger.Error("save cart data", zap.String("key", OrdersStorageKey), zap.Error(err))
	}
}

// Subscribe registers fn to receive the state after every transition.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(domain.CartSnapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap domain.CartSnapshot) {
	s.subMu.Lock()
	fns := make([]func(domain.CartSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Items() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneLines(s.state.Items)
}

func (s *Store) Orders() []domain.Order {
	return s.Snapshot().Orders
}

// TotalItemCount is recomputed on each call.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalItemCount(s.state.Items)
}

func emptySnapshot() domain.CartSnapshot {
	return domain.CartSnapshot{Items: []domain.CartLine{}, Orders: []domain.Order{}}
}
