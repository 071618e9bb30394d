package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"foodexplorer/internal/domain"
	"foodexplorer/internal/store/memory"
)

func newReadyStore(t *testing.T) (*Store, *memory.Store) {
	t.Helper()
	storage := memory.NewStore(0)
	store := NewStore(storage, zap.NewNop())
	require.NoError(t, store.Load(context.Background()))
	return store, storage
}

func TestStore_MutationsBeforeInitializeFail(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewStore(0), zap.NewNop())

	assert.False(t, store.Ready())
	assert.ErrorIs(t, store.AddToCart(ctx, domain.Product{Code: "a"}, 1), ErrNotReady)
	assert.ErrorIs(t, store.RemoveFromCart(ctx, "a"), ErrNotReady)
	assert.ErrorIs(t, store.UpdateQuantity(ctx, "a", 2), ErrNotReady)
	assert.ErrorIs(t, store.ClearCart(ctx), ErrNotReady)
	assert.ErrorIs(t, store.RecordOrder(ctx, domain.Order{ID: "x"}), ErrNotReady)
}

func TestStore_InitializeOnlyOnce(t *testing.T) {
	store, _ := newReadyStore(t)
	assert.True(t, store.Ready())
	err := store.Initialize(context.Background(), domain.CartSnapshot{})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestStore_EveryMutationIsPersisted(t *testing.T) {
	ctx := context.Background()
	store, storage := newReadyStore(t)
	baseline := storage.Writes()

	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "0001", ProductName: "Oats"}, 1))
	assert.Equal(t, baseline+2, storage.Writes())

	var combined domain.CartSnapshot
	require.NoError(t, json.Unmarshal([]byte(storage.Dump()[CartStorageKey]), &combined))
	assert.Equal(t, store.Items(), combined.Items)
	assert.Equal(t, "[]", storage.Dump()[OrdersStorageKey])
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, storage := newReadyStore(t)

	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A", ProductName: "Apple", Brands: "Orchard"}, 2))
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "B", ImageFrontURL: "b.png"}, 1))
	require.NoError(t, store.RecordOrder(ctx, domain.Order{
		ID:    "ORD-ABC1234",
		Date:  "Oct 16, 2026",
		Time:  "09:30 AM",
		Items: []domain.CartLine{{Code: "A", Name: "Apple", Quantity: 2}},
		Total: decimal.RequireFromString("1036.8"),
		Email: "a@b.com",
	}))

	reloaded := NewStore(storage, zap.NewNop())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, store.Snapshot(), reloaded.Snapshot())
}

func TestStore_CorruptStorageLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore(0)
	require.NoError(t, storage.Set(ctx, CartStorageKey, "{not json"))
	require.NoError(t, storage.Set(ctx, OrdersStorageKey, "also bad"))

	core, logs := observer.New(zapcore.WarnLevel)
	store := NewStore(storage, zap.New(core))
	require.NoError(t, store.Load(ctx))

	assert.Empty(t, store.Items())
	assert.Empty(t, store.Orders())
	assert.Equal(t, 2, logs.FilterMessage("parse persisted cart data").Len())
}

func TestStore_KeysAreReadIndependently(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore(0)
	require.NoError(t, storage.Set(ctx, CartStorageKey, `{"items":[{"code":"A","name":"Apple","quantity":2}],"orders":[]}`))
	require.NoError(t, storage.Set(ctx, OrdersStorageKey, "garbage"))

	store := NewStore(storage, zap.NewNop())
	require.NoError(t, store.Load(ctx))
	assert.Equal(t, []domain.CartLine{{Code: "A", Name: "Apple", Quantity: 2}}, store.Items())
	assert.Empty(t, store.Orders())
}

func TestStore_LoadRepairsPersistedItems(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore(0)
	require.NoError(t, storage.Set(ctx, CartStorageKey, `{"items":[
		{"code":"A","name":"Apple","quantity":2},
		{"code":"B","name":"Bread","quantity":0},
		{"code":"A","name":"Apple","quantity":3},
		{"code":"","name":"Nameless","quantity":1},
		{"code":"C","name":"Cheese","quantity":-4},
		{"code":"D","name":"Dates","quantity":1}]}`))

	core, logs := observer.New(zapcore.WarnLevel)
	store := NewStore(storage, zap.New(core))
	require.NoError(t, store.Load(ctx))

	assert.Equal(t, []domain.CartLine{
		{Code: "A", Name: "Apple", Quantity: 5},
		{Code: "D", Name: "Dates", Quantity: 1},
	}, store.Items())
	assert.Equal(t, 6, store.TotalItemCount())

	entries := logs.FilterMessage("repair persisted cart items").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 3, entries[0].ContextMap()["dropped"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["merged"])

	require.NoError(t, store.RemoveFromCart(ctx, "A"))
	assert.Equal(t, []domain.CartLine{{Code: "D", Name: "Dates", Quantity: 1}}, store.Items())
}

func TestStore_OrdersFallBackToCombinedKey(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore(0)
	require.NoError(t, storage.Set(ctx, CartStorageKey, `{"items":[],"orders":[{"id":"ORD-OLD","items":[],"total":864,"email":"x@y.io"}]}`))

	store := NewStore(storage, zap.NewNop())
	require.NoError(t, store.Load(ctx))
	orders := store.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-OLD", orders[0].ID)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(864)))
}

func TestStore_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore(0)
	core, logs := observer.New(zapcore.ErrorLevel)
	store := NewStore(storage, zap.New(core))
	require.NoError(t, store.Load(ctx))

	storage.FailWrites(memory.ErrQuotaExceeded)
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A"}, 3))

	assert.Equal(t, 3, store.TotalItemCount())
	assert.Equal(t, 2, logs.FilterMessage("save cart data").Len())

	persisted := storage.Dump()[CartStorageKey]
	assert.NotContains(t, persisted, `"A"`)
}

func TestStore_ClearCartLeavesOrders(t *testing.T) {
	ctx := context.Background()
	store, _ := newReadyStore(t)
	require.NoError(t, store.RecordOrder(ctx, domain.Order{ID: "ORD-1", Total: decimal.NewFromInt(5)}))
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A"}, 1))
	before := store.Orders()

	require.NoError(t, store.ClearCart(ctx))
	assert.Empty(t, store.Items())
	assert.Equal(t, before, store.Orders())
}

func TestStore_PlaceOrderRecordsAndClears(t *testing.T) {
	ctx := context.Background()
	store, _ := newReadyStore(t)
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A"}, 2))

	order := domain.Order{ID: "ORD-1", Items: store.Items(), Email: "a@b.com", Total: decimal.NewFromInt(1)}
	require.NoError(t, store.PlaceOrder(ctx, order))

	assert.Empty(t, store.Items())
	orders := store.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, []domain.CartLine{{Code: "A", Name: UnnamedProduct, Quantity: 2}}, orders[0].Items)
}

func TestStore_InvalidQuantityIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store, storage := newReadyStore(t)
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "0001"}, 1))
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "0001"}, 2))
	writes := storage.Writes()

	err := store.UpdateQuantity(ctx, "0001", 0)
	require.True(t, errors.Is(err, ErrInvalidQuantity))
	assert.Equal(t, writes, storage.Writes())
	assert.Equal(t, 3, store.Items()[0].Quantity)
}

func TestStore_SubscribersSeeEveryTransition(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewStore(0), zap.NewNop())

	var counts []int
	unsubscribe := store.Subscribe(func(s domain.CartSnapshot) {
		counts = append(counts, TotalItemCount(s.Items))
	})
	require.NoError(t, store.Load(ctx))
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A"}, 2))
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "B"}, 1))
	unsubscribe()
	require.NoError(t, store.ClearCart(ctx))

	assert.Equal(t, []int{0, 2, 3}, counts)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newReadyStore(t)
	require.NoError(t, store.AddToCart(ctx, domain.Product{Code: "A"}, 1))

	items := store.Items()
	items[0].Quantity = 100
	assert.Equal(t, 1, store.Items()[0].Quantity)
}
