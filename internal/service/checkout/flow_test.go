package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foodexplorer/internal/domain"
	"foodexplorer/internal/service/cart"
	"foodexplorer/internal/store/memory"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

func newCart(t *testing.T, lines ...domain.CartLine) *cart.Store {
	t.Helper()
	s := cart.NewStore(memory.NewStore(0), zap.NewNop())
	require.NoError(t, s.Initialize(context.Background(), domain.CartSnapshot{Items: lines}))
	return s
}

func newFlow(c Cart) *Flow {
	f := NewFlow(c, DefaultPricing(), func() time.Time { return fixedNow }, time.UTC, zap.NewNop())
	f.newID = func() string { return "ORD-TEST123" }
	return f
}

func TestFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, domain.CartLine{Code: "A", Name: "Apple", Quantity: 2})
	f := newFlow(c)

	assert.Equal(t, StepReview, f.Step())
	require.NoError(t, f.Proceed())
	assert.Equal(t, StepEmail, f.Step())

	order, err := f.Confirm(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, StepConfirmation, f.Step())

	assert.Equal(t, "ORD-TEST123", order.ID)
	assert.Equal(t, "Mar 5, 2024", order.Date)
	assert.Equal(t, "02:07 PM", order.Time)
	assert.Equal(t, "a@b.com", order.Email)
	assert.Equal(t, "818.4", order.Total.String())
	assert.Equal(t, []domain.CartLine{{Code: "A", Name: "Apple", Quantity: 2}}, order.Items)

	assert.Empty(t, c.Items())
	require.Len(t, c.Orders(), 1)
	assert.Equal(t, "ORD-TEST123", c.Orders()[0].ID)

	view := f.View()
	require.NotNil(t, view.Order)
	assert.Equal(t, "818.4", view.Summary.Total.String())
	assert.Len(t, view.Items, 1)
}

func TestFlow_ProceedWithEmptyCart(t *testing.T) {
	f := newFlow(newCart(t))
	assert.ErrorIs(t, f.Proceed(), ErrEmptyCart)
	assert.Equal(t, StepReview, f.Step())
}

func TestFlow_InvalidEmailChangesNothing(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, domain.CartLine{Code: "A", Name: "Apple", Quantity: 1})
	f := newFlow(c)
	require.NoError(t, f.Proceed())

	for _, email := range []string{"", "   ", "not-an-email", "a@b", "@b.com"} {
		_, err := f.Confirm(ctx, email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Equal(t, StepEmail, f.Step())
	assert.Len(t, c.Items(), 1)
	assert.Empty(t, c.Orders())
}

func TestFlow_Transitions(t *testing.T) {
	ctx := context.Background()
	f := newFlow(newCart(t, domain.CartLine{Code: "A", Name: "Apple", Quantity: 1}))

	assert.ErrorIs(t, f.Back(), ErrInvalidTransition)
	_, err := f.Confirm(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.Proceed())
	assert.ErrorIs(t, f.Proceed(), ErrInvalidTransition)
	require.NoError(t, f.Back())
	assert.Equal(t, StepReview, f.Step())

	require.NoError(t, f.Proceed())
	_, err = f.Confirm(ctx, "a@b.com")
	require.NoError(t, err)

	assert.ErrorIs(t, f.Proceed(), ErrInvalidTransition)
	assert.ErrorIs(t, f.Back(), ErrInvalidTransition)
	_, err = f.Confirm(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

type failingCart struct {
	items []domain.CartLine
}

func (c failingCart) Items() []domain.CartLine { return domain.CloneLines(c.items) }

func (failingCart) PlaceOrder(context.Context, domain.Order) error {
	return errors.New("store offline")
}

func TestFlow_PlaceOrderFailureKeepsEmailStep(t *testing.T) {
	f := newFlow(failingCart{items: []domain.CartLine{{Code: "A", Quantity: 1}}})
	require.NoError(t, f.Proceed())

	_, err := f.Confirm(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.Equal(t, StepEmail, f.Step())
}

func TestFlow_DateUsesLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	c := newCart(t, domain.CartLine{Code: "A", Quantity: 1})
	f := NewFlow(c, DefaultPricing(), func() time.Time { return time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC) }, loc, nil)
	require.NoError(t, f.Proceed())

	order, err := f.Confirm(context.Background(), "x@y.in")
	require.NoError(t, err)
	assert.Equal(t, "Jan 1, 2025", order.Date)
	assert.Equal(t, "01:30 AM", order.Time)
}

func TestNewOrderID(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-Z]{7}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewOrderID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190)
}
