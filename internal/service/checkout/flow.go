package checkout

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foodexplorer/internal/domain"
)

type Step string

const (
	StepReview       Step = "review"
	StepEmail        Step = "email"
	StepConfirmation Step = "confirmation"
)

const (
	DateLayout = "Jan 2, 2006"
	TimeLayout = "03:04 PM"

	orderIDPrefix = "ORD-"
	orderIDLength = 7
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidEmail      = errors.New("please enter a valid email address")
	ErrInvalidTransition = errors.New("invalid checkout transition")
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Cart is the part of the cart store checkout needs.
type Cart interface {
	Items() []domain.CartLine
	PlaceOrder(ctx context.Context, order domain.Order) error
}

// Flow walks one checkout from review to confirmation. It is not reusable:
// once confirmed every further call fails.
type Flow struct {
	mu       sync.Mutex
	step     Step
	email    string
	order    *domain.Order
	cart     Cart
	pricing  Pricing
	now      func() time.Time
	location *time.Location
	newID    func() string
	logger   *zap.Logger
}

// NewFlow starts a flow at the review step. A nil clock means time.Now and a
// nil location means time.Local.
func NewFlow(cart Cart, pricing Pricing, clock func() time.Time, location *time.Location, logger *zap.Logger) *Flow {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		step:     StepReview,
		cart:     cart,
		pricing:  pricing,
		now:      clock,
		location: location,
		newID:    NewOrderID,
		logger:   logger.Named("checkout"),
	}
}

// View is a read-only copy of the flow for rendering.
type View struct {
	Step    Step              `json:"step"`
	Email   string            `json:"email,omitempty"`
	Items   []domain.CartLine `json:"items"`
	Summary Summary           `json:"summary"`
	Order   *domain.Order     `json:"order,omitempty"`
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.order != nil {
		order := *f.order
		order.Items = domain.CloneLines(order.Items)
		summary := f.pricing.Summarize(order.Items)
		summary.Total = order.Total
		return View{Step: f.step, Email: f.email, Items: order.Items, Summary: summary, Order: &order}
	}
	items := f.cart.Items()
	return View{Step: f.step, Email: f.email, Items: items, Summary: f.pricing.Summarize(items)}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Proceed moves review to email.
func (f *Flow) Proceed() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepReview {
		return fmt.Errorf("%w: proceed from %s", ErrInvalidTransition, f.step)
	}
	if len(f.cart.Items()) == 0 {
		return ErrEmptyCart
	}
	f.step = StepEmail
	return nil
}

// Back moves email to review.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepEmail {
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, f.step)
	}
	f.step = StepReview
	return nil
}

// Confirm places the order: it is recorded in history and the cart is
// emptied in one store transition. A bad email changes nothing.
func (f *Flow) Confirm(ctx context.Context, email string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepEmail {
		return domain.Order{}, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, f.step)
	}
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return domain.Order{}, ErrInvalidEmail
	}
	items := f.cart.Items()
	if len(items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	now := f.now().In(f.location)
	order := domain.Order{
		ID:    f.newID(),
		Date:  now.Format(DateLayout),
		Time:  now.Format(TimeLayout),
		Items: items,
		Total: f.pricing.Summarize(items).Total,
		Email: email,
	}
	if err := f.cart.PlaceOrder(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("place order: %w", err)
	}
	f.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("lines", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)))

	f.step = StepConfirmation
	f.email = email
	f.order = &order

	out := order
	out.Items = domain.CloneLines(order.Items)
	return out, nil
}

// NewOrderID returns "ORD-" followed by seven uppercase base-36 characters.
func NewOrderID() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])
	s := strings.ToUpper(strconv.FormatUint(n, 36))
	for len(s) < orderIDLength {
		s = "0" + s
	}
	return orderIDPrefix + s[:orderIDLength]
}
