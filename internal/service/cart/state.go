package cart

import (
	"errors"
	"fmt"
	"slices"

	"foodexplorer/internal/domain"
)

const (
	// MaxOrders is how many completed orders are kept; older ones are dropped first.
	MaxOrders = 10

	UnnamedProduct = "Unnamed Product"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Command is one state transition. The set of commands is closed: only the
// types in this file implement it.
type Command interface {
	command()
}

type Initialize struct {
	Snapshot domain.CartSnapshot
}

type AddToCart struct {
	Product  domain.Product
	Quantity int
}

type RemoveFromCart struct {
	Code string
}

type UpdateQuantity struct {
	Code     string
	Quantity int
}

type ClearCart struct{}

type RecordOrder struct {
	Order domain.Order
}

func (Initialize) command()     {}
func (AddToCart) command()      {}
func (RemoveFromCart) command() {}
func (UpdateQuantity) command() {}
func (ClearCart) command()      {}
func (RecordOrder) command()    {}

// Apply returns the state that results from cmd. The input state is never
// modified; returned slices are fresh whenever they differ from the input.
func Apply(state domain.CartSnapshot, cmd Command) (domain.CartSnapshot, error) {
	switch c := cmd.(type) {
	case Initialize:
		return c.Snapshot.Clone(), nil

	case AddToCart:
		qty := c.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 1 {
			return state, ErrInvalidQuantity
		}
		items := domain.CloneLines(state.Items)
		if i := indexOf(items, c.Product.Code); i >= 0 {
			items[i].Quantity += qty
		} else {
			items = append(items, lineFromProduct(c.Product, qty))
		}
		return domain.CartSnapshot{Items: items, Orders: state.Orders}, nil

	case RemoveFromCart:
		items := slices.DeleteFunc(domain.CloneLines(state.Items), func(l domain.CartLine) bool {
			return l.Code == c.Code
		})
		return domain.CartSnapshot{Items: items, Orders: state.Orders}, nil

	case UpdateQuantity:
		if c.Quantity < 1 {
			return state, ErrInvalidQuantity
		}
		items := domain.CloneLines(state.Items)
		if i := indexOf(items, c.Code); i >= 0 {
			items[i].Quantity = c.Quantity
		}
		return domain.CartSnapshot{Items: items, Orders: state.Orders}, nil

	case ClearCart:
		return domain.CartSnapshot{Items: []domain.CartLine{}, Orders: state.Orders}, nil

	case RecordOrder:
		order := c.Order
		order.Items = domain.CloneLines(order.Items)
		orders := append(slices.Clone(state.Orders), order)
		if over := len(orders) - MaxOrders; over > 0 {
			orders = slices.Clone(orders[over:])
		}
		return domain.CartSnapshot{Items: state.Items, Orders: orders}, nil

	default:
		return state, fmt.Errorf("unknown cart command %T", cmd)
	}
}

// TotalItemCount sums quantities across lines.
func TotalItemCount(items []domain.CartLine) int {
	total := 0
	for _, l := range items {
		total += l.Quantity
	}
	return total
}

func lineFromProduct(p domain.Product, qty int) domain.CartLine {
	name := p.ProductName
	if name == "" {
		name = p.ProductNameEn
	}
	if name == "" {
		name = UnnamedProduct
	}
	image := p.ImageURL
	if image == "" {
		image = p.ImageFrontURL
	}
	return domain.CartLine{
		Code:     p.Code,
		Name:     name,
		Image:    image,
		Brand:    p.Brands,
		Quantity: qty,
	}
}

func indexOf(items []domain.CartLine, code string) int {
	return slices.IndexFunc(items, func(l domain.CartLine) bool { return l.Code == code })
}
