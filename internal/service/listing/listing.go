package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"foodexplorer/internal/domain"
)

const (
	AllCategories   = "all"
	DefaultPageSize = 24
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrSuperseded is returned to a caller whose response arrived after a
	// newer search or category change; the response was discarded.
	ErrSuperseded     = errors.New("listing request superseded")
	ErrLoadInProgress = errors.New("a page is already loading")
)

type Catalog interface {
	Search(ctx context.Context, term string, page, pageSize int) (domain.SearchResponse, error)
	ByCategory(ctx context.Context, category string, page int) (domain.SearchResponse, error)
	Categories(ctx context.Context) []string
}

type Options struct {
	PageSize int
	Debounce time.Duration
}

// Listing holds the catalog page: what is loaded, how it was selected and
// how it is sorted. Resets (new term or category) bump a generation and
// cancel the request they replace.
type Listing struct {
	catalog  Catalog
	pageSize int
	logger   *zap.Logger
	debounce *Debouncer

	// base scopes debounced searches, which outlive the request that typed them.
	base       context.Context
	stopBase   context.CancelFunc
	mu         sync.Mutex
	products   []domain.Product
	seen       map[string]struct{}
	page       int
	hasMore    bool
	total      int
	term       string
	category   string
	sortOpt    SortOption
	categories []string
	loading    bool
	gen        uint64
	cancel     context.CancelFunc
	moreCancel context.CancelFunc
}

func New(catalog Catalog, opts Options, logger *zap.Logger) *Listing {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Listing{
		catalog:  catalog,
		pageSize: opts.PageSize,
		logger:   logger.Named("listing"),
		debounce: NewDebouncer(opts.Debounce),
		base:     base,
		stopBase: stop,
		seen:     map[string]struct{}{},
		page:     1,
		hasMore:  true,
		category: AllCategories,
		sortOpt:  SortNameAsc,
	}
}

// Close stops pending debounced searches and cancels in-flight requests.
func (l *Listing) Close() {
	l.debounce.Stop()
	l.stopBase()
}

func (l *Listing) LoadCategories(ctx context.Context) []string {
	cats := l.catalog.Categories(ctx)
	l.mu.Lock()
	l.categories = cats
	l.mu.Unlock()
	return append([]string(nil), cats...)
}

// Search replaces the term and reloads from page 1.
func (l *Listing) Search(ctx context.Context, term string) error {
	l.mu.Lock()
	l.term = strings.TrimSpace(term)
	l.mu.Unlock()
	return l.Reload(ctx)
}

// Input is the keystroke path: the search runs once typing has been quiet
// for the debounce window.
func (l *Listing) Input(term string) {
	l.debounce.Trigger(func() {
		err := l.Search(l.base, term)
		if err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
			l.logger.Warn("debounced search", zap.String("term", term), zap.Error(err))
		}
	})
}

func (l *Listing) SelectCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = AllCategories
	}
	l.mu.Lock()
	l.category = category
	l.mu.Unlock()
	return l.Reload(ctx)
}

func (l *Listing) SetSort(opt SortOption) error {
	if _, err := ParseSortOption(string(opt)); err != nil {
		return fmt.Errorf("%w: %q", err, opt)
	}
	l.mu.Lock()
	l.sortOpt = opt
	l.mu.Unlock()
	return nil
}

// Reload fetches page 1 for the current term and category. On failure the
// loaded products are left as they were, but paging stops: they belong to the
// previous query and must not be extended with the new one's pages.
func (l *Listing) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.cancelInFlight()
	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.loading = true
	term, category := l.term, l.category
	l.mu.Unlock()
	defer cancel()

	res, err := l.fetch(reqCtx, term, category, 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrSuperseded
	}
	l.loading = false
	l.cancel = nil
	if err != nil {
		l.page = 1
		l.hasMore = false
		l.logger.Warn("load products", zap.String("term", term), zap.String("category", category), zap.Error(err))
		return err
	}

	l.products = make([]domain.Product, 0, len(res.Products))
	l.seen = make(map[string]struct{}, len(res.Products))
	for _, p := range res.Products {
		l.products = append(l.products, p)
		l.seen[p.Code] = struct{}{}
	}
	l.page = 1
	l.total = res.Count
	l.hasMore = len(res.Products) == l.pageSize
	return nil
}

// LoadMore appends the next page, skipping codes already loaded. A failure
// stops further paging; the caller abandoning its own request does not.
func (l *Listing) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.loading || l.moreCancel != nil {
		l.mu.Unlock()
		return ErrLoadInProgress
	}
	if !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	gen := l.gen
	next := l.page + 1
	reqCtx, cancel := context.WithCancel(ctx)
	l.moreCancel = cancel
	term, category := l.term, l.category
	l.mu.Unlock()
	defer cancel()

	res, err := l.fetch(reqCtx, term, category, next)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrSuperseded
	}
	l.moreCancel = nil
	if err != nil && ctx.Err() != nil {
		return err
	}
	if err != nil {
		l.hasMore = false
		l.logger.Warn("load more products", zap.Int("page", next), zap.Error(err))
		return err
	}

	for _, p := range res.Products {
		if _, dup := l.seen[p.Code]; dup {
			continue
		}
		l.seen[p.Code] = struct{}{}
		l.products = append(l.products, p)
	}
	l.page = next
	l.hasMore = len(res.Products) == l.pageSize
	return nil
}

func (l *Listing) fetch(ctx context.Context, term, category string, page int) (domain.SearchResponse, error) {
	switch {
	case term != "":
		return l.catalog.Search(ctx, term, page, l.pageSize)
	case category != AllCategories:
		return l.catalog.ByCategory(ctx, category, page)
	default:
		return l.catalog.Search(ctx, "", page, l.pageSize)
	}
}

// cancelInFlight must be called with mu held.
func (l *Listing) cancelInFlight() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.moreCancel != nil {
		l.moreCancel()
		l.moreCancel = nil
	}
}

// View is a sorted, copied snapshot of the listing.
type View struct {
	Products   []domain.Product `json:"products"`
	Cards      []Card           `json:"cards"`
	Page       int              `json:"page"`
	HasMore    bool             `json:"has_more"`
	Total      int              `json:"total"`
	Term       string           `json:"term"`
	Category   string           `json:"category"`
	Sort       SortOption       `json:"sort"`
	Categories []string         `json:"categories"`
	Loading    bool             `json:"loading"`
}

func (l *Listing) View() View {
	l.mu.Lock()
	v := View{
		Page:       l.page,
		HasMore:    l.hasMore,
		Total:      l.total,
		Term:       l.term,
		Category:   l.category,
		Sort:       l.sortOpt,
		Categories: append([]string(nil), l.categories...),
		Loading:    l.loading,
	}
	products := l.products
	opt := l.sortOpt
	l.mu.Unlock()

	v.Products = Sorted(products, opt)
	v.Cards = make([]Card, 0, len(v.Products))
	for _, p := range v.Products {
		v.Cards = append(v.Cards, NewCard(p))
	}
	return v
}
