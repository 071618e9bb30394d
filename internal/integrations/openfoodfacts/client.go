package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"foodexplorer/internal/domain"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://world.openfoodfacts.org"
	maxBodyBytes    = 16 << 20
	maxCategories   = 50
	breakerName     = "openfoodfacts"
	userAgent       = "FoodExplorer/1.0"
	defaultPageSize = 24
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrEmptyBarcode       = errors.New("barcode is required")
)

// FallbackCategories is served whenever the remote category list cannot be read.
var FallbackCategories = []string{
	"beverages", "snacks", "dairy", "breakfast", "fruits",
	"vegetables", "meat", "seafood", "bakery", "desserts",
}

// HTTPError is returned for any non-2xx upstream response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("catalog responded %d", e.StatusCode)
}

type Options struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       int
	RetryBase        time.Duration
	RetryMax         time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
	// Transport is wrapped with otelhttp; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryBase  time.Duration
	retryMax   time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
	group      singleflight.Group
	logger     *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 300 * time.Millisecond
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = opts.RetryBase
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger = logger.Named("openfoodfacts")

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		maxRetries: opts.MaxRetries,
		retryBase:  opts.RetryBase,
		retryMax:   opts.RetryMax,
		logger:     logger,
	}
	threshold := opts.BreakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Search runs a free-text search. An empty term lists everything.
func (c *Client) Search(ctx context.Context, term string, page, pageSize int) (domain.SearchResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	q := url.Values{}
	q.Set("search_terms", term)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("json", "true")

	var payload searchPayload
	if err := c.getJSON(ctx, "/cgi/search.pl", q, &payload); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("search %q: %w", term, err)
	}
	return payload.toDomain(), nil
}

func (c *Client) ByCategory(ctx context.Context, category string, page int) (domain.SearchResponse, error) {
	if page < 1 {
		page = 1
	}
	path := "/category/" + url.PathEscape(category) + "/" + strconv.Itoa(page) + ".json"

	var payload searchPayload
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return domain.SearchResponse{}, fmt.Errorf("category %q: %w", category, err)
	}
	return payload.toDomain(), nil
}

// ByBarcode fetches a single product. Concurrent lookups of the same code
// share one upstream request.
func (c *Client) ByBarcode(ctx context.Context, code string) (domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Product{}, ErrEmptyBarcode
	}
	v, err := c.shared(ctx, "barcode:"+code, func(ctx context.Context) (any, error) {
		var payload productPayload
		if err := c.getJSON(ctx, "/api/v0/product/"+url.PathEscape(code)+".json", nil, &payload); err != nil {
			return nil, err
		}
		if payload.Status == 0 || payload.Product == nil {
			return nil, ErrProductNotFound
		}
		p := payload.Product.toDomain()
		if p.Code == "" {
			p.Code = code
		}
		return p, nil
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("barcode %s: %w", code, err)
	}
	return v.(domain.Product), nil
}

// Categories returns up to 50 lowercase category ids. It never fails: any
// upstream problem yields FallbackCategories.
func (c *Client) Categories(ctx context.Context) []string {
	v, err := c.shared(ctx, "categories", func(ctx context.Context) (any, error) {
		var payload categoriesPayload
		if err := c.getJSON(ctx, "/categories.json", nil, &payload); err != nil {
			return nil, err
		}
		out := make([]string, 0, maxCategories)
		for _, tag := range payload.Tags {
			name := rawString(tag.ID)
			if name == "" {
				name = rawString(tag.Name)
			}
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			out = append(out, name)
			if len(out) == maxCategories {
				break
			}
		}
		if len(out) == 0 {
			return nil, errors.New("empty category list")
		}
		return out, nil
	})
	if err != nil {
		c.logger.Warn("fetch categories, using fallback list", zap.Error(err))
		return append([]string(nil), FallbackCategories...)
	}
	return append([]string(nil), v.([]string)...)
}

// shared runs fn once for all concurrent callers of key. The upstream request
// is detached from any single caller's cancellation, so one caller giving up
// does not fail the others; each caller still returns as soon as its own ctx
// is done. The http client timeout bounds every attempt.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, target any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, u)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, err := c.fetch(ctx, u)
		if err == nil {
			return body, nil
		}
		if attempt >= c.maxRetries || !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		delay := c.backoff(attempt)
		c.logger.Debug("retry catalog request",
			zap.String("url", u),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.retryMax {
			return c.retryMax
		}
	}
	return d
}

// Transport errors and 5xx are retried; 4xx never are.
func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	return true
}

// Client errors and caller cancellations say nothing about upstream health.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < 500
	}
	return false
}
