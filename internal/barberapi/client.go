package barberapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barberbook/internal/auth"
	"barberbook/internal/metrics"
	"barberbook/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client is an HTTP client for the barbershop booking backend. Every request is
// authenticated with the bearer token of the injected session.
type Client struct {
	baseURL    string
	session    *auth.Session
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped so the
// session token is still attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a client for baseURL (scheme and host, no trailing path).
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	nop := zerolog.Nop()
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = &oauth2.Transport{Source: session, Base: c.httpClient.Transport}
	return c
}

// UseRedisCache configures optional Redis caching for reference data
// (services and barbers). Slot availability is never cached.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// BarbershopID returns the tenant the client acts for.
func (c *Client) BarbershopID() string {
	return c.session.BarbershopID()
}

func (c *Client) shopPath() string {
	return "/barbershops/" + url.PathEscape(c.session.BarbershopID())
}

// ListServices returns the services of the tenant.
func (c *Client) ListServices(ctx context.Context) ([]model.Service, error) {
	cacheKey := fmt.Sprintf("barberbook:%s:services", c.session.BarbershopID())
	var out []model.Service
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}
	if err := c.doGet(ctx, "list_services", c.shopPath()+"/services", &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

// ListBarbers returns the barbers of the tenant.
func (c *Client) ListBarbers(ctx context.Context) ([]model.Barber, error) {
	cacheKey := fmt.Sprintf("barberbook:%s:barbers", c.session.BarbershopID())
	var out []model.Barber
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}
	if err := c.doGet(ctx, "list_barbers", c.shopPath()+"/barbers", &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

// FreeSlots fetches the slot list of a barber for a date (yyyy-MM-dd).
// serviceID is optional and omitted from the query when empty.
func (c *Client) FreeSlots(ctx context.Context, barberID, date, serviceID string) ([]model.TimeSlot, error) {
	q := url.Values{}
	q.Set("date", date)
	if serviceID != "" {
		q.Set("serviceId", serviceID)
	}
	path := fmt.Sprintf("%s/barbers/%s/free-slots?%s", c.shopPath(), url.PathEscape(barberID), q.Encode())

	var out []model.TimeSlot
	if err := c.doGet(ctx, "free_slots", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBooking submits a scheduled booking through the public route.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	var out model.Booking
	if err := c.doPost(ctx, "create_booking", c.shopPath()+"/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateManualBooking submits an operator booking through the privileged admin route.
func (c *Client) CreateManualBooking(ctx context.Context, req ManualBookingRequest) (*model.Booking, error) {
	var out model.Booking
	if err := c.doPost(ctx, "create_manual_booking", "/api"+c.shopPath()+"/admin/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBookings returns the tenant bookings between two calendar days (inclusive).
func (c *Client) ListBookings(ctx context.Context, from, to string) ([]model.Booking, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/api" + c.shopPath() + "/admin/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.Booking
	if err := c.doGet(ctx, "list_bookings", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HealthCheck checks if the backend is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) doPost(ctx context.Context, op, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("%s: rate limit: %w", op, err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(op, 0, time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveAPIRequest(op, resp.StatusCode, time.Since(start))

	c.logger.Debug().
		Str("op", op).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return newAPIError(resp.StatusCode, body)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
