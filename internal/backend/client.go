package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fleetdesk/internal/config"
	"fleetdesk/internal/metrics"
	"fleetdesk/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	headerAPIKey    = "x-api-key"
	headerAPIExtra  = "x-api-extra"
	headerRequestID = "x-request-id"

	maxErrorBody = 64 << 10
)

// Payload is the booking-shaped object returned by status-mutating calls.
type Payload map[string]any

// Merge returns a new payload with other's keys overriding p's.
func (p Payload) Merge(other Payload) Payload {
	out := make(Payload, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Client is an HTTP client for the rental admin API.
type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client from backend config.
func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "backend").Logger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = models.DefaultBackendTimeout * time.Second
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiExtra:   cfg.APIExtra,
		httpClient: &http.Client{Timeout: timeout},
		retry: RetryPolicy{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		logger: l,
	}

	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 5
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	return c
}

// UseRedisCache configures optional Redis caching for reference data (car list).
// Bookings themselves are never cached.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// FetchBooking loads the full booking record.
func (c *Client) FetchBooking(ctx context.Context, bookingID, role string) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/admin/bookings/details/%s?role=%s",
		c.baseURL, url.PathEscape(bookingID), url.QueryEscape(roleOrDefault(role)))

	var booking models.Booking
	if err := c.getWithRetry(ctx, "booking_details", endpoint, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) SetPending(ctx context.Context, bookingID string, req models.PendingRequest) (Payload, error) {
	return c.mutate(ctx, "booking_pending", http.MethodPut, c.statusEndpoint("pending", bookingID), req)
}

func (c *Client) SetConfirmed(ctx context.Context, bookingID string, req models.ConfirmRequest) (Payload, error) {
	return c.mutate(ctx, "booking_confirm", http.MethodPut, c.statusEndpoint("confirm", bookingID), req)
}

func (c *Client) SetCancelled(ctx context.Context, bookingID string, req models.CancelRequest) (Payload, error) {
	return c.mutate(ctx, "booking_cancel", http.MethodPut, c.statusEndpoint("cancel", bookingID), req)
}

func (c *Client) SetFinished(ctx context.Context, bookingID string, req models.FinishRequest) (Payload, error) {
	return c.mutate(ctx, "booking_finish", http.MethodPut, c.statusEndpoint("finish", bookingID), req)
}

// GenerateInvoice asks the API to render the invoice and mail it to the client.
// A 2xx answer whose body reports failure is still an error.
func (c *Client) GenerateInvoice(ctx context.Context, req models.InvoiceRequest) (Payload, error) {
	const name = "invoice_send"
	payload, err := c.mutate(ctx, name, http.MethodPost, c.baseURL+"/api/generate-and-send-invoice", req)
	if err != nil {
		return nil, err
	}
	if msg, failed := failureBody(payload); failed {
		return nil, &APIError{Endpoint: name, StatusCode: http.StatusOK, Message: msg}
	}
	return payload, nil
}

func (c *Client) NotifyPrice(ctx context.Context, req models.PriceNotifyRequest) (Payload, error) {
	return c.mutate(ctx, "notify_price", http.MethodPut, c.baseURL+"/api/admin/bookings/notify-price", req)
}

// ListCars returns car details keyed by car id.
func (c *Client) ListCars(ctx context.Context, role string) (map[string]models.Car, error) {
	role = roleOrDefault(role)
	endpoint := fmt.Sprintf("%s/api/admin/sales/car-details?role=%s", c.baseURL, url.QueryEscape(role))
	cacheKey := "cars:" + role

	var cars []models.Car
	if !c.readCache(ctx, cacheKey, &cars) {
		if err := c.getWithRetry(ctx, "car_details", endpoint, &cars); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, cars)
	}

	out := make(map[string]models.Car, len(cars))
	for _, car := range cars {
		out[car.ID] = car
	}
	return out, nil
}

// Receipt is a payment receipt uploaded by the client.
type Receipt struct {
	ContentType string
	Data        []byte
}

// FetchReceipt downloads the receipt image. ErrNoReceipt is returned when the
// API answers with a non-2xx status.
func (c *Client) FetchReceipt(ctx context.Context, bookingID, role string) (*Receipt, error) {
	const name = "receipt"
	endpoint := fmt.Sprintf("%s/api/admin/bookings/receipt-retrieve/%s?role=%s",
		c.baseURL, url.PathEscape(bookingID), url.QueryEscape(roleOrDefault(role)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, name, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, ErrNoReceipt
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: name, Err: err}
	}
	if len(data) == 0 {
		return nil, ErrNoReceipt
	}
	return &Receipt{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (c *Client) statusEndpoint(action, bookingID string) string {
	return fmt.Sprintf("%s/api/admin/bookings/%s/%s", c.baseURL, action, url.PathEscape(bookingID))
}

type validatable interface {
	Validate() error
}

func (c *Client) mutate(ctx context.Context, name, method, endpoint string, body validatable) (Payload, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out Payload
	if err := c.do(ctx, name, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Payload{}
	}
	return out, nil
}

func (c *Client) getWithRetry(ctx context.Context, name, endpoint string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retry.NextDelay(attempt)
			c.logger.Debug().Err(lastErr).Str("endpoint", name).Int("attempt", attempt).Dur("delay", delay).Msg("retrying backend read")
			if err := sleepContext(ctx, delay); err != nil {
				return lastErr
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		lastErr = c.do(ctx, name, req, out)
		if lastErr == nil || !IsTransport(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, name string, req *http.Request, out any) error {
	resp, err := c.send(ctx, name, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &APIError{Endpoint: name, StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &TransportError{Endpoint: name, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, name string, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Endpoint: name, Err: err}
		}
	}

	requestID := uuid.NewString()
	c.addHeaders(req, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "transport_error"
	case resp.StatusCode >= 300:
		outcome = "http_error"
	}
	metrics.ObserveBackend(name, outcome, dur)

	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	} else {
		event = event.Int("status", resp.StatusCode)
	}
	event.Str("request_id", requestID).Str("endpoint", name).Str("method", req.Method).Dur("duration", dur).Msg("backend request")

	if err != nil {
		return nil, &TransportError{Endpoint: name, Err: err}
	}
	return resp, nil
}

func (c *Client) addHeaders(req *http.Request, requestID string) {
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set(headerAPIExtra, c.apiExtra)
	}
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
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

func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var wrap struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrap); err != nil {
		return ""
	}
	return wrap.Message
}

// failureBody detects {"success": false, ...} or {"error": "..."} answers.
func failureBody(p Payload) (string, bool) {
	msg, _ := p["message"].(string)
	if ok, present := p["success"].(bool); present && !ok {
		return msg, true
	}
	if errMsg, present := p["error"].(string); present && errMsg != "" {
		if msg == "" {
			msg = errMsg
		}
		return msg, true
	}
	return "", false
}

func roleOrDefault(role string) string {
	if role == "" {
		return models.DefaultRole
	}
	return role
}
