package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	principalHeader = "X-Principal"
	maxErrorBody    = 512
)

type saveCartRequest struct {
	Lines []domain.CartLine `json:"lines"`
}

type createSessionRequest struct {
	Items      []domain.LineItem `json:"items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
}

type createSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks JSON over HTTP to the cart backend. Every call goes through a
// circuit breaker; 5xx responses and transport errors count as failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
	log        logrus.FieldLogger

	readyOnce sync.Once
	readyCh   chan struct{}
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient  *http.Client
	maxFailures uint32
	openTimeout time.Duration
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(o *clientOptions) {
		o.maxFailures = maxFailures
		o.openTimeout = openTimeout
	}
}

func NewClient(baseURL string, log logrus.FieldLogger, opts ...Option) *Client {
	o := clientOptions{
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		breaker:    newBreaker("cart-backend", o.maxFailures, o.openTimeout, log),
		log:        log,
		readyCh:    make(chan struct{}),
	}
}

// Connect polls the health endpoint every interval until it answers 200 or
// ctx is done. It is safe to call more than once.
func (c *Client) Connect(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if c.Ready() {
			return nil
		}
		resp, err := c.do(ctx, "health", http.MethodGet, "/health", domain.Anonymous, nil)
		if err == nil && resp.code == http.StatusOK {
			c.readyOnce.Do(func() { close(c.readyCh) })
			c.log.WithField("backend", c.baseURL).Info("backend connection ready")
			return nil
		}
		c.log.WithField("error", err).Debug("backend not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) Ready() bool {
	select {
	case <-c.readyCh:
		return true
	default:
		return false
	}
}

func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) LoadCart(ctx context.Context, id domain.Identity) (*domain.RemoteCartRecord, error) {
	resp, err := c.do(ctx, "load cart", http.MethodGet, cartPath(id), id, nil)
	if err != nil {
		return nil, err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, statusError("load cart", resp)
	}

	var record domain.RemoteCartRecord
	if err := json.Unmarshal(resp.body, &record); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &record, nil
}

func (c *Client) SaveCart(ctx context.Context, id domain.Identity, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	resp, err := c.do(ctx, "save cart", http.MethodPut, cartPath(id), id, saveCartRequest{Lines: lines})
	if err != nil {
		return err
	}
	if resp.code != http.StatusNoContent && resp.code != http.StatusOK {
		return statusError("save cart", resp)
	}
	return nil
}

func (c *Client) DeleteCart(ctx context.Context, id domain.Identity) error {
	resp, err := c.do(ctx, "delete cart", http.MethodDelete, cartPath(id), id, nil)
	if err != nil {
		return err
	}
	switch resp.code {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	default:
		return statusError("delete cart", resp)
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, items []domain.LineItem, successURL, cancelURL string) (string, error) {
	req := createSessionRequest{Items: items, SuccessURL: successURL, CancelURL: cancelURL}
	resp, err := c.do(ctx, "create checkout session", http.MethodPost, "/api/v1/checkout/sessions", identityFromContext(ctx), req)
	if err != nil {
		return "", err
	}
	if resp.code != http.StatusCreated && resp.code != http.StatusOK {
		return "", statusError("create checkout session", resp)
	}

	var out createSessionResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("decode checkout session: %w", err)
	}
	return out.URL, nil
}

func (c *Client) GetSessionStatus(ctx context.Context, token string) (domain.SessionStatus, error) {
	if token == "" {
		return domain.SessionStatus{}, ErrInvalidToken
	}
	path := "/api/v1/checkout/sessions/" + url.PathEscape(token) + "/status"
	resp, err := c.do(ctx, "session status", http.MethodGet, path, identityFromContext(ctx), nil)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	if resp.code != http.StatusOK {
		return domain.SessionStatus{}, statusError("session status", resp)
	}

	var status domain.SessionStatus
	if err := json.Unmarshal(resp.body, &status); err != nil {
		return domain.SessionStatus{}, fmt.Errorf("decode session status: %w", err)
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, id domain.Identity, body any) (response, error) {
	resp, err := c.breaker.Execute(func() (response, error) {
		return c.roundTrip(ctx, method, path, id, body)
	})
	if isBreakerError(err) {
		return response{}, fmt.Errorf("%s: %w", op, ErrBreakerOpen)
	}
	if err != nil {
		// 5xx are reported to the breaker as errors but are still a response.
		if resp.code >= http.StatusInternalServerError {
			return resp, nil
		}
		return response{}, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, id domain.Identity, body any) (response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return response{}, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return response{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id.IsAuthenticated() {
		req.Header.Set(principalHeader, id.Principal())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, err
	}
	out := response{code: resp.StatusCode, body: data}
	if resp.StatusCode >= http.StatusInternalServerError {
		return out, fmt.Errorf("server error %d", resp.StatusCode)
	}
	return out, nil
}

func cartPath(id domain.Identity) string {
	return "/api/v1/carts/" + url.PathEscape(id.Principal())
}

func statusError(op string, resp response) error {
	body := string(resp.body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Op: op, Code: resp.code, Body: strings.TrimSpace(body)}
}
