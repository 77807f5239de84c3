package drawclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-draw/pkg/drawdto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to the drawd REST API.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Create(ctx context.Context, req drawdto.CreateGameRequest) (*drawdto.GameState, error) {
	var st drawdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

// Get is idempotent and retried on 5xx.
func (c *Client) Get(ctx context.Context, id string) (*drawdto.GameState, error) {
	var st drawdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/"+id, nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Move(ctx context.Context, id, side, move string) (*drawdto.MoveResponse, error) {
	var resp drawdto.MoveResponse
	req := drawdto.MoveRequest{Side: side, Move: move}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games/"+id+"/moves", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Offer(ctx context.Context, id, side string) (*drawdto.GameState, error) {
	return c.sideAction(ctx, id, "offer", side)
}

func (c *Client) Accept(ctx context.Context, id, side string) (*drawdto.GameState, error) {
	return c.sideAction(ctx, id, "accept", side)
}

func (c *Client) Decline(ctx context.Context, id, side string) (*drawdto.GameState, error) {
	return c.sideAction(ctx, id, "decline", side)
}

func (c *Client) Withdraw(ctx context.Context, id, side string) (*drawdto.GameState, error) {
	return c.sideAction(ctx, id, "withdraw", side)
}

func (c *Client) Claim(ctx context.Context, id, side, reason string) (*drawdto.GameState, error) {
	var st drawdto.GameState
	req := drawdto.ClaimRequest{Side: side, Reason: reason}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games/"+id+"/claim", req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Close(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, "/games/"+id, nil, nil, false)
}

func (c *Client) sideAction(ctx context.Context, id, verb, side string) (*drawdto.GameState, error) {
	var st drawdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games/"+id+"/"+verb, drawdto.SideRequest{Side: side}, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

// APIError is a non-2xx answer. Domain carries the decoded error body when
// the server sent one.
type APIError struct {
	Status int
	Domain drawdto.DomainError
	Body   string
}

func (e *APIError) Error() string {
	if e.Domain.Code != "" {
		return fmt.Sprintf("draw api error: status=%d code=%s message=%s", e.Status, e.Domain.Code, e.Domain.Message)
	}
	return fmt.Sprintf("draw api error: status=%d body=%s", e.Status, e.Body)
}

// Code returns the domain error code of err, or "".
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Domain.Code
	}
	return ""
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 0 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status, Body: truncate(string(resp.Body()), 512)}
			_ = json.Unmarshal(resp.Body(), &apiErr.Domain)
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			if out != nil && len(resp.Body()) > 0 {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
