// Package client is a Go SDK for the billbook API.
package client

import (
	"bytes"
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
)

// statusTokenExpired is what the API answers for an expired token.
const statusTokenExpired = 498

// ErrSessionInvalidated is returned when the server rejected the session
// token. The session has been cleared by the time it is returned.
var ErrSessionInvalidated = errors.New("client: session invalidated")

// APIError is a non-2xx answer other than a session rejection.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("billbook api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 15s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession("")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"login": login, "password": password}
	if _, err := do(ctx, c, http.MethodPost, "/login", body, &out); err != nil {
		return nil, err
	}
	c.session.SetToken(out.Token)
	return &out, nil
}

func (c *Client) PreviewTotals(ctx context.Context, in PreviewInput) (*Preview, error) {
	var out Preview
	if _, err := do(ctx, c, http.MethodPost, "/api/totals/preview", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, in InvoiceInput) (*Document, error) {
	var out Document
	if _, err := do(ctx, c, http.MethodPost, "/api/invoices", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListInvoices(ctx context.Context, f InvoiceFilter) ([]Document, *Meta, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("party_id", f.PartyID)
	set("status", f.Status)
	set("from", f.From)
	set("to", f.To)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/api/invoices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Document
	meta, err := do(ctx, c, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, meta, nil
}

func (c *Client) PartyBalance(ctx context.Context, partyID string) (*Balance, error) {
	var out Balance
	if _, err := do(ctx, c, http.MethodGet, "/api/khata/parties/"+url.PathEscape(partyID)+"/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the envelope's data into out.
func do[T any](ctx context.Context, c *Client, method, path string, in any, out *T) (*Meta, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, in != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, statusTokenExpired:
		// A failed login is not a session to invalidate.
		if path != "/login" {
			c.session.invalidate()
			return nil, ErrSessionInvalidated
		}
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error, Fields: env.Errors}
	}
	*out = env.Data
	return env.Meta, nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
