// Package client implements remote data access to a procmeta backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/procmeta/internal/logging"
	"github.com/aretw0/procmeta/pkg/changes"
	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
)

// BasePath prefixes every resource endpoint.
const BasePath = "/api/v1"

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Client implements ports.API over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout sets the timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http.Timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for the backend at baseURL (scheme and host, for example
// http://localhost:8000).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a request and decodes the JSON reply into out when out is not nil.
// kind selects the not-found sentinel used for 404 replies.
func (c *Client) do(ctx context.Context, kind domain.Kind, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+BasePath+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.Debug("request done", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, domain.NotFoundFor(kind))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Detail:     readDetail(resp.Body),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readDetail extracts {"detail": ...} from an error reply, falling back to the raw text.
func readDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(data))
}

func seg(s string) string { return url.PathEscape(s) }

func (c *Client) ListTypes(ctx context.Context) ([]domain.ProcessType, error) {
	var out []domain.ProcessType
	err := c.do(ctx, domain.KindType, http.MethodGet, "/types", nil, &out)
	return out, err
}

func (c *Client) GetType(ctx context.Context, code string) (domain.ProcessType, error) {
	var out domain.ProcessType
	err := c.do(ctx, domain.KindType, http.MethodGet, "/types/"+seg(code), nil, &out)
	return out, err
}

func (c *Client) CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error) {
	var out domain.ProcessType
	err := c.do(ctx, domain.KindType, http.MethodPost, "/types", t, &out)
	return out, err
}

func (c *Client) UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error) {
	var out domain.ProcessType
	err := c.do(ctx, domain.KindType, http.MethodPut, "/types/"+seg(code), t, &out)
	return out, err
}

func (c *Client) DeleteType(ctx context.Context, code string) error {
	return c.do(ctx, domain.KindType, http.MethodDelete, "/types/"+seg(code), nil, nil)
}

func (c *Client) ListStates(ctx context.Context, typeCode string) ([]domain.ProcessState, error) {
	var out []domain.ProcessState
	err := c.do(ctx, domain.KindType, http.MethodGet, "/types/"+seg(typeCode)+"/states", nil, &out)
	return out, err
}

func (c *Client) GetState(ctx context.Context, id string) (domain.ProcessState, error) {
	var out domain.ProcessState
	err := c.do(ctx, domain.KindState, http.MethodGet, "/states/"+seg(id), nil, &out)
	return out, err
}

func (c *Client) CreateState(ctx context.Context, typeCode string, s domain.ProcessState) (domain.ProcessState, error) {
	var out domain.ProcessState
	err := c.do(ctx, domain.KindType, http.MethodPost, "/types/"+seg(typeCode)+"/states", s, &out)
	return out, err
}

func (c *Client) UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error) {
	var out domain.ProcessState
	err := c.do(ctx, domain.KindState, http.MethodPut, "/states/"+seg(id), s, &out)
	return out, err
}

func (c *Client) DeleteState(ctx context.Context, id string) error {
	return c.do(ctx, domain.KindState, http.MethodDelete, "/states/"+seg(id), nil, nil)
}

func (c *Client) ListOperations(ctx context.Context, typeCode string) ([]domain.ProcessOperation, error) {
	var out []domain.ProcessOperation
	err := c.do(ctx, domain.KindType, http.MethodGet, "/types/"+seg(typeCode)+"/operations", nil, &out)
	return out, err
}

func (c *Client) GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error) {
	var out domain.ProcessOperation
	err := c.do(ctx, domain.KindOperation, http.MethodGet, "/operations/"+seg(id), nil, &out)
	return out, err
}

func (c *Client) CreateOperation(ctx context.Context, typeCode string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	var out domain.ProcessOperation
	err := c.do(ctx, domain.KindType, http.MethodPost, "/types/"+seg(typeCode)+"/operations", o, &out)
	return out, err
}

func (c *Client) UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	var out domain.ProcessOperation
	err := c.do(ctx, domain.KindOperation, http.MethodPut, "/operations/"+seg(id), o, &out)
	return out, err
}

func (c *Client) DeleteOperation(ctx context.Context, id string) error {
	return c.do(ctx, domain.KindOperation, http.MethodDelete, "/operations/"+seg(id), nil, nil)
}

// SaveAll posts a batch. A reply with success=false is returned as a *StatusError.
func (c *Client) SaveAll(ctx context.Context, req changes.SaveAllRequest) (changes.SaveAllResponse, error) {
	var out changes.SaveAllResponse
	if err := c.do(ctx, "", http.MethodPost, "/save-all", req, &out); err != nil {
		return out, err
	}
	if !out.Success {
		return out, &StatusError{StatusCode: http.StatusOK, Method: http.MethodPost, Path: "/save-all", Detail: out.Message}
	}
	return out, nil
}
