package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/geo"
)

// Compile-time interface check.
var _ agent.DomainAgent = (*Client)(nil)

// Client is a DomainAgent backed by a remote HTTP agent. It is created by
// Dial, which discovers the agent card before the first analysis call.
type Client struct {
	card      AgentCard
	endpoint  string
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// Dial discovers the agent at baseURL and returns a client for it.
func Dial(ctx context.Context, baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	card, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}
	if card.Name == "" || card.Domain == "" {
		return nil, fmt.Errorf("remote: agent card at %s is missing name or domain", baseURL)
	}
	c.card = *card

	return c, nil
}

// Name returns the remote agent's declared name.
func (c *Client) Name() string {
	return c.card.Name
}

// Domain returns the remote agent's declared domain.
func (c *Client) Domain() geo.Category {
	return c.card.Domain
}

// Analyze forwards one unit of work to the remote agent.
func (c *Client) Analyze(ctx context.Context, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error) {
	var res geo.AgentResult
	err := c.call(ctx, MethodAnalyze, AnalyzeRequest{Unit: unit, Business: bctx}, &res)
	if err != nil {
		return geo.AgentResult{}, err
	}
	return res, nil
}

// discover fetches the agent card from the well-known URI.
func (c *Client) discover(ctx context.Context) (*AgentCard, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote: discover agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote: discover agent: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("remote: decode agent card: %w", err)
	}
	return &card, nil
}

// nextID returns a monotonically increasing request ID for JSON-RPC calls.
func (c *Client) nextID() int64 {
	return c.requestID.Add(1)
}

// call performs a JSON-RPC 2.0 call over HTTP POST.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("remote: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("remote: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("remote: decode result: %w", err)
		}
	}

	return nil
}

// RPCError represents a JSON-RPC error returned by a remote agent.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("remote: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("remote: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
