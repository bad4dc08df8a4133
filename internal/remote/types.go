// Package remote exposes a domain agent over HTTP and consumes one from
// the other side. The wire protocol is JSON-RPC 2.0 with a single
// agent/analyze method, plus an agent card at a well-known URI so the
// coordinator can discover a remote agent's name and domain before the
// first call.
package remote

import (
	"encoding/json"

	"github.com/optiserve/geocoord/internal/geo"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// MethodAnalyze is the single RPC method a remote agent serves.
const MethodAnalyze = "agent/analyze"

// AgentCardPath is the well-known URI of the agent card.
const AgentCardPath = "/.well-known/agent-card.json"

// AgentCard describes a remote agent: what it is called and which domain
// its recommendations belong to.
type AgentCard struct {
	Name    string       `json:"name"`
	Domain  geo.Category `json:"domain"`
	Version string       `json:"version,omitempty"`
}

// AnalyzeRequest carries one unit of work and the shared business context.
type AnalyzeRequest struct {
	Unit     geo.UnitOfWork      `json:"unit"`
	Business geo.BusinessContext `json:"business"`
}

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)
