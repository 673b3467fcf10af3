// Package jsonrpc implements the client half of Odoo's JSON-RPC 2.0 "call" protocol over HTTP.
package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Protocol constants.
const (
	Version      = "2.0"
	CallMethod   = "call"
	EndpointPath = "/jsonrpc"

	// DefaultID is used for every request. Requests are never multiplexed,
	// so any stable value suffices.
	DefaultID = 1
)

// Service names understood by the Odoo dispatcher.
const (
	ServiceCommon = "common"
	ServiceDB     = "db"
	ServiceObject = "object"
)

// Request is the JSON-RPC request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
	ID      int    `json:"id"`
}

// Params routes the call to a service method on the server.
type Params struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

// Response is the JSON-RPC response envelope. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Fault          `json:"error,omitempty"`
}

// NewRequest builds a request envelope for service.method with positional args.
func NewRequest(service, method string, args []any) *Request {
	if args == nil {
		args = []any{}
	}
	return &Request{
		JSONRPC: Version,
		Method:  CallMethod,
		Params: Params{
			Service: service,
			Method:  method,
			Args:    args,
		},
		ID: DefaultID,
	}
}

// String returns "service.method", used in logs and error messages.
func (r *Request) String() string {
	return r.Params.Service + "." + r.Params.Method
}

// Fault is the error object returned by the remote service.
type Fault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error renders the fault together with the server-side message and traceback when present.
func (f *Fault) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "JSON-RPC error (code: %d): %s", f.Code, f.Message)
	if data, ok := f.Data.(map[string]any); ok {
		if msg, ok := data["message"].(string); ok && msg != "" {
			b.WriteString("\n\nMessage: ")
			b.WriteString(msg)
		}
		if debug, ok := data["debug"].(string); ok && debug != "" {
			b.WriteString("\n\nData: ")
			b.WriteString(debug)
		}
	}
	return b.String()
}
