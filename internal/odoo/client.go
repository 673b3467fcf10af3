package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/npratt/odootask/internal/jsonrpc"
)

// RPCClient implements Client for one invocation. It keeps no state between calls:
// the uid returned by Login is handed back to the caller, never cached.
type RPCClient struct {
	creds     Credentials
	endpoint  string
	transport jsonrpc.Transport
	logger    *slog.Logger
}

// NewRPCClient creates a client for creds. The URL must be a valid http(s) URL.
func NewRPCClient(creds Credentials, transport jsonrpc.Transport, logger *slog.Logger) (*RPCClient, error) {
	endpoint, err := jsonrpc.Endpoint(creds.URL)
	if err != nil {
		return nil, &ValidationError{Field: "url", Reason: err.Error()}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCClient{
		creds:     creds,
		endpoint:  endpoint,
		transport: transport,
		logger:    logger,
	}, nil
}

// Endpoint returns the resolved JSON-RPC endpoint.
func (c *RPCClient) Endpoint() string {
	return c.endpoint
}

// Call sends req and returns the response envelope.
func (c *RPCClient) Call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	resp, err := c.transport.Post(ctx, c.endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req, err)
	}
	if resp.Error != nil {
		c.logger.Debug("remote fault", "call", req.String(), "code", resp.Error.Code, "message", resp.Error.Message)
	}
	return resp, nil
}

// Result sends req and decodes the result into out. A remote fault is returned as *jsonrpc.Fault.
func (c *RPCClient) Result(ctx context.Context, req *jsonrpc.Request, out any) error {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return &jsonrpc.ProtocolError{
			URL:    c.endpoint,
			Reason: fmt.Sprintf("decode %s result: %v", req, err),
		}
	}
	return nil
}

// Login calls common.login with the client's credentials.
// A falsy result (false, null, 0) or a non-integer result is an *AuthenticationError.
func (c *RPCClient) Login(ctx context.Context) (int, error) {
	req := BuildLogin(c.creds.Database, c.creds.Username, c.creds.Password)

	var raw json.RawMessage
	if err := c.Result(ctx, req, &raw); err != nil {
		return 0, err
	}

	uid, err := parseUID(raw)
	if err != nil {
		return 0, &AuthenticationError{Database: c.creds.Database, Username: c.creds.Username, Reason: err.Error()}
	}
	if uid <= 0 {
		return 0, &AuthenticationError{Database: c.creds.Database, Username: c.creds.Username}
	}

	c.logger.Debug("authenticated", "database", c.creds.Database, "username", c.creds.Username, "uid", uid)
	return uid, nil
}

// Session logs in and returns the identity for object-service builders.
func (c *RPCClient) Session(ctx context.Context) (Session, error) {
	uid, err := c.Login(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{Database: c.creds.Database, UID: uid, Password: c.creds.Password}, nil
}

// parseUID interprets the login result. false and null map to 0.
func parseUID(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return 0, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("unexpected login result %s", trimmed)
	}
	uid, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("unexpected login result %s", trimmed)
	}
	return int(uid), nil
}

// Verify RPCClient implements Client.
var _ Client = (*RPCClient)(nil)
