// Package odoo binds Odoo's common, db and object services on top of the jsonrpc transport.
// It owns login, request construction for every supported service method, and a thin client that
// dispatches one envelope per call.
package odoo

import (
	"context"

	"github.com/npratt/odootask/internal/jsonrpc"
)

// Authenticator resolves credentials to a user id.
type Authenticator interface {
	// Login calls common.login and returns the uid, or an *AuthenticationError
	// when the server rejects the credentials.
	Login(ctx context.Context) (int, error)
}

// Caller dispatches a prepared envelope.
type Caller interface {
	// Call sends req and returns the raw response envelope. A remote fault is
	// reported in Response.Error, not as an error.
	Call(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)
}

// Client combines login and dispatch.
type Client interface {
	Authenticator
	Caller
}
