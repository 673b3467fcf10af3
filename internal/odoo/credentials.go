package odoo

import "github.com/npratt/odootask/internal/jsonrpc"

// Credentials are the connection parameters of one invocation.
type Credentials struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Validate checks the URL and, when requireAuth is set, that database, username and password are present.
func (c Credentials) Validate(requireAuth bool) error {
	if c.URL == "" {
		return &ValidationError{Field: "url", Reason: "required"}
	}
	if _, err := jsonrpc.Endpoint(c.URL); err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if !requireAuth {
		return nil
	}
	if c.Database == "" {
		return &ValidationError{Field: "database", Reason: "required"}
	}
	if c.Username == "" {
		return &ValidationError{Field: "username", Reason: "required"}
	}
	if c.Password == "" {
		return &ValidationError{Field: "password", Reason: "required"}
	}
	return nil
}
