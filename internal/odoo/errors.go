package odoo

import "fmt"

// AuthenticationError reports rejected credentials.
// Connection and protocol failures during login are not wrapped in it.
type AuthenticationError struct {
	Database string
	Username string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "please check your credentials"
	}
	return fmt.Sprintf("authentication failed for user %q on database %q: %s", e.Username, e.Database, reason)
}

// ValidationError reports invalid parameters detected before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
