package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/testutil"
)

func newTestClient(t *testing.T, srv *testutil.FakeOdoo, creds Credentials) *RPCClient {
	t.Helper()
	creds.URL = srv.URL()
	c, err := NewRPCClient(creds, jsonrpc.NewHTTPTransport(), nil)
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}
	return c
}

func TestNewRPCClient_InvalidURL(t *testing.T) {
	_, err := NewRPCClient(Credentials{URL: "localhost:8069"}, jsonrpc.NewHTTPTransport(), nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Field != "url" {
		t.Errorf("Field = %q, want url", verr.Field)
	}
}

func TestRPCClient_Login(t *testing.T) {
	tests := []struct {
		name     string
		override bool
		result   any
		password string
		wantUID  int
		wantAuth bool
	}{
		{name: "valid credentials", password: "admin", wantUID: 2},
		{name: "wrong password", password: "nope", wantAuth: true},
		{name: "null result", override: true, result: nil, password: "admin", wantAuth: true},
		{name: "zero uid", override: true, result: 0, password: "admin", wantAuth: true},
		{name: "string result", override: true, result: "admin", password: "admin", wantAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFakeOdoo(t)
			srv.AddUser("prod", "admin", "admin", 2)
			if tt.override {
				srv.Respond("common.login", tt.result)
			}

			c := newTestClient(t, srv, Credentials{Database: "prod", Username: "admin", Password: tt.password})
			uid, err := c.Login(context.Background())

			if tt.wantAuth {
				var aerr *AuthenticationError
				if !errors.As(err, &aerr) {
					t.Fatalf("error = %v, want *AuthenticationError", err)
				}
				if aerr.Username != "admin" || aerr.Database != "prod" {
					t.Errorf("AuthenticationError = %+v", aerr)
				}
				if uid != 0 {
					t.Errorf("uid = %d, want 0", uid)
				}
				return
			}

			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if uid != tt.wantUID {
				t.Errorf("uid = %d, want %d", uid, tt.wantUID)
			}
		})
	}
}

func TestRPCClient_Login_FaultIsNotAuthenticationError(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.Fail("common.login", &jsonrpc.Fault{
		Code:    200,
		Message: "Odoo Server Error",
		Data:    map[string]any{"message": `database "missing" does not exist`},
	})

	c := newTestClient(t, srv, Credentials{Database: "missing", Username: "admin", Password: "admin"})
	_, err := c.Login(context.Background())

	var fault *jsonrpc.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *jsonrpc.Fault", err)
	}
	var aerr *AuthenticationError
	if errors.As(err, &aerr) {
		t.Error("a remote fault must not be reported as an authentication error")
	}
}

func TestRPCClient_Login_ProtocolError(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.RespondRaw(502, "Bad Gateway")

	c := newTestClient(t, srv, Credentials{Database: "prod", Username: "admin", Password: "admin"})
	_, err := c.Login(context.Background())

	var perr *jsonrpc.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *jsonrpc.ProtocolError", err)
	}
	if !strings.Contains(err.Error(), "common.login") {
		t.Errorf("error %q should name the call", err)
	}
}

func TestRPCClient_Session(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 6)

	c := newTestClient(t, srv, Credentials{Database: "prod", Username: "admin", Password: "admin"})
	s, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s != (Session{Database: "prod", UID: 6, Password: "admin"}) {
		t.Errorf("Session = %+v", s)
	}
}

func TestRPCClient_Result(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.Respond("db.list", []string{"prod", "staging"})
	srv.Fail("db.drop", &jsonrpc.Fault{Code: 200, Message: "Access Denied"})

	c := newTestClient(t, srv, Credentials{})

	var dbs []string
	if err := c.Result(context.Background(), BuildListDatabases(), &dbs); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if len(dbs) != 2 || dbs[0] != "prod" {
		t.Errorf("dbs = %v", dbs)
	}

	err := c.Result(context.Background(), BuildDropDatabase("bad", "prod"), nil)
	var fault *jsonrpc.Fault
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *jsonrpc.Fault", err)
	}
	if fault.Message != "Access Denied" {
		t.Errorf("Message = %q", fault.Message)
	}

	var n int
	err = c.Result(context.Background(), BuildListDatabases(), &n)
	var perr *jsonrpc.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *jsonrpc.ProtocolError for undecodable result", err)
	}
}

func TestRPCClient_Call_SendsEnvelope(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.Respond("object.execute_kw", 42)

	c := newTestClient(t, srv, Credentials{})
	req, err := Session{Database: "prod", UID: 2, Password: "pw"}.Create("res.partner", map[string]any{"name": "Test Partner"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := c.Call(context.Background(), req)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp.Result) != "42" {
		t.Errorf("Result = %s, want 42", resp.Result)
	}

	calls := srv.CallsTo("object.execute_kw")
	if len(calls) != 1 {
		t.Fatalf("got %d execute_kw calls, want 1", len(calls))
	}
	want, _ := json.Marshal(req)
	if strings.TrimSpace(string(calls[0].Body)) != string(want) {
		t.Errorf("body = %s\nwant   %s", calls[0].Body, want)
	}
}

func TestParseUID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "2", want: 2},
		{raw: " 17 ", want: 17},
		{raw: "false", want: 0},
		{raw: "null", want: 0},
		{raw: "", want: 0},
		{raw: "true", wantErr: true},
		{raw: "1.5", wantErr: true},
		{raw: `{"uid":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseUID(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseUID(%q) = %d, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseUID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
