package task

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/testutil"
)

func newTestRunner() *Runner {
	return NewRunner(jsonrpc.NewHTTPTransport(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authParams(srv *testutil.FakeOdoo, extra Params) Params {
	return extra.Merge(Params{
		"url":      srv.URL(),
		"database": "prod",
		"username": "admin",
		"password": "admin",
	})
}

func outcomeJSON(t *testing.T, o Outcome) string {
	t.Helper()
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal outcome: %v", err)
	}
	return string(data)
}

func argsJSON(t *testing.T, args []any) string {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return string(data)
}

func TestRun_SearchReadScenario(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", []map[string]any{{"name": "A", "email": "a@example.com"}})

	out := newTestRunner().Run(context.Background(), "search_read", authParams(srv, Params{
		"model":  "res.partner",
		"domain": []any{[]any{"email", "=ilike", "%@example.com"}},
		"limit":  1,
		"order":  "create_date desc",
		"fields": []any{"name", "email"},
	}))

	if out.Failed {
		t.Fatalf("task failed: %s", out.Msg)
	}
	if got, want := outcomeJSON(t, out), `{"changed":false,"data":[{"email":"a@example.com","name":"A"}]}`; got != want {
		t.Errorf("outcome = %s, want %s", got, want)
	}

	calls := srv.CallsTo("object.execute_kw")
	if len(calls) != 1 {
		t.Fatalf("got %d execute_kw calls, want 1", len(calls))
	}
	want := `["prod",2,"admin","res.partner","search_read",[],{"domain":[["email","=ilike","%@example.com"]],"fields":["name","email"],"limit":1,"offset":0,"order":"create_date desc"}]`
	if got := argsJSON(t, calls[0].Args); got != want {
		t.Errorf("args = %s\nwant   %s", got, want)
	}
}

func TestRun_CreateScenario(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", 42)

	out := newTestRunner().Run(context.Background(), "create", authParams(srv, Params{
		"model":  "res.partner",
		"values": map[string]any{"name": "Test Partner", "email": "hello@example.com"},
	}))

	if out.Failed {
		t.Fatalf("task failed: %s", out.Msg)
	}
	if got, want := outcomeJSON(t, out), `{"changed":true,"id":42}`; got != want {
		t.Errorf("outcome = %s, want %s", got, want)
	}

	calls := srv.CallsTo("object.execute_kw")
	if len(calls) != 1 {
		t.Fatalf("got %d execute_kw calls, want 1", len(calls))
	}
	want := `["prod",2,"admin","res.partner","create",[{"email":"hello@example.com","name":"Test Partner"}],{}]`
	if got := argsJSON(t, calls[0].Args); got != want {
		t.Errorf("args = %s\nwant   %s", got, want)
	}
}

func TestRun_ExecuteKwScenario(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", []map[string]any{{"email": "admin@x.com"}})

	out := newTestRunner().Run(context.Background(), "execute_kw", authParams(srv, Params{
		"model":  "res.users",
		"method": "search_read",
		"kwargs": map[string]any{
			"domain": []any{[]any{"name", "=", "Administrator"}},
			"fields": []any{"email"},
		},
	}))

	if out.Failed {
		t.Fatalf("task failed: %s", out.Msg)
	}
	if got, want := outcomeJSON(t, out), `{"changed":false,"res":[{"email":"admin@x.com"}]}`; got != want {
		t.Errorf("outcome = %s, want %s", got, want)
	}

	calls := srv.CallsTo("object.execute_kw")
	if len(calls) != 1 {
		t.Fatalf("got %d execute_kw calls, want 1", len(calls))
	}
	want := `["prod",2,"admin","res.users","search_read",[],{"domain":[["name","=","Administrator"]],"fields":["email"]}]`
	if got := argsJSON(t, calls[0].Args); got != want {
		t.Errorf("args = %s\nwant   %s", got, want)
	}
}

func TestRun_WrongPasswordStopsBeforeObjectCall(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", []any{})

	params := authParams(srv, Params{"model": "res.partner"})
	params["password"] = "wrong"

	out := newTestRunner().Run(context.Background(), "search_read", params)

	if !out.Failed {
		t.Fatalf("outcome = %+v, want failure", out)
	}
	if out.Fault.Kind != KindAuthentication {
		t.Errorf("Kind = %q, want %q", out.Fault.Kind, KindAuthentication)
	}
	if out.Fields != nil {
		t.Errorf("failed outcome carries fields %v", out.Fields)
	}
	if calls := srv.CallsTo("object.execute_kw"); len(calls) != 0 {
		t.Errorf("got %d object calls after rejected login, want 0", len(calls))
	}
	if strings.Contains(out.Msg, "wrong") {
		t.Errorf("message leaks the password: %q", out.Msg)
	}
}

func TestRun_Login(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 7)

	out := newTestRunner().Run(context.Background(), "login", authParams(srv, nil))

	if out.Failed {
		t.Fatalf("task failed: %s", out.Msg)
	}
	if uid, _ := out.Field("uid"); uid != 7 {
		t.Errorf("uid = %v, want 7", uid)
	}
	if calls := srv.Calls(); len(calls) != 1 || calls[0].Key() != "common.login" {
		t.Errorf("calls = %v, want a single common.login", calls)
	}
}

func TestRun_UnauthenticatedSkipsLogin(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.Respond("db.list", []string{"prod", "staging"})

	out := newTestRunner().Run(context.Background(), "db_list", Params{"url": srv.URL()})

	if out.Failed {
		t.Fatalf("task failed: %s", out.Msg)
	}
	if got, want := outcomeJSON(t, out), `{"changed":false,"databases":["prod","staging"]}`; got != want {
		t.Errorf("outcome = %s, want %s", got, want)
	}
	if calls := srv.CallsTo("common.login"); len(calls) != 0 {
		t.Errorf("got %d login calls for a db task, want 0", len(calls))
	}
}

func TestRun_RemoteFault(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Fail("object.execute_kw", &jsonrpc.Fault{
		Code:    200,
		Message: "Odoo Server Error",
		Data:    map[string]any{"name": "builtins.ValueError", "message": "Invalid field 'nope'"},
	})

	out := newTestRunner().Run(context.Background(), "search_read", authParams(srv, Params{
		"model":  "res.partner",
		"fields": []any{"nope"},
	}))

	if !out.Failed {
		t.Fatalf("outcome = %+v, want failure", out)
	}
	if out.Fault.Kind != KindRemote || out.Fault.Code != 200 {
		t.Errorf("Fault = %+v, want remote fault with code 200", out.Fault)
	}
	if !strings.Contains(out.Msg, "Invalid field 'nope'") {
		t.Errorf("Msg = %q, want the remote message", out.Msg)
	}
	if _, ok := out.Field("data"); ok {
		t.Error("failed outcome must not carry a data field")
	}
}

func TestRun_TransportError(t *testing.T) {
	closed := httptest.NewServer(nil)
	url := closed.URL
	closed.Close()

	out := newTestRunner().Run(context.Background(), "version", Params{"url": url})

	if !out.Failed {
		t.Fatalf("outcome = %+v, want failure", out)
	}
	if out.Fault.Kind != KindTransport {
		t.Errorf("Kind = %q, want %q", out.Fault.Kind, KindTransport)
	}
}

func TestRun_ProtocolError(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.RespondRaw(200, "<html>not json</html>")

	out := newTestRunner().Run(context.Background(), "server_version", Params{"url": srv.URL()})

	if !out.Failed || out.Fault.Kind != KindProtocol {
		t.Fatalf("outcome = %+v, want protocol failure", out)
	}
	if !strings.Contains(out.Msg, "not json") {
		t.Errorf("Msg = %q, want body excerpt", out.Msg)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)

	tests := []struct {
		name    string
		task    string
		params  Params
		wantMsg string
	}{
		{
			name:    "unknown task",
			task:    "frobnicate",
			params:  Params{"url": srv.URL()},
			wantMsg: `unknown task "frobnicate"`,
		},
		{
			name:    "all connection params missing",
			task:    "search",
			params:  Params{},
			wantMsg: "missing required arguments: url, database, username, password, model, domain",
		},
		{
			name:    "null counts as missing",
			task:    "read",
			params:  authParams(srv, Params{"model": "res.partner", "ids": nil}),
			wantMsg: "missing required arguments: ids",
		},
		{
			name:    "bad url",
			task:    "version",
			params:  Params{"url": "ftp://example.com"},
			wantMsg: "invalid url",
		},
		{
			name:    "empty password",
			task:    "search_read",
			params:  authParams(srv, Params{"model": "res.partner", "password": ""}),
			wantMsg: "invalid password",
		},
		{
			name:    "non-numeric ids",
			task:    "unlink",
			params:  authParams(srv, Params{"model": "res.partner", "ids": []any{1, "x"}}),
			wantMsg: "invalid ids[1]",
		},
		{
			name:    "create_multi with a single record",
			task:    "create_multi",
			params:  authParams(srv, Params{"model": "res.partner", "values": map[string]any{"name": "A"}}),
			wantMsg: "values must be a list of records",
		},
	}

	srv.AddUser("prod", "admin", "admin", 2)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestRunner().Run(context.Background(), tt.task, tt.params)
			if !out.Failed {
				t.Fatalf("outcome = %+v, want failure", out)
			}
			if out.Fault.Kind != KindInvalid {
				t.Errorf("Kind = %q, want %q", out.Fault.Kind, KindInvalid)
			}
			if !strings.Contains(out.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", out.Msg, tt.wantMsg)
			}
		})
	}

	if calls := srv.CallsTo("object.execute_kw"); len(calls) != 0 {
		t.Errorf("invalid params reached the server %d times", len(calls))
	}
}

func TestRun_CheckMode(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", 1)
	srv.Respond("db.list", []string{"prod"})

	r := newTestRunner()
	r.CheckMode = true

	skipped := []struct {
		task   string
		params Params
	}{
		{task: "create", params: authParams(srv, Params{"model": "res.partner", "values": map[string]any{"name": "A"}})},
		{task: "unlink", params: authParams(srv, Params{"model": "res.partner", "ids": 1})},
		{task: "execute_kw", params: authParams(srv, Params{"model": "res.partner", "method": "action_archive"})},
		{task: "db_drop", params: Params{"url": srv.URL(), "master_password": "m", "database": "old"}},
	}
	for _, tt := range skipped {
		out := r.Run(context.Background(), tt.task, tt.params)
		if out.Failed || out.Changed {
			t.Errorf("%s in check mode = %+v, want unchanged success", tt.task, out)
		}
		if v, _ := out.Field("skipped"); v != true {
			t.Errorf("%s in check mode not reported as skipped", tt.task)
		}
	}
	if calls := srv.Calls(); len(calls) != 0 {
		t.Fatalf("check mode sent %d requests, want 0", len(calls))
	}

	out := r.Run(context.Background(), "db_list", Params{"url": srv.URL()})
	if out.Failed {
		t.Fatalf("read-only task failed in check mode: %s", out.Msg)
	}
	if len(srv.CallsTo("db.list")) != 1 {
		t.Error("read-only task was not sent in check mode")
	}
}

func TestRun_InvalidParamsFailBeforeLogin(t *testing.T) {
	tests := []struct {
		name      string
		task      string
		params    Params
		checkMode bool
		wantMsg   string
	}{
		{name: "ids not numeric", task: "write", params: Params{"model": "res.partner", "ids": "abc", "values": map[string]any{"name": "A"}}, wantMsg: "invalid ids"},
		{name: "ids not numeric in check mode", task: "write", params: Params{"model": "res.partner", "ids": "abc", "values": map[string]any{"name": "A"}}, checkMode: true, wantMsg: "invalid ids"},
		{name: "empty model", task: "search_read", params: Params{"model": ""}, wantMsg: "invalid model"},
		{name: "empty method in check mode", task: "execute_kw", params: Params{"model": "res.partner", "method": ""}, checkMode: true, wantMsg: "invalid method"},
		{name: "create_multi shape in check mode", task: "create_multi", params: Params{"model": "res.partner", "values": "A"}, checkMode: true, wantMsg: "values must be a list of records"},
		{name: "undecodable limit", task: "search", params: Params{"model": "res.partner", "domain": []any{}, "limit": "ten"}, wantMsg: "invalid parameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewFakeOdoo(t)
			srv.AddUser("prod", "admin", "admin", 2)

			r := newTestRunner()
			r.CheckMode = tt.checkMode
			out := r.Run(context.Background(), tt.task, authParams(srv, tt.params))

			if !out.Failed || out.Fault.Kind != KindInvalid {
				t.Fatalf("outcome = %+v, want invalid failure", out)
			}
			if !strings.Contains(out.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", out.Msg, tt.wantMsg)
			}
			if calls := srv.Calls(); len(calls) != 0 {
				t.Errorf("invalid params sent %d requests, want 0", len(calls))
			}
		})
	}
}

func TestRunWithDefaults_ForwardsOnlyExplicitParams(t *testing.T) {
	srv := testutil.NewFakeOdoo(t)
	srv.AddUser("prod", "admin", "admin", 2)
	srv.Respond("object.execute_kw", []any{})

	defaults := authParams(srv, Params{"ids": []any{1}, "values": map[string]any{"name": "x"}})
	out := newTestRunner().RunWithDefaults(context.Background(), "search_read",
		Params{"model": "res.partner", "context": map[string]any{"lang": "fr_FR"}}, defaults)
	if out.Failed {
		t.Fatalf("search_read failed: %s", out.Msg)
	}

	calls := srv.CallsTo("object.execute_kw")
	if len(calls) != 1 {
		t.Fatalf("got %d execute_kw calls, want 1", len(calls))
	}
	if got, want := argsJSON(t, calls[0].Args[6:]), `[{"context":{"lang":"fr_FR"},"offset":0}]`; got != want {
		t.Errorf("kwargs = %s, want %s", got, want)
	}
}
