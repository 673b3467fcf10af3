package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/npratt/odootask/internal/jsonrpc"
)

// HandlerFunc answers one service method. Return a non-nil fault to reply with an error envelope.
type HandlerFunc func(args []any) (any, *jsonrpc.Fault)

// RecordedCall is a request received by FakeOdoo.
type RecordedCall struct {
	Service string
	Method  string
	Args    []any
	Body    []byte
	Header  http.Header
}

// Key returns "service.method".
func (c RecordedCall) Key() string {
	return c.Service + "." + c.Method
}

// FakeOdoo is an in-process Odoo JSON-RPC server for tests.
// Unregistered methods answer with an Odoo-style server error fault.
type FakeOdoo struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []RecordedCall
	raw      *rawReply
}

type rawReply struct {
	status int
	body   string
}

// NewFakeOdoo starts a fake server that is closed when the test ends.
func NewFakeOdoo(t *testing.T) *FakeOdoo {
	t.Helper()

	f := &FakeOdoo{handlers: make(map[string]HandlerFunc)}

	r := chi.NewRouter()
	r.Post(jsonrpc.EndpointPath, f.serveJSONRPC)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake server.
func (f *FakeOdoo) URL() string {
	return f.Server.URL
}

// Handle registers fn for key ("service.method").
func (f *FakeOdoo) Handle(key string, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = fn
}

// Respond registers a canned result for key.
func (f *FakeOdoo) Respond(key string, result any) {
	f.Handle(key, func([]any) (any, *jsonrpc.Fault) { return result, nil })
}

// Fail registers a canned fault for key.
func (f *FakeOdoo) Fail(key string, fault *jsonrpc.Fault) {
	f.Handle(key, func([]any) (any, *jsonrpc.Fault) { return nil, fault })
}

// RespondRaw makes every request answer with the given status and body, bypassing the envelope.
func (f *FakeOdoo) RespondRaw(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = &rawReply{status: status, body: body}
}

// AddUser registers a common.login handler accepting exactly one database/login/password.
// Any other combination answers false, as Odoo does.
func (f *FakeOdoo) AddUser(db, login, password string, uid int) {
	f.Handle(jsonrpc.ServiceCommon+".login", func(args []any) (any, *jsonrpc.Fault) {
		if len(args) == 3 && args[0] == db && args[1] == login && args[2] == password {
			return uid, nil
		}
		return false, nil
	})
}

// Calls returns a copy of all recorded calls.
func (f *FakeOdoo) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]RecordedCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// CallsTo returns the recorded calls for key.
func (f *FakeOdoo) CallsTo(key string) []RecordedCall {
	var out []RecordedCall
	for _, c := range f.Calls() {
		if c.Key() == key {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeOdoo) serveJSONRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	key := req.Params.Service + "." + req.Params.Method

	f.mu.Lock()
	f.calls = append(f.calls, RecordedCall{
		Service: req.Params.Service,
		Method:  req.Params.Method,
		Args:    req.Params.Args,
		Body:    body,
		Header:  r.Header.Clone(),
	})
	handler := f.handlers[key]
	raw := f.raw
	f.mu.Unlock()

	if raw != nil {
		w.WriteHeader(raw.status)
		_, _ = io.WriteString(w, raw.body)
		return
	}

	resp := map[string]any{"jsonrpc": jsonrpc.Version, "id": req.ID}
	if handler == nil {
		resp["error"] = &jsonrpc.Fault{
			Code:    200,
			Message: "Odoo Server Error",
			Data: map[string]any{
				"name":    "builtins.AttributeError",
				"message": "unknown method " + key,
			},
		}
	} else if result, fault := handler(req.Params.Args); fault != nil {
		resp["error"] = fault
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
