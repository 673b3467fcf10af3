package odoo

import "github.com/npratt/odootask/internal/jsonrpc"

// loadClassicRead is Odoo's default "load" mode for read and search_read.
const loadClassicRead = "_classic_read"

// BuildLogin builds common.login.
func BuildLogin(db, login, password string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceCommon, "login", []any{db, login, password})
}

// BuildAuthenticate builds common.authenticate. A nil userAgentEnv is sent as an empty object.
func BuildAuthenticate(db, login, password string, userAgentEnv map[string]any) *jsonrpc.Request {
	if userAgentEnv == nil {
		userAgentEnv = map[string]any{}
	}
	return jsonrpc.NewRequest(jsonrpc.ServiceCommon, "authenticate", []any{db, login, password, userAgentEnv})
}

// BuildVersion builds common.version.
func BuildVersion() *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceCommon, "version", nil)
}

// BuildAbout builds common.about.
func BuildAbout(extended bool) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceCommon, "about", []any{extended})
}

// BuildExecuteKw builds object.execute_kw with args
// [database, uid, password, model, method, args, kwargs].
// Nil args are sent as [] and nil kwargs as {}.
func BuildExecuteKw(db string, uid int, password, model, method string, args []any, kwargs map[string]any) (*jsonrpc.Request, error) {
	if err := checkTarget(model, method); err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return jsonrpc.NewRequest(jsonrpc.ServiceObject, "execute_kw", []any{
		db, uid, password, model, method, args, kwargs,
	}), nil
}

// BuildExecute builds object.execute. Positional args are inlined after the method name.
func BuildExecute(db string, uid int, password, model, method string, args ...any) (*jsonrpc.Request, error) {
	if err := checkTarget(model, method); err != nil {
		return nil, err
	}
	full := make([]any, 0, 5+len(args))
	full = append(full, db, uid, password, model, method)
	full = append(full, args...)
	return jsonrpc.NewRequest(jsonrpc.ServiceObject, "execute", full), nil
}

func checkTarget(model, method string) error {
	if model == "" {
		return &ValidationError{Field: "model", Reason: "must not be empty"}
	}
	if method == "" {
		return &ValidationError{Field: "method", Reason: "must not be empty"}
	}
	return nil
}

// Session carries the authenticated identity used by object-service builders.
type Session struct {
	Database string
	UID      int
	Password string
}

// ExecuteKw builds object.execute_kw for this session.
func (s Session) ExecuteKw(model, method string, args []any, kwargs map[string]any) (*jsonrpc.Request, error) {
	return BuildExecuteKw(s.Database, s.UID, s.Password, model, method, args, kwargs)
}

// Execute builds object.execute for this session.
func (s Session) Execute(model, method string, args ...any) (*jsonrpc.Request, error) {
	return BuildExecute(s.Database, s.UID, s.Password, model, method, args...)
}

// SearchOptions are the keyword options of search.
type SearchOptions struct {
	Offset int
	Limit  *int
	Order  string
}

// Kwargs returns the keyword arguments sent to search. offset is always present.
func (o SearchOptions) Kwargs() map[string]any {
	kw := map[string]any{"offset": o.Offset}
	if o.Limit != nil {
		kw["limit"] = *o.Limit
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	return kw
}

// SearchReadOptions are the keyword options of search_read.
// Domain is passed as a keyword; a nil Domain is omitted and matches every record.
type SearchReadOptions struct {
	Domain []any
	Fields []string
	Offset int
	Limit  *int
	Order  string
	Load   *bool
}

// Kwargs returns the keyword arguments sent to search_read.
func (o SearchReadOptions) Kwargs() map[string]any {
	kw := SearchOptions{Offset: o.Offset, Limit: o.Limit, Order: o.Order}.Kwargs()
	if o.Domain != nil {
		kw["domain"] = o.Domain
	}
	if o.Fields != nil {
		kw["fields"] = o.Fields
	}
	if o.Load != nil {
		kw["load"] = loadMode(*o.Load)
	}
	return kw
}

// ReadOptions are the keyword options of read.
type ReadOptions struct {
	Fields []string
	Load   *bool
}

// Kwargs returns the keyword arguments sent to read.
func (o ReadOptions) Kwargs() map[string]any {
	kw := map[string]any{}
	if o.Fields != nil {
		kw["fields"] = o.Fields
	}
	if o.Load != nil {
		kw["load"] = loadMode(*o.Load)
	}
	return kw
}

// loadMode maps the boolean flag to Odoo's load argument; false skips display_name computation.
func loadMode(load bool) any {
	if load {
		return loadClassicRead
	}
	return false
}

// Search builds model.search(domain) with offset/limit/order keywords.
func (s Session) Search(model string, domain []any, opts SearchOptions) (*jsonrpc.Request, error) {
	if domain == nil {
		domain = []any{}
	}
	return s.ExecuteKw(model, "search", []any{domain}, opts.Kwargs())
}

// SearchRead builds model.search_read with keyword arguments only.
func (s Session) SearchRead(model string, opts SearchReadOptions) (*jsonrpc.Request, error) {
	return s.ExecuteKw(model, "search_read", nil, opts.Kwargs())
}

// Read builds model.read(ids).
func (s Session) Read(model string, ids []int, opts ReadOptions) (*jsonrpc.Request, error) {
	return s.ExecuteKw(model, "read", []any{ids}, opts.Kwargs())
}

// Create builds model.create(values). values is a single map or a list of maps.
func (s Session) Create(model string, values any) (*jsonrpc.Request, error) {
	return s.ExecuteKw(model, "create", []any{values}, nil)
}

// Write builds model.write(ids, values).
func (s Session) Write(model string, ids []int, values map[string]any) (*jsonrpc.Request, error) {
	return s.ExecuteKw(model, "write", []any{ids, values}, nil)
}

// Unlink builds model.unlink(ids).
func (s Session) Unlink(model string, ids []int) (*jsonrpc.Request, error) {
	return s.ExecuteKw(model, "unlink", []any{ids}, nil)
}
