package task

import (
	"log/slog"
	"reflect"

	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/odoo"
)

// invocation is the state a prepare function works from.
type invocation struct {
	desc *Descriptor
	// params holds every parameter, defaults included.
	params Params
	// explicit holds the caller's own parameters. Only these may be forwarded as kwargs.
	explicit Params
	conn     connection
	logger   *slog.Logger
}

// assembleFunc builds the request once the session is known. The session is zero
// for operations that do not log in.
type assembleFunc func(s odoo.Session) (*jsonrpc.Request, error)

// prepareFunc decodes and validates the parameters of one operation. It runs before
// login and before the check-mode skip, so invalid input fails without a round trip.
type prepareFunc func(inv *invocation) (assembleFunc, error)

// fixed returns an assembleFunc for a request that does not depend on the session.
func fixed(req *jsonrpc.Request) assembleFunc {
	return func(odoo.Session) (*jsonrpc.Request, error) { return req, nil }
}

func requireModel(model string) error {
	if model == "" {
		return &odoo.ValidationError{Field: "model", Reason: "must not be empty"}
	}
	return nil
}

// kwargs merges unrecognized explicit parameters under the operation's keyword arguments.
// Keywords set by the operation win on conflict.
func (inv *invocation) kwargs(explicit map[string]any) map[string]any {
	extra := extras(inv.desc, inv.explicit)
	if len(extra) == 0 {
		return explicit
	}
	out := make(map[string]any, len(extra)+len(explicit))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out
}

type searchParams struct {
	Model  string `mapstructure:"model"`
	Domain []any  `mapstructure:"domain"`
	Offset int    `mapstructure:"offset"`
	Limit  *int   `mapstructure:"limit"`
	Order  string `mapstructure:"order"`
}

func prepareSearch(inv *invocation) (assembleFunc, error) {
	var p searchParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	domain := p.Domain
	if domain == nil {
		domain = []any{}
	}
	kw := inv.kwargs(odoo.SearchOptions{Offset: p.Offset, Limit: p.Limit, Order: p.Order}.Kwargs())
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "search", []any{domain}, kw)
	}, nil
}

type searchReadParams struct {
	Model  string   `mapstructure:"model"`
	Domain []any    `mapstructure:"domain"`
	Fields []string `mapstructure:"fields"`
	Offset int      `mapstructure:"offset"`
	Limit  *int     `mapstructure:"limit"`
	Order  string   `mapstructure:"order"`
	Load   *bool    `mapstructure:"load"`
}

func prepareSearchRead(inv *invocation) (assembleFunc, error) {
	var p searchReadParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	kw := inv.kwargs(odoo.SearchReadOptions{
		Domain: p.Domain,
		Fields: p.Fields,
		Offset: p.Offset,
		Limit:  p.Limit,
		Order:  p.Order,
		Load:   p.Load,
	}.Kwargs())
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "search_read", nil, kw)
	}, nil
}

type readParams struct {
	Model  string   `mapstructure:"model"`
	IDs    any      `mapstructure:"ids"`
	Fields []string `mapstructure:"fields"`
	Load   *bool    `mapstructure:"load"`
}

func prepareRead(inv *invocation) (assembleFunc, error) {
	var p readParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	ids, err := odoo.CheckIDs(p.IDs)
	if err != nil {
		return nil, err
	}
	kw := inv.kwargs(odoo.ReadOptions{Fields: p.Fields, Load: p.Load}.Kwargs())
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "read", []any{ids}, kw)
	}, nil
}

type createParams struct {
	Model  string         `mapstructure:"model"`
	Values map[string]any `mapstructure:"values"`
}

func prepareCreate(inv *invocation) (assembleFunc, error) {
	var p createParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	kw := inv.kwargs(nil)
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "create", []any{p.Values}, kw)
	}, nil
}

type createMultiParams struct {
	Model  string           `mapstructure:"model"`
	Values []map[string]any `mapstructure:"values"`
}

func prepareCreateMulti(inv *invocation) (assembleFunc, error) {
	if v := reflect.ValueOf(inv.params["values"]); v.Kind() != reflect.Slice {
		return nil, &ParamError{Reason: "values must be a list of records"}
	}
	var p createMultiParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	kw := inv.kwargs(nil)
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "create", []any{p.Values}, kw)
	}, nil
}

type writeParams struct {
	Model  string         `mapstructure:"model"`
	IDs    any            `mapstructure:"ids"`
	Values map[string]any `mapstructure:"values"`
}

func prepareWrite(inv *invocation) (assembleFunc, error) {
	var p writeParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	ids, err := odoo.CheckIDs(p.IDs)
	if err != nil {
		return nil, err
	}
	kw := inv.kwargs(nil)
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "write", []any{ids, p.Values}, kw)
	}, nil
}

type unlinkParams struct {
	Model string `mapstructure:"model"`
	IDs   any    `mapstructure:"ids"`
}

func prepareUnlink(inv *invocation) (assembleFunc, error) {
	var p unlinkParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	if err := requireModel(p.Model); err != nil {
		return nil, err
	}
	ids, err := odoo.CheckIDs(p.IDs)
	if err != nil {
		return nil, err
	}
	kw := inv.kwargs(nil)
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, "unlink", []any{ids}, kw)
	}, nil
}

type executeParams struct {
	Model  string         `mapstructure:"model"`
	Method string         `mapstructure:"method"`
	Args   any            `mapstructure:"args"`
	Kwargs map[string]any `mapstructure:"kwargs"`
}

// positional normalizes args: a list is used as-is, a scalar becomes a one-element list.
func (p executeParams) positional() []any {
	switch a := p.Args.(type) {
	case nil:
		return nil
	case []any:
		return a
	default:
		return []any{a}
	}
}

func (inv *invocation) executeTarget() (executeParams, error) {
	var p executeParams
	if err := decode(inv.params, &p); err != nil {
		return p, err
	}
	if err := requireModel(p.Model); err != nil {
		return p, err
	}
	if p.Method == "" {
		return p, &odoo.ValidationError{Field: "method", Reason: "must not be empty"}
	}
	return p, nil
}

func prepareExecute(inv *invocation) (assembleFunc, error) {
	p, err := inv.executeTarget()
	if err != nil {
		return nil, err
	}
	for _, k := range Params(extras(inv.desc, inv.explicit)).Keys() {
		inv.logger.Debug("ignoring unrecognized parameter", "task", inv.desc.Name, "param", k)
	}
	args := p.positional()
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.Execute(p.Model, p.Method, args...)
	}, nil
}

func prepareExecuteKw(inv *invocation) (assembleFunc, error) {
	p, err := inv.executeTarget()
	if err != nil {
		return nil, err
	}
	args, kw := p.positional(), inv.kwargs(p.Kwargs)
	return func(s odoo.Session) (*jsonrpc.Request, error) {
		return s.ExecuteKw(p.Model, p.Method, args, kw)
	}, nil
}

func prepareVersion(*invocation) (assembleFunc, error) {
	return fixed(odoo.BuildVersion()), nil
}

func prepareAbout(inv *invocation) (assembleFunc, error) {
	var p struct {
		Extended bool `mapstructure:"extended"`
	}
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	return fixed(odoo.BuildAbout(p.Extended)), nil
}

type dbCreateParams struct {
	Name         string `mapstructure:"new_database_name"`
	Demo         bool   `mapstructure:"demo"`
	Lang         string `mapstructure:"lang"`
	UserPassword string `mapstructure:"user_password"`
	Login        string `mapstructure:"login"`
	CountryCode  string `mapstructure:"country_code"`
	Phone        string `mapstructure:"phone"`
}

func prepareDBCreate(inv *invocation) (assembleFunc, error) {
	var p dbCreateParams
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	return fixed(odoo.BuildCreateDatabase(inv.conn.MasterPassword, odoo.CreateDatabaseOptions{
		Name:         p.Name,
		Demo:         p.Demo,
		Lang:         p.Lang,
		UserPassword: p.UserPassword,
		Login:        p.Login,
		CountryCode:  p.CountryCode,
		Phone:        p.Phone,
	})), nil
}

type dbTargetParams struct {
	NewName    string `mapstructure:"new_database_name"`
	Neutralize bool   `mapstructure:"neutralize"`
	Format     string `mapstructure:"format"`
	Data       string `mapstructure:"data"`
	Copy       bool   `mapstructure:"copy"`
}

func (inv *invocation) dbTarget() (dbTargetParams, error) {
	var p dbTargetParams
	err := decode(inv.params, &p)
	return p, err
}

func prepareDBDuplicate(inv *invocation) (assembleFunc, error) {
	p, err := inv.dbTarget()
	if err != nil {
		return nil, err
	}
	return fixed(odoo.BuildDuplicateDatabase(inv.conn.MasterPassword, inv.conn.Database, p.NewName, p.Neutralize)), nil
}

func prepareDBDrop(inv *invocation) (assembleFunc, error) {
	return fixed(odoo.BuildDropDatabase(inv.conn.MasterPassword, inv.conn.Database)), nil
}

func prepareDBDump(inv *invocation) (assembleFunc, error) {
	p, err := inv.dbTarget()
	if err != nil {
		return nil, err
	}
	return fixed(odoo.BuildDumpDatabase(inv.conn.MasterPassword, inv.conn.Database, p.Format)), nil
}

func prepareDBRestore(inv *invocation) (assembleFunc, error) {
	p, err := inv.dbTarget()
	if err != nil {
		return nil, err
	}
	return fixed(odoo.BuildRestoreDatabase(inv.conn.MasterPassword, p.NewName, p.Data, p.Copy)), nil
}

func prepareDBRename(inv *invocation) (assembleFunc, error) {
	p, err := inv.dbTarget()
	if err != nil {
		return nil, err
	}
	return fixed(odoo.BuildRenameDatabase(inv.conn.MasterPassword, inv.conn.Database, p.NewName)), nil
}

func prepareDBMigrate(inv *invocation) (assembleFunc, error) {
	var p struct {
		Databases []string `mapstructure:"databases"`
	}
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	return fixed(odoo.BuildMigrateDatabases(inv.conn.MasterPassword, p.Databases)), nil
}

func prepareDBExists(inv *invocation) (assembleFunc, error) {
	return fixed(odoo.BuildDatabaseExists(inv.conn.Database)), nil
}

func prepareDBList(*invocation) (assembleFunc, error) {
	return fixed(odoo.BuildListDatabases()), nil
}

func prepareDBListLang(*invocation) (assembleFunc, error) {
	return fixed(odoo.BuildListLanguages()), nil
}

func prepareDBListCountries(inv *invocation) (assembleFunc, error) {
	return fixed(odoo.BuildListCountries(inv.conn.MasterPassword)), nil
}

func prepareServerVersion(*invocation) (assembleFunc, error) {
	return fixed(odoo.BuildServerVersion()), nil
}

func prepareChangeAdminPassword(inv *invocation) (assembleFunc, error) {
	var p struct {
		NewMasterPassword string `mapstructure:"new_master_password"`
	}
	if err := decode(inv.params, &p); err != nil {
		return nil, err
	}
	return fixed(odoo.BuildChangeAdminPassword(inv.conn.MasterPassword, p.NewMasterPassword)), nil
}
