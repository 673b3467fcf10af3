// Package task exposes each supported Odoo operation as a single-shot task: it validates the
// parameter set, logs in when the operation needs a user session, builds one JSON-RPC request and
// maps the response or failure into an Outcome.
package task

import (
	"sort"

	"github.com/npratt/odootask/internal/jsonrpc"
)

// Descriptor statically describes one operation.
type Descriptor struct {
	Name         string
	Service      string
	RemoteMethod string
	Summary      string

	// Auth operations log in first and need database, username and password.
	Auth bool
	// Mutating operations report changed=true and are skipped in check mode.
	Mutating bool
	// Opaque operations call arbitrary model methods. They are skipped in check mode
	// but report changed=false, since the effect of the call is unknown.
	Opaque bool
	// ForwardExtra forwards unrecognized parameters as keyword arguments.
	ForwardExtra bool

	Required []string
	Optional []string

	// ResultField names the outcome field that carries the remote result.
	ResultField string

	// prepare validates params and returns the request builder. Nil means the operation
	// is complete once logged in.
	prepare prepareFunc
}

// Remote returns "service.method" of the remote call.
func (d *Descriptor) Remote() string {
	return d.Service + "." + d.RemoteMethod
}

// RequiredParams returns every required parameter, connection parameters included.
func (d *Descriptor) RequiredParams() []string {
	req := []string{ParamURL}
	if d.Auth {
		req = append(req, ParamDatabase, ParamUsername, ParamPassword)
	}
	return append(req, d.Required...)
}

// SkipInCheckMode reports whether the operation must not be sent in check mode.
func (d *Descriptor) SkipInCheckMode() bool {
	return d.Mutating || d.Opaque
}

// recognizes reports whether key is a connection parameter or one of the operation's options.
func (d *Descriptor) recognizes(key string) bool {
	if isConnectionParam(key) {
		return true
	}
	for _, k := range d.Required {
		if k == key {
			return true
		}
	}
	for _, k := range d.Optional {
		if k == key {
			return true
		}
	}
	return false
}

var registry = map[string]*Descriptor{}

func register(d *Descriptor) {
	if _, exists := registry[d.Name]; exists {
		panic("task: duplicate operation " + d.Name)
	}
	registry[d.Name] = d
}

// Lookup returns the descriptor for name.
func Lookup(name string) (*Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names returns all operation names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all descriptors sorted by name.
func Descriptors() []*Descriptor {
	names := Names()
	out := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, registry[name])
	}
	return out
}

func init() {
	register(&Descriptor{
		Name:         "login",
		Service:      jsonrpc.ServiceCommon,
		RemoteMethod: "login",
		Summary:      "Authenticate and return the user id",
		Auth:         true,
		ResultField:  "uid",
	})
	register(&Descriptor{
		Name:         "version",
		Service:      jsonrpc.ServiceCommon,
		RemoteMethod: "version",
		Summary:      "Fetch server version information",
		ResultField:  "version",
		prepare:      prepareVersion,
	})
	register(&Descriptor{
		Name:         "about",
		Service:      jsonrpc.ServiceCommon,
		RemoteMethod: "about",
		Summary:      "Fetch the server's about string",
		Optional:     []string{"extended"},
		ResultField:  "about",
		prepare:      prepareAbout,
	})
	register(&Descriptor{
		Name:         "search",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Search for record ids matching a domain",
		Auth:         true,
		ForwardExtra: true,
		Required:     []string{"model", "domain"},
		Optional:     []string{"offset", "limit", "order"},
		ResultField:  "ids",
		prepare:      prepareSearch,
	})
	register(&Descriptor{
		Name:         "search_read",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Search and read records in one call",
		Auth:         true,
		ForwardExtra: true,
		Required:     []string{"model"},
		Optional:     []string{"domain", "fields", "offset", "limit", "order", "load"},
		ResultField:  "data",
		prepare:      prepareSearchRead,
	})
	register(&Descriptor{
		Name:         "read",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Read records by id",
		Auth:         true,
		ForwardExtra: true,
		Required:     []string{"model", "ids"},
		Optional:     []string{"fields", "load"},
		ResultField:  "data",
		prepare:      prepareRead,
	})
	register(&Descriptor{
		Name:         "create",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Create a record",
		Auth:         true,
		Mutating:     true,
		ForwardExtra: true,
		Required:     []string{"model", "values"},
		ResultField:  "id",
		prepare:      prepareCreate,
	})
	register(&Descriptor{
		Name:         "create_multi",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Create several records in one call",
		Auth:         true,
		Mutating:     true,
		ForwardExtra: true,
		Required:     []string{"model", "values"},
		ResultField:  "ids",
		prepare:      prepareCreateMulti,
	})
	register(&Descriptor{
		Name:         "write",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Update records by id",
		Auth:         true,
		Mutating:     true,
		ForwardExtra: true,
		Required:     []string{"model", "ids", "values"},
		ResultField:  "okay",
		prepare:      prepareWrite,
	})
	register(&Descriptor{
		Name:         "unlink",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Delete records by id",
		Auth:         true,
		Mutating:     true,
		ForwardExtra: true,
		Required:     []string{"model", "ids"},
		ResultField:  "okay",
		prepare:      prepareUnlink,
	})
	register(&Descriptor{
		Name:         "execute",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute",
		Summary:      "Call a model method with positional arguments",
		Auth:         true,
		Opaque:       true,
		Required:     []string{"model", "method"},
		Optional:     []string{"args"},
		ResultField:  "res",
		prepare:      prepareExecute,
	})
	register(&Descriptor{
		Name:         "execute_kw",
		Service:      jsonrpc.ServiceObject,
		RemoteMethod: "execute_kw",
		Summary:      "Call a model method with positional and keyword arguments",
		Auth:         true,
		Opaque:       true,
		ForwardExtra: true,
		Required:     []string{"model", "method"},
		Optional:     []string{"args", "kwargs"},
		ResultField:  "res",
		prepare:      prepareExecuteKw,
	})
	register(&Descriptor{
		Name:         "db_create",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "create_database",
		Summary:      "Create a database",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, "new_database_name"},
		Optional:     []string{"demo", "lang", "user_password", "login", "country_code", "phone"},
		ResultField:  "okay",
		prepare:      prepareDBCreate,
	})
	register(&Descriptor{
		Name:         "db_duplicate",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "duplicate_database",
		Summary:      "Duplicate a database",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, ParamDatabase, "new_database_name"},
		Optional:     []string{"neutralize"},
		ResultField:  "okay",
		prepare:      prepareDBDuplicate,
	})
	register(&Descriptor{
		Name:         "db_drop",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "drop",
		Summary:      "Drop a database",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, ParamDatabase},
		ResultField:  "okay",
		prepare:      prepareDBDrop,
	})
	register(&Descriptor{
		Name:         "db_dump",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "dump",
		Summary:      "Dump a database as base64",
		Required:     []string{ParamMasterPassword, ParamDatabase},
		Optional:     []string{"format"},
		ResultField:  "dump",
		prepare:      prepareDBDump,
	})
	register(&Descriptor{
		Name:         "db_restore",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "restore",
		Summary:      "Restore a database from a base64 dump",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, "new_database_name", "data"},
		Optional:     []string{"copy"},
		ResultField:  "okay",
		prepare:      prepareDBRestore,
	})
	register(&Descriptor{
		Name:         "db_rename",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "rename",
		Summary:      "Rename a database",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, ParamDatabase, "new_database_name"},
		ResultField:  "okay",
		prepare:      prepareDBRename,
	})
	register(&Descriptor{
		Name:         "db_migrate",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "migrate_databases",
		Summary:      "Upgrade the base module of databases",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, "databases"},
		ResultField:  "okay",
		prepare:      prepareDBMigrate,
	})
	register(&Descriptor{
		Name:         "db_exists",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "db_exist",
		Summary:      "Check whether a database exists",
		Required:     []string{ParamDatabase},
		ResultField:  "exists",
		prepare:      prepareDBExists,
	})
	register(&Descriptor{
		Name:         "db_list",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "list",
		Summary:      "List databases",
		ResultField:  "databases",
		prepare:      prepareDBList,
	})
	register(&Descriptor{
		Name:         "db_list_lang",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "list_lang",
		Summary:      "List installable languages",
		ResultField:  "languages",
		prepare:      prepareDBListLang,
	})
	register(&Descriptor{
		Name:         "db_list_countries",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "list_countries",
		Summary:      "List countries available for new databases",
		Required:     []string{ParamMasterPassword},
		ResultField:  "countries",
		prepare:      prepareDBListCountries,
	})
	register(&Descriptor{
		Name:         "server_version",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "server_version",
		Summary:      "Fetch the server version string",
		ResultField:  "version",
		prepare:      prepareServerVersion,
	})
	register(&Descriptor{
		Name:         "change_admin_password",
		Service:      jsonrpc.ServiceDB,
		RemoteMethod: "change_admin_password",
		Summary:      "Change the master password",
		Mutating:     true,
		Required:     []string{ParamMasterPassword, "new_master_password"},
		ResultField:  "okay",
		prepare:      prepareChangeAdminPassword,
	})
}
