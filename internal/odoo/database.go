package odoo

import "github.com/npratt/odootask/internal/jsonrpc"

// Dump formats accepted by db.dump.
const (
	DumpFormatZip    = "zip"
	DumpFormatPgDump = "dump"
)

// CreateDatabaseOptions are the arguments of db.create_database.
type CreateDatabaseOptions struct {
	Name         string
	Demo         bool
	Lang         string
	UserPassword string
	Login        string
	CountryCode  string
	Phone        string
}

// withDefaults fills the values Odoo's database manager uses when a field is left empty.
func (o CreateDatabaseOptions) withDefaults() CreateDatabaseOptions {
	if o.Lang == "" {
		o.Lang = "en_US"
	}
	if o.UserPassword == "" {
		o.UserPassword = "admin"
	}
	if o.Login == "" {
		o.Login = "admin"
	}
	return o
}

// BuildCreateDatabase builds db.create_database.
func BuildCreateDatabase(masterPassword string, opts CreateDatabaseOptions) *jsonrpc.Request {
	o := opts.withDefaults()
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "create_database", []any{
		masterPassword, o.Name, o.Demo, o.Lang, o.UserPassword, o.Login, nullable(o.CountryCode), nullable(o.Phone),
	})
}

// BuildDuplicateDatabase builds db.duplicate_database.
func BuildDuplicateDatabase(masterPassword, original, name string, neutralize bool) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "duplicate_database", []any{masterPassword, original, name, neutralize})
}

// BuildDropDatabase builds db.drop.
func BuildDropDatabase(masterPassword, name string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "drop", []any{masterPassword, name})
}

// BuildDumpDatabase builds db.dump. An empty format defaults to zip.
func BuildDumpDatabase(masterPassword, name, format string) *jsonrpc.Request {
	if format == "" {
		format = DumpFormatZip
	}
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "dump", []any{masterPassword, name, format})
}

// BuildRestoreDatabase builds db.restore. data is the base64-encoded dump.
func BuildRestoreDatabase(masterPassword, name, data string, asCopy bool) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "restore", []any{masterPassword, name, data, asCopy})
}

// BuildRenameDatabase builds db.rename.
func BuildRenameDatabase(masterPassword, oldName, newName string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "rename", []any{masterPassword, oldName, newName})
}

// BuildMigrateDatabases builds db.migrate_databases.
func BuildMigrateDatabases(masterPassword string, databases []string) *jsonrpc.Request {
	if databases == nil {
		databases = []string{}
	}
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "migrate_databases", []any{masterPassword, databases})
}

// BuildDatabaseExists builds db.db_exist. The server takes no master password for it.
func BuildDatabaseExists(name string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "db_exist", []any{name})
}

// BuildListDatabases builds db.list.
func BuildListDatabases() *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "list", nil)
}

// BuildListLanguages builds db.list_lang.
func BuildListLanguages() *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "list_lang", nil)
}

// BuildListCountries builds db.list_countries.
func BuildListCountries(masterPassword string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "list_countries", []any{masterPassword})
}

// BuildServerVersion builds db.server_version.
func BuildServerVersion() *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "server_version", nil)
}

// BuildChangeAdminPassword builds db.change_admin_password.
func BuildChangeAdminPassword(masterPassword, newPassword string) *jsonrpc.Request {
	return jsonrpc.NewRequest(jsonrpc.ServiceDB, "change_admin_password", []any{masterPassword, newPassword})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
