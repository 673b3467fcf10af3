package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ConfigPaths defines the search locations for config files.
const (
	// GlobalConfigDir is the XDG config directory name
	GlobalConfigDir = "odootask"
	// GlobalConfigFile is the global config file name
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the project-local config directory
	ProjectConfigDir = ".odootask"
	// ProjectConfigFile is the project-local config file name
	ProjectConfigFile = "config.yaml"
	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
	// EnvPrefix prefixes environment overrides, e.g. ODOOTASK_CONNECTION_URL
	EnvPrefix = "ODOOTASK"
)

// Keys LoadConfig reads from viper besides the Config fields. The CLI binds its
// --config and --env-file flags to them.
const (
	KeyConfigFile = "config"
	KeyEnvFile    = "env-file"
)

// BindEnv makes v read ODOOTASK_* variables. Nested keys use underscores:
// connection.master_password is ODOOTASK_CONNECTION_MASTER_PASSWORD.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// LoadEnvFile loads KEY=value pairs into the process environment. Variables that are
// already set win. An empty path loads .env from the working directory if it exists;
// an explicit path must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DotEnvFile); err != nil {
			return nil
		}
		path = DotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// LoadConfig resolves the configuration. Later sources override earlier ones:
//  1. Default() values
//  2. $XDG_CONFIG_HOME/odootask/config.yaml (~/.config when unset)
//  3. .odootask/config.yaml in the working directory
//  4. the file named by KeyConfigFile (--config), which must exist
//  5. ODOOTASK_* variables, read after the env file (KeyEnvFile or ./.env) is loaded
//  6. CLI flags, applied by the caller
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	v.SetConfigType("yaml")
	for _, f := range configFiles(v.GetString(KeyConfigFile)) {
		if err := mergeFile(v, f); err != nil {
			return nil, err
		}
	}

	if err := LoadEnvFile(v.GetString(KeyEnvFile)); err != nil {
		return nil, err
	}

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with its default value. A key viper does not know
// is never looked up in the environment, so connection.password must be registered
// even though it has no default.
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"connection.url":             cfg.Connection.URL,
		"connection.database":        cfg.Connection.Database,
		"connection.username":        cfg.Connection.Username,
		"connection.password":        cfg.Connection.Password,
		"connection.master_password": cfg.Connection.MasterPassword,
		"http.timeout":               cfg.HTTP.Timeout,
		"http.insecure_skip_verify":  cfg.HTTP.InsecureSkipVerify,
		"output.format":              cfg.Output.Format,
		"log_file":                   cfg.LogFile,
		"log_rotation.max_size_mb":   cfg.LogRotation.MaxSizeMB,
		"log_rotation.max_backups":   cfg.LogRotation.MaxBackups,
		"log_rotation.max_age_days":  cfg.LogRotation.MaxAgeDays,
		"log_rotation.compress":      cfg.LogRotation.Compress,
		"check_mode":                 cfg.CheckMode,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// configFile is one YAML layer. Optional layers are skipped when the file is absent.
type configFile struct {
	path     string
	required bool
}

func configFiles(explicit string) []configFile {
	files := []configFile{
		{path: globalConfigPath()},
		{path: filepath.Join(ProjectConfigDir, ProjectConfigFile)},
	}
	if explicit != "" {
		files = append(files, configFile{path: explicit, required: true})
	}
	return files
}

func globalConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, GlobalConfigDir, GlobalConfigFile)
}

func mergeFile(v *viper.Viper, f configFile) error {
	if f.path == "" {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) && !f.required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse config %s: %w", f.path, err)
	}
	return nil
}
