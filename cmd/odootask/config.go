package main

import "github.com/npratt/odootask/internal/config"

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose  = "verbose"
	FlagConfig   = config.KeyConfigFile
	FlagEnvFile  = config.KeyEnvFile
	FlagLogFile  = "log-file"
	FlagFormat   = "format"
	FlagCheck    = "check"
	FlagTimeout  = "timeout"
	FlagInsecure = "insecure"

	// Connection overrides. Passwords are only read from config, env or .env.
	FlagURL      = "url"
	FlagDatabase = "database"
	FlagUsername = "username"

	// Task command flags
	FlagParamsFile = "params-file"

	// Run command flags
	FlagFile = "file"

	// Output format flags
	FlagJSON = "json"
)
