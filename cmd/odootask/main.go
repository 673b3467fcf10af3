package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/odootask/internal/config"
	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/playbook"
	"github.com/npratt/odootask/internal/task"
)

var version = "dev"

// errFailed signals that a task failed. The outcome has already been printed.
var errFailed = errors.New("task failed")

// app holds the state shared by all commands of one process.
type app struct {
	v        *viper.Viper
	logLevel *slog.LevelVar
	logger   *slog.Logger
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer

	cfg     *config.Config
	format  string
	runner  *task.Runner
	logFile *LoggerResult
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	logLevel := &slog.LevelVar{}
	v := viper.New()
	config.BindEnv(v)
	return &app{
		v:        v,
		logLevel: logLevel,
		logger:   SetupLoggerWithWriter(stderr, logLevel),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// setup loads configuration and builds the task runner. It runs before every command
// that talks to a server.
func (a *app) setup(cmd *cobra.Command) error {
	if a.v.GetBool(FlagVerbose) {
		a.logLevel.Set(slog.LevelDebug)
	}

	cfg, err := config.LoadConfig(a.v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply CLI flag overrides (only if explicitly set)
	flags := cmd.Flags()
	if flags.Changed(FlagLogFile) {
		cfg.LogFile = a.v.GetString(FlagLogFile)
	}
	if flags.Changed(FlagFormat) {
		cfg.Output.Format = a.v.GetString(FlagFormat)
	}
	if flags.Changed(FlagCheck) {
		cfg.CheckMode = a.v.GetBool(FlagCheck)
	}
	if flags.Changed(FlagTimeout) {
		cfg.HTTP.Timeout = a.v.GetDuration(FlagTimeout)
	}
	if flags.Changed(FlagInsecure) {
		cfg.HTTP.InsecureSkipVerify = a.v.GetBool(FlagInsecure)
	}
	if flags.Changed(FlagURL) {
		cfg.Connection.URL = a.v.GetString(FlagURL)
	}
	if flags.Changed(FlagDatabase) {
		cfg.Connection.Database = a.v.GetString(FlagDatabase)
	}
	if flags.Changed(FlagUsername) {
		cfg.Connection.Username = a.v.GetString(FlagUsername)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.LogFile != "" {
		a.logFile = SetupFileLogger(cfg.LogFile, a.logLevel, cfg.LogRotation)
		a.logger = a.logFile.Logger
	}
	a.format = resolveFormat(cfg.Output.Format, a.stdout)

	transport := jsonrpc.NewHTTPTransport(
		jsonrpc.WithTimeout(cfg.HTTP.Timeout),
		jsonrpc.WithInsecureSkipVerify(cfg.HTTP.InsecureSkipVerify),
		jsonrpc.WithLogger(a.logger),
	)
	a.runner = task.NewRunner(transport, a.logger)
	a.runner.CheckMode = cfg.CheckMode

	a.logger.Debug("configuration loaded",
		"url", cfg.Connection.URL,
		"database", cfg.Connection.Database,
		"check_mode", cfg.CheckMode,
		"format", a.format,
	)
	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// connectionDefaults returns the configured connection parameters.
func (a *app) connectionDefaults() task.Params {
	return task.Params(a.cfg.Connection.Params())
}

func (a *app) runTask(cmd *cobra.Command, name string, args []string) error {
	params := task.Params{}
	path, err := cmd.Flags().GetString(FlagParamsFile)
	if err != nil {
		return err
	}
	if path != "" {
		fileParams, err := readParamsFile(path, a.stdin)
		if err != nil {
			return err
		}
		params = fileParams
	}

	argParams, err := parseArgs(args)
	if err != nil {
		return err
	}
	params = argParams.Merge(params)

	out := a.runner.RunWithDefaults(cmd.Context(), name, params, a.connectionDefaults())
	if err := renderOutcome(a.stdout, a.format, name, out); err != nil {
		return err
	}
	if out.Failed {
		return errFailed
	}
	return nil
}

func (a *app) runPlaybook(cmd *cobra.Command, path string) error {
	pb, err := playbook.Load(path)
	if err != nil {
		return err
	}
	pb.Vars = pb.Vars.Merge(a.connectionDefaults())

	results := pb.Run(cmd.Context(), a.runner)
	recap := pb.Summarize(results)
	if err := renderPlaybook(a.stdout, a.format, results, recap); err != nil {
		return err
	}
	if !recap.Succeeded() {
		return errFailed
	}
	return cmd.Context().Err()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "odootask",
		Short: "Run Odoo JSON-RPC operations as single-shot tasks",
		Long: `odootask exposes the Odoo JSON-RPC API (common, db and object services) as
single-shot tasks. Each task logs in when it needs a user session, sends exactly
one request and prints the outcome as JSON.

Connection defaults come from .odootask/config.yaml, ODOOTASK_* environment
variables or a .env file. Task parameters are given as key=value arguments whose
values are parsed as YAML:

  odootask search_read model=res.partner 'domain=[[is_company, "=", true]]' limit=5`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// "version" is the common.version task; the binary version is --version.
	rootCmd.SetVersionTemplate("odootask {{.Version}}\n")
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .odootask/config.yaml)")
	rootCmd.PersistentFlags().String(FlagEnvFile, "", "Env file with ODOOTASK_* variables (default: .env if present)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().String(FlagFormat, config.FormatAuto, "Output format (auto/json/text)")
	rootCmd.PersistentFlags().Bool(FlagCheck, false, "Check mode: do not send operations that change state")
	rootCmd.PersistentFlags().Duration(FlagTimeout, 0, "HTTP timeout (0 = none)")
	rootCmd.PersistentFlags().Bool(FlagInsecure, false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().String(FlagURL, "", "Odoo server URL")
	rootCmd.PersistentFlags().String(FlagDatabase, "", "Database name")
	rootCmd.PersistentFlags().String(FlagUsername, "", "Login user")

	// Bind all flags to viper
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = a.v.BindPFlag(f.Name, f)
	})

	// Tasks command
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "List available tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON := a.v.GetBool(FlagJSON) || !isTerminal(a.stdout)
			return renderTasks(a.stdout, asJSON)
		},
	}
	tasksCmd.Flags().Bool(FlagJSON, false, "Output as JSON")
	_ = a.v.BindPFlag(FlagJSON, tasksCmd.Flags().Lookup(FlagJSON))

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run the tasks of a task file in order",
		Long: `Run the tasks listed in a YAML or JSON task file, in order, each as an
independent invocation. vars are merged into every task's params. The run stops
at the first failed task unless the task sets ignore_errors.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString(FlagFile)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no task file given (use run <file> or --file)")
			}
			return a.runPlaybook(cmd, path)
		},
	}
	runCmd.Flags().StringP(FlagFile, "f", "", "Task file")
	_ = a.v.BindPFlag(FlagFile, runCmd.Flags().Lookup(FlagFile))

	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.AddGroup(
		&cobra.Group{ID: groupSession, Title: "Session tasks:"},
		&cobra.Group{ID: groupObject, Title: "Model tasks:"},
		&cobra.Group{ID: groupDB, Title: "Database tasks:"},
	)

	// One command per task
	for _, d := range task.Descriptors() {
		rootCmd.AddCommand(newTaskCmd(a, d))
	}

	return rootCmd
}

func newTaskCmd(a *app, d *task.Descriptor) *cobra.Command {
	name := d.Name
	long := fmt.Sprintf("%s.\n\nCalls %s.\nRequired: %s",
		d.Summary, d.Remote(), strings.Join(d.RequiredParams(), ", "))
	if len(d.Optional) > 0 {
		long += "\nOptional: " + strings.Join(d.Optional, ", ")
	}
	long += "\nResult field: " + d.ResultField

	cmd := &cobra.Command{
		Use:     name + " [key=value ...]",
		Short:   d.Summary,
		Long:    long,
		GroupID: groupFor(d),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTask(cmd, name, args)
		},
	}
	// Not bound to viper: every task command has its own flag set.
	cmd.Flags().StringP(FlagParamsFile, "p", "", "YAML/JSON file with task parameters (- for stdin)")
	return cmd
}

// Command groups for help output.
const (
	groupSession = "session"
	groupObject  = "object"
	groupDB      = "db"
)

func groupFor(d *task.Descriptor) string {
	switch d.Service {
	case jsonrpc.ServiceObject:
		return groupObject
	case jsonrpc.ServiceDB:
		return groupDB
	default:
		return groupSession
	}
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	defer a.close()

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			a.logger.Error("command failed", "error", err)
		}
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
