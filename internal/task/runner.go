package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/odoo"
)

// Runner executes tasks. Each Run is an independent invocation with its own login;
// nothing is shared between runs except the transport.
type Runner struct {
	Transport jsonrpc.Transport
	Logger    *slog.Logger
	// CheckMode skips operations that change server state or call arbitrary methods.
	CheckMode bool
}

// NewRunner creates a Runner. A nil logger uses slog.Default().
func NewRunner(transport jsonrpc.Transport, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Transport: transport, Logger: logger}
}

// Run executes the named task with params and returns its outcome.
// Every failure, local or remote, is reported in the outcome rather than as an error.
func (r *Runner) Run(ctx context.Context, name string, params Params) Outcome {
	return r.RunWithDefaults(ctx, name, params, nil)
}

// RunWithDefaults is Run with defaults filling the keys params leaves unset. Defaults are
// shared across tasks, so unrecognized defaults are never forwarded as keyword arguments.
func (r *Runner) RunWithDefaults(ctx context.Context, name string, params, defaults Params) Outcome {
	logger := r.logger().With("task", name)

	d, ok := Lookup(name)
	if !ok {
		return MapError(&ParamError{Reason: fmt.Sprintf("unknown task %q", name)})
	}

	out := r.run(ctx, d, params.Merge(defaults), params, logger)
	if out.Failed {
		logger.Warn("task failed", "kind", out.Fault.Kind, "error", out.Msg)
	} else {
		logger.Info("task finished", "remote", d.Remote(), "changed", out.Changed)
	}
	return out
}

func (r *Runner) run(ctx context.Context, d *Descriptor, params, explicit Params, logger *slog.Logger) Outcome {
	if keys := missing(d, params); len(keys) > 0 {
		return MapError(&ParamError{Missing: keys})
	}

	var conn connection
	if err := decode(params, &conn); err != nil {
		return MapError(err)
	}
	if err := conn.Validate(d.Auth); err != nil {
		return MapError(err)
	}

	var assemble assembleFunc
	if d.prepare != nil {
		inv := &invocation{desc: d, params: params, explicit: explicit, conn: conn, logger: logger}
		var err error
		if assemble, err = d.prepare(inv); err != nil {
			return MapError(err)
		}
	}

	if r.CheckMode && d.SkipInCheckMode() {
		logger.Info("skipping in check mode", "remote", d.Remote())
		return Outcome{Msg: "skipped in check mode", Fields: map[string]any{"skipped": true}}
	}

	// Param names only: values may hold secrets.
	logger.Debug("running task", "remote", d.Remote(), "params", params.Keys())

	client, err := odoo.NewRPCClient(conn.Credentials, r.Transport, logger)
	if err != nil {
		return MapError(err)
	}

	var session odoo.Session
	if d.Auth {
		if session, err = client.Session(ctx); err != nil {
			return MapError(err)
		}
		if assemble == nil {
			return success(false, d.ResultField, session.UID)
		}
	}

	req, err := assemble(session)
	if err != nil {
		return MapError(err)
	}

	resp, err := client.Call(ctx, req)
	if err != nil {
		return MapError(err)
	}
	return MapResponse(resp, d)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
