package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/npratt/odootask/internal/task"
)

// parseArgs turns key=value arguments into task parameters. Values are parsed as YAML,
// so limit=5 is an int, fields=[name,email] a list and context={lang: fr_FR} a map.
// A value that is not valid YAML is kept as a plain string.
func parseArgs(args []string) (task.Params, error) {
	params := task.Params{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: want key=value", arg)
		}
		params[key] = parseValue(raw)
	}
	return params, nil
}

func parseValue(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// readParamsFile reads a YAML or JSON mapping of parameters. "-" reads stdin.
func readParamsFile(path string, stdin io.Reader) (task.Params, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read params file: %w", err)
	}

	var params task.Params
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parse params file: %w", err)
	}
	if params == nil {
		params = task.Params{}
	}
	return params, nil
}
