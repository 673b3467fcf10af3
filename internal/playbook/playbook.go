// Package playbook loads task files and runs their tasks in order.
//
// A task file is YAML (or JSON) holding either a single task:
//
//	task: search_read
//	params:
//	  model: res.partner
//
// or a list of tasks sharing connection defaults:
//
//	vars:
//	  url: http://localhost:8069
//	  database: prod
//	tasks:
//	  - name: find partners
//	    task: search_read
//	    params: {model: res.partner, limit: 5}
//	  - task: db_list
//	    ignore_errors: true
package playbook

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/npratt/odootask/internal/task"
)

// Playbook is a parsed task file.
type Playbook struct {
	Name  string      `yaml:"name"`
	Vars  task.Params `yaml:"vars"`
	Tasks []Step      `yaml:"tasks"`
}

// Step is one task entry.
type Step struct {
	Name         string      `yaml:"name"`
	Task         string      `yaml:"task"`
	Params       task.Params `yaml:"params"`
	IgnoreErrors bool        `yaml:"ignore_errors"`
}

// Label returns the step name, or the task name when the step is unnamed.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Task
}

// Runner executes a single task. defaults fill the keys params leaves unset.
type Runner interface {
	RunWithDefaults(ctx context.Context, name string, params, defaults task.Params) task.Outcome
}

// Result is the outcome of one step.
type Result struct {
	Name    string       `json:"name"`
	Task    string       `json:"task"`
	Outcome task.Outcome `json:"outcome"`
	Ignored bool         `json:"ignored,omitempty"`
}

// Load reads and parses the task file at path.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file %q: %w", path, err)
	}
	pb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse task file %q: %w", path, err)
	}
	return pb, nil
}

// Parse parses a task file. Unknown task names are rejected before anything runs.
func Parse(data []byte) (*Playbook, error) {
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return nil, err
	}

	if len(pb.Tasks) == 0 {
		var single Step
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		if single.Task == "" {
			return nil, errors.New("no tasks defined")
		}
		pb.Tasks = []Step{single}
	}

	for i, step := range pb.Tasks {
		if step.Task == "" {
			return nil, fmt.Errorf("tasks[%d]: missing task name", i)
		}
		if _, ok := task.Lookup(step.Task); !ok {
			return nil, fmt.Errorf("tasks[%d]: unknown task %q", i, step.Task)
		}
	}
	return &pb, nil
}

// Run executes the steps in order, each as an independent invocation with Vars as default
// parameters. It stops after the first failed step unless that step ignores errors, and
// before the next step once ctx is done.
func (pb *Playbook) Run(ctx context.Context, r Runner) []Result {
	results := make([]Result, 0, len(pb.Tasks))
	for _, step := range pb.Tasks {
		if ctx.Err() != nil {
			break
		}

		out := r.RunWithDefaults(ctx, step.Task, step.Params, pb.Vars)
		res := Result{Name: step.Label(), Task: step.Task, Outcome: out}
		if out.Failed && step.IgnoreErrors {
			res.Ignored = true
		}
		results = append(results, res)

		if out.Failed && !step.IgnoreErrors {
			break
		}
	}
	return results
}

// Recap counts step results.
type Recap struct {
	OK      int `json:"ok"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
	Ignored int `json:"ignored"`
	Skipped int `json:"skipped"`
}

// Summarize builds the recap of a run. Steps never reached count as skipped.
func (pb *Playbook) Summarize(results []Result) Recap {
	var rc Recap
	for _, res := range results {
		switch {
		case res.Ignored:
			rc.Ignored++
		case res.Outcome.Failed:
			rc.Failed++
		case res.Outcome.Changed:
			rc.Changed++
		default:
			rc.OK++
		}
	}
	rc.Skipped = len(pb.Tasks) - len(results)
	return rc
}

// Succeeded reports whether no step failed without ignore_errors.
func (rc Recap) Succeeded() bool {
	return rc.Failed == 0
}
