package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/npratt/odootask/internal/config"
	"github.com/npratt/odootask/internal/playbook"
	"github.com/npratt/odootask/internal/task"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	ignoredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resolveFormat maps "auto" to text on a terminal and JSON otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format == config.FormatAuto || format == "" {
		if isTerminal(w) {
			return config.FormatText
		}
		return config.FormatJSON
	}
	return format
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderOutcome prints a single task outcome.
func renderOutcome(w io.Writer, format, name string, out task.Outcome) error {
	if format != config.FormatText {
		return writeJSON(w, out)
	}
	_, err := fmt.Fprint(w, outcomeText(name, out))
	return err
}

func statusLabel(out task.Outcome, ignored bool) string {
	switch {
	case ignored:
		return ignoredStyle.Render("ignored")
	case out.Failed:
		return failedStyle.Render("failed")
	case out.Changed:
		return changedStyle.Render("changed")
	default:
		return okStyle.Render("ok")
	}
}

func outcomeText(name string, out task.Outcome) string {
	return outcomeBlock(name, out, false)
}

func outcomeBlock(name string, out task.Outcome, ignored bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", statusLabel(out, ignored), headerStyle.Render(name))

	if out.Failed {
		if out.Fault != nil {
			fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("kind:"), out.Fault.Kind)
			if out.Fault.Code != 0 {
				fmt.Fprintf(&b, "  %s %d\n", keyStyle.Render("code:"), out.Fault.Code)
			}
		}
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("msg:"), indent(out.Msg, "    "))
		return b.String()
	}

	if out.Msg != "" {
		fmt.Fprintf(&b, "  %s\n", dimStyle.Render(out.Msg))
	}
	keys := make([]string, 0, len(out.Fields))
	for k := range out.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(k+":"), indent(formatValue(out.Fields[k]), "    "))
	}
	return b.String()
}

// formatValue prints scalars as-is and collections as indented JSON.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// playbookReport is the JSON shape of a run.
type playbookReport struct {
	Results []playbook.Result `json:"results"`
	Recap   playbook.Recap    `json:"recap"`
}

// renderPlaybook prints every step result followed by the recap.
func renderPlaybook(w io.Writer, format string, results []playbook.Result, recap playbook.Recap) error {
	if format != config.FormatText {
		return writeJSON(w, playbookReport{Results: results, Recap: recap})
	}

	var b strings.Builder
	for _, res := range results {
		b.WriteString(outcomeBlock(res.Name, res.Outcome, res.Ignored))
	}
	fmt.Fprintf(&b, "\n%s %s %s %s %s\n",
		headerStyle.Render("recap:"),
		okStyle.Render(fmt.Sprintf("ok=%d", recap.OK)),
		changedStyle.Render(fmt.Sprintf("changed=%d", recap.Changed)),
		failedStyle.Render(fmt.Sprintf("failed=%d", recap.Failed)),
		dimStyle.Render(fmt.Sprintf("ignored=%d skipped=%d", recap.Ignored, recap.Skipped)),
	)
	_, err := fmt.Fprint(w, b.String())
	return err
}

// taskInfo is the JSON shape of one entry of the tasks command.
type taskInfo struct {
	Name     string   `json:"name"`
	Remote   string   `json:"remote"`
	Summary  string   `json:"summary"`
	Auth     bool     `json:"auth"`
	Mutating bool     `json:"mutating"`
	Required []string `json:"required"`
	Optional []string `json:"optional,omitempty"`
	Result   string   `json:"result"`
}

func describeTasks() []taskInfo {
	descs := task.Descriptors()
	infos := make([]taskInfo, 0, len(descs))
	for _, d := range descs {
		infos = append(infos, taskInfo{
			Name:     d.Name,
			Remote:   d.Remote(),
			Summary:  d.Summary,
			Auth:     d.Auth,
			Mutating: d.SkipInCheckMode(),
			Required: d.RequiredParams(),
			Optional: d.Optional,
			Result:   d.ResultField,
		})
	}
	return infos
}

// renderTasks lists the available tasks.
func renderTasks(w io.Writer, asJSON bool) error {
	infos := describeTasks()
	if asJSON {
		return writeJSON(w, infos)
	}

	width := 0
	for _, info := range infos {
		if len(info.Name) > width {
			width = len(info.Name)
		}
	}
	nameStyle := headerStyle.Width(width + 2)

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s%s %s\n", nameStyle.Render(info.Name), info.Summary, dimStyle.Render("("+info.Remote+")"))
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}
