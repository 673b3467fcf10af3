package task

import "encoding/json"

// Failure kinds reported in FailureReport.Kind.
const (
	KindTransport      = "transport"
	KindProtocol       = "protocol"
	KindAuthentication = "authentication"
	KindRemote         = "remote"
	KindInvalid        = "invalid"
	KindInternal       = "internal"
)

// FailureReport is the uniform description of a failed invocation.
// For remote faults Code and Detail carry the fault's code and data verbatim.
type FailureReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

// Outcome is the result of one task invocation.
// A failed outcome never carries result fields.
type Outcome struct {
	Changed bool
	Failed  bool
	Msg     string
	Fields  map[string]any
	Fault   *FailureReport
}

// Field returns the named result field.
func (o Outcome) Field(name string) (any, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

// MarshalJSON flattens Fields next to changed/failed/msg/error.
func (o Outcome) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Fields)+4)
	for k, v := range o.Fields {
		m[k] = v
	}
	m["changed"] = o.Changed
	if o.Failed {
		m["failed"] = true
	}
	if o.Msg != "" {
		m["msg"] = o.Msg
	}
	if o.Fault != nil {
		m["error"] = o.Fault
	}
	return json.Marshal(m)
}

func success(changed bool, field string, value any) Outcome {
	return Outcome{Changed: changed, Fields: map[string]any{field: value}}
}

func failure(report *FailureReport) Outcome {
	return Outcome{Failed: true, Msg: report.Message, Fault: report}
}
