package task

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/npratt/odootask/internal/odoo"
)

// Connection parameter names shared by every operation.
const (
	ParamURL            = "url"
	ParamDatabase       = "database"
	ParamUsername       = "username"
	ParamPassword       = "password"
	ParamMasterPassword = "master_password"
)

func isConnectionParam(key string) bool {
	switch key {
	case ParamURL, ParamDatabase, ParamUsername, ParamPassword, ParamMasterPassword:
		return true
	}
	return false
}

// Params is the open parameter set of one invocation.
type Params map[string]any

// Merge returns a new Params with defaults overlaid by p.
func (p Params) Merge(defaults Params) Params {
	out := make(Params, len(defaults)+len(p))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParamError reports parameters that fail local validation.
type ParamError struct {
	Missing []string
	Reason  string
}

func (e *ParamError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required arguments: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// connection holds the connection parameters decoded from Params.
type connection struct {
	odoo.Credentials `mapstructure:",squash"`
	MasterPassword   string `mapstructure:"master_password"`
}

// missing returns required keys that are absent or null.
func missing(d *Descriptor, p Params) []string {
	var out []string
	for _, key := range d.RequiredParams() {
		if v, ok := p[key]; !ok || v == nil {
			out = append(out, key)
		}
	}
	return out
}

// extras returns the parameters the operation does not recognize.
func extras(d *Descriptor, p Params) map[string]any {
	out := map[string]any{}
	for k, v := range p {
		if !d.recognizes(k) {
			out[k] = v
		}
	}
	return out
}

// decode maps p onto out. String values are weakly converted, so "1" decodes into an int
// and "name,email" into a []string.
func decode(p Params, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(p)); err != nil {
		return &ParamError{Reason: fmt.Sprintf("invalid parameters: %v", err)}
	}
	return nil
}
