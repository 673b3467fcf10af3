package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/npratt/odootask/internal/jsonrpc"
	"github.com/npratt/odootask/internal/odoo"
)

// MapResponse shapes a response envelope into the outcome of d.
// It does not modify resp, so mapping the same envelope twice gives equal outcomes.
func MapResponse(resp *jsonrpc.Response, d *Descriptor) Outcome {
	if resp.Error != nil {
		return MapError(resp.Error)
	}

	value, err := decodeResult(resp.Result)
	if err != nil {
		return MapError(&jsonrpc.ProtocolError{
			Reason: fmt.Sprintf("decode %s result: %v", d.Remote(), err),
			Body:   string(resp.Result),
		})
	}
	return success(d.Mutating, d.ResultField, value)
}

// decodeResult keeps numbers as json.Number so ids and large integers survive unchanged.
func decodeResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// MapError classifies err into a failed outcome.
func MapError(err error) Outcome {
	var (
		fault     *jsonrpc.Fault
		authErr   *odoo.AuthenticationError
		transport *jsonrpc.TransportError
		protocol  *jsonrpc.ProtocolError
		validErr  *odoo.ValidationError
		paramErr  *ParamError
	)

	report := &FailureReport{Message: err.Error()}
	switch {
	case errors.As(err, &fault):
		// The report carries the remote message, code and data verbatim; msg gets the
		// readable rendering with data.message and data.debug appended.
		out := failure(&FailureReport{
			Kind:    KindRemote,
			Message: fault.Message,
			Code:    fault.Code,
			Detail:  fault.Data,
		})
		out.Msg = fault.Error()
		return out
	case errors.As(err, &authErr):
		report.Kind = KindAuthentication
	case errors.As(err, &transport):
		report.Kind = KindTransport
	case errors.As(err, &protocol):
		report.Kind = KindProtocol
	case errors.As(err, &validErr), errors.As(err, &paramErr):
		report.Kind = KindInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Kind = KindTransport
	default:
		report.Kind = KindInternal
	}
	return failure(report)
}
