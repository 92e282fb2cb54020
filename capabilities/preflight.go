// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"context"

	"github.com/netascode/go-gnmi-buddy/inventory"
	log "github.com/sirupsen/logrus"
)

// Request defaults.
const (
	DefaultRequestEncoding = string(EncodingJSONIETF)
	DefaultDataType        = "all"
)

// Request describes a Get about to be sent to a device.
type Request struct {
	Paths    []string
	Prefix   string
	Encoding string
	DataType string
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// RequestEncoding sets the requested encoding. An empty value asks for the
// best encoding the device supports.
func RequestEncoding(enc string) RequestOption {
	return func(r *Request) { r.Encoding = enc }
}

// RequestPrefix sets the path prefix.
func RequestPrefix(prefix string) RequestOption {
	return func(r *Request) { r.Prefix = prefix }
}

// RequestDataType sets the Get data type (all, config, state, operational).
func RequestDataType(dt string) RequestOption {
	return func(r *Request) { r.DataType = dt }
}

// NewRequest returns a Request for paths with encoding json_ietf and data
// type "all".
func NewRequest(paths []string, opts ...RequestOption) Request {
	r := Request{
		Paths:    paths,
		Encoding: DefaultRequestEncoding,
		DataType: DefaultDataType,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Preflight checks req against the capabilities of dev, using the cache
// when warm and fetching once otherwise. The error is only set when the
// capabilities could not be fetched.
func Preflight(ctx context.Context, svc *Service, checker *Checker, dev inventory.Device, req Request) (CheckResult, error) {
	caps, ok := svc.Cached(dev)
	if !ok {
		var err error
		caps, err = svc.fetch(ctx, dev)
		if err != nil {
			svc.Metrics().preflight(OutcomeTransportError)
			return CheckResult{}, err
		}
	}

	res := checker.CheckWithCapabilities(caps, req.Paths, req.Encoding)
	svc.Metrics().preflight(preflightOutcome(res))

	entry := log.WithFields(log.Fields{
		"device":   dev.Name,
		"success":  res.Success,
		"encoding": res.SelectedEncoding,
	})
	switch {
	case !res.Success:
		entry.WithField("error_type", res.ErrorKind).Info(res.ErrorMessage)
	case len(res.Warnings) > 0:
		for _, w := range res.Warnings {
			entry.Warn(w)
		}
	default:
		entry.Debug("preflight passed")
	}
	return res, nil
}

// EffectiveEncoding is the encoding to use for req after a preflight: the
// selected one on success, the requested one otherwise.
func EffectiveEncoding(res CheckResult, req Request) string {
	if res.Success && res.SelectedEncoding != EncodingUnknown {
		return string(res.SelectedEncoding)
	}
	return req.Encoding
}

// ErrorDetails returns the kind and message of a failed result, defaulting
// to ModelNotSupported and "Preflight failed".
func ErrorDetails(res CheckResult) (ErrorKind, string) {
	kind := res.ErrorKind
	if kind == "" {
		kind = ModelNotSupported
	}
	msg := res.ErrorMessage
	if msg == "" {
		msg = "Preflight failed"
	}
	return kind, msg
}
