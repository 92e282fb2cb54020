// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package collector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netascode/go-gnmi-buddy/inventory"
)

// Operation names a collector run.
type Operation string

const (
	OpCapabilities Operation = "capabilities"
	OpVRF          Operation = "vrf"
	OpMPLS         Operation = "mpls"
	OpBGP          Operation = "bgp"
	OpISIS         Operation = "isis"
	OpInterfaces   Operation = "interfaces"
	OpSystem       Operation = "system"
	OpLogs         Operation = "logs"
	OpProfile      Operation = "profile"
	OpNeighbors    Operation = "neighbors"
	OpAdjacency    Operation = "adjacency"
	OpPath         Operation = "path"
)

// Status is the outcome of a collector run.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusFailed              Status = "failed"
	StatusFeatureNotAvailable Status = "feature_not_available"
)

// Error types set by the collector itself. Failed preflights use the
// capability error kinds.
const (
	ErrorTypeTransport           = "TRANSPORT_ERROR"
	ErrorTypeNoData              = "NO_DATA"
	ErrorTypeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	ErrorTypeCancelled           = "CANCELLED"
	ErrorTypeTopology            = "TOPOLOGY_ERROR"
)

// ErrorInfo describes why a run did not succeed.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result is the outcome of one operation against one device.
type Result struct {
	Device    string
	IPAddress string
	NOS       string
	Operation Operation
	Status    Status

	// Data is the normalized record, nil unless the device answered.
	Data     any
	Summary  string
	Warnings []string
	Error    *ErrorInfo

	// Encoding is the encoding the Get was sent with.
	Encoding  string
	RequestID string
	Duration  time.Duration
}

type requestIDKey struct{}

// ContextWithRequestID makes results created under ctx carry id instead of
// a fresh uuid.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func newResult(ctx context.Context, dev inventory.Device, op Operation) Result {
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		id = uuid.NewString()
	}
	return Result{
		Device:    dev.Name,
		IPAddress: dev.IPAddress,
		NOS:       dev.NOS,
		Operation: op,
		RequestID: id,
	}
}

// OK reports whether the run succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func (r *Result) fail(status Status, errType, msg string) {
	r.Status = status
	r.Error = &ErrorInfo{Type: errType, Message: msg}
}

// JSON renders the result. Empty optional fields are left out.
func (r Result) JSON() (string, error) {
	doc := Document{}.
		SetIf(r.Device != "", "device", r.Device).
		SetIf(r.IPAddress != "", "ip_address", r.IPAddress).
		SetIf(r.NOS != "", "nos", r.NOS).
		Set("operation", string(r.Operation)).
		Set("status", string(r.Status)).
		Set("request_id", r.RequestID).
		Set("duration_ms", r.Duration.Milliseconds()).
		SetIf(r.Encoding != "", "encoding", r.Encoding).
		SetIf(len(r.Warnings) > 0, "warnings", r.Warnings).
		SetIf(r.Summary != "", "summary", r.Summary).
		SetIf(r.Data != nil, "data", r.Data)
	if r.Error != nil {
		doc = doc.Set("error.type", r.Error.Type).Set("error.message", r.Error.Message)
	}
	return doc.String()
}
