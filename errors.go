// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNoData is returned by FetchData when the device answered but the
// response carried no updates.
var ErrNoData = errors.New("no data returned from device")

// ErrNotConnected is returned when an RPC is attempted on a closed client.
var ErrNotConnected = errors.New("client not connected")

// GnmiError is the structured failure of a transport operation.
type GnmiError struct {
	// Operation that failed: "capabilities" or "get"
	Operation string

	// Errors holds the gRPC status details, if any
	Errors []ErrorModel

	// Message is safe to show to users
	Message string

	// InternalMsg carries details meant for server-side logs only
	InternalMsg string

	// Retries is the number of retry attempts made
	Retries int

	// IsTransient reports whether the final error was considered transient
	IsTransient bool

	// Err is the underlying error
	Err error
}

// Error implements the error interface.
func (e *GnmiError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("gnmi: %s failed: %s (retries: %d)", e.Operation, e.Message, e.Retries)
	}
	return fmt.Sprintf("gnmi: %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *GnmiError) Unwrap() error {
	return e.Err
}

// DetailedError includes InternalMsg. Only use it where disclosing
// internal details is acceptable.
func (e *GnmiError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	if e.Retries > 0 {
		return fmt.Sprintf("gnmi: %s failed: %s (internal: %s, retries: %d)",
			e.Operation, e.Message, e.InternalMsg, e.Retries)
	}
	return fmt.Sprintf("gnmi: %s failed: %s (internal: %s)",
		e.Operation, e.Message, e.InternalMsg)
}

// Code returns the gRPC code of the first error model, or codes.Unknown.
func (e *GnmiError) Code() codes.Code {
	if len(e.Errors) == 0 {
		return codes.Unknown
	}
	return codes.Code(e.Errors[0].Code)
}

// ErrorModel is one gRPC status entry.
type ErrorModel struct {
	Code    uint32
	Message string
	Details string
}

// TransientError matches a gRPC status code that is worth retrying.
type TransientError struct {
	Code uint32
}

// TransientErrors lists the gRPC codes retried by Get.
//
// codes.Internal is deliberately absent: it is a catch-all that mostly
// signals permanent failures.
var TransientErrors = []TransientError{
	{Code: uint32(codes.Unavailable)},
	{Code: uint32(codes.ResourceExhausted)},
	{Code: uint32(codes.DeadlineExceeded)},
	{Code: uint32(codes.Aborted)},
}

// IsTransportError reports whether err originated in the transport layer:
// a GnmiError, a gRPC status, ErrNoData, ErrNotConnected, or a context
// deadline.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var ge *GnmiError
	if errors.As(err, &ge) {
		return true
	}
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrNotConnected) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	_, ok := status.FromError(err)
	return ok
}

// newGnmiError builds a GnmiError from a raw RPC error.
func newGnmiError(op string, err error, retries int, transient bool) *GnmiError {
	ge := &GnmiError{
		Operation:   op,
		Message:     "request failed",
		Retries:     retries,
		IsTransient: transient,
		Err:         err,
	}
	if st, ok := status.FromError(err); ok {
		ge.Errors = []ErrorModel{{
			Code:    uint32(st.Code()),
			Message: st.Message(),
			Details: st.String(),
		}}
		ge.Message = fmt.Sprintf("%s: %s", st.Code(), st.Message())
		ge.InternalMsg = st.String()
	} else if err != nil {
		ge.Errors = []ErrorModel{{Message: err.Error()}}
		ge.Message = err.Error()
	}
	return ge
}
