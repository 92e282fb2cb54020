// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import "fmt"

// ErrorKind discriminates failed capability checks.
type ErrorKind string

const (
	ModelNotSupported    ErrorKind = "MODEL_NOT_SUPPORTED"
	EncodingNotSupported ErrorKind = "ENCODING_NOT_SUPPORTED"
)

// String returns the kind token.
func (k ErrorKind) String() string {
	return string(k)
}

// CheckError is a failed CheckResult as an error, for callers that prefer
// errors.As over inspecting the result.
type CheckError struct {
	Kind    ErrorKind
	Message string
}

// Error returns "KIND: message".
func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
