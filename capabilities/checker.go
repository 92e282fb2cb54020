// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"context"
	"fmt"

	"github.com/netascode/go-gnmi-buddy/inventory"
)

const olderModelGuidance = "; some collectors may not work correctly. Consider updating the device's OpenConfig model/version."

// CheckResult is the outcome of a capability check. On success
// SelectedEncoding is always set; on failure ErrorKind and ErrorMessage
// are.
type CheckResult struct {
	Success          bool      `json:"success"`
	Warnings         []string  `json:"warnings,omitempty"`
	SelectedEncoding Encoding  `json:"selected_encoding,omitempty"`
	UsedFallback     bool      `json:"used_fallback,omitempty"`
	ErrorKind        ErrorKind `json:"error_type,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// Err returns nil for a successful result and a *CheckError otherwise.
func (r CheckResult) Err() error {
	if r.Success {
		return nil
	}
	kind, msg := ErrorDetails(r)
	return &CheckError{Kind: kind, Message: msg}
}

// Checker validates requests against device capabilities.
type Checker struct {
	service   *Service
	inspector *Inspector
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithInspector replaces the default Inspector.
func WithInspector(i *Inspector) CheckerOption {
	return func(c *Checker) {
		if i != nil {
			c.inspector = i
		}
	}
}

// NewChecker returns a Checker that reads capabilities through service.
func NewChecker(service *Service, opts ...CheckerOption) *Checker {
	c := &Checker{service: service, inspector: NewInspector()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches (or reuses) the capabilities of dev and checks paths and
// the requested encoding against them. The error is only set when the
// capabilities could not be fetched.
func (c *Checker) Check(ctx context.Context, dev inventory.Device, paths []string, requested string) (CheckResult, error) {
	caps, err := c.service.GetOrFetch(ctx, dev)
	if err != nil {
		return CheckResult{}, err
	}
	return c.CheckWithCapabilities(caps, paths, requested), nil
}

// CheckWithCapabilities checks without any I/O. The encoding is resolved
// first; a failure there is reported on its own. Model requirements are
// then checked in order and the first missing model fails the check.
// Models older than required only add a warning.
func (c *Checker) CheckWithCapabilities(caps DeviceCapabilities, paths []string, requested string) CheckResult {
	selected, usedFallback := ChooseEncoding(requested, caps.EncodingTokens())
	if selected == EncodingUnknown {
		shown := requested
		if shown == "" {
			shown = "default"
		}
		return CheckResult{
			ErrorKind:    EncodingNotSupported,
			ErrorMessage: fmt.Sprintf("Requested encoding '%s' is not supported by device", shown),
		}
	}

	var warnings []string
	for _, req := range c.inspector.Infer(paths) {
		present, older := caps.HasModel(req)
		if !present {
			return CheckResult{
				ErrorKind:    ModelNotSupported,
				ErrorMessage: fmt.Sprintf("Required model '%s' not supported by device", req),
			}
		}
		if older {
			have := "unknown"
			if m, ok := caps.FindModel(req.Name); ok && m.Version != "" {
				have = m.Version
			}
			warnings = append(warnings, fmt.Sprintf(
				"Model '%s' is older than required (device has %s < %s)%s",
				req.Name, have, req.MinimumVersion, olderModelGuidance))
		}
	}

	return CheckResult{
		Success:          true,
		Warnings:         warnings,
		SelectedEncoding: selected,
		UsedFallback:     usedFallback,
	}
}
