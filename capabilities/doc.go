// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package capabilities negotiates what a device can serve before gnmibuddy
// asks it for data.
//
// A Service fetches the Capabilities RPC once per device and caches the
// result in a Repository. A Checker compares that cached view with a
// request: it picks a wire encoding through the encoding policy, infers the
// OpenConfig models the request paths need and verifies that the device
// advertises them, warning when a model is older than expected.
//
//	svc := capabilities.NewService(transport)
//	checker := capabilities.NewChecker(svc)
//
//	req := capabilities.NewRequest([]string{"openconfig-network-instance:/network-instances"})
//	res, err := capabilities.Preflight(ctx, svc, checker, dev, req)
//	if err != nil {
//	    return err // transport failure
//	}
//	if !res.Success {
//	    kind, msg := capabilities.ErrorDetails(res)
//	    ...
//	}
//	enc := capabilities.EffectiveEncoding(res, req)
//
// Failed checks are results, not errors. Only transport failures are
// returned as Go errors.
package capabilities
