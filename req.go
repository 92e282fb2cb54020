// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import "time"

// Req holds per-request settings applied through modifiers.
//
// Example:
//
//	res, err := client.Get(ctx, paths,
//	    gnmi.GetEncoding("ascii"),
//	    gnmi.Timeout(30*time.Second))
type Req struct {
	// Encoding defaults to json_ietf.
	Encoding string

	// Timeout overrides the client OperationTimeout for one attempt.
	Timeout time.Duration
}
