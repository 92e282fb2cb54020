// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"strings"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/pkg/api"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// MaxPathLength is the maximum length of a single gNMI path.
const MaxPathLength = 1024

// validatePaths checks that paths is non-empty and that every path is
// absolute, module-qualified or a CLIPath, within MaxPathLength and free of
// NUL bytes and "/../" segments.
func validatePaths(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("paths cannot be empty")
	}

	for i, path := range paths {
		if path == "" {
			return fmt.Errorf("path cannot be empty (at index %d)", i)
		}
		if len(path) > MaxPathLength {
			return fmt.Errorf("path at index %d exceeds maximum length of %d characters: %s",
				i, MaxPathLength, truncatePath(path))
		}
		if !isValidGNMIPath(path) {
			return fmt.Errorf("path at index %d must start with '/' or be module-qualified (module:/path): %s", i, path)
		}
		if err := checkPathSecurity(path); err != nil {
			return fmt.Errorf("path at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// validateEncoding accepts "" (json_ietf) and ValidEncodings.
func validateEncoding(encoding string) error {
	if encoding == "" {
		return nil
	}
	return ValidateEncoding(encoding)
}

func checkPathSecurity(path string) error {
	if i := strings.IndexByte(path, 0); i >= 0 {
		return fmt.Errorf("path contains null byte at position %d", i)
	}
	// ".." alone is a legal relative reference; "/../" is not.
	if i := strings.Index(path, "/../"); i >= 0 {
		return fmt.Errorf("path contains suspicious traversal pattern '/../' at position %d", i)
	}
	return nil
}

func truncatePath(path string) string {
	if len(path) <= 100 {
		return path
	}
	return path[:100] + "..."
}

// isValidGNMIPath accepts "/a/b", "module:/a/b" and "cli:<command>".
func isValidGNMIPath(path string) bool {
	if path == "" {
		return false
	}
	if path[0] == '/' {
		return true
	}
	if _, ok := cliCommand(path); ok {
		return true
	}
	colon := strings.IndexByte(path, ':')
	if colon > 0 && colon < len(path)-1 {
		return path[colon+1] == '/'
	}
	return false
}

// Get performs a gNMI Get for one or more paths.
//
// The request encoding defaults to json_ietf and can be changed with
// GetEncoding. Transient gRPC failures (see TransientErrors) are retried up
// to MaxRetries times with exponential backoff; Unavailable and
// DeadlineExceeded additionally re-dial the target before the next attempt.
//
// Timeout priority for each attempt:
//  1. Timeout request modifier
//  2. deadline already set on ctx
//  3. Client.OperationTimeout
//
// Example:
//
//	res, err := client.Get(ctx, []string{
//	    "openconfig-network-instance:/network-instances/network-instance[name=*]/mpls",
//	})
//	if err != nil {
//	    return err
//	}
//	for _, u := range res.Updates() {
//	    fmt.Println(u.Path, string(u.Val))
//	}
func (c *Client) Get(ctx context.Context, paths []string, mods ...func(*Req)) (GetRes, error) {
	if err := validatePaths(paths); err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("get: %w", err)
	}

	req := &Req{Encoding: EncodingJSONIETF}
	for _, mod := range mods {
		mod(req)
	}
	if err := validateEncoding(req.Encoding); err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, fmt.Errorf("get: %w", err)
	}

	if err := checkContextCancellation(ctx); err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}}, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}},
			fmt.Errorf("get: connection failed: %w", err)
	}

	_, callerDeadline := ctx.Deadline()

	// Bound the whole call, including backoff, so retries cannot pile up.
	totalTimeout := c.calculateTotalTimeout()
	c.logger.Debug(ctx, "applying total timeout budget",
		"totalTimeout", totalTimeout.String(),
		"maxRetries", c.MaxRetries,
		"target", c.Target)
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	opts := []api.GNMIOption{api.Encoding(req.Encoding)}
	for _, p := range paths {
		opts = append(opts, getPath(p))
	}
	getReq, err := api.NewGetRequest(opts...)
	if err != nil {
		c.logger.Error(ctx, "gNMI Get request creation failed",
			"target", c.Target,
			"error", err.Error())
		return GetRes{Errors: []ErrorModel{{Message: err.Error()}}},
			fmt.Errorf("get: failed to create request: %w", err)
	}

	c.logger.Debug(ctx, "gNMI Get request",
		"target", c.Target,
		"paths", strings.Join(paths, ","),
		"encoding", req.Encoding)

	var (
		resp    *gnmipb.GetResponse
		lastErr error
		attempt int
	)
	for attempt = 0; attempt <= c.MaxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			return GetRes{Errors: []ErrorModel{{Message: "context canceled: " + err.Error()}}},
				fmt.Errorf("get: %w", err)
		}

		c.mu.RLock()
		t := c.target
		c.mu.RUnlock()
		if t == nil {
			return GetRes{Errors: []ErrorModel{{Message: ErrNotConnected.Error()}}},
				fmt.Errorf("get: %w", ErrNotConnected)
		}

		attemptCtx, attemptCancel := c.createAttemptContext(ctx, req, callerDeadline)
		resp, lastErr = t.Get(attemptCtx, getReq)
		attemptCancel()
		if lastErr == nil {
			break
		}

		if !c.checkTransientError(lastErr) || attempt >= c.MaxRetries {
			break
		}

		if c.needsReconnect(lastErr) {
			c.mu.Lock()
			rerr := c.reconnect(ctx)
			c.mu.Unlock()
			if rerr != nil {
				c.logger.Error(ctx, "gNMI reconnection failed",
					"target", c.Target,
					"error", rerr.Error())
				return GetRes{Errors: []ErrorModel{{Message: "operation failed and reconnection failed: " + rerr.Error()}}},
					fmt.Errorf("get: reconnection failed: %w", rerr)
			}
		}

		backoff := c.Backoff(attempt)
		c.logger.Warn(ctx, "transient error, retrying",
			"operation", "get",
			"attempt", attempt+1,
			"max_retries", c.MaxRetries,
			"backoff", backoff.String(),
			"error", lastErr.Error())

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return GetRes{Errors: []ErrorModel{{Message: "context canceled during backoff: " + ctx.Err().Error()}}},
				fmt.Errorf("get: context canceled during backoff: %w", ctx.Err())
		}
	}

	if lastErr != nil {
		c.logger.Error(ctx, "gNMI Get failed",
			"target", c.Target,
			"error", lastErr.Error())
		ge := newGnmiError("get", lastErr, attempt, c.checkTransientError(lastErr))
		return GetRes{Errors: extractErrorDetails(lastErr)}, ge
	}

	c.logger.Debug(ctx, "gNMI Get response",
		"target", c.Target,
		"notifications", len(resp.GetNotification()))
	for i, n := range resp.GetNotification() {
		if b, err := protojson.Marshal(n); err == nil {
			c.logger.Debug(ctx, "gNMI Get notification",
				"index", i,
				"timestamp", n.GetTimestamp(),
				"updates", len(n.GetUpdate()),
				"notification", c.prepareJSONForLogging(string(b)))
		}
	}

	return GetRes{
		Notifications: resp.GetNotification(),
		Timestamp:     time.Now().UnixNano(),
		OK:            true,
	}, nil
}

// calculateTotalTimeout is OperationTimeout plus the backoff of every
// possible retry.
func (c *Client) calculateTotalTimeout() time.Duration {
	total := c.OperationTimeout
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		total += c.Backoff(attempt)
	}
	return total
}

// checkContextCancellation returns ctx.Err() without blocking.
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// createAttemptContext derives the context for one attempt. callerDeadline
// reports whether the caller's context carried a deadline before Get added
// its own budget. The caller must call the returned cancel function as soon
// as the attempt is done.
func (c *Client) createAttemptContext(ctx context.Context, req *Req, callerDeadline bool) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		if req.Timeout < time.Second {
			c.logger.Warn(ctx, "request timeout is very short (may not complete)",
				"timeout", req.Timeout.String(),
				"target", c.Target)
		} else if req.Timeout > 5*time.Minute {
			c.logger.Warn(ctx, "request timeout is very long (may delay error detection)",
				"timeout", req.Timeout.String(),
				"target", c.Target)
		}
		return context.WithTimeout(ctx, req.Timeout)
	}
	if callerDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}

func extractErrorDetails(err error) []ErrorModel {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return []ErrorModel{{
			Code:    uint32(st.Code()),
			Message: st.Message(),
			Details: st.String(),
		}}
	}
	return []ErrorModel{{Message: err.Error()}}
}
