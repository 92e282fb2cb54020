// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/openconfig/gnmic/pkg/api"
	target "github.com/openconfig/gnmic/pkg/api/target"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Default client configuration values
const (
	DefaultPort               = 57400
	DefaultMaxRetries         = 3
	DefaultBackoffMinDelay    = 1 * time.Second
	DefaultBackoffMaxDelay    = 60 * time.Second
	DefaultBackoffDelayFactor = 2
	DefaultConnectTimeout     = 30 * time.Second
	DefaultOperationTimeout   = 15 * time.Second
	DefaultUseTLS             = true
	DefaultVerifyCertificate  = true
	DefaultPrettyPrintLogs    = true
)

// Limits applied before JSON is redacted and logged.
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024
	MaxSensitiveFields    = 1000
)

const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveJSONFields are redacted from logged JSON payloads.
var sensitiveJSONFields = []string{"password", "secret", "key", "community", "token", "auth"}

var defaultRedactionPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(sensitiveJSONFields))
	for _, f := range sensitiveJSONFields {
		out = append(out, regexp.MustCompile(`"`+f+`"\s*:\s*"[^"]*"`))
	}
	return out
}()

// Client talks gNMI to a single device.
//
// The gnmic target is configured by NewClient but the gRPC connection is
// only dialled on the first RPC. Capabilities and Get are safe for
// concurrent use.
type Client struct {
	target    *target.Target
	connected bool

	mu sync.RWMutex

	Target   string
	Port     int
	username string
	password string

	tlsCert string
	tlsKey  string
	tlsCA   string

	UseTLS             bool
	VerifyCertificate  bool
	InsecureSkipVerify bool

	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	// encodings reported by the last Capabilities call
	encodings []string

	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// NewClient validates the configuration and prepares a gnmic target for
// target ("host" or "host:port"). No connection is made.
//
// Example:
//
//	client, err := gnmi.NewClient(
//	    "192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.VerifyCertificate(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	caps, err := client.Capabilities(ctx)
func NewClient(target string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Target:             target,
		Port:               DefaultPort,
		UseTLS:             DefaultUseTLS,
		VerifyCertificate:  DefaultVerifyCertificate,
		ConnectTimeout:     DefaultConnectTimeout,
		OperationTimeout:   DefaultOperationTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		logger:             &NoOpLogger{},
		prettyPrintLogs:    DefaultPrettyPrintLogs,
		redactionPatterns:  defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(client)
	}
	client.InsecureSkipVerify = !client.VerifyCertificate

	if err := client.validateConfig(); err != nil {
		return nil, err
	}
	if err := client.createTarget(); err != nil {
		return nil, err
	}

	client.logger.Debug(context.Background(), "gNMI client created",
		"target", client.Target,
		"port", client.Port)

	return client, nil
}

// Disconnect closes the gRPC connection but keeps the configuration; the
// next RPC reconnects.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return nil
	}
	if err := c.target.Close(); err != nil {
		c.logger.Warn(context.Background(), "gNMI close returned error during disconnect",
			"target", c.Target,
			"error", err.Error())
	}
	c.connected = false
	return nil
}

// Close releases the client for good. Calling it again is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return nil
	}
	t := c.target
	c.target = nil
	c.connected = false

	if err := t.Close(); err != nil {
		return err
	}
	c.logger.Debug(context.Background(), "gNMI client closed", "target", c.Target)
	return nil
}

// SupportsEncoding reports whether the last Capabilities call listed enc.
func (c *Client) SupportsEncoding(enc string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.encodings {
		if e == enc {
			return true
		}
	}
	return false
}

// ServerEncodings returns a copy of the encodings seen in the last
// Capabilities call.
func (c *Client) ServerEncodings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.encodings))
	copy(out, c.encodings)
	return out
}

// HasCredentials reports whether any credential is configured without
// exposing it.
func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username != "" || c.password != "" || c.tlsCert != ""
}

// Backoff returns the delay before retry attempt (0-indexed):
// min(minDelay * factor^attempt, maxDelay) plus up to 10% jitter drawn from
// crypto/rand, falling back to the clock if crypto/rand fails.
func (c *Client) Backoff(attempt int) time.Duration {
	delay := float64(c.BackoffMinDelay) * math.Pow(c.BackoffDelayFactor, float64(attempt))
	if math.IsInf(delay, 1) || delay > float64(c.BackoffMaxDelay) {
		delay = float64(c.BackoffMaxDelay)
	}

	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var buf [8]byte
		var jitter int64
		if _, err := rand.Read(buf[:]); err == nil {
			//nolint:gosec // masked to a positive int64
			jitter = int64(binary.BigEndian.Uint64(buf[:])&0x7FFFFFFFFFFFFFFF) % jitterMax
		} else {
			now := time.Now().UnixNano()
			jitter = (now%jitterMax + jitterMax) % jitterMax
			c.logger.Warn(context.Background(), "crypto/rand failed, using timestamp-based jitter",
				"error", err.Error(),
				"attempt", attempt)
		}
		delay += float64(jitter)
	}

	return time.Duration(delay)
}

// prepareJSONForLogging size-checks, redacts and optionally indents a JSON
// payload before it is logged.
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	count := 0
	for _, f := range sensitiveJSONFields {
		count += strings.Count(jsonStr, `"`+f+`"`)
	}
	if count > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", count,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(jsonStr)
	if !c.prettyPrintLogs {
		return redacted
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(redacted), "", "  "); err != nil {
		return redacted
	}
	return buf.String()
}

// redactSensitiveData replaces the value of every sensitive JSON field with
// "[REDACTED]".
func (c *Client) redactSensitiveData(s string) string {
	for i, pattern := range c.redactionPatterns {
		if i >= len(sensitiveJSONFields) {
			break
		}
		s = pattern.ReplaceAllString(s, `"`+sensitiveJSONFields[i]+`":"[REDACTED]"`)
	}
	return s
}

// checkTransientError reports whether err carries a gRPC code listed in
// TransientErrors.
func (c *Client) checkTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	code := uint32(st.Code())
	for _, pattern := range TransientErrors {
		if pattern.Code == code {
			return true
		}
	}
	return false
}

// needsReconnect reports whether err means the channel itself is broken
// (Unavailable or DeadlineExceeded) and should be re-dialled before a
// retry.
func (c *Client) needsReconnect(err error) bool {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return false
	}
	return st.Code() == codes.Unavailable || st.Code() == codes.DeadlineExceeded
}

func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Target) == "" {
		return fmt.Errorf("target address cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.BackoffMinDelay <= 0 {
		return fmt.Errorf("backoff min delay must be positive, got: %v", c.BackoffMinDelay)
	}
	if c.BackoffMaxDelay <= c.BackoffMinDelay {
		return fmt.Errorf("backoff max delay (%v) must be greater than min delay (%v)",
			c.BackoffMaxDelay, c.BackoffMinDelay)
	}
	if c.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("backoff delay factor must be >= 1.0, got: %f", c.BackoffDelayFactor)
	}

	if c.UseTLS && c.InsecureSkipVerify {
		c.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"target", c.Target)
	}
	if !c.UseTLS {
		c.logger.Warn(context.Background(), "TLS disabled, connection is not encrypted",
			"target", c.Target)
	}

	// Only the base name goes into the error so full paths are not leaked.
	for _, f := range []struct{ kind, path string }{
		{"TLS certificate", c.tlsCert},
		{"TLS key", c.tlsKey},
		{"TLS CA", c.tlsCA},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			c.logger.Debug(context.Background(), f.kind+" validation failed",
				"path", f.path,
				"error", err.Error())
			return fmt.Errorf("%s file not found: %s", f.kind, filepath.Base(f.path))
		}
	}

	if c.username == "" && c.password == "" && c.tlsCert == "" {
		c.logger.Warn(context.Background(), "No credentials configured",
			"target", c.Target)
	}
	return nil
}

// createTarget builds the gnmic target from the configuration. It does not
// dial.
func (c *Client) createTarget() error {
	address := c.Target
	if !strings.Contains(address, ":") {
		address = fmt.Sprintf("%s:%d", address, c.Port)
	}

	opts := []api.TargetOption{
		api.Name(c.Target),
		api.Address(address),
		api.Timeout(c.ConnectTimeout),
		api.Insecure(!c.UseTLS),
		api.SkipVerify(c.InsecureSkipVerify),
	}
	if c.username != "" {
		opts = append(opts, api.Username(c.username))
	}
	if c.password != "" {
		opts = append(opts, api.Password(c.password))
	}
	if c.tlsCert != "" {
		opts = append(opts, api.TLSCert(c.tlsCert))
	}
	if c.tlsKey != "" {
		opts = append(opts, api.TLSKey(c.tlsKey))
	}
	if c.tlsCA != "" {
		opts = append(opts, api.TLSCA(c.tlsCA))
	}

	t, err := api.NewTarget(opts...)
	if err != nil {
		return fmt.Errorf("failed to create gnmic target: %w", err)
	}
	c.target = t
	return nil
}

// ensureConnected dials the target on first use.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return ErrNotConnected
	}
	if c.connected {
		return nil
	}

	c.logger.Debug(ctx, "Establishing gNMI connection", "target", c.Target)
	if err := c.target.CreateGNMIClient(ctx); err != nil {
		return fmt.Errorf("failed to establish connection: %w", err)
	}
	c.connected = true
	c.logger.Info(ctx, "gNMI connection established", "target", c.Target)
	return nil
}

// Capabilities performs the Capabilities RPC and returns the gNMI version,
// the supported encodings as lower-case tokens, and the supported models.
//
// Capabilities is not retried; a failure is returned as *GnmiError.
func (c *Client) Capabilities(ctx context.Context) (CapabilitiesRes, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return CapabilitiesRes{Errors: []ErrorModel{{Message: err.Error()}}}, err
	}
	if err := c.ensureConnected(ctx); err != nil {
		ge := newGnmiError("capabilities", err, 0, false)
		return CapabilitiesRes{Errors: ge.Errors}, ge
	}

	ctx, cancel := context.WithTimeout(ctx, c.OperationTimeout)
	defer cancel()

	c.mu.RLock()
	t := c.target
	c.mu.RUnlock()
	if t == nil {
		ge := newGnmiError("capabilities", ErrNotConnected, 0, false)
		return CapabilitiesRes{Errors: ge.Errors}, ge
	}

	c.logger.Debug(ctx, "gNMI Capabilities request", "target", c.Target)
	resp, err := t.Capabilities(ctx)
	if err != nil {
		ge := newGnmiError("capabilities", err, 0, c.checkTransientError(err))
		c.logger.Error(ctx, "gNMI Capabilities failed",
			"target", c.Target,
			"error", err.Error())
		return CapabilitiesRes{Errors: ge.Errors}, ge
	}

	encs := make([]string, 0, len(resp.GetSupportedEncodings()))
	for _, enc := range resp.GetSupportedEncodings() {
		encs = append(encs, encodingToken(enc))
	}

	c.mu.Lock()
	c.encodings = encs
	c.mu.Unlock()

	c.logger.Debug(ctx, "gNMI Capabilities response",
		"target", c.Target,
		"version", resp.GetGNMIVersion(),
		"encodings", strings.Join(encs, ","),
		"models", len(resp.GetSupportedModels()))

	return CapabilitiesRes{
		Version:   resp.GetGNMIVersion(),
		Encodings: encs,
		Models:    resp.GetSupportedModels(),
		OK:        true,
	}, nil
}

// Ping checks reachability with a Capabilities RPC.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Capabilities(ctx)
	return err
}

// reconnect re-creates and re-dials the target. The caller must hold the
// write lock.
func (c *Client) reconnect(ctx context.Context) error {
	c.logger.Warn(ctx, "gNMI reconnecting", "target", c.Target)

	if c.target != nil {
		_ = c.target.Close() //nolint:errcheck // channel is already broken
	}
	c.connected = false

	if err := c.createTarget(); err != nil {
		return fmt.Errorf("failed to recreate target: %w", err)
	}
	if err := c.target.CreateGNMIClient(ctx); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	c.connected = true
	return nil
}
