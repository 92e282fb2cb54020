// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import "time"

// Client options

// Username sets the username for gNMI authentication.
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the password for gNMI authentication.
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// TLSCert sets the client certificate file. The file must exist when the
// client is created.
func TLSCert(certPath string) func(*Client) {
	return func(c *Client) {
		c.tlsCert = certPath
	}
}

// TLSKey sets the client private key file.
func TLSKey(keyPath string) func(*Client) {
	return func(c *Client) {
		c.tlsKey = keyPath
	}
}

// TLSCA sets the CA bundle used to verify the device certificate.
func TLSCA(caPath string) func(*Client) {
	return func(c *Client) {
		c.tlsCA = caPath
	}
}

// Port sets the gNMI port used when the target has none (default: 57400).
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// TLS enables or disables TLS (default: true).
func TLS(enabled bool) func(*Client) {
	return func(c *Client) {
		c.UseTLS = enabled
	}
}

// VerifyCertificate enables or disables device certificate verification
// (default: true).
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// ConnectTimeout sets the dial timeout (default: 30s).
func ConnectTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = duration
	}
}

// OperationTimeout sets the per-attempt RPC timeout (default: 15s).
func OperationTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = duration
	}
}

// MaxRetries sets how often a transient Get failure is retried (default: 3).
func MaxRetries(retries int) func(*Client) {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// BackoffMinDelay sets the first backoff delay (default: 1s).
func BackoffMinDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMinDelay = duration
	}
}

// BackoffMaxDelay caps the backoff delay (default: 60s).
func BackoffMaxDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMaxDelay = duration
	}
}

// BackoffDelayFactor sets the exponential growth factor (default: 2.0).
func BackoffDelayFactor(factor float64) func(*Client) {
	return func(c *Client) {
		c.BackoffDelayFactor = factor
	}
}

// WithLogger sets the client logger. A nil logger is ignored.
//
// Example:
//
//	client, _ := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.WithLogger(gnmi.NewDefaultLogger(gnmi.LogLevelInfo)))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs indents JSON written to debug logs (default: true).
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// Request modifiers

// Timeout sets a per-attempt timeout for one request. It takes precedence
// over an existing context deadline and over OperationTimeout.
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// GetEncoding sets the encoding of a Get request (default: json_ietf).
//
// Example:
//
//	res, err := client.Get(ctx, []string{"openconfig-system:/system"},
//	    gnmi.GetEncoding("ascii"))
func GetEncoding(encoding string) func(*Req) {
	return func(req *Req) {
		if encoding != "" {
			req.Encoding = encoding
		}
	}
}
