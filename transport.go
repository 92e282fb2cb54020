// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/netascode/go-gnmi-buddy/inventory"
)

// Transport hands out one Client per inventory device and implements the
// fetch interfaces used by the capability and collector layers.
//
// Clients are created lazily on first use and kept until Close. Transport is
// safe for concurrent use.
type Transport struct {
	mu      sync.Mutex
	clients map[string]deviceClient

	logger Logger
	opts   []func(*Client)

	// newClient is replaced in tests.
	newClient func(dev inventory.Device, opts ...func(*Client)) (deviceClient, error)
}

// deviceClient is the part of *Client used by Transport.
type deviceClient interface {
	Capabilities(ctx context.Context) (CapabilitiesRes, error)
	Get(ctx context.Context, paths []string, mods ...func(*Req)) (GetRes, error)
	Close() error
}

// NewTransport returns a Transport. opts are applied to every Client after
// the per-device settings, so they can override them.
func NewTransport(logger Logger, opts ...func(*Client)) *Transport {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Transport{
		clients:   make(map[string]deviceClient),
		logger:    logger,
		opts:      opts,
		newClient: newDeviceClient,
	}
}

// ClientOptions translates an inventory device into client options.
func ClientOptions(dev inventory.Device) []func(*Client) {
	opts := []func(*Client){
		Port(dev.Port),
		ConnectTimeout(dev.Timeout()),
		OperationTimeout(dev.Timeout()),
		TLS(!dev.Insecure),
		VerifyCertificate(!dev.SkipVerify),
	}
	if dev.Username != "" {
		opts = append(opts, Username(dev.Username))
	}
	if dev.Password != "" {
		opts = append(opts, Password(dev.Password))
	}
	if dev.PathCert != "" {
		opts = append(opts, TLSCert(dev.PathCert), TLSKey(dev.PathKey))
	}
	if dev.PathRoot != "" {
		opts = append(opts, TLSCA(dev.PathRoot))
	}
	return opts
}

func newDeviceClient(dev inventory.Device, opts ...func(*Client)) (deviceClient, error) {
	c, err := NewClient(dev.IPAddress, append(ClientOptions(dev), opts...)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// clientKey includes the device name so two inventory entries sharing an
// address keep their own credentials.
func clientKey(dev inventory.Device) string {
	return dev.Name + "|" + dev.IPAddress + ":" + strconv.Itoa(dev.Port)
}

func (t *Transport) client(dev inventory.Device) (deviceClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clients == nil {
		return nil, ErrNotConnected
	}
	key := clientKey(dev)
	if c, ok := t.clients[key]; ok {
		return c, nil
	}

	opts := append([]func(*Client){WithLogger(t.logger)}, t.opts...)
	c, err := t.newClient(dev, opts...)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dev.Name, err)
	}
	t.clients[key] = c
	return c, nil
}

// FetchCapabilities runs the Capabilities RPC against dev.
func (t *Transport) FetchCapabilities(ctx context.Context, dev inventory.Device) (CapabilitiesRes, error) {
	c, err := t.client(dev)
	if err != nil {
		return CapabilitiesRes{}, err
	}
	return c.Capabilities(ctx)
}

// FetchData runs a Get for paths against dev and returns the flattened
// updates. It returns ErrNoData when the device answered without updates.
func (t *Transport) FetchData(ctx context.Context, dev inventory.Device, paths []string, encoding string) ([]Update, error) {
	c, err := t.client(dev)
	if err != nil {
		return nil, err
	}
	res, err := c.Get(ctx, paths, GetEncoding(encoding))
	if err != nil {
		return nil, err
	}
	updates := res.Updates()
	if len(updates) == 0 {
		return nil, ErrNoData
	}
	t.logger.Debug(ctx, "fetched data",
		"device", dev.Name,
		"paths", len(paths),
		"updates", len(updates))
	return updates, nil
}

// Forget closes and drops the cached client of dev, if any.
func (t *Transport) Forget(dev inventory.Device) error {
	t.mu.Lock()
	key := clientKey(dev)
	c, ok := t.clients[key]
	delete(t.clients, key)
	t.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Close()
}

// Close closes every client. The Transport cannot be used afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	cached := t.clients
	t.clients = nil
	t.mu.Unlock()

	var errs []error
	for key, c := range cached {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
