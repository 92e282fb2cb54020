// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"context"
	"fmt"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/inventory"
	log "github.com/sirupsen/logrus"
)

// Fetcher performs the Capabilities RPC. *gnmi.Transport implements it.
type Fetcher interface {
	FetchCapabilities(ctx context.Context, dev inventory.Device) (gnmi.CapabilitiesRes, error)
}

// Service returns device capabilities, fetching each device at most once
// per cache lifetime.
type Service struct {
	fetcher Fetcher
	repo    Repository
	metrics *Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRepository replaces the shared DefaultRepository.
func WithRepository(repo Repository) ServiceOption {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithMetrics records cache and fetch counters.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService returns a Service backed by DefaultRepository unless
// WithRepository is given.
func NewService(fetcher Fetcher, opts ...ServiceOption) *Service {
	s := &Service{fetcher: fetcher, repo: DefaultRepository()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the backing store.
func (s *Service) Repository() Repository {
	return s.repo
}

// Metrics returns the configured metrics, possibly nil.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Cached returns the cached capabilities of dev without fetching.
func (s *Service) Cached(dev inventory.Device) (DeviceCapabilities, bool) {
	caps, ok := s.repo.Get(DeviceKey(dev))
	s.metrics.cacheLookup(ok)
	return caps, ok
}

// GetOrFetch returns cached capabilities or performs the RPC and caches
// the result. A failed RPC leaves the cache untouched.
func (s *Service) GetOrFetch(ctx context.Context, dev inventory.Device) (DeviceCapabilities, error) {
	if caps, ok := s.Cached(dev); ok {
		return caps, nil
	}
	return s.fetch(ctx, dev)
}

// fetch performs the RPC and stores the result, skipping the cache lookup.
func (s *Service) fetch(ctx context.Context, dev inventory.Device) (DeviceCapabilities, error) {
	key := DeviceKey(dev)
	logger := log.WithFields(log.Fields{"device": dev.Name, "key": key})
	logger.Debug("fetching capabilities")

	res, err := s.fetcher.FetchCapabilities(ctx, dev)
	s.metrics.fetch(err)
	if err != nil {
		logger.WithError(err).Warn("capabilities request failed")
		return DeviceCapabilities{}, fmt.Errorf("capabilities of %s: %w", dev.Name, err)
	}

	caps := NewDeviceCapabilities(res)
	s.repo.Set(key, caps)
	logger.WithFields(log.Fields{
		"models":    len(caps.Models),
		"encodings": caps.EncodingTokens(),
	}).Debug("capabilities cached")
	return caps, nil
}

// Invalidate drops the cached entry of dev.
func (s *Service) Invalidate(dev inventory.Device) {
	s.repo.Delete(DeviceKey(dev))
}
