// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"strconv"
	"sync"

	"github.com/netascode/go-gnmi-buddy/inventory"
)

// Repository stores capabilities by device key.
type Repository interface {
	Get(key string) (DeviceCapabilities, bool)
	Set(key string, caps DeviceCapabilities)
	Has(key string) bool
	Delete(key string)
	Clear()
	Len() int
}

// DeviceKey returns "nos:ip:port". An empty NOS is keyed as "unknown".
func DeviceKey(dev inventory.Device) string {
	nos := dev.NOS
	if nos == "" {
		nos = "unknown"
	}
	return nos + ":" + dev.IPAddress + ":" + strconv.Itoa(dev.Port)
}

// MemoryRepository is an in-process Repository safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]DeviceCapabilities
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]DeviceCapabilities)}
}

var (
	defaultRepo     *MemoryRepository
	defaultRepoOnce sync.Once
)

// DefaultRepository returns the process-wide repository shared by every
// Service constructed without WithRepository.
func DefaultRepository() *MemoryRepository {
	defaultRepoOnce.Do(func() {
		defaultRepo = NewMemoryRepository()
	})
	return defaultRepo
}

// Get returns the capabilities stored under key.
func (r *MemoryRepository) Get(key string) (DeviceCapabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps, ok := r.entries[key]
	return caps, ok
}

// Set stores caps under key, replacing any previous entry.
func (r *MemoryRepository) Set(key string, caps DeviceCapabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = caps
}

// Has reports whether key is cached.
func (r *MemoryRepository) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Delete drops key.
func (r *MemoryRepository) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Clear drops every entry.
func (r *MemoryRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]DeviceCapabilities)
}

// Len returns the number of cached devices.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
