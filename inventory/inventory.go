// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package inventory loads the list of network devices gnmibuddy talks to.
//
// An inventory is a YAML (or JSON, which is valid YAML) document holding a
// list of devices:
//
//	- name: xrd-1
//	  ip_address: 10.10.20.101
//	  port: 57777
//	  nos: iosxr
//	  username: admin
//	  password: secret
//	  skip_verify: true
//
// The file path is taken from an explicit argument or from the
// NETWORK_INVENTORY environment variable.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvInventory names the environment variable consulted when no inventory
// path is given explicitly.
const EnvInventory = "NETWORK_INVENTORY"

// Default device values applied when the inventory omits them.
const (
	DefaultPort    = 57400
	DefaultTimeout = 5 // seconds
)

// ErrDeviceNotFound is returned by Find when no device has the requested name.
var ErrDeviceNotFound = errors.New("device not found in inventory")

// ErrNoInventory is returned by ResolvePath when neither a path nor the
// environment variable is set.
var ErrNoInventory = errors.New("no inventory file specified: use --inventory or set " + EnvInventory)

// Device describes how to reach a single gNMI target.
type Device struct {
	Name       string `yaml:"name" json:"name"`
	IPAddress  string `yaml:"ip_address" json:"ip_address"`
	Port       int    `yaml:"port" json:"port"`
	NOS        string `yaml:"nos" json:"nos"`
	Username   string `yaml:"username" json:"-"`
	Password   string `yaml:"password" json:"-"`
	PathCert   string `yaml:"path_cert,omitempty" json:"-"`
	PathKey    string `yaml:"path_key,omitempty" json:"-"`
	PathRoot   string `yaml:"path_root,omitempty" json:"-"`
	SkipVerify bool   `yaml:"skip_verify" json:"-"`
	Insecure   bool   `yaml:"insecure" json:"-"`
	// GNMITimeout is the per-request timeout in seconds.
	GNMITimeout int `yaml:"gnmi_timeout" json:"-"`
}

// Timeout returns the per-request timeout as a duration.
func (d Device) Timeout() time.Duration {
	if d.GNMITimeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(d.GNMITimeout) * time.Second
}

// Address returns host:port for the device.
func (d Device) Address() string {
	return fmt.Sprintf("%s:%d", d.IPAddress, d.Port)
}

// Info returns the non-sensitive identity of the device.
func (d Device) Info() map[string]any {
	return map[string]any{
		"name":       d.Name,
		"ip_address": d.IPAddress,
		"port":       d.Port,
		"nos":        d.NOS,
	}
}

// Inventory is an ordered set of devices indexed by name.
type Inventory struct {
	devices []Device
	byName  map[string]int
}

// New builds an inventory from devices, applying defaults and validating
// every entry.
func New(devices []Device) (*Inventory, error) {
	inv := &Inventory{byName: make(map[string]int, len(devices))}
	for i := range devices {
		dev := devices[i]
		applyDefaults(&dev)
		if err := validateDevice(dev); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		if _, dup := inv.byName[dev.Name]; dup {
			return nil, fmt.Errorf("device %s: duplicate name", dev.Name)
		}
		inv.byName[dev.Name] = len(inv.devices)
		inv.devices = append(inv.devices, dev)
	}
	return inv, nil
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}
	return Parse(data)
}

// Parse decodes inventory data. Both a bare list of devices and a mapping
// with a top-level "devices" key are accepted.
func Parse(data []byte) (*Inventory, error) {
	var devices []Device
	if err := yaml.Unmarshal(data, &devices); err != nil {
		var wrapped struct {
			Devices []Device `yaml:"devices"`
		}
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parsing inventory: %w", err)
		}
		devices = wrapped.Devices
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("parsing inventory: no devices defined")
	}
	return New(devices)
}

// ResolvePath returns the inventory path to use: the explicit path if set,
// otherwise the NETWORK_INVENTORY environment variable.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if v := os.Getenv(EnvInventory); v != "" {
		return v, nil
	}
	return "", ErrNoInventory
}

// Find returns the device with the given name.
func (inv *Inventory) Find(name string) (Device, error) {
	i, ok := inv.byName[name]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return inv.devices[i], nil
}

// Select returns the named devices in the order requested.
func (inv *Inventory) Select(names []string) ([]Device, error) {
	out := make([]Device, 0, len(names))
	for _, n := range names {
		dev, err := inv.Find(n)
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	return out, nil
}

// Devices returns a copy of all devices in file order.
func (inv *Inventory) Devices() []Device {
	out := make([]Device, len(inv.devices))
	copy(out, inv.devices)
	return out
}

// Names returns the sorted device names.
func (inv *Inventory) Names() []string {
	names := make([]string, 0, len(inv.devices))
	for _, d := range inv.devices {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of devices.
func (inv *Inventory) Len() int {
	return len(inv.devices)
}

func applyDefaults(d *Device) {
	d.Name = strings.TrimSpace(d.Name)
	d.IPAddress = strings.TrimSpace(d.IPAddress)
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.GNMITimeout == 0 {
		d.GNMITimeout = DefaultTimeout
	}
}

func validateDevice(d Device) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.IPAddress == "" {
		return fmt.Errorf("device %s: ip_address is required", d.Name)
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("device %s: invalid port %d (must be 1-65535)", d.Name, d.Port)
	}
	if d.GNMITimeout < 0 {
		return fmt.Errorf("device %s: gnmi_timeout must be positive, got %d", d.Name, d.GNMITimeout)
	}
	if (d.PathCert == "") != (d.PathKey == "") {
		return fmt.Errorf("device %s: path_cert and path_key must be set together", d.Name)
	}
	return nil
}
