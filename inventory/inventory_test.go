// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
- name: xrd-1
  ip_address: 10.10.20.101
  port: 57777
  nos: iosxr
  username: admin
  password: secret
- name: xrd-2
  ip_address: 10.10.20.102
  nos: iosxr
`

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantErr   bool
		wantCount int
	}{
		{name: "yaml list", data: sampleYAML, wantCount: 2},
		{
			name:      "json list",
			data:      `[{"name":"r1","ip_address":"192.0.2.1","port":830,"nos":"iosxr"}]`,
			wantCount: 1,
		},
		{
			name:      "devices mapping",
			data:      "devices:\n  - name: r1\n    ip_address: 192.0.2.1\n",
			wantCount: 1,
		},
		{name: "empty", data: "", wantErr: true},
		{name: "missing ip", data: "- name: r1\n", wantErr: true},
		{name: "missing name", data: "- ip_address: 192.0.2.1\n", wantErr: true},
		{name: "bad port", data: "- name: r1\n  ip_address: 192.0.2.1\n  port: 70000\n", wantErr: true},
		{
			name:    "duplicate name",
			data:    "- name: r1\n  ip_address: 192.0.2.1\n- name: r1\n  ip_address: 192.0.2.2\n",
			wantErr: true,
		},
		{
			name:    "cert without key",
			data:    "- name: r1\n  ip_address: 192.0.2.1\n  path_cert: /tmp/c.pem\n",
			wantErr: true,
		},
		{name: "not yaml", data: "{{{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Parse([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if inv.Len() != tt.wantCount {
				t.Errorf("Len() = %d, want %d", inv.Len(), tt.wantCount)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	inv, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	dev, err := inv.Find("xrd-2")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if dev.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", dev.Port, DefaultPort)
	}
	if dev.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", dev.Timeout())
	}
	if dev.Address() != "10.10.20.102:57400" {
		t.Errorf("Address() = %q", dev.Address())
	}

	first, _ := inv.Find("xrd-1")
	if first.Port != 57777 || first.Username != "admin" {
		t.Errorf("xrd-1 = %+v", first)
	}
	if _, ok := first.Info()["password"]; ok {
		t.Error("Info() must not expose the password")
	}
}

func TestFindAndSelect(t *testing.T) {
	inv, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if _, err := inv.Find("nope"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Find(nope) error = %v, want ErrDeviceNotFound", err)
	}

	devs, err := inv.Select([]string{"xrd-2", "xrd-1"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if devs[0].Name != "xrd-2" || devs[1].Name != "xrd-1" {
		t.Errorf("Select() order = %s,%s", devs[0].Name, devs[1].Name)
	}
	if _, err := inv.Select([]string{"xrd-1", "nope"}); err == nil {
		t.Error("Select() with unknown name should fail")
	}

	names := inv.Names()
	if len(names) != 2 || names[0] != "xrd-1" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLoadAndResolvePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if inv.Len() != 2 {
		t.Errorf("Len() = %d, want 2", inv.Len())
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}

	t.Setenv(EnvInventory, "")
	if _, err := ResolvePath(""); !errors.Is(err, ErrNoInventory) {
		t.Errorf("ResolvePath(\"\") error = %v, want ErrNoInventory", err)
	}
	if got, _ := ResolvePath("x.yaml"); got != "x.yaml" {
		t.Errorf("ResolvePath(x.yaml) = %q", got)
	}
	t.Setenv(EnvInventory, path)
	if got, _ := ResolvePath(""); got != path {
		t.Errorf("ResolvePath from env = %q, want %q", got, path)
	}
}
