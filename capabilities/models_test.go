// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	gnmipb "github.com/openconfig/gnmi/proto/gnmi"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

func TestNewDeviceCapabilities(t *testing.T) {
	res := gnmi.CapabilitiesRes{
		Version:   "0.8.0",
		Encodings: []string{"json", "JSON_IETF", "proto", "json", "ascii"},
		Models: []*gnmipb.ModelData{
			{Name: "openconfig-system", Organization: "OpenConfig working group", Version: "0.17.1"},
			nil,
			{Name: "Cisco-IOS-XR-ip-static-cfg"},
		},
		OK: true,
	}

	want := DeviceCapabilities{
		Models: []ModelIdentifier{
			{Name: "openconfig-system", Version: "0.17.1", Organization: "OpenConfig working group"},
			{Name: "Cisco-IOS-XR-ip-static-cfg"},
		},
		Encodings:   []Encoding{EncodingJSON, EncodingJSONIETF, EncodingASCII},
		GNMIVersion: "0.8.0",
	}
	if diff := cmp.Diff(want, NewDeviceCapabilities(res)); diff != "" {
		t.Errorf("NewDeviceCapabilities mismatch (-want +got):\n%s", diff)
	}
}

func TestHasModel(t *testing.T) {
	caps := DeviceCapabilities{Models: []ModelIdentifier{
		{Name: "openconfig-system", Version: "0.17.0"},
		{Name: "openconfig-system", Version: "9.9.9"},
		{Name: "openconfig-interfaces", Version: "2024-01-01"},
		{Name: "openconfig-network-instance"},
		{Name: "openconfig-bgp", Version: "6.1.0"},
	}}

	tests := []struct {
		name        string
		req         ModelRequirement
		wantPresent bool
		wantOlder   bool
	}{
		{"older first match wins", ModelRequirement{"openconfig-system", "0.17.1"}, true, true},
		{"no minimum", ModelRequirement{"openconfig-system", ""}, true, false},
		{"cross-tag is not older", ModelRequirement{"openconfig-interfaces", "4.0.0"}, true, false},
		{"missing version is not older", ModelRequirement{"openconfig-network-instance", "1.3.0"}, true, false},
		{"newer", ModelRequirement{"openconfig-bgp", "6.0.0"}, true, false},
		{"absent", ModelRequirement{"openconfig-mpls", "1.0.0"}, false, false},
		{"case-sensitive", ModelRequirement{"OpenConfig-System", ""}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			present, older := caps.HasModel(tt.req)
			if present != tt.wantPresent || older != tt.wantOlder {
				t.Errorf("HasModel(%v) = (%v, %v), want (%v, %v)", tt.req, present, older, tt.wantPresent, tt.wantOlder)
			}
			if !present && older {
				t.Error("older must never be reported for an absent model")
			}
		})
	}
}

func TestModelStrings(t *testing.T) {
	if got := (ModelRequirement{Name: "openconfig-system", MinimumVersion: "0.17.1"}).String(); got != "openconfig-system>=0.17.1" {
		t.Errorf("got %q", got)
	}
	if got := (ModelRequirement{Name: "openconfig-system"}).String(); got != "openconfig-system" {
		t.Errorf("got %q", got)
	}
	if got := (ModelIdentifier{Name: "m", Version: "1.0.0"}).String(); got != "m@1.0.0" {
		t.Errorf("got %q", got)
	}
	caps := DeviceCapabilities{Models: []ModelIdentifier{{Name: "m"}}, Encodings: []Encoding{EncodingJSON}}
	if got := caps.String(); got != "models=[m] encodings=[json] gnmi=-" {
		t.Errorf("got %q", got)
	}
}

func TestSupportsEncoding(t *testing.T) {
	caps := DeviceCapabilities{Encodings: []Encoding{EncodingJSON}}
	if !caps.SupportsEncoding(EncodingJSON) || caps.SupportsEncoding(EncodingASCII) {
		t.Error("SupportsEncoding mismatch")
	}
	if !caps.SupportsEncoding(EncodingUnknown) {
		t.Error("no preference is always supported")
	}
}

func TestInspectorInfer(t *testing.T) {
	i := NewInspector()

	tests := []struct {
		name  string
		paths []string
		want  []ModelRequirement
	}{
		{
			name:  "module qualified",
			paths: []string{"openconfig-network-instance:/network-instances/network-instance[name=*]/mpls"},
			want:  []ModelRequirement{{"openconfig-network-instance", "1.3.0"}},
		},
		{
			name:  "dedup and order",
			paths: []string{"openconfig-interfaces:/interfaces", "openconfig-system:/system", "openconfig-interfaces:interfaces/interface[name=Gi0]"},
			want:  []ModelRequirement{{"openconfig-interfaces", "4.0.0"}, {"openconfig-system", "0.17.1"}},
		},
		{
			name:  "no colon uses first segment",
			paths: []string{"openconfig-system/system/config", "/openconfig-interfaces/interfaces"},
			want:  []ModelRequirement{{"openconfig-system", "0.17.1"}},
		},
		{
			name:  "unknown dropped",
			paths: []string{"unknown:/x", "/system"},
			want:  nil,
		},
		{
			name:  "empty",
			paths: nil,
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := i.Infer(tt.paths)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Infer mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(got, i.Infer(tt.paths)); diff != "" {
				t.Errorf("Infer not idempotent:\n%s", diff)
			}
		})
	}
}

func TestInspectorCustomTableIsCopied(t *testing.T) {
	table := map[string]string{"openconfig-bgp": "6.0.0"}
	i := NewInspectorWithModels(table)
	table["openconfig-bgp"] = "9.0.0"

	got := i.Infer([]string{"openconfig-bgp:/bgp"})
	if len(got) != 1 || got[0].MinimumVersion != "6.0.0" {
		t.Errorf("got %v", got)
	}
}

func TestExtractModule(t *testing.T) {
	tests := map[string]string{
		"openconfig-system:/system": "openconfig-system",
		" mod :/x":                  "mod",
		"/interfaces/interface":     "",
		"/openconfig-system/system": "",
		"openconfig-system/system":  "openconfig-system",
		" openconfig-system /state": "openconfig-system",
		"":                          "",
		"///":                       "",
	}
	for in, want := range tests {
		if got := ExtractModule(in); got != want {
			t.Errorf("ExtractModule(%q) = %q, want %q", in, got, want)
		}
	}
}
