// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import "testing"

func TestNormalizeEncoding(t *testing.T) {
	tests := []struct {
		in     string
		want   Encoding
		wantOK bool
	}{
		{"json_ietf", EncodingJSONIETF, true},
		{"JSON_IETF", EncodingJSONIETF, true},
		{" Json ", EncodingJSON, true},
		{"ASCII", EncodingASCII, true},
		{"proto", EncodingUnknown, false},
		{"bytes", EncodingUnknown, false},
		{"", EncodingUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeEncoding(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeEncoding(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestChooseEncoding(t *testing.T) {
	tests := []struct {
		name         string
		requested    string
		supported    []string
		want         Encoding
		wantFallback bool
	}{
		{"no request prefers json_ietf", "", []string{"ASCII", "JSON", "JSON_IETF"}, EncodingJSONIETF, false},
		{"no request then json", "", []string{"ascii", "json"}, EncodingJSON, false},
		{"no request then ascii", "", []string{"PROTO", "ASCII"}, EncodingASCII, false},
		{"no request nothing usable", "", []string{"PROTO", "BYTES"}, EncodingUnknown, false},
		{"exact match", "json", []string{"JSON", "JSON_IETF"}, EncodingJSON, false},
		{"exact match case-insensitive request", "JSON_IETF", []string{"json_ietf"}, EncodingJSONIETF, false},
		{"json_ietf falls back to ascii", "json_ietf", []string{"ASCII"}, EncodingASCII, true},
		{"json falls back to ascii", "json", []string{"ascii", "proto"}, EncodingASCII, true},
		{"json_ietf never becomes json", "json_ietf", []string{"JSON"}, EncodingUnknown, false},
		{"json never becomes json_ietf", "json", []string{"JSON_IETF"}, EncodingUnknown, false},
		{"ascii has no fallback", "ascii", []string{"JSON", "JSON_IETF"}, EncodingUnknown, false},
		{"unrecognised request", "proto", []string{"PROTO", "JSON"}, EncodingUnknown, false},
		{"empty supported", "json_ietf", nil, EncodingUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fb := ChooseEncoding(tt.requested, tt.supported)
			if got != tt.want || fb != tt.wantFallback {
				t.Errorf("ChooseEncoding(%q, %v) = (%q, %v), want (%q, %v)",
					tt.requested, tt.supported, got, fb, tt.want, tt.wantFallback)
			}
		})
	}
}
