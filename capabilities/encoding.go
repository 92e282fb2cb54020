// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"strings"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// Encoding is a wire encoding gnmibuddy can negotiate.
type Encoding string

const (
	EncodingJSONIETF Encoding = gnmi.EncodingJSONIETF
	EncodingJSON     Encoding = gnmi.EncodingJSON
	EncodingASCII    Encoding = gnmi.EncodingASCII

	// EncodingUnknown is returned when nothing could be selected.
	EncodingUnknown Encoding = ""
)

// encodingPriority is the order used when the request names no encoding.
var encodingPriority = []Encoding{EncodingJSONIETF, EncodingJSON, EncodingASCII}

// encodingFallbacks lists what may replace an unsupported request.
// json_ietf deliberately has no json fallback.
var encodingFallbacks = map[Encoding][]Encoding{
	EncodingJSONIETF: {EncodingASCII},
	EncodingJSON:     {EncodingASCII},
	EncodingASCII:    nil,
}

// String returns the encoding token.
func (e Encoding) String() string {
	return string(e)
}

// NormalizeEncoding maps a token in any case to an Encoding. The second
// result is false for tokens outside json_ietf, json and ascii.
func NormalizeEncoding(token string) (Encoding, bool) {
	switch Encoding(strings.ToLower(strings.TrimSpace(token))) {
	case EncodingJSONIETF:
		return EncodingJSONIETF, true
	case EncodingJSON:
		return EncodingJSON, true
	case EncodingASCII:
		return EncodingASCII, true
	}
	return EncodingUnknown, false
}

// ChooseEncoding selects the encoding for a request given the tokens the
// device supports. usedFallback is true when the requested encoding was
// replaced by an entry of the fallback table. EncodingUnknown means the
// request cannot be served.
func ChooseEncoding(requested string, supported []string) (selected Encoding, usedFallback bool) {
	set := make(map[Encoding]struct{}, len(supported))
	for _, tok := range supported {
		if enc, ok := NormalizeEncoding(tok); ok {
			set[enc] = struct{}{}
		}
	}

	if strings.TrimSpace(requested) == "" {
		for _, cand := range encodingPriority {
			if _, ok := set[cand]; ok {
				return cand, false
			}
		}
		return EncodingUnknown, false
	}

	req, ok := NormalizeEncoding(requested)
	if !ok {
		return EncodingUnknown, false
	}
	if _, ok := set[req]; ok {
		return req, false
	}
	for _, cand := range encodingFallbacks[req] {
		if _, ok := set[cand]; ok {
			return cand, true
		}
	}
	return EncodingUnknown, false
}
