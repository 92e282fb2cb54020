// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
)

// Wire encodings accepted by Get. These are the gNMI Encoding enum names in
// lower case, as gnmic expects them.
const (
	EncodingJSON     = "json"
	EncodingJSONIETF = "json_ietf"
	EncodingProto    = "proto"
	EncodingASCII    = "ascii"
	EncodingBytes    = "bytes"
)

// ValidEncodings contains the encodings the transport can request.
var ValidEncodings = []string{
	EncodingJSON,
	EncodingJSONIETF,
	EncodingProto,
	EncodingASCII,
	EncodingBytes,
}

// ValidateEncoding returns an error unless enc is one of ValidEncodings.
func ValidateEncoding(enc string) error {
	for _, valid := range ValidEncodings {
		if enc == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid encoding: %s (valid values: %s)", enc, strings.Join(ValidEncodings, ", "))
}

// encodingToken converts a gNMI Encoding enum to the lower-case token used
// throughout this module ("JSON_IETF" -> "json_ietf").
func encodingToken(enc gnmipb.Encoding) string {
	return strings.ToLower(enc.String())
}
