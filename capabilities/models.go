// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"strings"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// ModelIdentifier is a YANG model advertised by a device.
type ModelIdentifier struct {
	Name         string `json:"name"`
	Version      string `json:"version,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Matches compares by name, case-sensitively.
func (m ModelIdentifier) Matches(name string) bool {
	return m.Name == name
}

// String renders the model as name@version, or name without a version.
func (m ModelIdentifier) String() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// ModelRequirement is a model a request depends on, optionally with a
// minimum version.
type ModelRequirement struct {
	Name           string `json:"name"`
	MinimumVersion string `json:"minimum_version,omitempty"`
}

// String renders the requirement as name>=version, or name alone.
func (r ModelRequirement) String() string {
	if r.MinimumVersion == "" {
		return r.Name
	}
	return r.Name + ">=" + r.MinimumVersion
}

// DeviceCapabilities is what a device reported in its Capabilities
// response, with encodings already normalized.
type DeviceCapabilities struct {
	Models      []ModelIdentifier `json:"models"`
	Encodings   []Encoding        `json:"encodings"`
	GNMIVersion string            `json:"gnmi_version,omitempty"`
}

// NewDeviceCapabilities converts a transport response. Unknown encodings
// are dropped and duplicates removed.
func NewDeviceCapabilities(res gnmi.CapabilitiesRes) DeviceCapabilities {
	caps := DeviceCapabilities{
		Models:      make([]ModelIdentifier, 0, len(res.Models)),
		Encodings:   make([]Encoding, 0, len(res.Encodings)),
		GNMIVersion: res.Version,
	}
	for _, m := range res.Models {
		if m == nil {
			continue
		}
		caps.Models = append(caps.Models, ModelIdentifier{
			Name:         m.GetName(),
			Version:      m.GetVersion(),
			Organization: m.GetOrganization(),
		})
	}

	seen := make(map[Encoding]bool, len(res.Encodings))
	for _, tok := range res.Encodings {
		enc, ok := NormalizeEncoding(tok)
		if !ok || seen[enc] {
			continue
		}
		seen[enc] = true
		caps.Encodings = append(caps.Encodings, enc)
	}
	return caps
}

// HasModel reports whether the device advertises req.Name and, if so,
// whether its version is known to be older than req.MinimumVersion. Only
// the first model with a matching name is considered; an Unknown
// comparison never counts as older.
func (c DeviceCapabilities) HasModel(req ModelRequirement) (present, olderThanMin bool) {
	m, ok := c.FindModel(req.Name)
	if !ok {
		return false, false
	}
	if req.MinimumVersion == "" {
		return true, false
	}
	return true, CompareVersions(m.Version, req.MinimumVersion) == Less
}

// FindModel returns the first model named name.
func (c DeviceCapabilities) FindModel(name string) (ModelIdentifier, bool) {
	for _, m := range c.Models {
		if m.Matches(name) {
			return m, true
		}
	}
	return ModelIdentifier{}, false
}

// SupportsEncoding reports whether enc is advertised. EncodingUnknown is
// treated as "no preference" and always supported.
func (c DeviceCapabilities) SupportsEncoding(enc Encoding) bool {
	if enc == EncodingUnknown {
		return true
	}
	for _, e := range c.Encodings {
		if e == enc {
			return true
		}
	}
	return false
}

// EncodingTokens returns the encodings as strings for ChooseEncoding.
func (c DeviceCapabilities) EncodingTokens() []string {
	out := make([]string, len(c.Encodings))
	for i, e := range c.Encodings {
		out[i] = string(e)
	}
	return out
}

// String returns a one-line description of c.
func (c DeviceCapabilities) String() string {
	models := make([]string, len(c.Models))
	for i, m := range c.Models {
		models[i] = m.String()
	}
	version := c.GNMIVersion
	if version == "" {
		version = "-"
	}
	return "models=[" + strings.Join(models, ", ") + "] encodings=[" +
		strings.Join(c.EncodingTokens(), ", ") + "] gnmi=" + version
}
