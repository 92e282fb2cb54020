// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import "strings"

// RequiredModels maps the OpenConfig modules gnmibuddy queries to the
// minimum version its normalizers were written against.
var RequiredModels = map[string]string{
	"openconfig-system":           "0.17.1",
	"openconfig-interfaces":       "4.0.0",
	"openconfig-network-instance": "1.3.0",
}

// Inspector infers model requirements from request paths.
type Inspector struct {
	models map[string]string
}

// NewInspector returns an Inspector using RequiredModels.
func NewInspector() *Inspector {
	return NewInspectorWithModels(RequiredModels)
}

// NewInspectorWithModels returns an Inspector for a custom module table.
func NewInspectorWithModels(models map[string]string) *Inspector {
	m := make(map[string]string, len(models))
	for k, v := range models {
		m[k] = v
	}
	return &Inspector{models: m}
}

// ExtractModule returns the module a path refers to: the text before the
// first ':' or, without a colon, the first '/' segment. A path starting
// with '/' names no module.
func ExtractModule(path string) string {
	if i := strings.IndexByte(path, ':'); i >= 0 {
		return strings.TrimSpace(path[:i])
	}
	module, _, _ := strings.Cut(path, "/")
	return strings.TrimSpace(module)
}

// Infer returns one requirement per known module referenced by paths, in
// order of first occurrence. Unknown modules are ignored.
func (i *Inspector) Infer(paths []string) []ModelRequirement {
	var out []ModelRequirement
	seen := make(map[string]bool)
	for _, p := range paths {
		module := ExtractModule(p)
		minVersion, known := i.models[module]
		if !known || seen[module] {
			continue
		}
		seen[module] = true
		out = append(out, ModelRequirement{Name: module, MinimumVersion: minVersion})
	}
	return out
}
