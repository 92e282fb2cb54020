// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

const mplsNotConfigured = "MPLS is not effectively configured on this device. " +
	"While some global settings may exist, there are no MPLS-enabled interfaces or label blocks detected."

// MPLSResult is the parsed content of a network instance mpls container.
// Empty Interfaces or LabelBlocks are written as a single placeholder
// string in JSON.
type MPLSResult struct {
	Enabled        bool            `json:"enabled"`
	LabelBlocks    []LabelBlock    `json:"label_blocks"`
	Interfaces     []MPLSInterface `json:"interfaces"`
	GlobalSettings MPLSGlobal      `json:"global_settings"`
}

// LabelBlock is a reserved label range. Bounds are kept as text since a
// bound may be a reserved label name instead of a number.
type LabelBlock struct {
	Name       string  `json:"name"`
	LowerBound *string `json:"lower_bound"`
	UpperBound *string `json:"upper_bound"`
}

// MPLSInterface is an interface listed under interface-attributes.
type MPLSInterface struct {
	Name        string `json:"name"`
	MPLSEnabled bool   `json:"mpls_enabled"`
}

// MPLSGlobal holds the global MPLS state leaves.
type MPLSGlobal struct {
	NullLabel      *string `json:"null_label,omitempty"`
	TTLPropagation *bool   `json:"ttl_propagation,omitempty"`
}

// HasInterfaces reports whether any interface was parsed.
func (r MPLSResult) HasInterfaces() bool {
	return len(r.Interfaces) > 0
}

// HasLabelBlocks reports whether any label block was parsed.
func (r MPLSResult) HasLabelBlocks() bool {
	return len(r.LabelBlocks) > 0
}

// MarshalJSON writes NoInterfacesConfigured and NoLabelBlocksConfigured in
// place of empty lists.
func (r MPLSResult) MarshalJSON() ([]byte, error) {
	type plain MPLSResult
	out := struct {
		plain
		LabelBlocks any `json:"label_blocks"`
		Interfaces  any `json:"interfaces"`
	}{plain: plain(r), LabelBlocks: r.LabelBlocks, Interfaces: r.Interfaces}
	if !r.HasLabelBlocks() {
		out.LabelBlocks = []string{NoLabelBlocksConfigured}
	}
	if !r.HasInterfaces() {
		out.Interfaces = []string{NoInterfacesConfigured}
	}
	return json.Marshal(out)
}

// ParseMPLS reads every update carrying a "global" container. Each such
// update replaces the lists and the enabled flag, so the last one wins.
func ParseMPLS(updates []gnmi.Update) MPLSResult {
	res := MPLSResult{
		LabelBlocks: []LabelBlock{},
		Interfaces:  []MPLSInterface{},
	}

	for _, u := range updates {
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		if mpls := member(val, "mpls"); mpls.IsObject() {
			val = mpls
		}
		global := member(val, "global")
		if !global.Exists() {
			continue
		}

		st := global.Get("state")
		res.GlobalSettings = MPLSGlobal{
			NullLabel:      optString(st.Get("null-label")),
			TTLPropagation: optBool(st.Get("ttl-propagation")),
		}

		res.Interfaces = []MPLSInterface{}
		for _, i := range list(global.Get("interface-attributes.interface")) {
			res.Interfaces = append(res.Interfaces, MPLSInterface{
				Name:        strOr(optString(i.Get("interface-id")), "Unknown"),
				MPLSEnabled: boolOr(i.Get("state.mpls-enabled"), false),
			})
		}

		res.LabelBlocks = []LabelBlock{}
		for _, b := range list(global.Get("reserved-label-blocks.reserved-label-block")) {
			res.LabelBlocks = append(res.LabelBlocks, LabelBlock{
				Name:       strOr(optString(b.Get("local-id")), "Unknown"),
				LowerBound: optString(b.Get("state.lower-bound")),
				UpperBound: optString(b.Get("state.upper-bound")),
			})
		}

		res.Enabled = res.HasInterfaces() || res.HasLabelBlocks()
	}
	return res
}

// SummarizeMPLS renders res as text.
func SummarizeMPLS(res MPLSResult) string {
	if !res.Enabled {
		return mplsNotConfigured
	}

	var b strings.Builder
	b.WriteString("MPLS Configuration Summary:\n")
	if ttl := res.GlobalSettings.TTLPropagation; ttl != nil {
		fmt.Fprintf(&b, "- TTL Propagation: %s\n", enabledWord(*ttl))
	}
	if nl := res.GlobalSettings.NullLabel; nl != nil {
		fmt.Fprintf(&b, "- Null Label: %s\n", *nl)
	}

	b.WriteString("\nMPLS Label Blocks:\n")
	if res.HasLabelBlocks() {
		for _, lb := range res.LabelBlocks {
			fmt.Fprintf(&b, "- %s: Range %s-%s\n", lb.Name, strOr(lb.LowerBound, notAvailable), strOr(lb.UpperBound, notAvailable))
		}
	} else {
		b.WriteString("- No label blocks configured\n")
	}

	b.WriteString("\nMPLS-Enabled Interfaces:\n")
	n := 0
	for _, i := range res.Interfaces {
		if i.MPLSEnabled {
			fmt.Fprintf(&b, "- %s\n", i.Name)
			n++
		}
	}
	if n == 0 {
		b.WriteString("- No MPLS-enabled interfaces\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
