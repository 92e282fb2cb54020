// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

const defaultInstance = "DEFAULT"

// VRFResult is the parsed content of /network-instances.
type VRFResult struct {
	VRFs         []VRF  `json:"vrfs"`
	Timestamp    int64  `json:"timestamp"`
	TimestampStr string `json:"timestamp_readable"`
}

// VRF is one non-default network instance. An empty Interfaces list is
// written as NoInterfacesConfigured in JSON.
type VRF struct {
	Name               string         `json:"name"`
	Description        *string        `json:"description,omitempty"`
	Enabled            bool           `json:"enabled"`
	Type               *string        `json:"type,omitempty"`
	RouterID           *string        `json:"router_id,omitempty"`
	RouteDistinguisher string         `json:"route_distinguisher"`
	Interfaces         []VRFInterface `json:"interfaces"`
	RouteTargets       RouteTargets   `json:"route_targets"`
	Protocols          []VRFProtocol  `json:"protocols"`
}

// InterfaceNames lists the attached interfaces, or NoInterfacesConfigured.
func (v VRF) InterfaceNames() []string {
	if len(v.Interfaces) == 0 {
		return []string{NoInterfacesConfigured}
	}
	names := make([]string, 0, len(v.Interfaces))
	for _, i := range v.Interfaces {
		names = append(names, i.Name)
	}
	return names
}

// MarshalJSON writes NoInterfacesConfigured in place of an empty
// interface list.
func (v VRF) MarshalJSON() ([]byte, error) {
	type plain VRF
	out := struct {
		plain
		Interfaces any `json:"interfaces"`
	}{plain: plain(v), Interfaces: v.Interfaces}
	if len(v.Interfaces) == 0 {
		out.Interfaces = []string{NoInterfacesConfigured}
	}
	return json.Marshal(out)
}

// VRFInterface is an interface bound to a VRF.
type VRFInterface struct {
	Name            string   `json:"name"`
	AddressFamilies []string `json:"address_families"`
}

// RouteTargets holds the import and export route targets of a VRF.
type RouteTargets struct {
	Import []string `json:"import"`
	Export []string `json:"export"`
}

// VRFProtocol is a routing protocol instance inside a VRF. Only the
// fields matching Type are set.
type VRFProtocol struct {
	Identifier    string        `json:"identifier"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	ASNumber      *int64        `json:"as_number,omitempty"`
	RouterID      *string       `json:"router_id,omitempty"`
	TotalPaths    *int64        `json:"total_paths,omitempty"`
	TotalPrefixes *int64        `json:"total_prefixes,omitempty"`
	NET           *string       `json:"net,omitempty"`
	StaticRoutes  []StaticRoute `json:"routes,omitempty"`
}

// StaticRoute is a static route with its next hops.
type StaticRoute struct {
	Prefix   string    `json:"prefix"`
	NextHops []NextHop `json:"next_hops"`
}

// NextHop is one next hop of a StaticRoute.
type NextHop struct {
	Address    *string `json:"address"`
	Metric     *int64  `json:"metric"`
	Preference *int64  `json:"preference"`
}

// ParseVRF extracts every named, non-default network instance. Duplicate
// names keep the first occurrence.
func ParseVRF(updates []gnmi.Update) VRFResult {
	ts := timestampOf(updates)
	res := VRFResult{
		VRFs:         []VRF{},
		Timestamp:    ts,
		TimestampStr: FormatTimestamp(ts),
	}

	seen := make(map[string]bool)
	for _, u := range updates {
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		for _, ni := range networkInstances(val) {
			name := ni.Get("name").String()
			if name == "" {
				name = instanceName(u.Path)
			}
			switch {
			case name == "":
				log.WithField("path", u.Path).Debug("skipping network instance without name")
				continue
			case name == defaultInstance:
				continue
			case seen[name]:
				log.WithField("vrf", name).Debug("skipping duplicate VRF")
				continue
			}
			seen[name] = true
			res.VRFs = append(res.VRFs, parseVRF(name, ni))
		}
	}
	return res
}

// networkInstances accepts a single instance or a container holding a
// network-instance list.
func networkInstances(val gjson.Result) []gjson.Result {
	if nis := member(val, "network-instances"); nis.Exists() {
		return list(member(nis, "network-instance"))
	}
	if ni := member(val, "network-instance"); ni.Exists() {
		return list(ni)
	}
	return []gjson.Result{val}
}

func parseVRF(name string, ni gjson.Result) VRF {
	state := ni.Get("state")
	return VRF{
		Name:               name,
		Description:        optString(state.Get("description")),
		Enabled:            boolOr(state.Get("enabled"), true),
		Type:               optString(state.Get("type")),
		RouterID:           optString(state.Get("router-id")),
		RouteDistinguisher: routeDistinguisher(ni),
		Interfaces:         vrfInterfaces(ni),
		RouteTargets:       routeTargets(ni),
		Protocols:          vrfProtocols(ni),
	}
}

func routeDistinguisher(ni gjson.Result) string {
	if rd := optString(ni.Get("state.route-distinguisher")); rd != nil {
		return *rd
	}
	if rd := optString(ni.Get("route-distinguisher.state.rd")); rd != nil {
		return *rd
	}
	return ""
}

func vrfInterfaces(ni gjson.Result) []VRFInterface {
	var out []VRFInterface
	for _, i := range list(ni.Get("interfaces.interface")) {
		afs := []string{}
		for _, af := range stringList(i.Get("state.associated-address-families")) {
			afs = append(afs, strings.TrimPrefix(af, "openconfig-types:"))
		}
		out = append(out, VRFInterface{Name: i.Get("id").String(), AddressFamilies: afs})
	}
	return out
}

func routeTargets(ni gjson.Result) RouteTargets {
	rt := RouteTargets{Import: []string{}, Export: []string{}}

	policy := ni.Get("inter-instance-policies.import-export-policy.state")
	rt.Import = appendUnique(rt.Import, stringList(policy.Get("import-route-target"))...)
	rt.Export = appendUnique(rt.Export, stringList(policy.Get("export-route-target"))...)

	for _, t := range list(ni.Get("vpn-targets.vpn-target")) {
		value := t.Get("state.rt-value").String()
		if value == "" {
			continue
		}
		switch strings.ToLower(stripModule(t.Get("state.rt-type").String())) {
		case "import":
			rt.Import = appendUnique(rt.Import, value)
		case "export":
			rt.Export = appendUnique(rt.Export, value)
		case "both":
			rt.Import = appendUnique(rt.Import, value)
			rt.Export = appendUnique(rt.Export, value)
		}
	}
	return rt
}

// protocolType maps an identifier such as "openconfig-policy-types:BGP" to
// "bgp". STATIC becomes "static-routes".
func protocolType(identifier string) string {
	t := strings.ToLower(strings.TrimPrefix(identifier, "openconfig-policy-types:"))
	if t == "static" {
		return "static-routes"
	}
	return t
}

func vrfProtocols(ni gjson.Result) []VRFProtocol {
	var out []VRFProtocol
	for _, p := range list(ni.Get("protocols.protocol")) {
		id := p.Get("identifier").String()
		proto := VRFProtocol{
			Identifier: id,
			Name:       p.Get("name").String(),
			Type:       protocolType(id),
		}
		switch proto.Type {
		case "bgp":
			st := p.Get("bgp.global.state")
			proto.ASNumber = optInt(st.Get("as"))
			proto.RouterID = optString(st.Get("router-id"))
			proto.TotalPaths = optInt(st.Get("total-paths"))
			proto.TotalPrefixes = optInt(st.Get("total-prefixes"))
		case "ospf":
			proto.RouterID = optString(p.Get("ospfv2.global.state.router-id"))
		case "isis":
			proto.NET = firstString(p.Get("isis.global.state.net"))
		case "static-routes":
			proto.StaticRoutes = staticRoutes(p)
		}
		out = append(out, proto)
	}
	return out
}

func staticRoutes(p gjson.Result) []StaticRoute {
	routes := []StaticRoute{}
	for _, s := range list(p.Get("static-routes.static")) {
		route := StaticRoute{Prefix: s.Get("prefix").String(), NextHops: []NextHop{}}
		for _, nh := range list(s.Get("next-hops.next-hop")) {
			st := nh.Get("state")
			if !st.Exists() {
				continue
			}
			route.NextHops = append(route.NextHops, NextHop{
				Address:    optString(st.Get("next-hop")),
				Metric:     optInt(st.Get("metric")),
				Preference: optInt(st.Get("preference")),
			})
		}
		routes = append(routes, route)
	}
	return routes
}

// SummarizeVRF renders res as indented text.
func SummarizeVRF(res VRFResult) string {
	if len(res.VRFs) == 0 {
		return "No VRF data available."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "VRF Configuration Summary (as of %s):\n\n", res.TimestampStr)
	for _, v := range res.VRFs {
		status := "Disabled"
		if v.Enabled {
			status = "Enabled"
		}
		fmt.Fprintf(&b, "VRF: %s (%s)\n", v.Name, status)
		if v.Description != nil && *v.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", *v.Description)
		}
		if v.Type != nil && *v.Type != "" {
			fmt.Fprintf(&b, "  Type: %s\n", *v.Type)
		}
		if v.RouterID != nil && *v.RouterID != "" {
			fmt.Fprintf(&b, "  Router ID: %s\n", *v.RouterID)
		}
		if v.RouteDistinguisher != "" {
			fmt.Fprintf(&b, "  Route Distinguisher: %s\n", v.RouteDistinguisher)
		}
		if len(v.RouteTargets.Import) > 0 {
			fmt.Fprintf(&b, "  Import Route Targets: %s\n", strings.Join(v.RouteTargets.Import, ", "))
		}
		if len(v.RouteTargets.Export) > 0 {
			fmt.Fprintf(&b, "  Export Route Targets: %s\n", strings.Join(v.RouteTargets.Export, ", "))
		}

		if len(v.Interfaces) == 0 {
			b.WriteString("  Interfaces: None configured\n")
		} else {
			b.WriteString("  Interfaces:\n")
			for _, i := range v.Interfaces {
				afs := strings.Join(i.AddressFamilies, ", ")
				if afs == "" {
					afs = "None"
				}
				fmt.Fprintf(&b, "    - %s (Address Families: %s)\n", i.Name, afs)
			}
		}

		if len(v.Protocols) > 0 {
			b.WriteString("  Protocols:\n")
			for _, p := range v.Protocols {
				line := fmt.Sprintf("    - %s %s", p.Type, p.Name)
				switch {
				case p.Type == "bgp" && p.ASNumber != nil:
					line += fmt.Sprintf(" (AS: %d)", *p.ASNumber)
				case p.Type == "ospf" && p.RouterID != nil:
					line += fmt.Sprintf(" (Router ID: %s)", *p.RouterID)
				case p.Type == "isis" && p.NET != nil:
					line += fmt.Sprintf(" (NET: %s)", *p.NET)
				}
				b.WriteString(line + "\n")
				if p.Type == "static-routes" {
					fmt.Fprintf(&b, "      Static Routes: %d\n", len(p.StaticRoutes))
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SimpleVRF is the compact form of a VRF.
type SimpleVRF struct {
	Name         string           `json:"name"`
	Description  *string          `json:"description"`
	RD           string           `json:"rd"`
	Interfaces   []string         `json:"interfaces"`
	RouteTargets RouteTargets     `json:"route_targets"`
	Protocols    []SimpleProtocol `json:"protocols"`
}

// SimpleProtocol is the compact form of a VRFProtocol.
type SimpleProtocol struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	ASNumber *int64        `json:"as_number,omitempty"`
	RouterID *string       `json:"router_id,omitempty"`
	Paths    *int64        `json:"paths,omitempty"`
	Prefixes *int64        `json:"prefixes,omitempty"`
	Routes   []StaticRoute `json:"routes,omitempty"`
}

// SimplifyVRF drops everything but names, RD, targets and the key
// protocol facts.
func SimplifyVRF(res VRFResult) []SimpleVRF {
	out := make([]SimpleVRF, 0, len(res.VRFs))
	for _, v := range res.VRFs {
		s := SimpleVRF{
			Name:         v.Name,
			Description:  v.Description,
			RD:           v.RouteDistinguisher,
			Interfaces:   v.InterfaceNames(),
			RouteTargets: v.RouteTargets,
			Protocols:    []SimpleProtocol{},
		}
		for _, p := range v.Protocols {
			sp := SimpleProtocol{Type: p.Type, Name: p.Name}
			switch p.Type {
			case "bgp":
				sp.ASNumber = p.ASNumber
				sp.RouterID = p.RouterID
				sp.Paths = p.TotalPaths
				sp.Prefixes = p.TotalPrefixes
			case "static-routes":
				sp.Routes = p.StaticRoutes
			}
			s.Protocols = append(s.Protocols, sp)
		}
		out = append(out, s)
	}
	return out
}
