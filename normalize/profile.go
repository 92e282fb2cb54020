// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// Device roles reported by ParseProfile.
const (
	RoleRouteReflector = "RR"
	RolePE             = "PE"
	RoleP              = "P"
	RoleIGPOnly        = "IGP-only"
	RoleCE             = "CE"
	RoleUnknown        = "Unknown"
)

const (
	afiL3VPNIPv4Unicast = "L3VPN_IPV4_UNICAST"
	afiIPv4Unicast      = "IPV4_UNICAST"
)

// Profile is the set of features a device runs and the role they imply.
type Profile struct {
	MPLS           bool   `json:"is_mpls_enabled"`
	ISIS           bool   `json:"is_isis_enabled"`
	BGPL3VPN       bool   `json:"is_bgp_l3vpn_enabled"`
	RouteReflector bool   `json:"is_route_reflector"`
	VPNIPv4Unicast bool   `json:"has_vpn_ipv4_unicast_bgp"`
	SegmentRouting bool   `json:"is_segment_routing_enabled"`
	Role           string `json:"role"`
}

// ParseProfile derives the device role from BGP AFI-SAFI state, MPLS
// interface state, ISIS global state and route reflector settings. Which
// feature an update describes is decided by its path; VRF AFI-SAFIs are
// the ones outside the DEFAULT instance.
func ParseProfile(updates []gnmi.Update) Profile {
	var p Profile
	for _, u := range updates {
		val := gjson.ParseBytes(u.Val)
		if !val.Exists() {
			continue
		}
		switch {
		case strings.Contains(u.Path, "/mpls/global/interface-attributes/interface"):
			p.MPLS = p.MPLS || boolOr(stateOf(val).Get("mpls-enabled"), false)
		case strings.Contains(u.Path, "/segment-routing"):
			p.SegmentRouting = p.SegmentRouting || segmentRoutingEnabled(val)
		case strings.Contains(u.Path, "/isis/global"):
			p.ISIS = p.ISIS || (val.IsObject() && len(val.Map()) > 0)
		case strings.Contains(u.Path, "/route-reflector"):
			st := stateOf(val)
			p.RouteReflector = p.RouteReflector ||
				(boolOr(st.Get("route-reflector-client"), false) && present(st.Get("route-reflector-cluster-id")))
		case strings.Contains(u.Path, "/afi-safi"):
			st := stateOf(val)
			if !boolOr(st.Get("enabled"), false) {
				continue
			}
			name := stripModule(st.Get("afi-safi-name").String())
			vrf := instanceName(u.Path)
			switch {
			case name == afiL3VPNIPv4Unicast:
				p.BGPL3VPN = true
			case name == afiIPv4Unicast && vrf != "" && vrf != defaultInstance:
				p.VPNIPv4Unicast = true
			}
		}
	}
	p.Role = profileRole(p)
	return p
}

// stateOf returns the state container of val, or val itself when the
// update already points at the state.
func stateOf(val gjson.Result) gjson.Result {
	if st := val.Get("state"); st.IsObject() {
		return st
	}
	return val
}

func segmentRoutingEnabled(val gjson.Result) bool {
	if val.Type == gjson.True {
		return true
	}
	return boolOr(stateOf(val).Get("enabled"), false)
}

func profileRole(p Profile) string {
	switch {
	case p.RouteReflector:
		return RoleRouteReflector
	case p.BGPL3VPN && p.MPLS && p.ISIS && p.VPNIPv4Unicast:
		return RolePE
	case p.MPLS && p.ISIS:
		return RoleP
	case p.ISIS:
		return RoleIGPOnly
	case !p.MPLS && !p.BGPL3VPN:
		return RoleCE
	default:
		return RoleUnknown
	}
}

// SummarizeProfile renders p as text.
func SummarizeProfile(p Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Device Role: %s\n", p.Role)
	fmt.Fprintf(&b, "- MPLS: %s\n", enabledWord(p.MPLS))
	fmt.Fprintf(&b, "- ISIS: %s\n", enabledWord(p.ISIS))
	fmt.Fprintf(&b, "- Segment Routing: %s\n", enabledWord(p.SegmentRouting))
	fmt.Fprintf(&b, "- BGP L3VPN: %s\n", enabledWord(p.BGPL3VPN))
	fmt.Fprintf(&b, "- VRF IPv4 Unicast BGP: %s\n", enabledWord(p.VPNIPv4Unicast))
	fmt.Fprintf(&b, "- Route Reflector: %s", yesNo(p.RouteReflector))
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
