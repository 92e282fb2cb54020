// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// BGP parse errors, as reported in BGPResult.ParseError.
const (
	BGPErrUnsupported = "Unsupported BGP data format"
	BGPErrNoDefault   = "No DEFAULT BGP instance found in OpenConfig data"
)

// BGPResult is the parsed BGP view of a device. When ParseError is set the
// other fields are empty.
type BGPResult struct {
	Router          BGPRouter          `json:"router"`
	AddressFamilies []BGPAddressFamily `json:"address_families"`
	NeighborGroups  []BGPNeighborGroup `json:"neighbor_groups"`
	Neighbors       []BGPNeighbor      `json:"neighbors"`
	VRFs            []BGPVRF           `json:"vrfs"`
	Timestamp       int64              `json:"data_timestamp,omitempty"`
	TimestampStr    string             `json:"data_timestamp_str,omitempty"`
	ParseError      string             `json:"parse_error,omitempty"`
}

// BGPRouter holds the global state of the DEFAULT instance.
type BGPRouter struct {
	ASNumber      *int64  `json:"as_number"`
	RouterID      *string `json:"router_id"`
	TotalPrefixes *int64  `json:"total_prefixes"`
}

// BGPAddressFamily is an enabled AFI/SAFI with its prefix count.
type BGPAddressFamily struct {
	Name     string `json:"name"`
	Prefixes *int64 `json:"prefixes"`
}

// BGPNeighborGroup is a configured peer group.
type BGPNeighborGroup struct {
	Name            string        `json:"name"`
	RemoteAS        *int64        `json:"remote_as"`
	UpdateSource    *string       `json:"update_source"`
	AddressFamilies []BGPGroupAFI `json:"address_families"`
}

// BGPGroupAFI is an AFI/SAFI enabled on a peer group.
type BGPGroupAFI struct {
	Name       string `json:"name"`
	IsRRClient bool   `json:"is_rr_client,omitempty"`
}

// BGPNeighbor is one BGP session. Prefixes is keyed by AFI/SAFI name.
type BGPNeighbor struct {
	Address  string                 `json:"address"`
	RemoteAS *int64                 `json:"remote_as"`
	Group    *string                `json:"group"`
	State    string                 `json:"state"`
	Uptime   *string                `json:"uptime,omitempty"`
	Prefixes map[string]PrefixCount `json:"prefixes"`
}

// PrefixCount is the received and sent prefix count of an AFI/SAFI.
type PrefixCount struct {
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
}

// BGPVRF is the BGP global state of a non-default instance.
type BGPVRF struct {
	Name            string             `json:"name"`
	ASNumber        *int64             `json:"as_number"`
	RouterID        *string            `json:"router_id"`
	TotalPrefixes   *int64             `json:"total_prefixes"`
	AddressFamilies []BGPAddressFamily `json:"address_families"`
}

func isBGPPath(path string) bool {
	return strings.Contains(path, "protocol[identifier=BGP]") ||
		strings.Contains(path, "protocol[identifier=openconfig-policy-types:BGP]")
}

// bgpContainer unwraps a value that holds the bgp container instead of
// being it.
func bgpContainer(val gjson.Result) gjson.Result {
	if val.Get("global").Exists() || val.Get("neighbors").Exists() || val.Get("peer-groups").Exists() {
		return val
	}
	if b := member(val, "bgp"); b.IsObject() {
		return b
	}
	return val
}

// ParseBGP locates the DEFAULT instance and every VRF instance in updates
// returned for network-instance[name=*]/protocols/protocol/bgp.
func ParseBGP(updates []gnmi.Update) BGPResult {
	if len(updates) == 0 {
		return BGPResult{ParseError: BGPErrUnsupported}
	}

	var (
		def   gjson.Result
		found bool
		vrfs  []gnmi.Update
	)
	for _, u := range updates {
		if !isBGPPath(u.Path) || !strings.Contains(u.Path, "network-instance") {
			continue
		}
		if strings.Contains(u.Path, "network-instance[name=DEFAULT]") {
			val, ok := objectVal(u)
			if !ok {
				continue
			}
			def, found = bgpContainer(val), true
			continue
		}
		vrfs = append(vrfs, u)
	}
	if !found {
		return BGPResult{ParseError: BGPErrNoDefault}
	}

	ts := timestampOf(updates)
	global := def.Get("global")
	st := global.Get("state")
	return BGPResult{
		Router: BGPRouter{
			ASNumber:      optInt(st.Get("as")),
			RouterID:      optString(st.Get("router-id")),
			TotalPrefixes: optInt(st.Get("total-prefixes")),
		},
		AddressFamilies: bgpAddressFamilies(global),
		NeighborGroups:  bgpPeerGroups(def),
		Neighbors:       bgpNeighbors(def),
		VRFs:            bgpVRFs(vrfs),
		Timestamp:       ts,
		TimestampStr:    FormatTimestamp(ts),
	}
}

// afiName normalizes "openconfig-bgp-types:IPV4_UNICAST" to "ipv4_unicast".
func afiName(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "openconfig-bgp-types:"))
}

func afiSafiName(af gjson.Result) string {
	if n := af.Get("afi-safi-name").String(); n != "" {
		return n
	}
	return af.Get("state.afi-safi-name").String()
}

func bgpAddressFamilies(global gjson.Result) []BGPAddressFamily {
	out := []BGPAddressFamily{}
	for _, af := range list(global.Get("afi-safis.afi-safi")) {
		name := afiSafiName(af)
		if name == "" {
			continue
		}
		out = append(out, BGPAddressFamily{
			Name:     afiName(name),
			Prefixes: optInt(af.Get("state.total-prefixes")),
		})
	}
	return out
}

func bgpPeerGroups(bgp gjson.Result) []BGPNeighborGroup {
	out := []BGPNeighborGroup{}
	for _, g := range list(bgp.Get("peer-groups.peer-group")) {
		st := g.Get("state")
		name := st.Get("peer-group-name").String()
		if name == "" {
			name = g.Get("peer-group-name").String()
		}
		groupRR := boolOr(g.Get("route-reflector.state.route-reflector-client"), false)
		group := BGPNeighborGroup{
			Name:            name,
			RemoteAS:        optInt(st.Get("peer-as")),
			UpdateSource:    optString(g.Get("transport.state.local-address")),
			AddressFamilies: []BGPGroupAFI{},
		}
		for _, af := range list(g.Get("afi-safis.afi-safi")) {
			afSt := af.Get("state")
			name := afSt.Get("afi-safi-name").String()
			if name == "" || !boolOr(afSt.Get("enabled"), false) {
				continue
			}
			group.AddressFamilies = append(group.AddressFamilies, BGPGroupAFI{
				Name:       afiName(name),
				IsRRClient: groupRR || boolOr(af.Get("apply-policy.route-reflector-client"), false),
			})
		}
		out = append(out, group)
	}
	return out
}

// uptime renders a last-established timestamp in nanoseconds.
func uptime(r gjson.Result) *string {
	s := strings.TrimSpace(r.String())
	if !present(r) || s == "" || s == "0" {
		return nil
	}
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pointer.ToString("Unknown")
	}
	return pointer.ToString(time.Unix(0, ns).Local().Format(TimeLayout))
}

func bgpNeighbors(bgp gjson.Result) []BGPNeighbor {
	out := []BGPNeighbor{}
	for _, n := range list(bgp.Get("neighbors.neighbor")) {
		st := n.Get("state")
		addr := st.Get("neighbor-address").String()
		if addr == "" {
			addr = n.Get("neighbor-address").String()
		}
		nb := BGPNeighbor{
			Address:  addr,
			RemoteAS: optInt(st.Get("peer-as")),
			Group:    optString(st.Get("peer-group")),
			State:    st.Get("session-state").String(),
			Uptime:   uptime(st.Get("last-established")),
			Prefixes: map[string]PrefixCount{},
		}
		for _, af := range list(n.Get("afi-safis.afi-safi")) {
			name := afiSafiName(af)
			p := af.Get("state.prefixes")
			if name == "" || !p.IsObject() {
				continue
			}
			nb.Prefixes[afiName(name)] = PrefixCount{
				Received: p.Get("received").Int(),
				Sent:     p.Get("sent").Int(),
			}
		}
		out = append(out, nb)
	}
	return out
}

func bgpVRFs(updates []gnmi.Update) []BGPVRF {
	out := []BGPVRF{}
	for _, u := range updates {
		name := instanceName(u.Path)
		if name == "" || name == defaultInstance {
			continue
		}
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		global := bgpContainer(val).Get("global")
		st := global.Get("state")
		out = append(out, BGPVRF{
			Name:            name,
			ASNumber:        optInt(st.Get("as")),
			RouterID:        optString(st.Get("router-id")),
			TotalPrefixes:   optInt(st.Get("total-prefixes")),
			AddressFamilies: bgpAddressFamilies(global),
		})
		log.WithField("vrf", name).Debug("parsed BGP VRF instance")
	}
	return out
}

func sortedAFIs(m map[string]PrefixCount) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SummarizeBGP renders the configuration view of res.
func SummarizeBGP(res BGPResult) string {
	if res.ParseError != "" {
		return "Error parsing BGP configuration: " + res.ParseError
	}

	var lines []string
	if res.TimestampStr != "" {
		lines = append(lines, "Data collected at: "+res.TimestampStr)
	}
	lines = append(lines,
		"AS Number: "+intOr(res.Router.ASNumber, notAvailable),
		"Router ID: "+strOr(res.Router.RouterID, notAvailable),
		"Total Prefixes: "+intOr(res.Router.TotalPrefixes, notAvailable),
	)

	if len(res.AddressFamilies) > 0 {
		names := make([]string, 0, len(res.AddressFamilies))
		for _, af := range res.AddressFamilies {
			names = append(names, af.Name)
		}
		lines = append(lines, "Address Families: "+strings.Join(names, ", "))
	}

	if len(res.NeighborGroups) > 0 {
		lines = append(lines, "Neighbor Groups:")
		for _, g := range res.NeighborGroups {
			lines = append(lines, fmt.Sprintf("  * %s (Remote AS: %s)", g.Name, intOr(g.RemoteAS, notAvailable)))
			for _, af := range g.AddressFamilies {
				line := "    - " + af.Name
				if af.IsRRClient {
					line += " RR Client"
				}
				lines = append(lines, line)
			}
		}
	}

	if len(res.Neighbors) > 0 {
		lines = append(lines, "Neighbors:")
		for _, n := range res.Neighbors {
			lines = append(lines, fmt.Sprintf("  * %s (AS: %s, Group: %s, State: %s)",
				n.Address, intOr(n.RemoteAS, notAvailable), strOr(n.Group, notAvailable), neighborState(n)))
			if n.State == "ESTABLISHED" {
				lines = append(lines, "    - Up since: "+strOr(n.Uptime, "Unknown"))
			}
			for _, af := range sortedAFIs(n.Prefixes) {
				p := n.Prefixes[af]
				lines = append(lines, fmt.Sprintf("    - %s: received %d, sent %d", af, p.Received, p.Sent))
			}
		}
	}

	if len(res.VRFs) > 0 {
		lines = append(lines, "VRFs:")
		for _, v := range res.VRFs {
			lines = append(lines, fmt.Sprintf("  * %s - AS: %s, Router ID: %s",
				v.Name, intOr(v.ASNumber, notAvailable), strOr(v.RouterID, notAvailable)))
			for _, af := range v.AddressFamilies {
				lines = append(lines, fmt.Sprintf("    - %s (Prefixes: %s)", af.Name, intOr(af.Prefixes, "0")))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func neighborState(n BGPNeighbor) string {
	if n.State == "" {
		return "UNKNOWN"
	}
	return n.State
}

// SummarizeBGPState renders the operational view of res: session states,
// prefix counts of established sessions and a per-VRF line.
func SummarizeBGPState(res BGPResult) string {
	if res.ParseError != "" {
		return "Error parsing BGP data: " + res.ParseError
	}

	lines := []string{
		"BGP Router AS" + intOr(res.Router.ASNumber, "unknown"),
		"Router ID: " + strOr(res.Router.RouterID, "unknown"),
	}
	if res.Router.TotalPrefixes != nil {
		lines = append(lines, fmt.Sprintf("Total network prefixes: %d", *res.Router.TotalPrefixes))
	}

	if len(res.Neighbors) > 0 {
		lines = append(lines, "", "Neighbor State Summary:")
		var order []string
		counts := map[string]int{}
		for _, n := range res.Neighbors {
			s := neighborState(n)
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
		for _, s := range order {
			lines = append(lines, fmt.Sprintf("- %d neighbors in %s state", counts[s], s))
		}

		lines = append(lines, "", "Neighbor Details:")
		for _, n := range res.Neighbors {
			lines = append(lines, fmt.Sprintf("- %s (AS%s): %s", n.Address, intOr(n.RemoteAS, "Unknown"), neighborState(n)))
			if n.State != "ESTABLISHED" {
				continue
			}
			for _, af := range sortedAFIs(n.Prefixes) {
				p := n.Prefixes[af]
				lines = append(lines, fmt.Sprintf("  %s: %d received, %d sent", af, p.Received, p.Sent))
			}
		}
	}

	if len(res.VRFs) > 0 {
		lines = append(lines, "", "VRF Summary:")
		for _, v := range res.VRFs {
			lines = append(lines, fmt.Sprintf("- VRF %s: %s prefixes across %d address families",
				v.Name, intOr(v.TotalPrefixes, "0"), len(v.AddressFamilies)))
		}
	}
	return strings.Join(lines, "\n")
}
