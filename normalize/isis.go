// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// ISISErrNoData is reported when the ISIS query returned no updates.
const ISISErrNoData = "No ISIS data found in response"

// ISISResult is the parsed ISIS view of a device.
type ISISResult struct {
	Router      ISISRouter      `json:"router"`
	Interfaces  []ISISInterface `json:"interfaces"`
	Adjacencies []ISISAdjacency `json:"adjacencies"`
	Error       string          `json:"error,omitempty"`
}

// ISISRouter holds the IS-IS global state.
type ISISRouter struct {
	NET                 *string `json:"net"`
	LevelCapability     *string `json:"level_capability"`
	AuthenticationCheck *bool   `json:"authentication_check"`
	SegmentRouting      *bool   `json:"segment_routing_enabled"`
}

// ISISInterface is an interface taking part in IS-IS.
type ISISInterface struct {
	Name           string          `json:"name"`
	Enabled        bool            `json:"enabled"`
	Passive        bool            `json:"passive"`
	CircuitType    *string         `json:"circuit_type"`
	Levels         []ISISLevel     `json:"levels"`
	Authentication bool            `json:"authentication_enabled"`
	BFD            bool            `json:"bfd_enabled"`
	Adjacencies    []ISISAdjacency `json:"adjacencies,omitempty"`
}

// ISISLevel is an enabled level of an interface.
type ISISLevel struct {
	LevelNumber         int64 `json:"level_number"`
	Enabled             bool  `json:"enabled"`
	HelloAuthentication bool  `json:"hello_authentication"`
}

// ISISAdjacency is an adjacency in state UP.
type ISISAdjacency struct {
	Interface     string   `json:"interface"`
	SystemID      *string  `json:"system_id"`
	NeighborIPv4  *string  `json:"neighbor_ipv4"`
	NeighborIPv6  *string  `json:"neighbor_ipv6"`
	Level         int64    `json:"level"`
	AdjacencyType *string  `json:"adjacency_type"`
	State         string   `json:"state"`
	AreaAddress   []string `json:"area_address"`
}

// ParseISIS reads updates for isis/global and isis/interfaces. Which part
// an update fills is decided by its path.
func ParseISIS(updates []gnmi.Update) ISISResult {
	if len(updates) == 0 {
		return ISISResult{Error: ISISErrNoData}
	}

	res := ISISResult{Interfaces: []ISISInterface{}, Adjacencies: []ISISAdjacency{}}
	for _, u := range updates {
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(u.Path, "global"):
			if g := member(val, "global"); g.IsObject() {
				val = g
			}
			st := val.Get("state")
			res.Router = ISISRouter{
				NET:                 firstString(st.Get("net")),
				LevelCapability:     optString(st.Get("level-capability")),
				AuthenticationCheck: optBool(st.Get("authentication-check")),
				SegmentRouting:      optBool(val.Get("segment-routing.state.enabled")),
			}
		case strings.Contains(u.Path, "interfaces"):
			if is := member(val, "interfaces"); is.IsObject() {
				val = is
			}
			for _, i := range list(member(val, "interface")) {
				iface := isisInterface(i)
				res.Interfaces = append(res.Interfaces, iface)
				res.Adjacencies = append(res.Adjacencies, iface.Adjacencies...)
			}
		}
	}
	return res
}

func isisInterface(i gjson.Result) ISISInterface {
	st := i.Get("state")
	name := st.Get("interface-id").String()
	if name == "" {
		name = i.Get("interface-id").String()
	}
	iface := ISISInterface{
		Name:           name,
		Enabled:        boolOr(st.Get("enabled"), false),
		Passive:        boolOr(st.Get("passive"), false),
		CircuitType:    optString(st.Get("circuit-type")),
		Levels:         []ISISLevel{},
		Authentication: boolOr(i.Get("authentication.state.enabled"), false),
		BFD:            boolOr(i.Get("enable-bfd.state.enabled"), false),
	}

	for _, l := range list(i.Get("levels.level")) {
		lst := l.Get("state")
		num := lst.Get("level-number").Int()
		if num == 0 {
			num = l.Get("level-number").Int()
		}
		if boolOr(lst.Get("enabled"), false) {
			iface.Levels = append(iface.Levels, ISISLevel{
				LevelNumber:         num,
				Enabled:             true,
				HelloAuthentication: boolOr(l.Get("hello-authentication.state.enabled"), false),
			})
		}
		for _, a := range list(l.Get("adjacencies.adjacency")) {
			ast := a.Get("state")
			if ast.Get("adjacency-state").String() != "UP" {
				continue
			}
			iface.Adjacencies = append(iface.Adjacencies, ISISAdjacency{
				Interface:     name,
				SystemID:      optString(ast.Get("system-id")),
				NeighborIPv4:  optString(ast.Get("neighbor-ipv4-address")),
				NeighborIPv6:  optString(ast.Get("neighbor-ipv6-address")),
				Level:         num,
				AdjacencyType: optString(ast.Get("adjacency-type")),
				State:         "UP",
				AreaAddress:   stringList(ast.Get("area-address")),
			})
		}
	}
	return iface
}

// SummarizeISIS renders res as text.
func SummarizeISIS(res ISISResult) string {
	if res.Error != "" {
		return "Error: " + res.Error
	}

	lines := []string{"ISIS Router Information:"}
	if res.Router.NET != nil && *res.Router.NET != "" {
		lines = append(lines, "  Network Entity Title (NET): "+*res.Router.NET)
	}
	if res.Router.LevelCapability != nil && *res.Router.LevelCapability != "" {
		lines = append(lines, "  Level Capability: "+*res.Router.LevelCapability)
	}
	sr := res.Router.SegmentRouting != nil && *res.Router.SegmentRouting
	lines = append(lines, "  Segment Routing: "+enabledWord(sr))

	lines = append(lines, "", "ISIS Interfaces:")
	for _, i := range res.Interfaces {
		mode := "Active"
		if i.Passive {
			mode = "Passive"
		}
		lines = append(lines, fmt.Sprintf("  %s: %s, %s", i.Name, enabledWord(i.Enabled), mode))
		for _, l := range i.Levels {
			lines = append(lines, fmt.Sprintf("    Level-%d: %s", l.LevelNumber, enabledWord(l.Enabled)))
		}
	}

	if len(res.Adjacencies) == 0 {
		lines = append(lines, "", "No ISIS adjacencies found.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "", "ISIS Adjacencies:")
	for _, a := range res.Adjacencies {
		lines = append(lines,
			fmt.Sprintf("  %s -> %s (%s)", a.Interface, strOr(a.SystemID, notAvailable), strOr(a.NeighborIPv4, notAvailable)),
			fmt.Sprintf("    Level: %d, State: %s", a.Level, a.State),
		)
	}
	return strings.Join(lines, "\n")
}
