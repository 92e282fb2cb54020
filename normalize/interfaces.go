// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/AlekSi/pointer"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

var interfaceNameRE = regexp.MustCompile(`interface\[name=([^\]]+)\]`)

// InterfaceBrief is the one-line-per-interface view of /interfaces.
type InterfaceBrief struct {
	Interfaces []InterfaceSummary `json:"interfaces"`
	Stats      InterfaceStats     `json:"summary"`
	Timestamp  int64              `json:"timestamp,omitempty"`
}

// InterfaceSummary is one row of an InterfaceBrief. IPAddress is written
// as "address/mask".
type InterfaceSummary struct {
	Name        string  `json:"name"`
	AdminStatus *string `json:"admin_status,omitempty"`
	OperStatus  *string `json:"oper_status,omitempty"`
	IPAddress   *string `json:"ip_address,omitempty"`
	VRF         *string `json:"vrf,omitempty"`
}

// InterfaceStats counts the interfaces of a brief by state.
type InterfaceStats struct {
	Total     int `json:"total_interfaces"`
	AdminUp   int `json:"admin_up"`
	AdminDown int `json:"admin_down"`
	OperUp    int `json:"oper_up"`
	OperDown  int `json:"oper_down"`
	WithIP    int `json:"with_ip"`
	WithVRF   int `json:"with_vrf"`
}

// InterfaceDetail is the full view of a single interface. An empty Name
// means no interface was found.
type InterfaceDetail struct {
	Name         string            `json:"name"`
	AdminState   *string           `json:"admin_state"`
	OperState    *string           `json:"oper_state"`
	Description  *string           `json:"description"`
	MTU          *int64            `json:"mtu"`
	IPAddress    *string           `json:"ip_address"`
	PrefixLength *int64            `json:"prefix_length"`
	VRF          *string           `json:"vrf"`
	MACAddress   *string           `json:"mac_address"`
	Speed        *string           `json:"speed"`
	Duplex       *string           `json:"duplex"`
	Counters     InterfaceCounters `json:"counters"`
	Timestamp    int64             `json:"timestamp,omitempty"`
}

// InterfaceCounters are the packet and error counters of an interface.
type InterfaceCounters struct {
	InPackets  *uint64 `json:"in_packets"`
	OutPackets *uint64 `json:"out_packets"`
	InErrors   *uint64 `json:"in_errors"`
	OutErrors  *uint64 `json:"out_errors"`
}

// PrefixToSubnetMask converts a prefix length to a dotted IPv4 mask, e.g.
// 24 to "255.255.255.0". It returns "" for lengths outside 0..32.
func PrefixToSubnetMask(n int) string {
	mask := net.CIDRMask(n, 32)
	if mask == nil {
		return ""
	}
	return net.IP(mask).String()
}

// interfaceList returns the interface entries of val, which may be the
// interfaces container or hold it.
func interfaceList(val gjson.Result) []gjson.Result {
	if c := member(val, "interfaces"); c.IsObject() {
		val = c
	}
	return list(member(val, "interface"))
}

// mainSubinterface returns subinterface index 0.
func mainSubinterface(iface gjson.Result) (gjson.Result, bool) {
	for _, s := range list(iface.Get("subinterfaces.subinterface")) {
		idx := s.Get("index")
		if !idx.Exists() {
			idx = s.Get("state.index")
		}
		if idx.Exists() && idx.Int() == 0 {
			return s, true
		}
	}
	return gjson.Result{}, false
}

// primaryIPv4 returns the first IPv4 address of a subinterface and its
// prefix length.
func primaryIPv4(sub gjson.Result) (ip *string, prefix *int64) {
	addrs := list(member(sub, "ipv4").Get("addresses.address"))
	if len(addrs) == 0 {
		return nil, nil
	}
	a := addrs[0]
	ip = optString(a.Get("ip"))
	if ip == nil {
		ip = optString(a.Get("state.ip"))
	}
	prefix = optInt(a.Get("state.prefix-length"))
	if prefix == nil {
		prefix = optInt(a.Get("config.prefix-length"))
	}
	return ip, prefix
}

func subinterfaceVRF(sub gjson.Result) *string {
	var vrf *string
	if nis := list(member(sub, "network-instance")); len(nis) > 0 {
		vrf = optString(nis[0].Get("name"))
	}
	if v := optString(sub.Get("vrf-instance")); v != nil {
		vrf = v
	}
	return vrf
}

// ParseInterfaceBrief summarizes every named interface in updates.
func ParseInterfaceBrief(updates []gnmi.Update) InterfaceBrief {
	b := InterfaceBrief{Interfaces: []InterfaceSummary{}}
	if len(updates) == 0 {
		return b
	}
	b.Timestamp = timestampOf(updates)

	for _, u := range updates {
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		for _, i := range interfaceList(val) {
			name := i.Get("name").String()
			if name == "" {
				continue
			}
			s := InterfaceSummary{
				Name:        name,
				AdminStatus: optString(i.Get("state.admin-status")),
				OperStatus:  optString(i.Get("state.oper-status")),
			}
			if sub, ok := mainSubinterface(i); ok {
				if ip, prefix := primaryIPv4(sub); ip != nil && prefix != nil {
					if mask := PrefixToSubnetMask(int(*prefix)); mask != "" {
						s.IPAddress = pointer.ToString(*ip + "/" + mask)
					}
				}
				s.VRF = subinterfaceVRF(sub)
			}
			b.Interfaces = append(b.Interfaces, s)
		}
	}
	b.Stats = interfaceStats(b.Interfaces)
	return b
}

func interfaceStats(ifaces []InterfaceSummary) InterfaceStats {
	st := InterfaceStats{Total: len(ifaces)}
	for _, i := range ifaces {
		if i.AdminStatus != nil && *i.AdminStatus == "UP" {
			st.AdminUp++
		}
		if i.OperStatus != nil && *i.OperStatus == "UP" {
			st.OperUp++
		}
		if i.IPAddress != nil {
			st.WithIP++
		}
		if i.VRF != nil {
			st.WithVRF++
		}
	}
	st.AdminDown = st.Total - st.AdminUp
	st.OperDown = st.Total - st.OperUp
	return st
}

// ParseInterface reads the first interface found in updates. The value
// may be the interfaces container, a list entry, or the entry contents
// with the name only present in the path.
func ParseInterface(updates []gnmi.Update) InterfaceDetail {
	var d InterfaceDetail
	for _, u := range updates {
		if d.Timestamp == 0 {
			d.Timestamp = u.Timestamp
		}
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		iface := val
		if entries := interfaceList(val); len(entries) > 0 {
			iface = entries[0]
		}
		name := iface.Get("name").String()
		if name == "" {
			if m := interfaceNameRE.FindStringSubmatch(u.Path); m != nil && m[1] != "*" {
				name = m[1]
			}
		}
		if name == "" {
			continue
		}
		fillInterfaceDetail(&d, name, iface)
		break
	}
	return d
}

func fillInterfaceDetail(d *InterfaceDetail, name string, iface gjson.Result) {
	d.Name = name
	st := iface.Get("state")
	d.AdminState = optString(st.Get("admin-status"))
	d.OperState = optString(st.Get("oper-status"))
	d.Description = optString(st.Get("description"))
	d.MTU = optInt(st.Get("mtu"))

	c := st.Get("counters")
	d.Counters = InterfaceCounters{
		InPackets:  optUint(c.Get("in-pkts")),
		OutPackets: optUint(c.Get("out-pkts")),
		InErrors:   optUint(c.Get("in-errors")),
		OutErrors:  optUint(c.Get("out-errors")),
	}

	eth := member(iface, "ethernet").Get("state")
	d.MACAddress = optString(eth.Get("mac-address"))
	d.Speed = optString(eth.Get("port-speed"))
	d.Duplex = optString(eth.Get("duplex-mode"))

	if sub, ok := mainSubinterface(iface); ok {
		d.IPAddress, d.PrefixLength = primaryIPv4(sub)
		d.VRF = subinterfaceVRF(sub)
	}
}

func statusOr(p *string) string {
	return strOr(p, "UNKNOWN")
}

// SummarizeInterfaceBrief renders b as a header line followed by one line
// per interface.
func SummarizeInterfaceBrief(b InterfaceBrief) string {
	if len(b.Interfaces) == 0 {
		return "No interface data available."
	}
	lines := []string{fmt.Sprintf("Interfaces: %d total, %d admin up, %d oper up, %d with IPv4, %d in a VRF",
		b.Stats.Total, b.Stats.AdminUp, b.Stats.OperUp, b.Stats.WithIP, b.Stats.WithVRF)}
	for _, i := range b.Interfaces {
		line := fmt.Sprintf("  %s: admin %s, oper %s", i.Name, statusOr(i.AdminStatus), statusOr(i.OperStatus))
		if i.IPAddress != nil {
			line += ", ip " + *i.IPAddress
		}
		if i.VRF != nil {
			line += ", vrf " + *i.VRF
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// SummarizeInterface renders d as indented fields. Unset fields are left
// out.
func SummarizeInterface(d InterfaceDetail) string {
	if d.Name == "" {
		return "No interface data available."
	}
	lines := []string{fmt.Sprintf("Interface %s:", d.Name)}
	add := func(label string, v *string) {
		if v != nil && *v != "" {
			lines = append(lines, fmt.Sprintf("  %s: %s", label, *v))
		}
	}
	add("Admin State", d.AdminState)
	add("Oper State", d.OperState)
	add("Description", d.Description)
	if d.MTU != nil {
		lines = append(lines, fmt.Sprintf("  MTU: %d", *d.MTU))
	}
	if d.IPAddress != nil {
		ip := *d.IPAddress
		if d.PrefixLength != nil {
			ip = fmt.Sprintf("%s/%d", ip, *d.PrefixLength)
		}
		lines = append(lines, "  IP Address: "+ip)
	}
	add("VRF", d.VRF)
	add("MAC Address", d.MACAddress)
	add("Speed", d.Speed)
	add("Duplex", d.Duplex)

	c := d.Counters
	if c.InPackets != nil || c.OutPackets != nil {
		lines = append(lines, fmt.Sprintf("  Counters: in %s pkts / %s errors, out %s pkts / %s errors",
			uintOr(c.InPackets), uintOr(c.InErrors), uintOr(c.OutPackets), uintOr(c.OutErrors)))
	}
	return strings.Join(lines, "\n")
}

func uintOr(p *uint64) string {
	if p == nil {
		return notAvailable
	}
	return fmt.Sprintf("%d", *p)
}
