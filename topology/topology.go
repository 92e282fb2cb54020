// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package topology links inventory devices that share a point-to-point
// IPv4 subnet.
//
// A Graph is built from the interface brief of every device: each subnet
// configured on exactly two interfaces becomes a Link between their
// devices. Management interfaces are ignored.
//
//	g := topology.New(names, endpoints)
//	nodes, links, err := g.ShortestPath("xrd-1", "xrd-4")
package topology

import (
	"errors"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/netascode/go-gnmi-buddy/normalize"
)

// ManagementInterfaces are never linked.
var ManagementInterfaces = map[string]bool{
	"MgmtEth0/RP0/CPU0/0": true,
}

// Errors returned by ShortestPath.
var (
	ErrUnknownDevice = errors.New("device not in topology")
	ErrNoPath        = errors.New("no path")
)

// Endpoint is an addressed interface.
type Endpoint struct {
	Device    string `json:"device"`
	Interface string `json:"interface"`
	IP        string `json:"ip"`
	Network   string `json:"network"`
}

// Link connects two devices over a shared subnet. Local is the Source
// side.
type Link struct {
	Source          string `json:"source"`
	Target          string `json:"target"`
	Network         string `json:"network"`
	LocalInterface  string `json:"local_interface"`
	RemoteInterface string `json:"remote_interface"`
	LocalIP         string `json:"local_ip"`
	RemoteIP        string `json:"remote_ip"`
}

// Reverse returns l seen from its target.
func (l Link) Reverse() Link {
	return Link{
		Source:          l.Target,
		Target:          l.Source,
		Network:         l.Network,
		LocalInterface:  l.RemoteInterface,
		RemoteInterface: l.LocalInterface,
		LocalIP:         l.RemoteIP,
		RemoteIP:        l.LocalIP,
	}
}

// String renders l as "src if (ip) <-> dst if (ip) [network]".
func (l Link) String() string {
	return fmt.Sprintf("%s %s (%s) <-> %s %s (%s) [%s]",
		l.Source, l.LocalInterface, l.LocalIP, l.Target, l.RemoteInterface, l.RemoteIP, l.Network)
}

// Neighbor is a directly linked device.
type Neighbor struct {
	Name string `json:"neighbor"`
	Link Link   `json:"attributes"`
}

// Graph is an undirected device graph. It is immutable once built.
type Graph struct {
	nodes []string
	order map[string]int
	links []Link
	adj   map[string][]int
}

// EndpointsFromBrief returns the addressed interfaces of an interface
// brief. Addresses are written "ip/mask" by normalize.ParseInterfaceBrief.
func EndpointsFromBrief(device string, brief normalize.InterfaceBrief) []Endpoint {
	var out []Endpoint
	for _, i := range brief.Interfaces {
		if i.IPAddress == nil || ManagementInterfaces[i.Name] {
			continue
		}
		network, ip, ok := subnet(*i.IPAddress)
		if !ok {
			log.WithFields(log.Fields{"device": device, "interface": i.Name, "address": *i.IPAddress}).
				Debug("skipping unparsable interface address")
			continue
		}
		out = append(out, Endpoint{Device: device, Interface: i.Name, IP: ip, Network: network})
	}
	return out
}

// subnet parses "ip/mask" or "ip/len" into its network and address.
func subnet(addr string) (network, ip string, ok bool) {
	host, mask, found := strings.Cut(addr, "/")
	if !found {
		return "", "", false
	}
	parsed := net.ParseIP(host).To4()
	if parsed == nil {
		return "", "", false
	}
	if m := net.ParseIP(mask).To4(); m != nil {
		ipnet := net.IPNet{IP: parsed.Mask(net.IPMask(m)), Mask: net.IPMask(m)}
		if ones, bits := ipnet.Mask.Size(); bits == 0 || ones == 0 {
			return "", "", false
		}
		return ipnet.String(), host, true
	}
	_, ipnet, err := net.ParseCIDR(addr)
	if err != nil {
		return "", "", false
	}
	return ipnet.String(), host, true
}

// New builds the graph of devices. Every device is a node even without
// links. Link direction follows the order of devices.
func New(devices []string, endpoints []Endpoint) *Graph {
	g := &Graph{
		order: make(map[string]int, len(devices)),
		adj:   make(map[string][]int),
	}
	for _, d := range devices {
		g.addNode(d)
	}

	var networks []string
	byNetwork := make(map[string][]Endpoint)
	for _, e := range endpoints {
		if e.Device == "" || e.Network == "" || ManagementInterfaces[e.Interface] {
			continue
		}
		g.addNode(e.Device)
		if _, ok := byNetwork[e.Network]; !ok {
			networks = append(networks, e.Network)
		}
		byNetwork[e.Network] = append(byNetwork[e.Network], e)
	}

	for _, network := range networks {
		eps := byNetwork[network]
		if len(eps) != 2 {
			continue
		}
		a, b := eps[0], eps[1]
		if g.order[b.Device] < g.order[a.Device] {
			a, b = b, a
		}
		g.addLink(Link{
			Source:          a.Device,
			Target:          b.Device,
			Network:         network,
			LocalInterface:  a.Interface,
			RemoteInterface: b.Interface,
			LocalIP:         a.IP,
			RemoteIP:        b.IP,
		})
	}
	return g
}

func (g *Graph) addNode(name string) {
	if _, ok := g.order[name]; ok {
		return
	}
	g.order[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

func (g *Graph) addLink(l Link) {
	idx := len(g.links)
	g.links = append(g.links, l)
	g.adj[l.Source] = append(g.adj[l.Source], idx)
	if l.Target != l.Source {
		g.adj[l.Target] = append(g.adj[l.Target], idx)
	}
}

// Nodes returns the devices in build order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Links returns every link, or only those on network when it is set.
func (g *Graph) Links(network string) []Link {
	out := []Link{}
	for _, l := range g.links {
		if network == "" || l.Network == network {
			out = append(out, l)
		}
	}
	return out
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.order[name]
	return ok
}

// Neighbors returns the devices linked to name, with each link seen from
// name.
func (g *Graph) Neighbors(name string) []Neighbor {
	out := []Neighbor{}
	for _, idx := range g.adj[name] {
		l := g.from(name, g.links[idx])
		out = append(out, Neighbor{Name: l.Target, Link: l})
	}
	return out
}

func (g *Graph) from(name string, l Link) Link {
	if l.Source == name {
		return l
	}
	return l.Reverse()
}

// ShortestPath returns the devices on a fewest-hop path from src to dst
// and the links between them.
func (g *Graph) ShortestPath(src, dst string) ([]string, []Link, error) {
	for _, n := range []string{src, dst} {
		if !g.Has(n) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDevice, n)
		}
	}
	if src == dst {
		return []string{src}, []Link{}, nil
	}

	prev := map[string]int{src: -1}
	queue := []string{src}
	for len(queue) > 0 && !hasKey(prev, dst) {
		cur := queue[0]
		queue = queue[1:]
		for _, idx := range g.adj[cur] {
			next := g.from(cur, g.links[idx]).Target
			if hasKey(prev, next) {
				continue
			}
			prev[next] = idx
			queue = append(queue, next)
		}
	}
	if !hasKey(prev, dst) {
		return nil, nil, fmt.Errorf("%w from %s to %s", ErrNoPath, src, dst)
	}

	var links []Link
	nodes := []string{dst}
	for cur := dst; cur != src; {
		l := g.links[prev[cur]]
		if l.Target != cur {
			l = l.Reverse()
		}
		links = append([]Link{l}, links...)
		cur = l.Source
		nodes = append([]string{cur}, nodes...)
	}
	return nodes, links, nil
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}
