// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netascode/go-gnmi-buddy/inventory"
	"github.com/netascode/go-gnmi-buddy/normalize"
	"github.com/netascode/go-gnmi-buddy/topology"
)

// Topology collects the interface brief of every device, RunAll style,
// and links devices sharing a subnet. Devices without interface data are
// left out. The first failed device fails the build, and its result is
// returned. Concurrent calls for the same devices share one build.
func (c *Collector) Topology(ctx context.Context, devices []inventory.Device) (*topology.Graph, *Result) {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	v, _, shared := c.topology.Do(strings.Join(names, ","), func() (any, error) {
		g, failed := c.buildTopology(ctx, devices)
		return topologyBuild{graph: g, failed: failed}, nil
	})
	if shared {
		log.WithField("devices", len(devices)).Debug("shared topology build")
	}
	b := v.(topologyBuild)
	return b.graph, b.failed
}

type topologyBuild struct {
	graph  *topology.Graph
	failed *Result
}

func (c *Collector) buildTopology(ctx context.Context, devices []inventory.Device) (*topology.Graph, *Result) {
	results := c.RunAll(ctx, devices, OpInterfaces, func(ctx context.Context, dev inventory.Device) Result {
		return c.Interfaces(ctx, dev, "")
	})

	var names []string
	var endpoints []topology.Endpoint
	for i := range results {
		r := &results[i]
		switch r.Status {
		case StatusFailed:
			return nil, r
		case StatusSuccess:
			brief, ok := r.Data.(normalize.InterfaceBrief)
			if !ok {
				continue
			}
			names = append(names, r.Device)
			endpoints = append(endpoints, topology.EndpointsFromBrief(r.Device, brief)...)
		default:
			log.WithField("device", r.Device).Debug("no interface data, left out of topology")
		}
	}
	return topology.New(names, endpoints), nil
}

// topologyFailure copies the error of the device that failed the build.
func topologyFailure(res *Result, failed *Result) {
	msg := failed.Error.Message
	if failed.Device != res.Device {
		msg = failed.Device + ": " + msg
	}
	res.fail(StatusFailed, failed.Error.Type, msg)
}

// Neighbors reports the devices linked to dev. devices is the set the
// topology is built from.
func (c *Collector) Neighbors(ctx context.Context, devices []inventory.Device, dev inventory.Device) (res Result) {
	start := time.Now()
	res = newResult(ctx, dev, OpNeighbors)
	defer c.finish(start, &res)

	g, failed := c.Topology(ctx, devices)
	if failed != nil {
		topologyFailure(&res, failed)
		return res
	}

	neighbors := g.Neighbors(dev.Name)
	res.Status = StatusSuccess
	res.Data = map[string]any{
		"neighbors":          neighbors,
		"device_in_topology": g.Has(dev.Name),
	}
	if len(neighbors) == 0 {
		res.Summary = fmt.Sprintf("No neighbors found for device %s", dev.Name)
		return res
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d neighbors for device %s:", len(neighbors), dev.Name)
	for _, n := range neighbors {
		fmt.Fprintf(&b, "\n- %s", n.Link)
	}
	res.Summary = b.String()
	return res
}

// Adjacency reports every link between devices, or only the links on
// network when it is set. The result is not bound to a single device.
func (c *Collector) Adjacency(ctx context.Context, devices []inventory.Device, network string) (res Result) {
	start := time.Now()
	res = newResult(ctx, inventory.Device{}, OpAdjacency)
	defer c.finish(start, &res)

	g, failed := c.Topology(ctx, devices)
	if failed != nil {
		topologyFailure(&res, failed)
		return res
	}

	links := g.Links(network)
	res.Status = StatusSuccess
	res.Data = map[string]any{
		"nodes": g.Nodes(),
		"links": links,
	}
	if len(links) == 0 {
		res.Summary = "No topology connections discovered"
		return res
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d devices, %d connections:", len(g.Nodes()), len(links))
	for _, l := range links {
		fmt.Fprintf(&b, "\n- %s", l)
	}
	res.Summary = b.String()
	return res
}

// Path reports a fewest-hop path from dev to target.
func (c *Collector) Path(ctx context.Context, devices []inventory.Device, dev inventory.Device, target string) (res Result) {
	start := time.Now()
	res = newResult(ctx, dev, OpPath)
	defer c.finish(start, &res)

	g, failed := c.Topology(ctx, devices)
	if failed != nil {
		topologyFailure(&res, failed)
		return res
	}

	nodes, links, err := g.ShortestPath(dev.Name, target)
	if err != nil {
		res.fail(StatusFailed, ErrorTypeTopology, err.Error())
		return res
	}

	res.Status = StatusSuccess
	res.Data = map[string]any{
		"nodes": nodes,
		"edges": links,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Path: %s (%d hops)", strings.Join(nodes, " -> "), len(links))
	for _, l := range links {
		fmt.Fprintf(&b, "\n- %s", l)
	}
	res.Summary = b.String()
	return res
}
