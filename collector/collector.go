// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package collector runs the gnmibuddy operations against inventory devices.
//
// Every operation follows the same steps: a capability preflight for the
// request paths, a Get with the negotiated encoding, then normalization
// and a text summary. The outcome is always a Result; failures are
// reported in Result.Status and Result.Error rather than as Go errors.
// The topology operations build on the interface brief of every device.
//
//	c := collector.New(transport)
//	res := c.VRF(ctx, dev, "", false)
//	fmt.Println(res.Summary)
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/capabilities"
	"github.com/netascode/go-gnmi-buddy/inventory"
	"github.com/netascode/go-gnmi-buddy/normalize"
)

// DefaultMaxWorkers bounds RunAll when WithMaxWorkers is not given.
const DefaultMaxWorkers = 5

// Request paths.
const (
	networkInstancePath = "openconfig-network-instance:/network-instances/network-instance"
	mplsPath            = networkInstancePath + "[name=*]/mpls"
	bgpPath             = networkInstancePath + "[name=*]/protocols/protocol/bgp"
	isisInterfacesPath  = networkInstancePath + "[name=*]/protocols/protocol/isis/interfaces"
	isisGlobalPath      = networkInstancePath + "[name=*]/protocols/protocol/isis/global"
	interfacesPath      = "openconfig-interfaces:/interfaces"
	systemPath          = "openconfig-system:/system"
)

// profilePaths are the leaves a device role is derived from. The AFI-SAFI
// path covers every instance, so VRF address families come in the same Get.
var profilePaths = []string{
	networkInstancePath + "[name=*]/protocols/protocol/bgp/global/afi-safis/afi-safi[afi-safi-name=*]/state",
	networkInstancePath + "[name=*]/mpls/global/interface-attributes/interface[interface-id=*]/state",
	networkInstancePath + "[name=*]/protocols/protocol/isis/global/state",
	networkInstancePath + "[name=*]/protocols/protocol/bgp/neighbors/neighbor[neighbor-address=*]/route-reflector/state",
	networkInstancePath + "[name=*]/protocols/protocol/isis/global/segment-routing/state/enabled",
}

// DataFetcher is the transport used by a Collector. *gnmi.Transport
// implements it.
type DataFetcher interface {
	capabilities.Fetcher
	FetchData(ctx context.Context, dev inventory.Device, paths []string, encoding string) ([]gnmi.Update, error)
}

// Collector runs operations against devices.
type Collector struct {
	fetcher    DataFetcher
	service    *capabilities.Service
	checker    *capabilities.Checker
	maxWorkers int
	metrics    *Metrics
	now        func() time.Time
	topology   singleflight.Group
}

// Option configures a Collector.
type Option func(*Collector)

// WithMaxWorkers sets how many devices RunAll queries at once.
func WithMaxWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithMetrics records run durations.
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithService replaces the capability service built by New. Use it to
// share a cache or capability metrics.
func WithService(svc *capabilities.Service) Option {
	return func(c *Collector) {
		if svc != nil {
			c.service = svc
		}
	}
}

// New returns a Collector using fetcher for all device traffic. Unless
// WithService is given, capabilities are cached in the shared
// capabilities.DefaultRepository.
func New(fetcher DataFetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher:    fetcher,
		maxWorkers: DefaultMaxWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.service == nil {
		c.service = capabilities.NewService(fetcher)
	}
	c.checker = capabilities.NewChecker(c.service)
	return c
}

// Service returns the capability service.
func (c *Collector) Service() *capabilities.Service {
	return c.service
}

// normalizer turns updates into a record and its summary. A non-empty
// problem marks the feature as not available on the device.
type normalizer func(updates []gnmi.Update) (data any, summary, problem string)

// finish records the duration of res.
func (c *Collector) finish(start time.Time, res *Result) {
	res.Duration = time.Since(start)
	c.metrics.observe(res.Operation, res.Status, res.Duration)
}

func (c *Collector) collect(ctx context.Context, dev inventory.Device, op Operation, req capabilities.Request, norm normalizer) (res Result) {
	start := time.Now()
	res = newResult(ctx, dev, op)
	entry := log.WithFields(log.Fields{
		"device":     dev.Name,
		"operation":  op,
		"request_id": res.RequestID,
	})
	defer c.finish(start, &res)

	check, err := capabilities.Preflight(ctx, c.service, c.checker, dev, req)
	if err != nil {
		c.transportFailure(ctx, &res, entry, err)
		return res
	}
	res.Warnings = check.Warnings
	if !check.Success {
		kind, msg := capabilities.ErrorDetails(check)
		res.fail(StatusFailed, string(kind), msg)
		return res
	}

	res.Encoding = capabilities.EffectiveEncoding(check, req)
	updates, err := c.fetcher.FetchData(ctx, dev, req.Paths, res.Encoding)
	switch {
	case errors.Is(err, gnmi.ErrNoData):
		entry.Info("device returned no data")
		res.fail(StatusFeatureNotAvailable, ErrorTypeNoData, fmt.Sprintf("No %s data returned by device", op))
		return res
	case err != nil:
		c.transportFailure(ctx, &res, entry, err)
		return res
	}

	data, summary, problem := norm(updates)
	res.Data = data
	res.Summary = summary
	if problem != "" {
		entry.WithField("reason", problem).Info("feature not available")
		res.fail(StatusFeatureNotAvailable, ErrorTypeFeatureNotAvailable, problem)
		return res
	}
	res.Status = StatusSuccess
	entry.WithField("updates", len(updates)).Debug("collected")
	return res
}

func (c *Collector) transportFailure(ctx context.Context, res *Result, entry *log.Entry, err error) {
	if ctx.Err() != nil {
		res.fail(StatusFailed, ErrorTypeCancelled, ctx.Err().Error())
		return
	}
	entry.WithError(err).Error("request failed")
	res.fail(StatusFailed, ErrorTypeTransport, err.Error())
}

// VRF collects the network instances of dev, or only vrfName when it is
// not empty. The DEFAULT instance is never reported. Data is the compact
// normalize.SimplifyVRF form unless details is set.
func (c *Collector) VRF(ctx context.Context, dev inventory.Device, vrfName string, details bool) Result {
	name := vrfName
	if name == "" {
		name = "*"
	}
	path := fmt.Sprintf("%s[name=%s]", networkInstancePath, name)
	return c.collect(ctx, dev, OpVRF, capabilities.NewRequest([]string{path}), func(updates []gnmi.Update) (any, string, string) {
		vrfs := normalize.ParseVRF(updates)
		if vrfName != "" && len(vrfs.VRFs) == 0 {
			return nil, "", fmt.Sprintf("VRF '%s' not found", vrfName)
		}
		if details {
			return vrfs, normalize.SummarizeVRF(vrfs), ""
		}
		return normalize.SimplifyVRF(vrfs), normalize.SummarizeVRF(vrfs), ""
	})
}

// MPLS collects the MPLS configuration of dev.
func (c *Collector) MPLS(ctx context.Context, dev inventory.Device) Result {
	return c.collect(ctx, dev, OpMPLS, capabilities.NewRequest([]string{mplsPath}), func(updates []gnmi.Update) (any, string, string) {
		mpls := normalize.ParseMPLS(updates)
		return mpls, normalize.SummarizeMPLS(mpls), ""
	})
}

// BGP collects the BGP configuration of the DEFAULT instance.
func (c *Collector) BGP(ctx context.Context, dev inventory.Device) Result {
	return c.bgp(ctx, dev, normalize.SummarizeBGP)
}

// BGPState is BGP with a neighbor session summary.
func (c *Collector) BGPState(ctx context.Context, dev inventory.Device) Result {
	return c.bgp(ctx, dev, normalize.SummarizeBGPState)
}

func (c *Collector) bgp(ctx context.Context, dev inventory.Device, summarize func(normalize.BGPResult) string) Result {
	return c.collect(ctx, dev, OpBGP, capabilities.NewRequest([]string{bgpPath}), func(updates []gnmi.Update) (any, string, string) {
		bgp := normalize.ParseBGP(updates)
		return bgp, summarize(bgp), bgp.ParseError
	})
}

// ISIS collects the IS-IS global settings, interfaces and adjacencies.
func (c *Collector) ISIS(ctx context.Context, dev inventory.Device) Result {
	paths := []string{isisInterfacesPath, isisGlobalPath}
	return c.collect(ctx, dev, OpISIS, capabilities.NewRequest(paths), func(updates []gnmi.Update) (any, string, string) {
		isis := normalize.ParseISIS(updates)
		return isis, normalize.SummarizeISIS(isis), isis.Error
	})
}

// Interfaces collects a brief of all interfaces, or the details of the
// named one.
func (c *Collector) Interfaces(ctx context.Context, dev inventory.Device, name string) Result {
	if name == "" {
		return c.collect(ctx, dev, OpInterfaces, capabilities.NewRequest([]string{interfacesPath}), func(updates []gnmi.Update) (any, string, string) {
			brief := normalize.ParseInterfaceBrief(updates)
			return brief, normalize.SummarizeInterfaceBrief(brief), ""
		})
	}
	path := fmt.Sprintf("%s/interface[name=%s]", interfacesPath, name)
	return c.collect(ctx, dev, OpInterfaces, capabilities.NewRequest([]string{path}), func(updates []gnmi.Update) (any, string, string) {
		detail := normalize.ParseInterface(updates)
		if detail.Name == "" {
			return nil, "", fmt.Sprintf("Interface '%s' not found", name)
		}
		return detail, normalize.SummarizeInterface(detail), ""
	})
}

// System collects hostname, software version, uptime, gRPC servers and
// users.
func (c *Collector) System(ctx context.Context, dev inventory.Device) Result {
	return c.collect(ctx, dev, OpSystem, capabilities.NewRequest([]string{systemPath}), func(updates []gnmi.Update) (any, string, string) {
		info := normalize.ParseSystem(updates, c.now())
		if info.Error != "" {
			return nil, "", info.Error
		}
		return info, normalize.SummarizeSystem(info), ""
	})
}

// Logs reads the device log with the ascii encoding and keeps the lines
// selected by f.
func (c *Collector) Logs(ctx context.Context, dev inventory.Device, f normalize.LogFilter) Result {
	req := capabilities.NewRequest(
		[]string{normalize.LogQuery(f.Keywords)},
		capabilities.RequestEncoding(string(capabilities.EncodingASCII)),
	)
	return c.collect(ctx, dev, OpLogs, req, func(updates []gnmi.Update) (any, string, string) {
		logs := normalize.FilterLogs(updates, f, c.now())
		return logs, normalize.SummarizeLogs(logs), ""
	})
}

// Profile derives the role of dev (RR, PE, P, IGP-only or CE) from the
// protocols it runs.
func (c *Collector) Profile(ctx context.Context, dev inventory.Device) Result {
	return c.collect(ctx, dev, OpProfile, capabilities.NewRequest(profilePaths), func(updates []gnmi.Update) (any, string, string) {
		p := normalize.ParseProfile(updates)
		return p, normalize.SummarizeProfile(p), ""
	})
}

// Capabilities returns the capabilities of dev, from the cache when
// present.
func (c *Collector) Capabilities(ctx context.Context, dev inventory.Device) (res Result) {
	start := time.Now()
	res = newResult(ctx, dev, OpCapabilities)
	defer c.finish(start, &res)

	caps, err := c.service.GetOrFetch(ctx, dev)
	if err != nil {
		entry := log.WithFields(log.Fields{"device": dev.Name, "operation": OpCapabilities, "request_id": res.RequestID})
		c.transportFailure(ctx, &res, entry, err)
		return res
	}
	res.Status = StatusSuccess
	res.Data = caps
	res.Summary = SummarizeCapabilities(caps)
	return res
}

// SummarizeCapabilities renders the capability view, including the
// status of every model gnmibuddy depends on.
func SummarizeCapabilities(caps capabilities.DeviceCapabilities) string {
	var b strings.Builder
	fmt.Fprintf(&b, "gNMI Version: %s\n", orNA(caps.GNMIVersion))
	encodings := "none"
	if len(caps.Encodings) > 0 {
		encodings = strings.Join(caps.EncodingTokens(), ", ")
	}
	fmt.Fprintf(&b, "Supported Encodings: %s\n", encodings)
	fmt.Fprintf(&b, "Models: %d\n", len(caps.Models))
	b.WriteString("Required Models:")

	names := make([]string, 0, len(capabilities.RequiredModels))
	for name := range capabilities.RequiredModels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req := capabilities.ModelRequirement{Name: name, MinimumVersion: capabilities.RequiredModels[name]}
		present, older := caps.HasModel(req)
		var status string
		switch m, _ := caps.FindModel(name); {
		case !present:
			status = "missing"
		case older:
			status = fmt.Sprintf("older than required (%s)", orNA(m.Version))
		default:
			status = fmt.Sprintf("ok (%s)", orNA(m.Version))
		}
		fmt.Fprintf(&b, "\n  %s: %s", req, status)
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// RunAll calls fn for every device, at most maxWorkers at a time, and
// returns the results in the order of devices. Devices not started
// before ctx is done get a cancelled result for op.
func (c *Collector) RunAll(ctx context.Context, devices []inventory.Device, op Operation, fn func(ctx context.Context, dev inventory.Device) Result) []Result {
	results := make([]Result, len(devices))
	sem := semaphore.NewWeighted(int64(c.maxWorkers))
	var wg sync.WaitGroup

	for i, dev := range devices {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(devices); j++ {
				results[j] = newResult(ctx, devices[j], op)
				results[j].fail(StatusFailed, ErrorTypeCancelled, err.Error())
			}
			break
		}
		wg.Add(1)
		go func(i int, dev inventory.Device) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = fn(ctx, dev)
		}(i, dev)
	}
	wg.Wait()
	return results
}
