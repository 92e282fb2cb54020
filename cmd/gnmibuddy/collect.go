// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/collector"
	"github.com/netascode/go-gnmi-buddy/inventory"
	"github.com/netascode/go-gnmi-buddy/normalize"
)

type runFunc func(c *collector.Collector) func(ctx context.Context, dev inventory.Device) collector.Result

func newCapabilitiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show gNMI capabilities and required model support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpCapabilities, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return c.Capabilities
			})
		},
	}
}

func newVRFCmd(opts *options) *cobra.Command {
	var (
		vrf     string
		details bool
	)
	cmd := &cobra.Command{
		Use:   "vrf",
		Short: "Show VRFs (network instances other than DEFAULT)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpVRF, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return func(ctx context.Context, dev inventory.Device) collector.Result {
					return c.VRF(ctx, dev, vrf, details)
				}
			})
		},
	}
	cmd.Flags().StringVar(&vrf, "vrf", "", "only this VRF")
	cmd.Flags().BoolVar(&details, "details", false, "report every VRF field instead of the compact form")
	return cmd
}

func newMPLSCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mpls",
		Short: "Show MPLS label blocks and interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpMPLS, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return c.MPLS
			})
		},
	}
}

func newBGPCmd(opts *options) *cobra.Command {
	var state bool
	cmd := &cobra.Command{
		Use:   "bgp",
		Short: "Show BGP configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpBGP, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				if state {
					return c.BGPState
				}
				return c.BGP
			})
		},
	}
	cmd.Flags().BoolVar(&state, "state", false, "summarize neighbor session states")
	return cmd
}

func newISISCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "isis",
		Short: "Show IS-IS router, interfaces and adjacencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpISIS, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return c.ISIS
			})
		},
	}
}

func newInterfacesCmd(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "Show an interface brief, or one interface with --name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpInterfaces, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return func(ctx context.Context, dev inventory.Device) collector.Result {
					return c.Interfaces(ctx, dev, name)
				}
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "interface name")
	return cmd
}

func newSystemCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Show hostname, software version, uptime, gRPC servers and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpSystem, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return c.System
			})
		},
	}
}

func newLogsCmd(opts *options) *cobra.Command {
	var f normalize.LogFilter
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent device log messages",
		Long: `Reads "show logging" over gNMI with the ascii encoding. Lines are kept when
their severity is 1 to 5 or they match a routing keyword, and when they are
younger than --minutes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpLogs, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return func(ctx context.Context, dev inventory.Device) collector.Result {
					return c.Logs(ctx, dev, f)
				}
			})
		},
	}
	cmd.Flags().StringVar(&f.Keywords, "keywords", "", "egrep alternation replacing the routing keywords, e.g. 'BGP|OSPF'")
	cmd.Flags().IntVar(&f.Minutes, "minutes", normalize.DefaultLogMinutes, "drop messages older than this")
	cmd.Flags().BoolVar(&f.All, "all", false, "keep messages of any age")
	return cmd
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Classify devices as RR, PE, P, IGP-only or CE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, collector.OpProfile, func(c *collector.Collector) func(context.Context, inventory.Device) collector.Result {
				return c.Profile
			})
		},
	}
}

func newNeighborsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors",
		Short: "Show the devices sharing a point-to-point subnet with each selected device",
		Long: `The topology is built from the interface brief of every inventory device.
Management interfaces are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, collector.OpNeighbors, func(ctx context.Context, c *collector.Collector, all, selected []inventory.Device) []collector.Result {
				results := make([]collector.Result, len(selected))
				for i, dev := range selected {
					results[i] = c.Neighbors(ctx, all, dev)
				}
				return results
			})
		},
	}
}

func newAdjacencyCmd(opts *options) *cobra.Command {
	var network string
	cmd := &cobra.Command{
		Use:   "adjacency",
		Short: "Show every link between the selected devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, collector.OpAdjacency, func(ctx context.Context, c *collector.Collector, _, selected []inventory.Device) []collector.Result {
				return []collector.Result{c.Adjacency(ctx, selected, network)}
			})
		},
	}
	cmd.Flags().StringVar(&network, "network", "", "only links on this subnet, e.g. 10.0.12.0/30")
	return cmd
}

func newPathCmd(opts *options) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show a fewest-hop path from each selected device to --target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, collector.OpPath, func(ctx context.Context, c *collector.Collector, all, selected []inventory.Device) []collector.Result {
				results := make([]collector.Result, len(selected))
				for i, dev := range selected {
					results[i] = c.Path(ctx, all, dev, target)
				}
				return results
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "destination device name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List inventory devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := opts.loadInventory()
			if err != nil {
				return err
			}
			return writeDevices(cmd.OutOrStdout(), inv.Devices(), opts.json)
		},
	}
}

func (o *options) run(cmd *cobra.Command, op collector.Operation, fn runFunc) error {
	return o.runWith(cmd, op, func(ctx context.Context, c *collector.Collector, _, selected []inventory.Device) []collector.Result {
		return c.RunAll(ctx, selected, op, fn(c))
	})
}

// runWith runs fn with every inventory device and the selected ones, then
// prints the results.
// The prompted password, if any, applies to all of them.
func (o *options) runWith(cmd *cobra.Command, op collector.Operation, fn func(ctx context.Context, c *collector.Collector, all, selected []inventory.Device) []collector.Result) error {
	inv, err := o.loadInventory()
	if err != nil {
		return err
	}
	selected, err := o.selectDevices(inv)
	if err != nil {
		return err
	}
	all := inv.Devices()
	if o.askPassword {
		for i := range all {
			all[i].Password = selected[0].Password
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := gnmi.NewTransport(transportLogger())
	defer func() {
		if err := transport.Close(); err != nil {
			log.WithError(err).Debug("close transport")
		}
	}()

	c := collector.New(transport, collector.WithMaxWorkers(o.maxWorkers))
	results := fn(ctx, c, all, selected)
	if err := writeResults(cmd.OutOrStdout(), results, o.json); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == collector.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s failed on %d of %d devices", op, failed, len(results))
	}
	return nil
}

func writeResults(w io.Writer, results []collector.Result, asJSON bool) error {
	if asJSON {
		docs := make([]string, len(results))
		for i, r := range results {
			out, err := r.JSON()
			if err != nil {
				return err
			}
			docs[i] = out
		}
		if len(docs) == 1 {
			_, err := fmt.Fprintln(w, docs[0])
			return err
		}
		_, err := fmt.Fprintf(w, "[%s]\n", strings.Join(docs, ","))
		return err
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if r.Device == "" {
			fmt.Fprintf(w, "=== %s: %s ===\n", r.Operation, r.Status)
		} else {
			fmt.Fprintf(w, "=== %s (%s) %s: %s ===\n", r.Device, r.IPAddress, r.Operation, r.Status)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warn)
		}
		if r.Error != nil {
			fmt.Fprintf(w, "%s: %s\n", r.Error.Type, r.Error.Message)
		}
		if r.Summary != "" {
			fmt.Fprintln(w, strings.TrimRight(r.Summary, "\n"))
		}
	}
	return nil
}

func writeDevices(w io.Writer, devices []inventory.Device, asJSON bool) error {
	if asJSON {
		infos := make([]map[string]any, len(devices))
		for i, d := range devices {
			infos[i] = d.Info()
		}
		out, err := collector.Document{}.Set("devices", infos).Set("count", len(infos)).String()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tNOS")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Address(), d.NOS)
	}
	return tw.Flush()
}
