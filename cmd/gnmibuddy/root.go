// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/collector"
	"github.com/netascode/go-gnmi-buddy/inventory"
)

const logTimeFormat = "2006-01-02 15:04:05"

type options struct {
	inventory   string
	logLevel    string
	logFormat   string
	devices     []string
	allDevices  bool
	maxWorkers  int
	askPassword bool
	json        bool

	// readPassword is replaced in tests.
	readPassword func() (string, error)
}

func newRootCmd() *cobra.Command {
	opts := &options{readPassword: promptPassword}

	cmd := &cobra.Command{
		Use:               "gnmibuddy",
		Short:             "Query network devices over gNMI",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		Long: `gnmibuddy checks device capabilities, fetches OpenConfig data over gNMI and
prints normalized summaries of VRFs, MPLS, BGP, IS-IS, interfaces, system
state and logs. Device roles and the point-to-point topology between
devices are derived from the same data.

Devices come from a YAML inventory given with --inventory or NETWORK_INVENTORY.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.inventory, "inventory", "i", "", "inventory file (default $"+inventory.EnvInventory+")")
	f.StringVar(&opts.logLevel, "log-level", "warning", "log level (trace, debug, info, warning, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	f.StringArrayVarP(&opts.devices, "device", "d", nil, "device name, repeatable")
	f.BoolVar(&opts.allDevices, "all-devices", false, "run against every inventory device")
	f.IntVar(&opts.maxWorkers, "max-workers", collector.DefaultMaxWorkers, "devices queried in parallel")
	f.BoolVar(&opts.askPassword, "ask-password", false, "prompt for the device password")
	f.BoolVar(&opts.json, "json", false, "print results as JSON")

	cmd.AddCommand(
		newCapabilitiesCmd(opts),
		newVRFCmd(opts),
		newMPLSCmd(opts),
		newBGPCmd(opts),
		newISISCmd(opts),
		newInterfacesCmd(opts),
		newSystemCmd(opts),
		newLogsCmd(opts),
		newProfileCmd(opts),
		newNeighborsCmd(opts),
		newAdjacencyCmd(opts),
		newPathCmd(opts),
		newDevicesCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func setupLogging(level, format string, w io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(w)

	switch strings.ToLower(format) {
	case "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: logTimeFormat,
		})
	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}
	return nil
}

// transportLogger routes the transport's logs through the logrus standard
// logger at the same threshold.
func transportLogger() gnmi.Logger {
	level := gnmi.LogLevelError
	switch log.GetLevel() {
	case log.TraceLevel, log.DebugLevel:
		level = gnmi.LogLevelDebug
	case log.InfoLevel:
		level = gnmi.LogLevelInfo
	case log.WarnLevel:
		level = gnmi.LogLevelWarn
	}
	return gnmi.NewLogrusLogger(log.StandardLogger(), level)
}

func (o *options) loadInventory() (*inventory.Inventory, error) {
	path, err := inventory.ResolvePath(o.inventory)
	if err != nil {
		return nil, err
	}
	return inventory.Load(path)
}

// selectDevices returns the devices named on the command line, with the
// prompted password applied when --ask-password is set.
func (o *options) selectDevices(inv *inventory.Inventory) ([]inventory.Device, error) {
	var devices []inventory.Device
	switch {
	case o.allDevices && len(o.devices) > 0:
		return nil, errors.New("--device and --all-devices are mutually exclusive")
	case o.allDevices:
		devices = inv.Devices()
	case len(o.devices) > 0:
		var err error
		if devices, err = inv.Select(o.devices); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("no devices selected: use --device or --all-devices")
	}
	if len(devices) == 0 {
		return nil, errors.New("inventory has no devices")
	}

	if o.askPassword {
		pw, err := o.readPassword()
		if err != nil {
			return nil, err
		}
		for i := range devices {
			devices[i].Password = pw
		}
	}
	return devices, nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-password needs an interactive terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gnmibuddy %s\n", version)
		},
	}
}
