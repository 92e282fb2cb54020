// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/capabilities"
	"github.com/netascode/go-gnmi-buddy/collector"
	"github.com/netascode/go-gnmi-buddy/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collectors over HTTP",
		Long: `Serve the collectors over HTTP for every inventory device.

  GET /devices
  GET /devices/{name}/{capabilities|vrf|mpls|bgp|isis|interfaces}
  GET /devices/{name}/{system|logs|profile|neighbors}
  GET /devices/{name}/path?target=NAME
  GET /topology[?network=CIDR]
  GET /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := opts.loadInventory()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport := gnmi.NewTransport(transportLogger())
			defer func() {
				if err := transport.Close(); err != nil {
					log.WithError(err).Debug("close transport")
				}
			}()

			reg := prometheus.NewRegistry()
			svc := capabilities.NewService(transport, capabilities.WithMetrics(capabilities.NewMetrics(reg)))
			c := collector.New(transport,
				collector.WithService(svc),
				collector.WithMetrics(collector.NewMetrics(reg)),
				collector.WithMaxWorkers(opts.maxWorkers),
			)

			log.WithField("devices", inv.Len()).Info("starting gnmibuddy server")
			return server.New(c, inv, server.WithRegistry(reg)).Run(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")
	return cmd
}
