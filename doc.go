// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package gnmi is the gNMI transport used by gnmibuddy: a read-only client
// for the Capabilities and Get RPCs plus a multi-device Transport built from
// an inventory.
//
// # Quick Start
//
//	client, err := gnmi.NewClient(
//	    "192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.VerifyCertificate(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	caps, err := client.Capabilities(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(caps.Version, caps.Encodings)
//
//	res, err := client.Get(ctx, []string{"openconfig-interfaces:/interfaces"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, u := range res.Updates() {
//	    fmt.Println(u.Path, string(u.Val))
//	}
//
// # Responses
//
// GetRes.Updates flattens notifications into Update records whose Path is
// rendered as "origin:elem[key=value]/elem" and whose Val is JSON. Those
// records are what the normalize package consumes. GetRes.GetValue queries
// the protojson rendering of the raw response with gjson.
//
// # Devices
//
// Transport keeps one Client per inventory device:
//
//	t := gnmi.NewTransport(gnmi.NewDefaultLogger(gnmi.LogLevelInfo))
//	defer t.Close()
//	caps, err := t.FetchCapabilities(ctx, dev)
//	updates, err := t.FetchData(ctx, dev, paths, "json_ietf")
//
// # Errors and Retries
//
// Failed RPCs are returned as *GnmiError. Get retries the codes listed in
// TransientErrors with exponential backoff and jitter; Capabilities is not
// retried. FetchData returns ErrNoData when the device answered without
// updates.
//
// # Thread Safety
//
// Client and Transport are safe for concurrent use.
package gnmi
