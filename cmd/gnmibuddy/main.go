// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// gnmibuddy queries network devices over gNMI and prints normalized
// summaries of their routing and interface state.
//
// Usage:
//
//	gnmibuddy -i devices.yaml -d xrd-1 capabilities
//	gnmibuddy -i devices.yaml --all-devices vrf --vrf RED
//	gnmibuddy -i devices.yaml -d xrd-1 -d xrd-2 bgp --state --json
//	gnmibuddy -i devices.yaml serve --listen :8080
//
// The inventory path may also be given in NETWORK_INVENTORY.
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
