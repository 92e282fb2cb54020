// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/netascode/go-gnmi-buddy/collector"
	"github.com/netascode/go-gnmi-buddy/inventory"
)

const testInventory = `
- name: xrd-1
  ip_address: 10.0.0.1
  port: 57777
  nos: iosxr
  username: admin
  password: secret
- name: xrd-2
  ip_address: 10.0.0.2
  nos: iosxr
`

func writeInventory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testInventory), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gnmibuddy dev\n", out)
}

func TestDevicesCommand(t *testing.T) {
	path := writeInventory(t)

	out, err := execute(t, "-i", path, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "10.0.0.1:57777")
	assert.Contains(t, out, "10.0.0.2:57400")

	out, err = execute(t, "-i", path, "--json", "devices")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(out, "count").Int())
	assert.Equal(t, "xrd-2", gjson.Get(out, "devices.1.name").String())
	assert.NotContains(t, out, "secret")
}

func TestInventoryFromEnvironment(t *testing.T) {
	t.Setenv(inventory.EnvInventory, writeInventory(t))
	out, err := execute(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "xrd-1")
}

func TestBadLogFormat(t *testing.T) {
	_, err := execute(t, "--log-format", "xml", "version")
	assert.ErrorContains(t, err, "unknown log format")

	_, err = execute(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	var buf bytes.Buffer
	require.NoError(t, setupLogging("debug", "json", &buf))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	log.WithField("device", "xrd-1").Debug("hello")
	assert.Equal(t, "xrd-1", gjson.Get(buf.String(), "device").String())
	assert.Equal(t, "hello", gjson.Get(buf.String(), "msg").String())
}

func TestSelectDevices(t *testing.T) {
	inv, err := inventory.Load(writeInventory(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    options
		want    []string
		wantErr string
	}{
		{name: "none", wantErr: "no devices selected"},
		{name: "all", opts: options{allDevices: true}, want: []string{"xrd-1", "xrd-2"}},
		{name: "named order", opts: options{devices: []string{"xrd-2", "xrd-1"}}, want: []string{"xrd-2", "xrd-1"}},
		{name: "unknown", opts: options{devices: []string{"nope"}}, wantErr: "device not found"},
		{name: "both", opts: options{allDevices: true, devices: []string{"xrd-1"}}, wantErr: "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devs, err := tt.opts.selectDevices(inv)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			names := make([]string, len(devs))
			for i, d := range devs {
				names[i] = d.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestAskPassword(t *testing.T) {
	inv, err := inventory.Load(writeInventory(t))
	require.NoError(t, err)

	o := options{
		allDevices:   true,
		askPassword:  true,
		readPassword: func() (string, error) { return "hunter2", nil },
	}
	devs, err := o.selectDevices(inv)
	require.NoError(t, err)
	for _, d := range devs {
		assert.Equal(t, "hunter2", d.Password)
	}

	o.readPassword = func() (string, error) { return "", errors.New("no tty") }
	_, err = o.selectDevices(inv)
	assert.ErrorContains(t, err, "no tty")
}

func TestWriteResults(t *testing.T) {
	results := []collector.Result{
		{
			Device: "xrd-1", IPAddress: "10.0.0.1", Operation: collector.OpMPLS, Status: collector.StatusSuccess,
			Summary: "MPLS Configuration Summary:\n", Warnings: []string{"old model"},
		},
		{
			Device: "xrd-2", IPAddress: "10.0.0.2", Operation: collector.OpMPLS, Status: collector.StatusFailed,
			Error: &collector.ErrorInfo{Type: "TRANSPORT_ERROR", Message: "connection refused"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, results, false))
	want := `=== xrd-1 (10.0.0.1) mpls: success ===
Warning: old model
MPLS Configuration Summary:

=== xrd-2 (10.0.0.2) mpls: failed ===
TRANSPORT_ERROR: connection refused
`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, writeResults(&buf, results, true))
	assert.True(t, gjson.Valid(buf.String()))
	assert.Equal(t, "failed", gjson.Get(buf.String(), "1.status").String())

	buf.Reset()
	require.NoError(t, writeResults(&buf, results[:1], true))
	assert.Equal(t, "xrd-1", gjson.Get(buf.String(), "device").String())
}

func TestWriteResultsWithoutDevice(t *testing.T) {
	results := []collector.Result{{
		Operation: collector.OpAdjacency, Status: collector.StatusSuccess,
		Summary: "2 devices, 1 connections:\n- xrd-1 Gi0/0/0/0 (10.0.12.1) <-> xrd-2 Gi0/0/0/0 (10.0.12.2) [10.0.12.0/30]",
	}}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, results, false))
	assert.Equal(t, "=== adjacency: success ===\n"+results[0].Summary+"\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResults(&buf, results, true))
	assert.False(t, gjson.Get(buf.String(), "device").Exists())
	assert.Equal(t, "adjacency", gjson.Get(buf.String(), "operation").String())
}

func TestPathRequiresTarget(t *testing.T) {
	_, err := execute(t, "-i", writeInventory(t), "--all-devices", "path")
	assert.ErrorContains(t, err, `required flag(s) "target" not set`)
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"system", "logs", "profile", "neighbors", "adjacency", "path", "vrf"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	vrf, _, err := root.Find([]string{"vrf"})
	require.NoError(t, err)
	assert.NotNil(t, vrf.Flags().Lookup("details"))

	logs, _, err := root.Find([]string{"logs"})
	require.NoError(t, err)
	assert.Equal(t, "5", logs.Flags().Lookup("minutes").DefValue)
	assert.NotNil(t, logs.Flags().Lookup("keywords"))
	assert.NotNil(t, logs.Flags().Lookup("all"))
}
