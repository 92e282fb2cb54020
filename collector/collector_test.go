// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package collector

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
	"github.com/netascode/go-gnmi-buddy/capabilities"
	"github.com/netascode/go-gnmi-buddy/inventory"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchCapabilities(ctx context.Context, dev inventory.Device) (gnmi.CapabilitiesRes, error) {
	args := m.Called(ctx, dev)
	return args.Get(0).(gnmi.CapabilitiesRes), args.Error(1)
}

func (m *mockFetcher) FetchData(ctx context.Context, dev inventory.Device, paths []string, encoding string) ([]gnmi.Update, error) {
	args := m.Called(ctx, dev, paths, encoding)
	updates, _ := args.Get(0).([]gnmi.Update)
	return updates, args.Error(1)
}

var testDev = inventory.Device{Name: "xrd-1", IPAddress: "10.0.0.1", Port: 57400, NOS: "iosxr"}

func fullCaps(encodings ...string) gnmi.CapabilitiesRes {
	return gnmi.CapabilitiesRes{
		Version:   "0.8.0",
		Encodings: encodings,
		Models: []*gnmipb.ModelData{
			{Name: "openconfig-interfaces", Version: "4.1.0"},
			{Name: "openconfig-network-instance", Version: "1.3.0"},
		},
		OK: true,
	}
}

func newTestCollector(f *mockFetcher, opts ...Option) *Collector {
	svc := capabilities.NewService(f, capabilities.WithRepository(capabilities.NewMemoryRepository()))
	return New(f, append([]Option{WithService(svc)}, opts...)...)
}

func update(path, val string) gnmi.Update {
	return gnmi.Update{Path: path, Val: json.RawMessage(val), Timestamp: 1700000000000000000}
}

const mplsVal = `{"global": {
  "interface-attributes": {"interface": [{"interface-id": "GigabitEthernet0/0/0/0", "state": {"mpls-enabled": true}}]},
  "reserved-label-blocks": {"reserved-label-block": [{"local-id": "srgb", "state": {"lower-bound": 16000, "upper-bound": 23999}}]}
}}`

func TestMPLSSuccess(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("JSON_IETF", "JSON"), nil).Once()
	f.On("FetchData", mock.Anything, testDev, []string{mplsPath}, "json_ietf").
		Return([]gnmi.Update{update("openconfig-network-instance:network-instances/network-instance[name=DEFAULT]/mpls", mplsVal)}, nil)

	c := newTestCollector(f)
	res := c.MPLS(context.Background(), testDev)

	require.Equal(t, StatusSuccess, res.Status, "error: %+v", res.Error)
	assert.True(t, res.OK())
	assert.Nil(t, res.Error)
	assert.Equal(t, "json_ietf", res.Encoding)
	assert.Equal(t, OpMPLS, res.Operation)
	assert.Equal(t, "xrd-1", res.Device)
	assert.Equal(t, "10.0.0.1", res.IPAddress)
	assert.NotEmpty(t, res.RequestID)
	assert.Contains(t, res.Summary, "MPLS Configuration Summary:")
	assert.Contains(t, res.Summary, "- srgb: Range 16000-23999")

	// The second run is served from the capability cache.
	res = c.MPLS(context.Background(), testDev)
	assert.Equal(t, StatusSuccess, res.Status)
	f.AssertExpectations(t)
	f.AssertNumberOfCalls(t, "FetchCapabilities", 1)
}

func TestPreflightFailureSkipsGet(t *testing.T) {
	f := &mockFetcher{}
	caps := gnmi.CapabilitiesRes{
		Version:   "0.8.0",
		Encodings: []string{"json_ietf"},
		Models:    []*gnmipb.ModelData{{Name: "openconfig-interfaces", Version: "4.1.0"}},
	}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(caps, nil)

	res := newTestCollector(f).BGP(context.Background(), testDev)

	assert.Equal(t, StatusFailed, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(capabilities.ModelNotSupported), res.Error.Type)
	assert.Equal(t, "Required model 'openconfig-network-instance>=1.3.0' not supported by device", res.Error.Message)
	f.AssertNotCalled(t, "FetchData", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEncodingNotSupported(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("PROTO"), nil)

	res := newTestCollector(f).Interfaces(context.Background(), testDev, "")

	assert.Equal(t, StatusFailed, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(capabilities.EncodingNotSupported), res.Error.Type)
	f.AssertNotCalled(t, "FetchData", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEncodingFallback(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("ASCII"), nil)
	f.On("FetchData", mock.Anything, testDev, []string{mplsPath}, "ascii").
		Return([]gnmi.Update{update("openconfig-network-instance:network-instances/network-instance[name=DEFAULT]/mpls", `{}`)}, nil)

	res := newTestCollector(f).MPLS(context.Background(), testDev)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "ascii", res.Encoding)
	assert.Equal(t, "MPLS is not effectively configured on this device. "+
		"While some global settings may exist, there are no MPLS-enabled interfaces or label blocks detected.", res.Summary)
	f.AssertExpectations(t)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		run        func(c *Collector) Result
		updates    []gnmi.Update
		err        error
		wantStatus Status
		wantType   string
		wantMsg    string
	}{
		{
			name:       "no data",
			run:        func(c *Collector) Result { return c.ISIS(context.Background(), testDev) },
			err:        gnmi.ErrNoData,
			wantStatus: StatusFeatureNotAvailable,
			wantType:   ErrorTypeNoData,
			wantMsg:    "No isis data returned by device",
		},
		{
			name:       "transport",
			run:        func(c *Collector) Result { return c.MPLS(context.Background(), testDev) },
			err:        errors.New("connection refused"),
			wantStatus: StatusFailed,
			wantType:   ErrorTypeTransport,
			wantMsg:    "connection refused",
		},
		{
			name: "bgp without default instance",
			run:  func(c *Collector) Result { return c.BGP(context.Background(), testDev) },
			updates: []gnmi.Update{update(
				"openconfig-network-instance:network-instances/network-instance[name=RED]/protocols/protocol[identifier=BGP][name=default]/bgp",
				`{"global": {"state": {"as": 65000}}}`)},
			wantStatus: StatusFeatureNotAvailable,
			wantType:   ErrorTypeFeatureNotAvailable,
			wantMsg:    "No DEFAULT BGP instance found in OpenConfig data",
		},
		{
			name:       "isis not configured",
			run:        func(c *Collector) Result { return c.ISIS(context.Background(), testDev) },
			updates:    []gnmi.Update{},
			wantStatus: StatusFeatureNotAvailable,
			wantType:   ErrorTypeFeatureNotAvailable,
			wantMsg:    "No ISIS data found in response",
		},
		{
			name: "unknown interface",
			run:  func(c *Collector) Result { return c.Interfaces(context.Background(), testDev, "Gi0/9") },
			updates: []gnmi.Update{update(
				"openconfig-interfaces:interfaces/interface[name=*]",
				`{"state": {}}`)},
			wantStatus: StatusFeatureNotAvailable,
			wantType:   ErrorTypeFeatureNotAvailable,
			wantMsg:    "Interface 'Gi0/9' not found",
		},
		{
			name:       "unknown vrf",
			run:        func(c *Collector) Result { return c.VRF(context.Background(), testDev, "BLUE", false) },
			updates:    []gnmi.Update{update("openconfig-network-instance:network-instances/network-instance[name=DEFAULT]", `{"name": "DEFAULT"}`)},
			wantStatus: StatusFeatureNotAvailable,
			wantType:   ErrorTypeFeatureNotAvailable,
			wantMsg:    "VRF 'BLUE' not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{}
			f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("json_ietf"), nil)
			f.On("FetchData", mock.Anything, testDev, mock.Anything, "json_ietf").Return(tt.updates, tt.err)

			res := tt.run(newTestCollector(f))

			assert.Equal(t, tt.wantStatus, res.Status)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantType, res.Error.Type)
			assert.Equal(t, tt.wantMsg, res.Error.Message)
		})
	}
}

func TestCapabilitiesTransportError(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(gnmi.CapabilitiesRes{}, errors.New("timeout"))

	c := newTestCollector(f)
	res := c.Capabilities(context.Background(), testDev)
	assert.Equal(t, StatusFailed, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeTransport, res.Error.Type)

	res = c.VRF(context.Background(), testDev, "", false)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeTransport, res.Error.Type)
	assert.Equal(t, 0, c.Service().Repository().Len())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(gnmi.CapabilitiesRes{}, context.Canceled)

	res := newTestCollector(f).MPLS(ctx, testDev)
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrorTypeCancelled, res.Error.Type)
}

func TestCapabilitiesSummary(t *testing.T) {
	f := &mockFetcher{}
	caps := gnmi.CapabilitiesRes{
		Version:   "0.8.0",
		Encodings: []string{"JSON_IETF", "ASCII"},
		Models: []*gnmipb.ModelData{
			{Name: "openconfig-interfaces", Version: "2.4.3"},
			{Name: "openconfig-network-instance", Version: "1.3.0"},
			{Name: "Cisco-IOS-XR-ifmgr-cfg", Version: "2019-04-05"},
		},
	}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(caps, nil).Once()

	res := newTestCollector(f).Capabilities(context.Background(), testDev)

	require.Equal(t, StatusSuccess, res.Status)
	want := `gNMI Version: 0.8.0
Supported Encodings: json_ietf, ascii
Models: 3
Required Models:
  openconfig-interfaces>=4.0.0: older than required (2.4.3)
  openconfig-network-instance>=1.3.0: ok (1.3.0)
  openconfig-system>=0.17.1: missing`
	assert.Equal(t, want, res.Summary)
	assert.IsType(t, capabilities.DeviceCapabilities{}, res.Data)
}

func TestResultJSON(t *testing.T) {
	res := Result{
		Device:    "xrd-1",
		IPAddress: "10.0.0.1",
		Operation: OpVRF,
		Status:    StatusFailed,
		Warnings:  []string{"older model"},
		Error:     &ErrorInfo{Type: "MODEL_NOT_SUPPORTED", Message: "missing"},
		RequestID: "abc",
		Duration:  1500 * time.Millisecond,
	}
	out, err := res.JSON()
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	assert.Equal(t, "xrd-1", gjson.Get(out, "device").String())
	assert.Equal(t, "vrf", gjson.Get(out, "operation").String())
	assert.Equal(t, "failed", gjson.Get(out, "status").String())
	assert.Equal(t, "MODEL_NOT_SUPPORTED", gjson.Get(out, "error.type").String())
	assert.Equal(t, int64(1500), gjson.Get(out, "duration_ms").Int())
	assert.Equal(t, "older model", gjson.Get(out, "warnings.0").String())
	assert.False(t, gjson.Get(out, "nos").Exists())
	assert.False(t, gjson.Get(out, "data").Exists())
	assert.False(t, gjson.Get(out, "summary").Exists())
}

func TestResultJSONData(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("json_ietf"), nil)
	f.On("FetchData", mock.Anything, testDev, []string{mplsPath}, "json_ietf").
		Return([]gnmi.Update{update("openconfig-network-instance:network-instances/network-instance[name=DEFAULT]/mpls", mplsVal)}, nil)

	out, err := newTestCollector(f).MPLS(context.Background(), testDev).JSON()
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "data.enabled").Bool())
	assert.Equal(t, "srgb", gjson.Get(out, "data.label_blocks.0.name").String())
	assert.Equal(t, "json_ietf", gjson.Get(out, "encoding").String())
	assert.False(t, gjson.Get(out, "error").Exists())
}

func TestRunAllKeepsOrder(t *testing.T) {
	devices := []inventory.Device{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}}
	c := New(&mockFetcher{}, WithMaxWorkers(2), WithService(capabilities.NewService(nil)))

	var inFlight, peak atomic.Int32
	results := c.RunAll(context.Background(), devices, OpMPLS, func(_ context.Context, dev inventory.Device) Result {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return Result{Device: dev.Name, Status: StatusSuccess}
	})

	require.Len(t, results, len(devices))
	for i, r := range results {
		assert.Equal(t, devices[i].Name, r.Device)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices := []inventory.Device{{Name: "a", IPAddress: "10.0.0.1"}, {Name: "b", IPAddress: "10.0.0.2"}}
	c := New(&mockFetcher{}, WithService(capabilities.NewService(nil)))
	var ran atomic.Bool
	results := c.RunAll(ctx, devices, OpBGP, func(context.Context, inventory.Device) Result {
		ran.Store(true)
		return Result{}
	})

	assert.False(t, ran.Load())
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, devices[i].Name, r.Device)
		assert.Equal(t, OpBGP, r.Operation)
		assert.Equal(t, StatusFailed, r.Status)
		require.NotNil(t, r.Error)
		assert.Equal(t, ErrorTypeCancelled, r.Error.Type)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("json_ietf"), nil)
	f.On("FetchData", mock.Anything, testDev, mock.Anything, "json_ietf").Return(nil, gnmi.ErrNoData)

	c := newTestCollector(f, WithMetrics(m))
	c.MPLS(context.Background(), testDev)
	c.MPLS(context.Background(), testDev)
	c.Capabilities(context.Background(), testDev)

	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
	n, err := testutil.GatherAndCount(reg, "gnmibuddy_collector_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRequestIDFromContext(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchCapabilities", mock.Anything, testDev).Return(fullCaps("json_ietf"), nil)
	c := newTestCollector(f)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", c.Capabilities(ctx, testDev).RequestID)

	other := c.Capabilities(context.Background(), testDev).RequestID
	assert.NotEmpty(t, other)
	assert.NotEqual(t, "req-42", other)

	_, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), ""))
	assert.False(t, ok)
}
