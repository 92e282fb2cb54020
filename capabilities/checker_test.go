// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testCaps(encodings []Encoding, models ...ModelIdentifier) DeviceCapabilities {
	return DeviceCapabilities{Models: models, Encodings: encodings, GNMIVersion: "0.8.0"}
}

func TestCheckWithCapabilities(t *testing.T) {
	checker := NewChecker(NewService(&fakeFetcher{}, WithRepository(NewMemoryRepository())))

	tests := []struct {
		name      string
		caps      DeviceCapabilities
		paths     []string
		requested string
		want      CheckResult
	}{
		{
			name:      "success",
			caps:      testCaps([]Encoding{EncodingJSONIETF}, ModelIdentifier{Name: "openconfig-system", Version: "0.17.1"}),
			paths:     []string{"openconfig-system:/system"},
			requested: "json_ietf",
			want:      CheckResult{Success: true, SelectedEncoding: EncodingJSONIETF},
		},
		{
			name:      "json_ietf does not fall back to json even if model present",
			caps:      testCaps([]Encoding{EncodingJSON}, ModelIdentifier{Name: "openconfig-system", Version: "0.17.0"}),
			paths:     []string{"openconfig-system:/system"},
			requested: "json_ietf",
			want: CheckResult{
				ErrorKind:    EncodingNotSupported,
				ErrorMessage: "Requested encoding 'json_ietf' is not supported by device",
			},
		},
		{
			name:      "encoding failure wins over missing model",
			caps:      testCaps([]Encoding{EncodingJSON}),
			paths:     []string{"openconfig-network-instance:/network-instances"},
			requested: "ascii",
			want: CheckResult{
				ErrorKind:    EncodingNotSupported,
				ErrorMessage: "Requested encoding 'ascii' is not supported by device",
			},
		},
		{
			name:  "empty request with nothing usable",
			caps:  testCaps(nil),
			paths: []string{"openconfig-system:/system"},
			want: CheckResult{
				ErrorKind:    EncodingNotSupported,
				ErrorMessage: "Requested encoding 'default' is not supported by device",
			},
		},
		{
			name:      "fallback to ascii",
			caps:      testCaps([]Encoding{EncodingASCII}, ModelIdentifier{Name: "openconfig-system", Version: "1.0.0"}),
			paths:     []string{"openconfig-system:/system"},
			requested: "json_ietf",
			want:      CheckResult{Success: true, SelectedEncoding: EncodingASCII, UsedFallback: true},
		},
		{
			name: "first missing model fails fast",
			caps: testCaps([]Encoding{EncodingJSONIETF}, ModelIdentifier{Name: "openconfig-system", Version: "0.1.0"}),
			paths: []string{
				"openconfig-interfaces:/interfaces",
				"openconfig-network-instance:/network-instances",
				"openconfig-system:/system",
			},
			requested: "json_ietf",
			want: CheckResult{
				ErrorKind:    ModelNotSupported,
				ErrorMessage: "Required model 'openconfig-interfaces>=4.0.0' not supported by device",
			},
		},
		{
			name:      "older model warns",
			caps:      testCaps([]Encoding{EncodingJSONIETF}, ModelIdentifier{Name: "openconfig-network-instance", Version: "1.2.0"}),
			paths:     []string{"openconfig-network-instance:/network-instances/network-instance[name=*]/mpls"},
			requested: "json_ietf",
			want: CheckResult{
				Success:          true,
				SelectedEncoding: EncodingJSONIETF,
				Warnings: []string{
					"Model 'openconfig-network-instance' is older than required (device has 1.2.0 < 1.3.0); some collectors may not work correctly. Consider updating the device's OpenConfig model/version.",
				},
			},
		},
		{
			name:      "unknown comparison is not older",
			caps:      testCaps([]Encoding{EncodingJSONIETF}, ModelIdentifier{Name: "openconfig-interfaces", Version: "2019-11-19"}),
			paths:     []string{"openconfig-interfaces:/interfaces"},
			requested: "json_ietf",
			want:      CheckResult{Success: true, SelectedEncoding: EncodingJSONIETF},
		},
		{
			name:      "unmapped modules need nothing",
			caps:      testCaps([]Encoding{EncodingJSON}),
			paths:     []string{"Cisco-IOS-XR-shellutil-oper:/system-time"},
			requested: "",
			want:      CheckResult{Success: true, SelectedEncoding: EncodingJSON},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.CheckWithCapabilities(tt.caps, tt.paths, tt.requested)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CheckWithCapabilities mismatch (-want +got):\n%s", diff)
			}
			if got.Success && got.SelectedEncoding == EncodingUnknown {
				t.Error("success must carry a selected encoding")
			}
		})
	}
}

func TestCheckRoundTrip(t *testing.T) {
	f := &fakeFetcher{res: capsRes([]string{"json"}, &gnmipb.ModelData{Name: "openconfig-system", Version: "0.17.0"})}
	checker := NewChecker(NewService(f, WithRepository(NewMemoryRepository())))

	res, err := checker.Check(context.Background(), dev1, []string{"openconfig-system:/system"}, "json_ietf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.ErrorKind != EncodingNotSupported {
		t.Errorf("res = %+v, want ENCODING_NOT_SUPPORTED", res)
	}

	var ce *CheckError
	if !errors.As(res.Err(), &ce) || ce.Kind != EncodingNotSupported {
		t.Errorf("Err() = %v", res.Err())
	}
}

func TestCheckTransportError(t *testing.T) {
	boom := errors.New("unreachable")
	checker := NewChecker(NewService(&fakeFetcher{err: boom}, WithRepository(NewMemoryRepository())))

	if _, err := checker.Check(context.Background(), dev1, nil, ""); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestWithInspector(t *testing.T) {
	checker := NewChecker(
		NewService(&fakeFetcher{}, WithRepository(NewMemoryRepository())),
		WithInspector(NewInspectorWithModels(map[string]string{"openconfig-bgp": "6.0.0"})),
	)
	res := checker.CheckWithCapabilities(testCaps([]Encoding{EncodingJSON}), []string{"openconfig-bgp:/bgp"}, "")
	if res.ErrorMessage != "Required model 'openconfig-bgp>=6.0.0' not supported by device" {
		t.Errorf("res = %+v", res)
	}
}

func TestPreflight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	f := &fakeFetcher{res: capsRes([]string{"ASCII"}, &gnmipb.ModelData{Name: "openconfig-network-instance", Version: "1.3.0"})}
	svc := NewService(f, WithRepository(NewMemoryRepository()), WithMetrics(m))
	checker := NewChecker(svc)

	req := NewRequest([]string{"openconfig-network-instance:/network-instances"})
	if req.Encoding != "json_ietf" || req.DataType != "all" {
		t.Fatalf("request defaults = %+v", req)
	}

	for i := 0; i < 2; i++ {
		res, err := Preflight(context.Background(), svc, checker, dev1, req)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Success || res.SelectedEncoding != EncodingASCII || !res.UsedFallback {
			t.Errorf("res = %+v", res)
		}
		if got := EffectiveEncoding(res, req); got != "ascii" {
			t.Errorf("EffectiveEncoding = %q", got)
		}
	}
	if req.Encoding != "json_ietf" {
		t.Error("request must not be mutated")
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.Preflights.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("preflight successes = %v", got)
	}
}

func TestPreflightFailureAndTransport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	svc := NewService(&fakeFetcher{res: capsRes([]string{"JSON"})}, WithRepository(NewMemoryRepository()), WithMetrics(m))
	req := NewRequest([]string{"openconfig-system:/system"}, RequestEncoding("json"))
	res, err := Preflight(context.Background(), svc, NewChecker(svc), dev1, req)
	if err != nil {
		t.Fatal(err)
	}
	kind, msg := ErrorDetails(res)
	if kind != ModelNotSupported || msg != "Required model 'openconfig-system>=0.17.1' not supported by device" {
		t.Errorf("ErrorDetails = %v %q", kind, msg)
	}
	if got := EffectiveEncoding(res, req); got != "json" {
		t.Errorf("EffectiveEncoding on failure = %q", got)
	}

	broken := NewService(&fakeFetcher{err: errors.New("timeout")}, WithRepository(NewMemoryRepository()), WithMetrics(m))
	if _, err := Preflight(context.Background(), broken, NewChecker(broken), dev1, req); err == nil {
		t.Error("transport failure must be returned as error")
	}

	if got := testutil.ToFloat64(m.Preflights.WithLabelValues(OutcomeModelNotSupported)); got != 1 {
		t.Errorf("model_not_supported = %v", got)
	}
	if got := testutil.ToFloat64(m.Preflights.WithLabelValues(OutcomeTransportError)); got != 1 {
		t.Errorf("transport_error = %v", got)
	}
}

func TestErrorDetailsDefaults(t *testing.T) {
	kind, msg := ErrorDetails(CheckResult{})
	if kind != ModelNotSupported || msg != "Preflight failed" {
		t.Errorf("got %v %q", kind, msg)
	}
	if (CheckResult{Success: true}).Err() != nil {
		t.Error("success has no error")
	}
	err := (CheckResult{}).Err()
	if err == nil || err.Error() != "MODEL_NOT_SUPPORTED: Preflight failed" {
		t.Errorf("Err() = %v", err)
	}
}

func TestRequestOptions(t *testing.T) {
	req := NewRequest([]string{"/a"}, RequestEncoding(""), RequestPrefix("openconfig:"), RequestDataType("state"))
	want := Request{Paths: []string{"/a"}, Prefix: "openconfig:", Encoding: "", DataType: "state"}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("NewRequest mismatch (-want +got):\n%s", diff)
	}
}
