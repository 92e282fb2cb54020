// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"errors"
	"sync"
	"testing"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"

	"github.com/netascode/go-gnmi-buddy/inventory"
)

type fakeDeviceClient struct {
	mu       sync.Mutex
	caps     CapabilitiesRes
	res      GetRes
	err      error
	encoding string
	closed   int
}

func (f *fakeDeviceClient) Capabilities(_ context.Context) (CapabilitiesRes, error) {
	return f.caps, f.err
}

func (f *fakeDeviceClient) Get(_ context.Context, _ []string, mods ...func(*Req)) (GetRes, error) {
	req := Req{Encoding: EncodingJSONIETF}
	for _, m := range mods {
		m(&req)
	}
	f.mu.Lock()
	f.encoding = req.Encoding
	f.mu.Unlock()
	return f.res, f.err
}

func (f *fakeDeviceClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func newFakeTransport(fake *fakeDeviceClient, created *int) *Transport {
	tr := NewTransport(nil)
	var mu sync.Mutex
	tr.newClient = func(_ inventory.Device, _ ...func(*Client)) (deviceClient, error) {
		mu.Lock()
		*created++
		mu.Unlock()
		return fake, nil
	}
	return tr
}

var testDevice = inventory.Device{Name: "xrd-1", IPAddress: "10.0.0.1", Port: 57400, NOS: "iosxr"}

func TestTransportFetchCapabilitiesCachesClient(t *testing.T) {
	fake := &fakeDeviceClient{caps: CapabilitiesRes{Version: "0.8.0", Encodings: []string{"json_ietf"}, OK: true}}
	created := 0
	tr := newFakeTransport(fake, &created)

	for i := 0; i < 3; i++ {
		res, err := tr.FetchCapabilities(context.Background(), testDevice)
		if err != nil {
			t.Fatalf("FetchCapabilities: %v", err)
		}
		if res.Version != "0.8.0" {
			t.Errorf("Version = %q", res.Version)
		}
	}
	if created != 1 {
		t.Errorf("client created %d times, want 1", created)
	}

	other := testDevice
	other.Name = "xrd-2"
	if _, err := tr.FetchCapabilities(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Errorf("second device should get its own client, created=%d", created)
	}
}

func TestTransportFetchData(t *testing.T) {
	fake := &fakeDeviceClient{res: GetRes{OK: true, Notifications: []*gnmipb.Notification{{
		Update: []*gnmipb.Update{{
			Path: &gnmipb.Path{Elem: []*gnmipb.PathElem{{Name: "system"}}},
			Val:  &gnmipb.TypedValue{Value: &gnmipb.TypedValue_JsonIetfVal{JsonIetfVal: []byte(`{"hostname":"r1"}`)}},
		}},
	}}}}
	created := 0
	tr := newFakeTransport(fake, &created)

	updates, err := tr.FetchData(context.Background(), testDevice, []string{"openconfig-system:/system"}, EncodingASCII)
	if err != nil {
		t.Fatalf("FetchData: %v", err)
	}
	if len(updates) != 1 || updates[0].Path != "system" {
		t.Errorf("updates = %+v", updates)
	}
	if fake.encoding != EncodingASCII {
		t.Errorf("encoding passed = %q", fake.encoding)
	}
}

func TestTransportFetchDataNoData(t *testing.T) {
	fake := &fakeDeviceClient{res: GetRes{OK: true}}
	created := 0
	tr := newFakeTransport(fake, &created)

	_, err := tr.FetchData(context.Background(), testDevice, []string{"/system"}, "")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
	if !IsTransportError(err) {
		t.Error("ErrNoData is a transport error")
	}
}

func TestTransportFetchDataError(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeDeviceClient{err: boom}
	created := 0
	tr := newFakeTransport(fake, &created)

	if _, err := tr.FetchData(context.Background(), testDevice, []string{"/system"}, ""); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestTransportCloseAndForget(t *testing.T) {
	fake := &fakeDeviceClient{}
	created := 0
	tr := newFakeTransport(fake, &created)

	if _, err := tr.FetchCapabilities(context.Background(), testDevice); err != nil {
		t.Fatal(err)
	}
	if err := tr.Forget(testDevice); err != nil {
		t.Fatal(err)
	}
	if fake.closed != 1 {
		t.Errorf("closed = %d after Forget", fake.closed)
	}
	if err := tr.Forget(testDevice); err != nil {
		t.Errorf("second Forget: %v", err)
	}

	if _, err := tr.FetchCapabilities(context.Background(), testDevice); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if fake.closed != 2 {
		t.Errorf("closed = %d after Close", fake.closed)
	}
	if _, err := tr.FetchCapabilities(context.Background(), testDevice); !errors.Is(err, ErrNotConnected) {
		t.Errorf("use after Close: %v", err)
	}
}

func TestClientOptionsFromDevice(t *testing.T) {
	dev := inventory.Device{
		Name:        "r1",
		IPAddress:   "10.0.0.1",
		Port:        57777,
		Username:    "admin",
		Password:    "pw",
		SkipVerify:  true,
		GNMITimeout: 9,
	}
	c := &Client{}
	for _, opt := range ClientOptions(dev) {
		opt(c)
	}
	if c.Port != 57777 || c.username != "admin" || c.password != "pw" {
		t.Errorf("client = %+v", c)
	}
	if c.VerifyCertificate || !c.UseTLS {
		t.Errorf("Verify=%v UseTLS=%v", c.VerifyCertificate, c.UseTLS)
	}
	if c.OperationTimeout.Seconds() != 9 {
		t.Errorf("OperationTimeout = %v", c.OperationTimeout)
	}
}

func TestTransportConcurrentFetch(t *testing.T) {
	fake := &fakeDeviceClient{caps: CapabilitiesRes{OK: true}}
	created := 0
	tr := newFakeTransport(fake, &created)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.FetchCapabilities(context.Background(), testDevice); err != nil {
				t.Errorf("FetchCapabilities: %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
}
