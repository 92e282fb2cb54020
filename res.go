// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"encoding/json"
	"strconv"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"google.golang.org/protobuf/encoding/protojson"
)

// Update is one flattened gNMI update: a rendered path and its value as
// JSON. This is the record the normalizers consume.
type Update struct {
	// Path is the prefix and update path rendered as
	// "origin:elem/elem[key=value]/...".
	Path string `json:"path"`

	// Val is the decoded value. JSON encodings are passed through; scalar
	// typed values are re-encoded as JSON.
	Val json.RawMessage `json:"val"`

	// Timestamp of the enclosing notification, nanoseconds since epoch.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// GetRes is the result of a Get RPC.
type GetRes struct {
	Notifications []*gnmipb.Notification

	// Timestamp is the local receive time (nanoseconds since epoch)
	Timestamp int64

	OK     bool
	Errors []ErrorModel
}

// Updates flattens all notifications into Update records, in order.
func (r GetRes) Updates() []Update {
	var out []Update
	for _, n := range r.Notifications {
		if n == nil {
			continue
		}
		prefix := n.GetPrefix()
		for _, u := range n.GetUpdate() {
			out = append(out, Update{
				Path:      RenderPath(prefix, u.GetPath()),
				Val:       typedValueJSON(u.GetVal()),
				Timestamp: n.GetTimestamp(),
			})
		}
	}
	return out
}

// GetValue queries the protojson rendering of the response with a gjson
// path, e.g. "notification.0.update.0.path.elem.0.name".
func (r GetRes) GetValue(path string) gjson.Result {
	js := r.JSON()
	if js == "" {
		return gjson.Result{}
	}
	return gjson.Get(js, path)
}

// JSON renders the notifications with protojson under a "notification"
// array. It returns "" when there are no notifications.
func (r GetRes) JSON() string {
	if r.Notifications == nil {
		return ""
	}
	doc := `{"notification":[]}`
	var err error
	for i, n := range r.Notifications {
		b, mErr := protojson.Marshal(n)
		if mErr != nil {
			return ""
		}
		doc, err = sjson.SetRaw(doc, "notification."+strconv.Itoa(i), string(b))
		if err != nil {
			return ""
		}
	}
	doc, _ = sjson.Set(doc, "timestamp", r.Timestamp)
	doc, _ = sjson.Set(doc, "ok", r.OK)
	return doc
}

// CapabilitiesRes is the result of a Capabilities RPC.
type CapabilitiesRes struct {
	// Version is the gNMI service version reported by the device
	Version string

	// Encodings are the supported encodings as lower-case tokens
	Encodings []string

	// Models are the supported YANG models
	Models []*gnmipb.ModelData

	OK     bool
	Errors []ErrorModel
}

// typedValueJSON converts a TypedValue into JSON. Values that carry JSON
// already are passed through when valid.
func typedValueJSON(v *gnmipb.TypedValue) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	var val any
	switch tv := v.GetValue().(type) {
	case *gnmipb.TypedValue_JsonIetfVal:
		if json.Valid(tv.JsonIetfVal) {
			return json.RawMessage(tv.JsonIetfVal)
		}
		val = string(tv.JsonIetfVal)
	case *gnmipb.TypedValue_JsonVal:
		if json.Valid(tv.JsonVal) {
			return json.RawMessage(tv.JsonVal)
		}
		val = string(tv.JsonVal)
	case *gnmipb.TypedValue_AsciiVal:
		val = tv.AsciiVal
	case *gnmipb.TypedValue_StringVal:
		val = tv.StringVal
	case *gnmipb.TypedValue_IntVal:
		val = tv.IntVal
	case *gnmipb.TypedValue_UintVal:
		val = tv.UintVal
	case *gnmipb.TypedValue_BoolVal:
		val = tv.BoolVal
	case *gnmipb.TypedValue_DoubleVal:
		val = tv.DoubleVal
	case *gnmipb.TypedValue_BytesVal:
		val = tv.BytesVal
	case *gnmipb.TypedValue_LeaflistVal:
		elems := make([]json.RawMessage, 0, len(tv.LeaflistVal.GetElement()))
		for _, e := range tv.LeaflistVal.GetElement() {
			elems = append(elems, typedValueJSON(e))
		}
		val = elems
	default:
		return json.RawMessage("null")
	}
	b, err := json.Marshal(val)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
