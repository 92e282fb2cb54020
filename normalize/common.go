// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package normalize turns OpenConfig JSON updates returned by a gNMI Get
// into compact records and short text summaries.
//
// Every parser takes the flattened updates produced by gnmi.GetRes.Updates
// and never fails on unexpected input: values that are not JSON objects are
// logged and skipped, and missing leaves stay nil.
//
//	updates, _ := transport.FetchData(ctx, dev, paths, "json_ietf")
//	res := normalize.ParseISIS(updates)
//	fmt.Println(normalize.SummarizeISIS(res))
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// Placeholders used where a list would otherwise be empty.
const (
	NoInterfacesConfigured  = "NO_INTERFACES_CONFIGURED"
	NoLabelBlocksConfigured = "NO_LABEL_BLOCKS_CONFIGURED"
)

// TimeLayout is the layout of every human readable timestamp.
const TimeLayout = "2006-01-02 15:04:05"

const notAvailable = "N/A"

var instanceNameRE = regexp.MustCompile(`network-instance\[name=([^\]]+)\]`)

// instanceName returns the network instance key in a rendered path, or ""
// when there is none or it is a wildcard.
func instanceName(path string) string {
	m := instanceNameRE.FindStringSubmatch(path)
	if m == nil || m[1] == "*" {
		return ""
	}
	return m[1]
}

// objectVal parses the value of u, reporting false unless it is a JSON
// object.
func objectVal(u gnmi.Update) (gjson.Result, bool) {
	if len(u.Val) == 0 || !gjson.ValidBytes(u.Val) {
		log.WithField("path", u.Path).Debug("skipping update with invalid JSON value")
		return gjson.Result{}, false
	}
	r := gjson.ParseBytes(u.Val)
	if !r.IsObject() {
		log.WithFields(log.Fields{"path": u.Path, "type": r.Type.String()}).Debug("skipping non-object value")
		return gjson.Result{}, false
	}
	return r, true
}

// member returns obj[name], falling back to a module qualified key such
// as "openconfig-if-ip:ipv4" when name is "ipv4".
func member(obj gjson.Result, name string) gjson.Result {
	if v := obj.Get(name); v.Exists() {
		return v
	}
	var found gjson.Result
	suffix := ":" + name
	obj.ForEach(func(k, v gjson.Result) bool {
		if strings.HasSuffix(k.String(), suffix) {
			found = v
			return false
		}
		return true
	})
	return found
}

// list returns the elements of an array result. A single object is
// treated as a one element list.
func list(r gjson.Result) []gjson.Result {
	switch {
	case r.IsArray():
		return r.Array()
	case r.IsObject():
		return []gjson.Result{r}
	default:
		return nil
	}
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func optString(r gjson.Result) *string {
	if !present(r) || r.IsObject() || r.IsArray() {
		return nil
	}
	return pointer.ToString(r.String())
}

// optInt accepts numbers and decimal strings, since json_ietf encodes
// 64-bit integers as strings.
func optInt(r gjson.Result) *int64 {
	if !present(r) {
		return nil
	}
	switch r.Type {
	case gjson.Number:
		return pointer.ToInt64(r.Int())
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return nil
		}
		return pointer.ToInt64(n)
	}
	return nil
}

func optUint(r gjson.Result) *uint64 {
	if !present(r) {
		return nil
	}
	switch r.Type {
	case gjson.Number:
		return pointer.ToUint64(r.Uint())
	case gjson.String:
		n, err := strconv.ParseUint(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return nil
		}
		return pointer.ToUint64(n)
	}
	return nil
}

func optBool(r gjson.Result) *bool {
	if !present(r) || (r.Type != gjson.True && r.Type != gjson.False) {
		return nil
	}
	return pointer.ToBool(r.Bool())
}

// boolOr returns the boolean value of r or def when r is not a boolean.
func boolOr(r gjson.Result, def bool) bool {
	if b := optBool(r); b != nil {
		return *b
	}
	return def
}

// firstString returns r when it is a string, or its first element when it
// is an array.
func firstString(r gjson.Result) *string {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return nil
		}
		return optString(arr[0])
	}
	return optString(r)
}

// stringList reads a leaf-list. A lone scalar is a one element list.
func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		if s := optString(r); s != nil {
			return []string{*s}
		}
		return nil
	}
	var out []string
	for _, v := range r.Array() {
		if s := optString(v); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// stripModule removes a YANG module prefix such as "openconfig-types:".
func stripModule(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// timestampOf returns the first non-zero update timestamp, or now.
func timestampOf(updates []gnmi.Update) int64 {
	for _, u := range updates {
		if u.Timestamp != 0 {
			return u.Timestamp
		}
	}
	return time.Now().UnixNano()
}

// FormatTimestamp renders nanoseconds since epoch in local time.
func FormatTimestamp(ns int64) string {
	return time.Unix(0, ns).Local().Format(TimeLayout)
}

func strOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func intOr(p *int64, def string) string {
	if p == nil {
		return def
	}
	return strconv.FormatInt(*p, 10)
}

func enabledWord(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
