// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// DefaultLogMinutes is the age limit used when LogFilter.Minutes is not
// positive.
const DefaultLogMinutes = 5

// defaultLogPattern selects severities 1 to 5 and the routing events
// gnmibuddy cares about.
const defaultLogPattern = "(-[1-5]-|ISIS|BGP|ADJCHANGE|LINK-3|LINEPROTO|MPLS|VRF|VPN|CONFIG-3)"

// Syslog timestamps as written by IOS XR, e.g.
// "RP/0/RP0/CPU0:Apr 23 12:52:06.929 UTC:".
var logTimestampRE = regexp.MustCompile(`RP/\d+/\w+/\w+:(\w{3})\s+(\d+)\s+(\d+):(\d+):(\d+)\.(\d+)\s+UTC:`)

// LogFilter selects which log lines are kept.
type LogFilter struct {
	// Keywords is an egrep alternation added to the severity filter on
	// the device, e.g. "BGP|OSPF".
	Keywords string `json:"keywords,omitempty"`
	// Minutes drops lines older than this. Lines without a timestamp are
	// always kept.
	Minutes int  `json:"filter_minutes,omitempty"`
	All     bool `json:"show_all_logs"`
}

// LogsResult is the filtered device log.
type LogsResult struct {
	Logs    []LogEntry `json:"logs"`
	Count   int        `json:"count"`
	Filters LogFilter  `json:"filters_applied"`
}

// LogEntry is one log line.
type LogEntry struct {
	Message string `json:"message"`
}

// LogQuery returns the gnmi.CLIPath that reads the device log, filtered on
// the device by severity and keywords. It is sent with the ascii encoding.
func LogQuery(keywords string) string {
	pattern := defaultLogPattern
	if k := strings.TrimSpace(keywords); k != "" {
		pattern = "(-[1-5]-|" + k + ")"
	}
	return gnmi.CLIPath(fmt.Sprintf("show logging | utility egrep '%s' | utility egrep -v logged", pattern))
}

// FilterLogs splits the text of every update into lines and keeps those
// matching f. Ages are measured against now.
func FilterLogs(updates []gnmi.Update, f LogFilter, now time.Time) LogsResult {
	if f.Minutes <= 0 {
		f.Minutes = DefaultLogMinutes
	}
	res := LogsResult{Logs: []LogEntry{}, Filters: f}
	if f.All {
		res.Filters.Minutes = 0
	}
	threshold := now.UTC().Add(-time.Duration(f.Minutes) * time.Minute)

	for _, u := range updates {
		for _, line := range strings.Split(logText(u), "\n") {
			line = strings.TrimRight(line, "\r")
			if isLogHeader(line) {
				continue
			}
			if !f.All {
				if ts, ok := logTimestamp(line, now.UTC()); ok && ts.Before(threshold) {
					continue
				}
			}
			res.Logs = append(res.Logs, LogEntry{Message: line})
		}
	}
	res.Count = len(res.Logs)
	return res
}

// logText returns the text of an ascii update, which the transport wraps
// as a JSON string.
func logText(u gnmi.Update) string {
	if gjson.ValidBytes(u.Val) {
		if r := gjson.ParseBytes(u.Val); r.Type == gjson.String {
			return r.Str
		}
	}
	return string(u.Val)
}

func isLogHeader(line string) bool {
	return strings.TrimSpace(line) == "" ||
		strings.HasPrefix(line, "---") ||
		strings.HasPrefix(line, "===") ||
		strings.Contains(line, "show logging")
}

// logTimestamp parses the syslog timestamp of line. The year is not
// logged, so months after the current one belong to last year.
func logTimestamp(line string, now time.Time) (time.Time, bool) {
	m := logTimestampRE.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	month, err := time.Parse("Jan", m[1])
	if err != nil {
		log.WithField("month", m[1]).Debug("unparsable log month")
		return time.Time{}, false
	}
	year := now.Year()
	if month.Month() > now.Month() {
		year--
	}
	n := make([]int, 5)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+2])
	}
	ms := n[4]
	return time.Date(year, month.Month(), n[0], n[1], n[2], n[3], ms*int(time.Millisecond), time.UTC), true
}

// SummarizeLogs renders res as text.
func SummarizeLogs(res LogsResult) string {
	var scope string
	switch {
	case res.Filters.All:
		scope = "all logs"
	default:
		scope = fmt.Sprintf("last %d minutes", res.Filters.Minutes)
	}
	if res.Filters.Keywords != "" {
		scope += ", keywords: " + res.Filters.Keywords
	}
	if res.Count == 0 {
		return fmt.Sprintf("No log entries found (%s).", scope)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d log entries (%s):\n", res.Count, scope)
	for _, e := range res.Logs {
		b.WriteString(e.Message + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
