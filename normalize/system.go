// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/tidwall/gjson"

	gnmi "github.com/netascode/go-gnmi-buddy"
)

// SystemErrNoData is reported when no update carries a system container.
const SystemErrNoData = "No system data available"

// SystemInfo is the parsed content of /system.
type SystemInfo struct {
	Hostname        *string        `json:"hostname"`
	CurrentDatetime *string        `json:"current_datetime"`
	SoftwareVersion *string        `json:"software_version"`
	Timezone        *string        `json:"timezone"`
	MemoryPhysical  *uint64        `json:"memory_physical"`
	GRPCServers     []GRPCServer   `json:"grpc_servers"`
	Logging         []LogSelector  `json:"logging"`
	Message         *SystemMessage `json:"message,omitempty"`
	Users           []SystemUser   `json:"users"`
	BootTime        *int64         `json:"boot_time"`
	BootTimeHuman   *string        `json:"boot_time_human"`
	Uptime          *string        `json:"uptime"`
	Error           string         `json:"error,omitempty"`
}

// GRPCServer is a gRPC server instance from openconfig-system-grpc.
type GRPCServer struct {
	Name              *string  `json:"name"`
	Enable            *bool    `json:"enable"`
	Port              *int64   `json:"port"`
	TransportSecurity *bool    `json:"transport_security"`
	ListenAddresses   []string `json:"listen_addresses"`
}

// LogSelector is a console logging selector.
type LogSelector struct {
	Severity string `json:"severity"`
	Facility string `json:"facility"`
}

// SystemMessage is the last system message.
type SystemMessage struct {
	Msg      *string `json:"msg"`
	Priority *int64  `json:"priority"`
	AppName  *string `json:"app_name"`
}

// SystemUser is a local AAA user.
type SystemUser struct {
	Username *string `json:"username"`
	Role     *string `json:"role"`
}

// ParseSystem reads the first update holding a system container. Uptime is
// computed against now.
func ParseSystem(updates []gnmi.Update, now time.Time) SystemInfo {
	for _, u := range updates {
		val, ok := objectVal(u)
		if !ok {
			continue
		}
		if sys := member(val, "system"); sys.IsObject() {
			val = sys
		}
		return parseSystem(val, now)
	}
	return SystemInfo{Error: SystemErrNoData}
}

func parseSystem(sys gjson.Result, now time.Time) SystemInfo {
	state := sys.Get("state")
	info := SystemInfo{
		Hostname:        optString(state.Get("hostname")),
		CurrentDatetime: optString(state.Get("current-datetime")),
		SoftwareVersion: optString(state.Get("software-version")),
		Timezone:        optString(sys.Get("clock.state.timezone-name")),
		MemoryPhysical:  optUint(sys.Get("memory.state.physical")),
		GRPCServers:     []GRPCServer{},
		Logging:         []LogSelector{},
		Users:           []SystemUser{},
		BootTime:        optInt(state.Get("boot-time")),
	}

	for _, s := range list(member(sys, "grpc-servers").Get("grpc-server")) {
		st := s.Get("state")
		info.GRPCServers = append(info.GRPCServers, GRPCServer{
			Name:              optString(st.Get("name")),
			Enable:            optBool(st.Get("enable")),
			Port:              optInt(st.Get("port")),
			TransportSecurity: optBool(st.Get("transport-security")),
			ListenAddresses:   append([]string{}, stringList(st.Get("listen-addresses"))...),
		})
	}

	for _, sel := range list(sys.Get("logging.console.selectors.selector")) {
		info.Logging = append(info.Logging, LogSelector{
			Severity: sel.Get("severity").String(),
			Facility: sel.Get("facility").String(),
		})
	}

	if m := sys.Get("messages.state.message"); m.IsObject() {
		info.Message = &SystemMessage{
			Msg:      optString(m.Get("msg")),
			Priority: optInt(m.Get("priority")),
			AppName:  optString(m.Get("app-name")),
		}
	}

	for _, u := range list(sys.Get("aaa.authentication.users.user")) {
		st := u.Get("state")
		if !st.Exists() {
			continue
		}
		info.Users = append(info.Users, SystemUser{
			Username: optString(st.Get("username")),
			Role:     optString(st.Get("role")),
		})
	}

	if info.BootTime != nil {
		boot := time.Unix(0, *info.BootTime).UTC()
		info.BootTimeHuman = pointer.ToString(boot.Format(TimeLayout) + " UTC")
		info.Uptime = pointer.ToString(FormatUptime(now.Sub(boot)))
	}
	return info
}

// FormatUptime renders d as "1d 2h 3m 4s". Negative durations count as 0.
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	days, secs := secs/86400, secs%86400
	hours, secs := secs/3600, secs%3600
	minutes, secs := secs/60, secs%60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, secs)
}

// SummarizeSystem renders info as text.
func SummarizeSystem(info SystemInfo) string {
	if info.Error != "" {
		return info.Error
	}

	var b strings.Builder
	b.WriteString("System Information:\n")
	fmt.Fprintf(&b, "- Hostname: %s\n", strOr(info.Hostname, notAvailable))
	fmt.Fprintf(&b, "- Software Version: %s\n", strOr(info.SoftwareVersion, notAvailable))
	fmt.Fprintf(&b, "- Current Time: %s\n", strOr(info.CurrentDatetime, notAvailable))
	fmt.Fprintf(&b, "- Timezone: %s\n", strOr(info.Timezone, notAvailable))
	fmt.Fprintf(&b, "- Boot Time: %s\n", strOr(info.BootTimeHuman, notAvailable))
	fmt.Fprintf(&b, "- Uptime: %s\n", strOr(info.Uptime, notAvailable))
	if info.MemoryPhysical != nil {
		fmt.Fprintf(&b, "- Physical Memory: %d bytes\n", *info.MemoryPhysical)
	}

	if len(info.GRPCServers) > 0 {
		b.WriteString("\ngRPC Servers:\n")
		for _, s := range info.GRPCServers {
			line := "- " + strOr(s.Name, "Unknown")
			if s.Port != nil {
				line += fmt.Sprintf(" port %d", *s.Port)
			}
			if s.Enable != nil {
				line += " (" + enabledWord(*s.Enable) + ")"
			}
			if s.TransportSecurity != nil && *s.TransportSecurity {
				line += ", TLS"
			}
			b.WriteString(line + "\n")
		}
	}

	if len(info.Users) > 0 {
		b.WriteString("\nUsers:\n")
		for _, u := range info.Users {
			fmt.Fprintf(&b, "- %s (role: %s)\n", strOr(u.Username, "Unknown"), strOr(u.Role, notAvailable))
		}
	}

	if len(info.Logging) > 0 {
		b.WriteString("\nConsole Logging:\n")
		for _, sel := range info.Logging {
			fmt.Fprintf(&b, "- %s %s\n", stripModule(sel.Facility), stripModule(sel.Severity))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
