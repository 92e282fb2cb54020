// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"fmt"
	"sort"
	"strings"

	gnmipb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/gnmic/pkg/api"
	"google.golang.org/protobuf/proto"
)

// CLIOrigin is the path origin of device CLI commands. IOS XR answers a Get
// for origin "cli" with the command output, typically with the ascii
// encoding.
const CLIOrigin = "cli"

// CLIPath returns the Get path that runs cmd on the device CLI, e.g.
// "cli:show version". The command is sent verbatim as the only path
// element, so it may contain '/', '[' or '|'.
func CLIPath(cmd string) string {
	return CLIOrigin + ":" + cmd
}

// cliCommand reports whether path was built by CLIPath and returns the
// command.
func cliCommand(path string) (string, bool) {
	cmd, ok := strings.CutPrefix(path, CLIOrigin+":")
	if !ok || strings.TrimSpace(cmd) == "" {
		return "", false
	}
	return cmd, true
}

// getPath adds path to a GetRequest. CLI commands bypass gnmic path
// parsing, which would read '[...]' inside the command as list keys.
func getPath(path string) api.GNMIOption {
	cmd, ok := cliCommand(path)
	if !ok {
		return api.Path(path)
	}
	return func(msg proto.Message) error {
		req, ok := msg.ProtoReflect().Interface().(*gnmipb.GetRequest)
		if !ok {
			return fmt.Errorf("cli path: %w: %T", api.ErrInvalidMsgType, msg)
		}
		req.Path = append(req.Path, &gnmipb.Path{
			Origin: CLIOrigin,
			Elem:   []*gnmipb.PathElem{{Name: cmd}},
		})
		return nil
	}
}

// RenderPath renders prefix+path in the string form normalizers match on:
//
//	openconfig-network-instance:network-instances/network-instance[name=DEFAULT]/protocols/protocol[identifier=BGP][name=default]/bgp
//
// Keys are sorted by name. The origin is taken from path, then prefix.
func RenderPath(prefix, path *gnmipb.Path) string {
	var b strings.Builder

	origin := path.GetOrigin()
	if origin == "" {
		origin = prefix.GetOrigin()
	}
	if origin != "" {
		b.WriteString(origin)
		b.WriteByte(':')
	}

	first := true
	write := func(elems []*gnmipb.PathElem) {
		for _, e := range elems {
			if !first {
				b.WriteByte('/')
			}
			first = false
			b.WriteString(e.GetName())
			keys := make([]string, 0, len(e.GetKey()))
			for k := range e.GetKey() {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteByte('[')
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(e.GetKey()[k])
				b.WriteByte(']')
			}
		}
	}
	write(prefix.GetElem())
	write(path.GetElem())

	return b.String()
}
