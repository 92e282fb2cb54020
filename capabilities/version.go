// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package capabilities

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	semverRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:[-+].*)?$`)
	dateRe   = regexp.MustCompile(`^(\d{4})[-/](\d{2})[-/](\d{2})$`)
)

// VersionTag says how a version string was parsed.
type VersionTag int

const (
	TagRaw VersionTag = iota
	TagSemver
	TagDate
)

// String returns the tag name.
func (t VersionTag) String() string {
	switch t {
	case TagSemver:
		return "semver"
	case TagDate:
		return "date"
	default:
		return "raw"
	}
}

// NormalizedVersion is a parsed version string. Parts holds
// major/minor/patch for TagSemver and year/month/day for TagDate.
type NormalizedVersion struct {
	Raw   string
	Tag   VersionTag
	Parts [3]int
}

// ParseVersion parses s as semver, then as a date, and falls back to the
// raw string. Pre-release and build suffixes of semver are ignored.
func ParseVersion(s string) NormalizedVersion {
	s = strings.TrimSpace(s)
	if m := semverRe.FindStringSubmatch(s); m != nil {
		if parts, ok := atoi3(m[1:4]); ok {
			return NormalizedVersion{Raw: s, Tag: TagSemver, Parts: parts}
		}
	}
	if m := dateRe.FindStringSubmatch(s); m != nil {
		if parts, ok := atoi3(m[1:4]); ok {
			return NormalizedVersion{Raw: s, Tag: TagDate, Parts: parts}
		}
	}
	return NormalizedVersion{Raw: s, Tag: TagRaw}
}

// atoi3 fails on components that overflow int.
func atoi3(s []string) ([3]int, bool) {
	var out [3]int
	for i := range out {
		n, err := strconv.Atoi(s[i])
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// Comparison is the outcome of CompareVersions.
type Comparison int

const (
	Less    Comparison = -1
	Equal   Comparison = 0
	Greater Comparison = 1
	// Unknown means the versions cannot be ordered.
	Unknown Comparison = 2
)

// String returns the comparison name.
func (c Comparison) String() string {
	switch c {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "unknown"
	}
}

// CompareVersions orders a against b. It returns Unknown when either is
// blank or when they parse under different tags; semver and dates compare
// numerically per component, raw strings lexicographically.
func CompareVersions(a, b string) Comparison {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return Unknown
	}
	va, vb := ParseVersion(a), ParseVersion(b)
	if va.Tag != vb.Tag {
		return Unknown
	}

	if va.Tag == TagRaw {
		switch {
		case va.Raw < vb.Raw:
			return Less
		case va.Raw > vb.Raw:
			return Greater
		}
		return Equal
	}

	for i := range va.Parts {
		switch {
		case va.Parts[i] < vb.Parts[i]:
			return Less
		case va.Parts[i] > vb.Parts[i]:
			return Greater
		}
	}
	return Equal
}
