package models

import "strings"

// FilterCriteria holds optional exact-match constraints. An empty field matches anything.
type FilterCriteria struct {
	Version      string
	Type         PackageType
	Architecture string
	ScreenDPI    string
}

// NormalizeFilterValue maps the CLI's "match anything" spellings to the empty constraint.
func NormalizeFilterValue(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "all", "ALL", "latest":
		return ""
	}
	return v
}

// MatchType reports whether t satisfies the type constraint.
func (f FilterCriteria) MatchType(t PackageType) bool {
	return f.Type == "" || f.Type == t
}

// MatchArchitecture reports whether arch satisfies the architecture constraint.
func (f FilterCriteria) MatchArchitecture(arch string) bool {
	return f.Architecture == "" || f.Architecture == arch
}

// MatchScreenDPI reports whether dpi satisfies the density constraint.
func (f FilterCriteria) MatchScreenDPI(dpi string) bool {
	return f.ScreenDPI == "" || f.ScreenDPI == dpi
}

// MatchVersion compares byte-for-byte; there is no ordering or prefix logic.
func (f FilterCriteria) MatchVersion(version string) bool {
	return f.Version == "" || f.Version == version
}
