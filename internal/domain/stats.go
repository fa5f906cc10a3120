// Package domain contains the core data structures and domain logic for the application.
package domain

import "fmt"

// PackageID names a package as known to the statistics API. It is case-sensitive.
type PackageID string

// Mode selects which metric shape a run asks the statistics API for.
type Mode string

const (
	// ModeDaily reports the downloads of the most recent day.
	ModeDaily Mode = "daily"
	// ModeTotal reports all-time downloads.
	ModeTotal Mode = "total"
)

// ParseMode validates a mode name given on the command line or in a config file.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDaily, ModeTotal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeDaily, ModeTotal)
	}
}

// DailyDownloads is the per-date, per-version breakdown returned by the statistics API.
type DailyDownloads map[string]map[string]uint64

// Metric is the reduced download figure for a single package.
// Label holds the selected day for daily metrics and is empty for totals.
type Metric struct {
	Count uint64
	Label string
}

// FetchResult is the outcome of fetching one package.
// Err is nil on success; every attempted package yields exactly one result.
type FetchResult struct {
	Package PackageID
	Metric  Metric
	Err     error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// RatioPair is a pair of packages whose relative shares are reported.
type RatioPair struct {
	A PackageID `yaml:"a"`
	B PackageID `yaml:"b"`
}

// RatioKey is the report key holding the share of a package within its pair.
func RatioKey(id PackageID) string {
	return string(id) + "_ratio"
}
