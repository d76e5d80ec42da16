// Package freshness classifies how recently an employee has reported a
// position. Classification is a pure function of the clock and the last
// sample timestamp; nothing is cached, so two observers with the same
// thresholds and clock always agree.
package freshness

import (
	"time"

	"github.com/benmeehan/fieldtrack/internal/constants"
)

// Thresholds are the two boundaries of the freshness scale. FreshWithin
// must be strictly less than OfflineAfter; configuration loading enforces
// this before a Thresholds value is ever constructed.
type Thresholds struct {
	FreshWithin  time.Duration
	OfflineAfter time.Duration
}

// DefaultThresholds returns the standard 5 minute / 30 minute boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FreshWithin:  time.Duration(constants.DefaultFreshWithinSec) * time.Second,
		OfflineAfter: time.Duration(constants.DefaultOfflineAfterSec) * time.Second,
	}
}

// Classify maps the age of the last sample to a freshness status. Ages on
// a boundary take the fresher side, and a last sample from the future
// (clock skew between writer and reader) counts as age zero.
func Classify(now time.Time, lastTS int64, t Thresholds) string {
	age := now.Unix() - lastTS
	if age < 0 {
		age = 0
	}
	switch {
	case age <= int64(t.FreshWithin.Seconds()):
		return constants.FreshnessFresh
	case age <= int64(t.OfflineAfter.Seconds()):
		return constants.FreshnessStale
	default:
		return constants.FreshnessOffline
	}
}
