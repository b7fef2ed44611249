// Package monitor runs the scheduled check cycle: it fetches snapshots for
// tracked products and competitors, detects price changes, dispatches
// alerts, and persists new observations.
package monitor

import "math"

// Transition classifies one price observation against the stored value.
type Transition string

const (
	// TransitionChanged fires an alert: the observed price differs from
	// the stored one, or this is the first observation ever recorded.
	TransitionChanged Transition = "changed"
	// TransitionUnchanged records the observation without alerting.
	TransitionUnchanged Transition = "unchanged"
	// TransitionNoData leaves the stored value untouched: the fetch came
	// back without a price, and overwriting would manufacture a false
	// change on the next successful fetch.
	TransitionNoData Transition = "no_data"
)

// priceEpsilon treats sub-cent float drift as equality.
const priceEpsilon = 0.005

// Detect compares the stored price with a fresh observation.
func Detect(old, observed *float64) Transition {
	switch {
	case observed == nil:
		return TransitionNoData
	case old == nil:
		return TransitionChanged
	case math.Abs(*old-*observed) < priceEpsilon:
		return TransitionUnchanged
	default:
		return TransitionChanged
	}
}
