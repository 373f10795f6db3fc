package domain

import (
	"fmt"
	"math"
	"strings"
)

// ThresholdPolicy selects how confident the primary candidate must be before
// the ensemble is skipped.
type ThresholdPolicy string

// Threshold policies ordered from the most to the least demanding.
const (
	// PolicyStrict skips the ensemble only when the primary composite is at
	// least 0.95.
	PolicyStrict ThresholdPolicy = "strict"
	// PolicyModerate skips the ensemble when the primary composite is at
	// least 0.85.
	PolicyModerate ThresholdPolicy = "moderate"
	// PolicyRelaxed skips the ensemble when the primary composite is at
	// least 0.70.
	PolicyRelaxed ThresholdPolicy = "relaxed"
	// PolicyAlways runs the ensemble regardless of the primary score.
	PolicyAlways ThresholdPolicy = "always"
)

// Threshold values for each policy.
const (
	StrictThreshold   = 0.95
	ModerateThreshold = 0.85
	RelaxedThreshold  = 0.70
)

// Threshold returns the minimum primary heuristic composite that lets a round
// skip the ensemble. PolicyAlways returns +Inf so no score can pass it.
func (p ThresholdPolicy) Threshold() float64 {
	switch p {
	case PolicyStrict:
		return StrictThreshold
	case PolicyModerate:
		return ModerateThreshold
	case PolicyRelaxed:
		return RelaxedThreshold
	default:
		return math.Inf(1)
	}
}

// Valid reports whether p is one of the known policies.
func (p ThresholdPolicy) Valid() bool {
	switch p {
	case PolicyStrict, PolicyModerate, PolicyRelaxed, PolicyAlways:
		return true
	}
	return false
}

// ParsePolicy converts a configuration string into a ThresholdPolicy.
func ParsePolicy(s string) (ThresholdPolicy, error) {
	p := ThresholdPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown quality threshold policy %q", ErrInvalidConfiguration, s)
	}
	return p, nil
}
