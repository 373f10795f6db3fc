package application

import (
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

// GateConfig selects how confident the primary candidate must be before the
// rest of the ensemble is skipped.
type GateConfig struct {
	// Policy is the threshold policy the primary composite is checked against.
	Policy domain.ThresholdPolicy `yaml:"policy" json:"policy"`

	// ForceMulti runs the ensemble regardless of Policy.
	ForceMulti bool `yaml:"force_multi" json:"force_multi"`
}

// DefaultGateConfig returns the moderate policy without force_multi.
func DefaultGateConfig() GateConfig {
	return GateConfig{Policy: domain.PolicyModerate}
}

// ShouldRunEnsemble reports whether a round has to evaluate every method
// instead of accepting the primary candidate. The primary must already carry
// its heuristic scores; an unscored or missing primary always runs the
// ensemble.
func ShouldRunEnsemble(primary *domain.Candidate, config GateConfig) bool {
	if config.ForceMulti || primary == nil {
		return true
	}
	composite, ok := primary.HeuristicComposite()
	if !ok {
		return true
	}
	return composite < config.Policy.Threshold()
}
