package pipeline

import (
	"fmt"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// StepOrder is the canonical step sequence. The orchestrator derives its
// per-mode graphs from this list; do not reorder.
var StepOrder = []domain.StepName{
	domain.StepGuardrail,
	domain.StepGatekeeper,
	domain.StepExtractor,
	domain.StepLanguageDetector,
	domain.StepAnalyst,
	domain.StepCommunicator,
	domain.StepStageSuggester,
}

// stepTiers is the static cost/latency policy: classification-style
// decisions ride the fast tier, extraction/scoring/drafting the accurate
// one. Callers never pick a tier directly.
var stepTiers = map[domain.StepName]ports.ModelTier{
	domain.StepGuardrail:        ports.TierFast,
	domain.StepGatekeeper:       ports.TierFast,
	domain.StepExtractor:        ports.TierAccurate,
	domain.StepLanguageDetector: ports.TierFast,
	domain.StepAnalyst:          ports.TierAccurate,
	domain.StepCommunicator:     ports.TierAccurate,
	domain.StepStageSuggester:   ports.TierFast,
}

// Route is a resolved model assignment for one step.
type Route struct {
	ModelID string
	Tier    ports.ModelTier
}

// RouterConfig holds the model ids per tier plus optional per-step tier
// overrides (step name -> "FAST"|"ACCURATE").
type RouterConfig struct {
	FastModelID     string
	AccurateModelID string
	TierOverrides   map[string]string
}

// Router maps a step name to a provider model id and tier. The mapping is
// fixed at construction; a tier without a configured model id is a
// deployment defect and fails fast.
type Router struct {
	models map[ports.ModelTier]string
	tiers  map[domain.StepName]ports.ModelTier
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	tiers := make(map[domain.StepName]ports.ModelTier, len(stepTiers))
	for step, tier := range stepTiers {
		tiers[step] = tier
	}
	for rawStep, rawTier := range cfg.TierOverrides {
		step := domain.StepName(rawStep)
		if _, known := tiers[step]; !known {
			return nil, domain.WrapError(domain.ErrConfiguration, "model router",
				fmt.Errorf("tier override for unknown step %q", rawStep))
		}
		switch ports.ModelTier(rawTier) {
		case ports.TierFast, ports.TierAccurate:
			tiers[step] = ports.ModelTier(rawTier)
		default:
			return nil, domain.WrapError(domain.ErrConfiguration, "model router",
				fmt.Errorf("unknown tier %q for step %q", rawTier, rawStep))
		}
	}

	models := map[ports.ModelTier]string{
		ports.TierFast:     cfg.FastModelID,
		ports.TierAccurate: cfg.AccurateModelID,
	}
	for _, tier := range tiers {
		if models[tier] == "" {
			return nil, domain.WrapError(domain.ErrConfiguration, "model router",
				fmt.Errorf("no model id configured for tier %s", tier))
		}
	}

	return &Router{models: models, tiers: tiers}, nil
}

// Resolve returns the model route for a step.
func (r *Router) Resolve(step domain.StepName) (Route, error) {
	tier, ok := r.tiers[step]
	if !ok {
		return Route{}, domain.WrapError(domain.ErrConfiguration, "model router",
			fmt.Errorf("no tier mapping for step %q", step))
	}
	return Route{ModelID: r.models[tier], Tier: tier}, nil
}
