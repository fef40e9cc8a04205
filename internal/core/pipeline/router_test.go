package pipeline

import (
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

func TestRouterDefaultTiers(t *testing.T) {
	router, err := NewRouter(RouterConfig{FastModelID: "llama3.2:3b", AccurateModelID: "qwen2.5:14b"})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	cases := []struct {
		step      domain.StepName
		wantTier  ports.ModelTier
		wantModel string
	}{
		{domain.StepGuardrail, ports.TierFast, "llama3.2:3b"},
		{domain.StepGatekeeper, ports.TierFast, "llama3.2:3b"},
		{domain.StepExtractor, ports.TierAccurate, "qwen2.5:14b"},
		{domain.StepLanguageDetector, ports.TierFast, "llama3.2:3b"},
		{domain.StepAnalyst, ports.TierAccurate, "qwen2.5:14b"},
		{domain.StepCommunicator, ports.TierAccurate, "qwen2.5:14b"},
		{domain.StepStageSuggester, ports.TierFast, "llama3.2:3b"},
	}
	for _, tc := range cases {
		route, err := router.Resolve(tc.step)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tc.step, err)
		}
		if route.Tier != tc.wantTier || route.ModelID != tc.wantModel {
			t.Errorf("Resolve(%s) = %+v, want tier %s model %s", tc.step, route, tc.wantTier, tc.wantModel)
		}
	}
}

func TestRouterTierOverride(t *testing.T) {
	router, err := NewRouter(RouterConfig{
		FastModelID:     "fast-model",
		AccurateModelID: "accurate-model",
		TierOverrides:   map[string]string{"gatekeeper": "ACCURATE"},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	route, err := router.Resolve(domain.StepGatekeeper)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route.Tier != ports.TierAccurate || route.ModelID != "accurate-model" {
		t.Fatalf("route = %+v, want accurate tier", route)
	}
}

func TestRouterRejectsBadOverrides(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
	}{
		{"unknown step", map[string]string{"summarizer": "FAST"}},
		{"unknown tier", map[string]string{"gatekeeper": "CHEAP"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRouter(RouterConfig{
				FastModelID:     "fast-model",
				AccurateModelID: "accurate-model",
				TierOverrides:   tc.overrides,
			})
			if !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
		})
	}
}

func TestRouterRequiresModelForUsedTier(t *testing.T) {
	_, err := NewRouter(RouterConfig{FastModelID: "fast-model"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
