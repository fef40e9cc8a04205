package pipeline

import (
	"context"
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

func TestLanguageHeuristic(t *testing.T) {
	cases := []struct {
		name string
		text string
		want domain.Language
	}{
		{
			"spanish markers",
			"Hola, somos una empresa de software y buscamos un desarrollador senior. La posición es remota.",
			domain.LanguageSpanish,
		},
		{
			"english default",
			"Hi, we are hiring a backend developer for a remote position.",
			domain.LanguageEnglish,
		},
		{
			"single marker stays english",
			"Our office is near the plaza, but the team works in English. Hola!",
			domain.LanguageEnglish,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step := newLanguageStep(heuristicDeps())
			st := &domain.PipelineState{RawText: tc.text}
			if _, err := step.Run(context.Background(), st); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if st.DetectedLanguage != tc.want {
				t.Fatalf("language = %s, want %s", st.DetectedLanguage, tc.want)
			}
		})
	}
}

func TestLanguageFromModel(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, tier ports.ModelTier, _ string) (string, error) {
		if tier != ports.TierFast {
			t.Errorf("language detector called tier %s, want FAST", tier)
		}
		return `{"language": "es"}`, nil
	}}
	step := newLanguageStep(modelDeps(t, inv))
	st := &domain.PipelineState{RawText: "Hello there"}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.DetectedLanguage != domain.LanguageSpanish {
		t.Fatalf("language = %s", st.DetectedLanguage)
	}
}

func TestLanguageBareCodeFallback(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return "The message is written in Spanish, so: es", nil
	}}
	step := newLanguageStep(modelDeps(t, inv))
	st := &domain.PipelineState{RawText: "Hello there"}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.DetectedLanguage != domain.LanguageSpanish {
		t.Fatalf("language = %s", st.DetectedLanguage)
	}
}

func TestLanguageNeverOverwritten(t *testing.T) {
	step := newLanguageStep(heuristicDeps())
	st := &domain.PipelineState{
		RawText:          "Hola, somos una empresa, buscamos desarrollador para una posición.",
		DetectedLanguage: domain.LanguageEnglish,
	}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.DetectedLanguage != domain.LanguageEnglish {
		t.Fatalf("language overwritten to %s", st.DetectedLanguage)
	}
}
