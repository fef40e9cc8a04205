package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

func TestStageHeuristicSuggestions(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		current domain.Stage
		want    domain.Stage
	}{
		{
			"interview signals",
			"We would like to schedule a call for a technical screen next week.",
			domain.StageEngaging,
			domain.StageInterviewing,
		},
		{
			"negotiation beats interviewing",
			"After your final interview we prepared an offer letter with the compensation package.",
			domain.StageInterviewing,
			domain.StageNegotiating,
		},
		{
			"spanish interview signals",
			"Nos gustaría agendar una entrevista con el equipo la próxima semana.",
			domain.StageEngaging,
			domain.StageInterviewing,
		},
		{
			"discovery moves to engaging",
			"Thanks for the details, the role sounds interesting.",
			domain.StageDiscovery,
			domain.StageEngaging,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step := newStageStep(heuristicDeps())
			st := &domain.PipelineState{RawText: tc.text, CurrentStage: tc.current}
			if _, err := step.Run(context.Background(), st); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if st.SuggestedStage != tc.want {
				t.Fatalf("suggested = %s, want %s", st.SuggestedStage, tc.want)
			}
			if st.StageReason == "" {
				t.Fatal("suggestion without a reason")
			}
		})
	}
}

func TestStageDiscardsBackwardSuggestion(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return `{"suggested_stage": "ENGAGING", "reason": "still chatting"}`, nil
	}}
	step := newStageStep(modelDeps(t, inv))
	st := &domain.PipelineState{
		RawText:      "Any update on the next interview round?",
		CurrentStage: domain.StageNegotiating,
	}
	summary, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.SuggestedStage != "" {
		t.Fatalf("suggested = %s, want none", st.SuggestedStage)
	}
	if !strings.Contains(summary, "discarded") {
		t.Fatalf("summary = %q", summary)
	}
}

func TestStageNoSuggestionFromTerminal(t *testing.T) {
	step := newStageStep(heuristicDeps())
	st := &domain.PipelineState{
		RawText:      "Congratulations on the offer letter!",
		CurrentStage: domain.StageRejected,
	}
	summary, err := step.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.SuggestedStage != "" {
		t.Fatalf("suggested = %s from terminal stage", st.SuggestedStage)
	}
	if !strings.Contains(summary, "terminal") {
		t.Fatalf("summary = %q", summary)
	}
}

func TestStageModelNullSuggestion(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return `{"suggested_stage": null, "reason": null}`, nil
	}}
	step := newStageStep(modelDeps(t, inv))
	st := &domain.PipelineState{RawText: "Just checking in.", CurrentStage: domain.StageEngaging}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.SuggestedStage != "" {
		t.Fatalf("suggested = %s, want none", st.SuggestedStage)
	}
}

func TestStageDefaultsToDiscovery(t *testing.T) {
	step := newStageStep(heuristicDeps())
	st := &domain.PipelineState{RawText: "We are hiring for a great role."}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.SuggestedStage != domain.StageEngaging {
		t.Fatalf("suggested = %s, want ENGAGING", st.SuggestedStage)
	}
}
