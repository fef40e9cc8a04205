package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// Stage signal vocabularies, English and Spanish. Negotiating wins over
// interviewing when both match.
var (
	negotiatingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(offer letter|formal offer|compensation package|final offer|counter.?offer)\b`),
		regexp.MustCompile(`\b(salary negotiation|negotiate|sign.?on bonus|equity grant|start date)\b`),
		regexp.MustCompile(`\b(carta de oferta|oferta formal|negociar|negociación|paquete salarial|fecha de inicio)\b`),
	}
	interviewingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(interview|technical screen|coding challenge|take.?home|hiring manager call|next round)\b`),
		regexp.MustCompile(`\b(schedule a call|meet the team|panel|on.?site|system design round)\b`),
		regexp.MustCompile(`\b(entrevista|prueba técnica|ronda técnica|agendar una llamada|conocer al equipo)\b`),
	}
)

type stageStep struct {
	deps *Deps
}

func newStageStep(deps *Deps) *stageStep {
	return &stageStep{deps: deps}
}

func (s *stageStep) Name() domain.StepName { return domain.StepStageSuggester }

func (s *stageStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	current := st.CurrentStage
	if current == "" {
		current = domain.StageDiscovery
	}
	if domain.IsTerminalStage(current) {
		return fmt.Sprintf("stage %s is terminal, no suggestion", current), nil
	}

	suggested, reason, source, err := s.suggest(ctx, st, current)
	if err != nil {
		return "", err
	}
	if suggested == "" {
		return fmt.Sprintf("no stage change suggested, staying at %s", current), nil
	}
	// Suggestions only ever move the conversation forward.
	if !domain.IsForwardMove(current, suggested) {
		s.deps.Logger.Debug("stage_suggestion_discarded",
			"current", string(current), "suggested", string(suggested))
		return fmt.Sprintf("discarded non-forward suggestion %s, staying at %s", suggested, current), nil
	}
	st.SuggestedStage = suggested
	st.StageReason = reason
	return fmt.Sprintf("suggesting %s via %s", suggested, source), nil
}

func (s *stageStep) suggest(ctx context.Context, st *domain.PipelineState, current domain.Stage) (domain.Stage, string, string, error) {
	resp, err := s.deps.callModel(ctx, domain.StepStageSuggester,
		fmt.Sprintf(promptStageSuggester, current)+"\n\nMessage:\n"+st.Text())
	if err != nil {
		return "", "", "", err
	}
	if resp != "" {
		var parsed struct {
			SuggestedStage string `json:"suggested_stage"`
			Reason         string `json:"reason"`
		}
		outcome := DecodeJSON(resp, &parsed)
		s.deps.logFallback(domain.StepStageSuggester, outcome, resp)
		if outcome.Usable() {
			if parsed.SuggestedStage == "" {
				return "", "", "llm", nil
			}
			if stage, ok := validSuggestion(parsed.SuggestedStage); ok {
				return stage, strings.TrimSpace(parsed.Reason), "llm", nil
			}
		}
	}
	stage, reason := heuristicStage(st.Text(), current)
	return stage, reason, "heuristic", nil
}

func validSuggestion(raw string) (domain.Stage, bool) {
	switch stage := domain.Stage(strings.ToUpper(strings.TrimSpace(raw))); stage {
	case domain.StageEngaging, domain.StageInterviewing, domain.StageNegotiating:
		return stage, true
	}
	return "", false
}

// heuristicStage scans for lifecycle signals in the message. An offer in
// discovery that got this far means the conversation is engaging.
func heuristicStage(text string, current domain.Stage) (domain.Stage, string) {
	lower := strings.ToLower(text)
	for _, p := range negotiatingPatterns {
		if p.MatchString(lower) {
			return domain.StageNegotiating, "message discusses offer or compensation terms"
		}
	}
	for _, p := range interviewingPatterns {
		if p.MatchString(lower) {
			return domain.StageInterviewing, "message proposes or discusses interviews"
		}
	}
	if current == domain.StageDiscovery {
		return domain.StageEngaging, "active exchange about the opportunity"
	}
	return "", ""
}
