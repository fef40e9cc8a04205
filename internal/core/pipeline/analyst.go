package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

var salaryNumberPattern = regexp.MustCompile(`(\d[\d,.]*)\s*([kK])?`)

type analystStep struct {
	deps    *Deps
	weights ScoringWeights
}

func newAnalystStep(deps *Deps, weights ScoringWeights) *analystStep {
	return &analystStep{deps: deps, weights: weights}
}

func (s *analystStep) Name() domain.StepName { return domain.StepAnalyst }

func (s *analystStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	if st.Extracted == nil {
		return "", fmt.Errorf("analyst: %w: no extracted data", domain.ErrInvalidInput)
	}

	baseline, baseReason := s.baseline(st.Profile, st.Extracted)
	score, reasoning, source := baseline, baseReason, "heuristic"

	if llmScore, llmReason, ok := s.modelScore(ctx, st); ok {
		// The model score is advisory; blending keeps one hallucinated
		// number from swinging the match by more than half its error.
		score = clampScore((baseline + llmScore) / 2)
		reasoning = llmReason
		source = "llm"
	}

	st.MatchScore = &score
	st.MatchReasoning = reasoning
	return fmt.Sprintf("match score %d via %s", score, source), nil
}

func (s *analystStep) modelScore(ctx context.Context, st *domain.PipelineState) (int, string, bool) {
	profileJSON, _ := json.Marshal(st.Profile)
	extractedJSON, _ := json.Marshal(st.Extracted)
	resp, err := s.deps.callModel(ctx, domain.StepAnalyst,
		fmt.Sprintf(promptAnalyst, profileJSON, extractedJSON))
	if err != nil || resp == "" {
		return 0, "", false
	}

	var parsed struct {
		Score     *int   `json:"score"`
		Reasoning string `json:"reasoning"`
	}
	outcome := DecodeJSON(resp, &parsed)
	s.deps.logFallback(domain.StepAnalyst, outcome, resp)
	if !outcome.Usable() || parsed.Score == nil {
		return 0, "", false
	}
	// Out-of-range scores are clamped, not rejected.
	return clampScore(*parsed.Score), strings.TrimSpace(parsed.Reasoning), true
}

// baseline computes the deterministic weighted score. It is always
// evaluated so a model outage degrades scoring instead of disabling it.
func (s *analystStep) baseline(profile *domain.Profile, ex *domain.ExtractedData) (int, string) {
	w := s.weights
	score := w.Base
	var notes []string

	if profile != nil && len(profile.Skills) > 0 && len(ex.TechStack) > 0 {
		matched := matchedSkills(profile.Skills, ex.TechStack)
		score += w.Skills * len(matched) / len(profile.Skills)
		if len(matched) > 0 {
			notes = append(notes, fmt.Sprintf("skill overlap: %s", strings.Join(matched, ", ")))
		} else {
			notes = append(notes, "no skill overlap")
		}
	}

	if profile != nil && profile.WorkModel != "" && ex.WorkModel != "" {
		if profile.WorkModel == ex.WorkModel {
			score += w.WorkModelMatch
			notes = append(notes, fmt.Sprintf("work model matches (%s)", ex.WorkModel))
		} else {
			score += w.WorkModelMismatch
			notes = append(notes, fmt.Sprintf("work model %s differs from preferred %s", ex.WorkModel, profile.WorkModel))
		}
	}

	if profile != nil && profile.MinSalary > 0 {
		if floor, ok := salaryFloor(ex.SalaryRange); ok {
			if floor >= profile.MinSalary {
				score += w.SalaryMeets
				notes = append(notes, "salary meets the minimum")
			} else {
				score += w.SalaryBelow
				notes = append(notes, fmt.Sprintf("salary floor %d is below the minimum %d", floor, profile.MinSalary))
			}
		}
	}

	if len(notes) == 0 {
		notes = append(notes, "insufficient data, neutral score")
	}
	return clampScore(score), strings.Join(notes, "; ")
}

func matchedSkills(skills, stack []string) []string {
	inStack := make(map[string]bool, len(stack))
	for _, t := range stack {
		inStack[strings.ToLower(strings.TrimSpace(t))] = true
	}
	var out []string
	for _, s := range skills {
		if inStack[strings.ToLower(strings.TrimSpace(s))] {
			out = append(out, s)
		}
	}
	return out
}

// salaryFloor pulls the lower bound out of a free-form salary range.
// Shorthand amounts ("120k", "120-140") are normalized to full units.
func salaryFloor(raw string) (int, bool) {
	m := salaryNumberPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(strings.ReplaceAll(m[1], ",", ""), ".", "")
	n, err := strconv.Atoi(digits)
	if err != nil || n == 0 {
		return 0, false
	}
	if m[2] != "" || n < 1000 {
		n *= 1000
	}
	return n, true
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
