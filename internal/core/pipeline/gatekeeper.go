package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

var offerKeywords = []string{
	"role", "position", "opportunity", "hiring", "engineer", "developer",
	"salary", "remote", "onsite", "hybrid", "stack", "looking for",
	"team", "company", "client", "recruiter", "vacancy", "apply",
}

var spamKeywords = []string{
	"click here", "unsubscribe", "free", "winner", "prize", "bitcoin",
	"crypto", "investment", "guaranteed", "limited time",
	"verify your bank", "bank account",
}

type gatekeeperStep struct {
	deps *Deps
}

func newGatekeeperStep(deps *Deps) *gatekeeperStep {
	return &gatekeeperStep{deps: deps}
}

func (s *gatekeeperStep) Name() domain.StepName { return domain.StepGatekeeper }

func (s *gatekeeperStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	text := st.Text()

	classification, confidence, source, err := s.classify(ctx, text)
	if err != nil {
		return "", err
	}

	st.Classification = classification
	st.Confidence = confidence

	if classification != domain.ClassificationRealOffer {
		st.Halt(domain.StepGatekeeper, domain.HaltClassifiedNotOffer)
	}
	return fmt.Sprintf("%s (%.0f%%) via %s", classification, confidence*100, source), nil
}

func (s *gatekeeperStep) classify(ctx context.Context, text string) (domain.Classification, float64, string, error) {
	resp, err := s.deps.callModel(ctx, domain.StepGatekeeper, promptGatekeeper+"\n\nMessage:\n"+text)
	if err != nil {
		return "", 0, "", err
	}
	if resp == "" {
		cls, conf := keywordClassify(text)
		return cls, conf, "heuristic", nil
	}

	var parsed struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
	}
	outcome := DecodeJSON(resp, &parsed)
	if outcome.Usable() && validClassification(parsed.Classification) {
		s.deps.logFallback(domain.StepGatekeeper, outcome, resp)
		if parsed.Confidence <= 0 || parsed.Confidence > 1 {
			parsed.Confidence = 0.8
		}
		return domain.Classification(parsed.Classification), parsed.Confidence, "llm", nil
	}

	// Tier 3: the keyword heuristic is the shape-specific recovery.
	s.deps.logFallback(domain.StepGatekeeper, ParseUndetermined, resp)
	cls, conf := keywordClassify(text)
	return cls, conf, "heuristic", nil
}

func validClassification(raw string) bool {
	switch domain.Classification(raw) {
	case domain.ClassificationRealOffer, domain.ClassificationSpam, domain.ClassificationNotAnOffer:
		return true
	}
	return false
}

// keywordClassify scores offer vs spam vocabulary. Two spam hits beat
// any number of offer hits: scammers imitate recruiter language.
func keywordClassify(text string) (domain.Classification, float64) {
	lower := strings.ToLower(text)

	offerScore := 0
	for _, kw := range offerKeywords {
		if strings.Contains(lower, kw) {
			offerScore++
		}
	}
	spamScore := 0
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			spamScore++
		}
	}

	switch {
	case spamScore >= 2:
		return domain.ClassificationSpam, min(0.5+float64(spamScore)*0.1, 0.95)
	case offerScore >= 3:
		return domain.ClassificationRealOffer, min(0.5+float64(offerScore)*0.05, 0.95)
	case offerScore >= 1:
		return domain.ClassificationRealOffer, 0.6
	default:
		return domain.ClassificationNotAnOffer, 0.7
	}
}
