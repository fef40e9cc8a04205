package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// piiPatterns match personally identifying spans that get redacted before
// any text reaches a model.
var piiPatterns = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"PHONE", regexp.MustCompile(`\+?\d[\d\-\s]{8,}\d`)},
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"ADDRESS", regexp.MustCompile(`(?i)\b\d{1,5}\s+[\w\s]{2,30}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Way|Court|Ct)\b`)},
}

// injectionPatterns are definitive prompt-injection signatures. A hit
// halts the run without consulting a model.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|above|prior)\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an|the)`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)<\|(?:im_start|system|endoftext)\|>`),
	regexp.MustCompile(`(?i)(?:disregard|forget)\s+(?:everything|all)`),
	regexp.MustCompile(`(?i)do\s+not\s+follow\s+(?:your|the)\s+(?:rules|instructions)`),
}

// borderlinePatterns look suspicious but produce false positives on
// ordinary recruiter prose, so a fast model gets the final word.
var borderlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpretend\s+(?:to\s+be|you\s+are)\b`),
	regexp.MustCompile(`(?i)\bact\s+as\s+(?:a|an|the)\b`),
	regexp.MustCompile(`(?i)\bnew\s+instructions\b`),
	regexp.MustCompile(`(?i)\boverride\b[\s\S]{0,40}\b(?:rules|instructions|filters)\b`),
	regexp.MustCompile(`(?i)\breveal\b[\s\S]{0,40}\b(?:prompt|instructions)\b`),
}

// GuardrailVerdict is the outcome of the guardrail check on a piece of
// text, reusable outside the pipeline (on-demand draft instructions).
type GuardrailVerdict struct {
	SanitizedText     string
	PIIRedacted       int
	InjectionDetected bool
	DetectionSource   string // "pattern" | "model"
}

type guardrailStep struct {
	deps *Deps
}

func newGuardrailStep(deps *Deps) *guardrailStep {
	return &guardrailStep{deps: deps}
}

func (s *guardrailStep) Name() domain.StepName { return domain.StepGuardrail }

func (s *guardrailStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	verdict, err := CheckGuardrail(ctx, s.deps, st.RawText)
	if err != nil {
		return "", err
	}

	st.SanitizedText = verdict.SanitizedText
	st.PIIRedacted = verdict.PIIRedacted

	if verdict.InjectionDetected {
		st.Halt(domain.StepGuardrail, domain.HaltInjectionDetected)
		s.deps.Logger.Error("prompt_injection_detected",
			"source", verdict.DetectionSource,
			"raw_preview", preview(st.RawText, 200),
		)
		return fmt.Sprintf("prompt injection detected via %s", verdict.DetectionSource), nil
	}

	return fmt.Sprintf("PII items redacted: %d", verdict.PIIRedacted), nil
}

// CheckGuardrail sanitizes PII and screens for prompt injection. Layer
// one is local pattern matching; definitive signatures halt immediately.
// Borderline text is confirmed by a fast-tier model; when the model is
// unavailable or undetermined, borderline text passes but is logged.
func CheckGuardrail(ctx context.Context, deps *Deps, raw string) (GuardrailVerdict, error) {
	sanitized, count := redactPII(raw)
	verdict := GuardrailVerdict{SanitizedText: sanitized, PIIRedacted: count}

	for _, p := range injectionPatterns {
		if p.MatchString(raw) {
			verdict.InjectionDetected = true
			verdict.DetectionSource = "pattern"
			return verdict, nil
		}
	}

	borderline := false
	for _, p := range borderlinePatterns {
		if p.MatchString(raw) {
			borderline = true
			break
		}
	}
	if !borderline {
		return verdict, nil
	}

	resp, err := deps.callModel(ctx, domain.StepGuardrail, promptGuardrail+"\n\nText:\n"+sanitized)
	if err != nil {
		return verdict, err
	}
	if resp == "" {
		deps.Logger.Warn("guardrail_borderline_unconfirmed",
			"raw_preview", preview(raw, 200))
		return verdict, nil
	}

	var parsed struct {
		Injection bool   `json:"injection"`
		Reason    string `json:"reason"`
	}
	outcome := DecodeJSON(resp, &parsed)
	if !outcome.Usable() {
		// Tier 3: accept/reject vocabulary scan over the raw response.
		lower := strings.ToLower(resp)
		if strings.Contains(lower, "true") || strings.Contains(lower, "unsafe") ||
			strings.Contains(lower, "injection detected") {
			parsed.Injection = true
			outcome = ParseHeuristic
		}
	}
	deps.logFallback(domain.StepGuardrail, outcome, resp)

	if parsed.Injection {
		verdict.InjectionDetected = true
		verdict.DetectionSource = "model"
	}
	return verdict, nil
}

func redactPII(text string) (string, int) {
	count := 0
	sanitized := text
	for _, p := range piiPatterns {
		matches := p.pattern.FindAllString(sanitized, -1)
		count += len(matches)
		sanitized = p.pattern.ReplaceAllString(sanitized, "[REDACTED_"+p.label+"]")
	}
	return sanitized, count
}
