package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

var spanishMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\b(hola|estimado|estimada|somos|tenemos|posición|posicion)\b`),
	regexp.MustCompile(`\b(salario|remoto|empresa|equipo|interesa|buscamos)\b`),
	regexp.MustCompile(`\b(oferta|puesto|trabajar|experiencia en)\b`),
	regexp.MustCompile(`\b(te gustaría|nos gustaría|estaríamos|podríamos)\b`),
	regexp.MustCompile(`[áéíóúñ¿¡]`),
}

type languageStep struct {
	deps *Deps
}

func newLanguageStep(deps *Deps) *languageStep {
	return &languageStep{deps: deps}
}

func (s *languageStep) Name() domain.StepName { return domain.StepLanguageDetector }

func (s *languageStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	// Once set, the detected language is never overwritten within a run.
	if st.DetectedLanguage != "" {
		return fmt.Sprintf("language already set: %s", st.DetectedLanguage), nil
	}

	text := st.Text()
	lang, source, err := s.detect(ctx, text)
	if err != nil {
		return "", err
	}
	st.DetectedLanguage = lang
	return fmt.Sprintf("detected language: %s via %s", lang, source), nil
}

func (s *languageStep) detect(ctx context.Context, text string) (domain.Language, string, error) {
	resp, err := s.deps.callModel(ctx, domain.StepLanguageDetector, promptLanguageDetector+"\n\nMessage:\n"+text)
	if err != nil {
		return "", "", err
	}
	if resp == "" {
		return heuristicLanguage(text), "heuristic", nil
	}

	var parsed struct {
		Language string `json:"language"`
	}
	outcome := DecodeJSON(resp, &parsed)
	if lang, ok := validLanguage(parsed.Language); outcome.Usable() && ok {
		s.deps.logFallback(domain.StepLanguageDetector, outcome, resp)
		return lang, "llm", nil
	}

	// Tier 3: scan for a bare language code in the response.
	lower := strings.ToLower(strings.TrimSpace(resp))
	if strings.Contains(lower, `"es"`) || strings.Contains(lower, "'es'") || strings.HasSuffix(lower, "es") {
		s.deps.logFallback(domain.StepLanguageDetector, ParseHeuristic, resp)
		return domain.LanguageSpanish, "llm", nil
	}
	if strings.Contains(lower, `"en"`) || strings.Contains(lower, "'en'") || strings.HasSuffix(lower, "en") {
		s.deps.logFallback(domain.StepLanguageDetector, ParseHeuristic, resp)
		return domain.LanguageEnglish, "llm", nil
	}

	s.deps.logFallback(domain.StepLanguageDetector, ParseUndetermined, resp)
	return heuristicLanguage(text), "heuristic", nil
}

func validLanguage(raw string) (domain.Language, bool) {
	switch domain.Language(raw) {
	case domain.LanguageEnglish, domain.LanguageSpanish:
		return domain.Language(raw), true
	}
	return "", false
}

// heuristicLanguage counts Spanish markers; English is the default.
func heuristicLanguage(text string) domain.Language {
	lower := strings.ToLower(text)
	score := 0
	for _, m := range spanishMarkers {
		if m.MatchString(lower) {
			score++
		}
	}
	if score >= 2 {
		return domain.LanguageSpanish
	}
	return domain.LanguageEnglish
}
