package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// draftTemplates back the Communicator when the model is unavailable or
// its output is unusable. Keyed by intent, then language.
var draftTemplates = map[domain.ResponseType]map[domain.Language]string{
	domain.ResponseRequestInfo: {
		domain.LanguageEnglish: "Hi %s,\n\nThank you for reaching out about the %s role. Before we go further, could you share more detail on the compensation range, the tech stack, and the work arrangement?\n\nBest regards,\n%s",
		domain.LanguageSpanish: "Hola %s:\n\nGracias por contactarme sobre el puesto de %s. Antes de avanzar, ¿podrías darme más detalles sobre el rango salarial, el stack tecnológico y la modalidad de trabajo?\n\nSaludos,\n%s",
	},
	domain.ResponseExpressInterest: {
		domain.LanguageEnglish: "Hi %s,\n\nThank you for reaching out about the %s role. It sounds like a strong fit for my background and I would be glad to learn more. What would be the next step?\n\nBest regards,\n%s",
		domain.LanguageSpanish: "Hola %s:\n\nGracias por contactarme sobre el puesto de %s. Me parece una oportunidad muy acorde con mi experiencia y me encantaría saber más. ¿Cuál sería el siguiente paso?\n\nSaludos,\n%s",
	},
	domain.ResponseDecline: {
		domain.LanguageEnglish: "Hi %s,\n\nThank you for thinking of me for the %s role. It is not the right fit for me at this time, but I would be happy to stay in touch for future opportunities.\n\nBest regards,\n%s",
		domain.LanguageSpanish: "Hola %s:\n\nGracias por considerarme para el puesto de %s. En este momento no encaja con lo que busco, pero me encantaría mantener el contacto para futuras oportunidades.\n\nSaludos,\n%s",
	},
}

type communicatorStep struct {
	deps *Deps
}

func newCommunicatorStep(deps *Deps) *communicatorStep {
	return &communicatorStep{deps: deps}
}

func (s *communicatorStep) Name() domain.StepName { return domain.StepCommunicator }

func (s *communicatorStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	lang := st.DetectedLanguage
	if lang == "" {
		lang = domain.LanguageEnglish
	}
	draft, source, err := composeDraft(ctx, s.deps, DraftInput{
		Intent:    domain.ResponseExpressInterest,
		Language:  lang,
		Extracted: st.Extracted,
		Profile:   st.Profile,
	})
	if err != nil {
		return "", err
	}
	st.DraftText = draft
	return fmt.Sprintf("draft ready (%s, %s) via %s", domain.ResponseExpressInterest, lang, source), nil
}

// DraftInput carries everything needed to compose one draft.
type DraftInput struct {
	Intent       domain.ResponseType
	Language     domain.Language
	Extracted    *domain.ExtractedData
	Profile      *domain.Profile
	Instructions string
}

// GenerateDraft produces an on-demand draft outside a pipeline run. The
// caller-supplied instructions are screened before reaching a prompt;
// unsafe instructions are rejected, never sanitized.
func GenerateDraft(ctx context.Context, deps *Deps, in DraftInput) (string, error) {
	const op = "pipeline.GenerateDraft"
	if in.Instructions != "" {
		verdict, err := CheckGuardrail(ctx, deps, in.Instructions)
		if err != nil {
			return "", domain.WrapError(domain.ErrTemporary, op, err)
		}
		if verdict.InjectionDetected {
			deps.Logger.Warn("draft_instructions_rejected", "source", verdict.DetectionSource)
			return "", domain.WrapError(domain.ErrUnsafeInstructions, op,
				fmt.Errorf("instructions flagged via %s", verdict.DetectionSource))
		}
	}
	if in.Language == "" {
		in.Language = domain.LanguageEnglish
	}
	if in.Intent == "" {
		in.Intent = domain.ResponseExpressInterest
	}
	draft, _, err := composeDraft(ctx, deps, in)
	return draft, err
}

func composeDraft(ctx context.Context, deps *Deps, in DraftInput) (string, string, error) {
	prompt := buildDraftPrompt(in)
	resp, err := deps.callModel(ctx, domain.StepCommunicator, prompt)
	if err != nil {
		return "", "", err
	}
	if draft := strings.TrimSpace(stripFences(resp)); draft != "" {
		return draft, "llm", nil
	}
	return templateDraft(in), "template", nil
}

func buildDraftPrompt(in DraftInput) string {
	extractedJSON, _ := json.Marshal(in.Extracted)
	profileJSON, _ := json.Marshal(in.Profile)
	prompt := fmt.Sprintf(promptCommunicator, in.Intent, string(in.Language), extractedJSON, profileJSON)
	if in.Instructions != "" {
		prompt += "\n\nAdditional guidance from the candidate:\n" + in.Instructions
	}
	return prompt
}

func templateDraft(in DraftInput) string {
	byLang, ok := draftTemplates[in.Intent]
	if !ok {
		byLang = draftTemplates[domain.ResponseExpressInterest]
	}
	tmpl, ok := byLang[in.Language]
	if !ok {
		tmpl = byLang[domain.LanguageEnglish]
	}

	recruiter := "there"
	role := "the position"
	if in.Extracted != nil {
		if in.Extracted.RecruiterName != "" {
			recruiter = in.Extracted.RecruiterName
		}
		if in.Extracted.RoleTitle != "" {
			role = in.Extracted.RoleTitle
		}
	}
	signer := ""
	if in.Profile != nil {
		signer = in.Profile.DisplayName
	}
	return fmt.Sprintf(tmpl, recruiter, role, signer)
}
