package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// StepName identifies one pipeline step.
type StepName string

const (
	StepGuardrail        StepName = "guardrail"
	StepGatekeeper       StepName = "gatekeeper"
	StepExtractor        StepName = "extractor"
	StepLanguageDetector StepName = "language_detector"
	StepAnalyst          StepName = "analyst"
	StepCommunicator     StepName = "communicator"
	StepStageSuggester   StepName = "stage_suggester"
)

// HaltReason explains why a run stopped before completing all steps.
type HaltReason string

const (
	HaltInjectionDetected  HaltReason = "INJECTION_DETECTED"
	HaltClassifiedNotOffer HaltReason = "CLASSIFIED_NOT_OFFER"
	HaltStepTimeout        HaltReason = "STEP_TIMEOUT"
	HaltStepFailed         HaltReason = "STEP_FAILED"
	HaltCanceled           HaltReason = "CANCELED"
)

// Exchange is one prior message in a conversation thread.
type Exchange struct {
	Role    string    `json:"role"` // "recruiter" | "candidate"
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// ExtractedData holds the structured fields pulled out of a recruiter
// message. MissingFields lists the configured required fields that could
// not be extracted with verified confidence.
type ExtractedData struct {
	CompanyName      string    `json:"company_name,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	RoleTitle        string    `json:"role_title,omitempty"`
	SalaryRange      string    `json:"salary_range,omitempty"`
	TechStack        []string  `json:"tech_stack,omitempty"`
	WorkModel        WorkModel `json:"work_model,omitempty"`
	RecruiterName    string    `json:"recruiter_name,omitempty"`
	RecruiterCompany string    `json:"recruiter_company,omitempty"`
	MissingFields    []string  `json:"missing_fields,omitempty"`
}

// Complete reports whether every required field was extracted.
func (d *ExtractedData) Complete() bool {
	return d != nil && len(d.MissingFields) == 0
}

// PipelineState is the working record threaded through the pipeline.
// Each run owns its state exclusively; steps mutate it in place.
type PipelineState struct {
	// Immutable input.
	RawText      string
	Source       Source
	Mode         Mode
	History      []Exchange
	CurrentStage Stage // follow-up context only, never written by the pipeline
	CandidateID  string
	Profile      *Profile // candidate preference snapshot, read-only

	// Guardrail output.
	SanitizedText string
	PIIRedacted   int

	// Gatekeeper output.
	Classification Classification
	Confidence     float64

	// Extractor output.
	Extracted *ExtractedData

	// Language Detector output. Once set, never overwritten within a run.
	DetectedLanguage Language

	// Analyst output.
	MatchScore     *int
	MatchReasoning string

	// Communicator output.
	DraftText string

	// Stage Suggester output.
	SuggestedStage Stage
	StageReason    string

	// Terminal halt marker. Once Halted is true no further step runs.
	Halted     bool
	HaltReason HaltReason
	HaltedAt   StepName
}

// Halt marks the state terminally halted at the given step. The first
// halt wins; later calls are ignored.
func (s *PipelineState) Halt(step StepName, reason HaltReason) {
	if s.Halted {
		return
	}
	s.Halted = true
	s.HaltReason = reason
	s.HaltedAt = step
}

// Text returns the sanitized text when present, else the raw input.
func (s *PipelineState) Text() string {
	if s.SanitizedText != "" {
		return s.SanitizedText
	}
	return s.RawText
}

// PipelineResult is the immutable projection of a finished run.
// Ownership passes entirely to the caller.
type PipelineResult struct {
	Classification   Classification `json:"classification,omitempty"`
	Confidence       float64        `json:"confidence,omitempty"`
	Extracted        *ExtractedData `json:"extracted,omitempty"`
	DetectedLanguage Language       `json:"detected_language,omitempty"`
	MatchScore       *int           `json:"match_score,omitempty"`
	MatchReasoning   string         `json:"match_reasoning,omitempty"`
	DraftText        string         `json:"draft_text,omitempty"`
	SuggestedStage   Stage          `json:"suggested_stage,omitempty"`
	StageReason      string         `json:"stage_reason,omitempty"`
	CurrentStage     Stage          `json:"current_stage,omitempty"`
	HaltedAt         *StepName      `json:"halted_at,omitempty"`
	HaltReason       HaltReason     `json:"halt_reason,omitempty"`
}

// Result materializes the terminal projection of the state.
func (s *PipelineState) Result() *PipelineResult {
	res := &PipelineResult{
		Classification:   s.Classification,
		Confidence:       s.Confidence,
		Extracted:        s.Extracted,
		DetectedLanguage: s.DetectedLanguage,
		MatchScore:       s.MatchScore,
		MatchReasoning:   s.MatchReasoning,
		DraftText:        s.DraftText,
		SuggestedStage:   s.SuggestedStage,
		StageReason:      s.StageReason,
		CurrentStage:     s.CurrentStage,
	}
	if s.Halted {
		halted := s.HaltedAt
		res.HaltedAt = &halted
		res.HaltReason = s.HaltReason
	}
	return res
}

// Digest is a stable fingerprint of the result, carried by the terminal
// progress event so listeners can correlate the stream with the stored run.
func (r *PipelineResult) Digest() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// StepStatus is the progress state of one step.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
)

// ProgressEvent is one entry in a run's append-only progress sequence.
type ProgressEvent struct {
	Step      StepName   `json:"agent"`
	Status    StepStatus `json:"status"`
	Summary   string     `json:"result_summary,omitempty"`
	EmittedAt time.Time  `json:"timestamp"`
}

// PipelineComplete terminates a run's progress sequence. Exactly one is
// emitted per run, even on timeout or internal error.
type PipelineComplete struct {
	ResultDigest string    `json:"result_digest"`
	FinalStage   Stage     `json:"final_stage,omitempty"`
	EmittedAt    time.Time `json:"timestamp"`
}

// ProgressEnvelope is the wire form of one progress entry when it
// crosses a process boundary. Exactly one of Progress or Complete is
// set.
type ProgressEnvelope struct {
	RunID    string            `json:"run_id"`
	Progress *ProgressEvent    `json:"progress,omitempty"`
	Complete *PipelineComplete `json:"complete,omitempty"`
}
