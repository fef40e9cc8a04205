package ports

import (
	"context"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// RunRequest describes one pipeline invocation.
type RunRequest struct {
	RunID       string
	RawText     string
	Source      domain.Source
	Mode        domain.Mode
	History     []domain.Exchange
	CandidateID string
	// Profile is the candidate preference snapshot, loaded by the caller.
	// May be nil; the run then scores neutrally.
	Profile *domain.Profile
	// CurrentStage is read-only context for follow-up runs.
	CurrentStage domain.Stage
	// DetectedLanguage carries the language settled on a previous run;
	// when set, the Language Detector reports a skip instead of
	// re-detecting.
	DetectedLanguage domain.Language
}

// PipelineRunner executes the processing pipeline for one message.
type PipelineRunner interface {
	Run(ctx context.Context, req RunRequest) (*domain.PipelineResult, error)
}

// DraftRequest asks for an on-demand draft outside a pipeline run.
type DraftRequest struct {
	Extracted    *domain.ExtractedData
	Profile      *domain.Profile
	ResponseType domain.ResponseType
	Language     domain.Language
	Instructions string // free text, guardrail-screened before use
}

// DraftGenerator invokes the Communicator step in isolation.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, req DraftRequest) (string, error)
}

// MessageIngestor validates and records an inbound recruiter message.
type MessageIngestor interface {
	Submit(ctx context.Context, candidateID, rawContent string, source domain.Source) (*domain.Interaction, *domain.Opportunity, error)
	SubmitFollowUp(ctx context.Context, candidateID, opportunityID, rawContent string, source domain.Source) (*domain.Interaction, error)
}

// InteractionProcessor runs the pipeline for a stored interaction.
type InteractionProcessor interface {
	ProcessByID(ctx context.Context, interactionID string) error
}
