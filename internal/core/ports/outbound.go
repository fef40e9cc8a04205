package ports

import (
	"context"
	"io"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

// ModelTier selects the cost/latency class of a model call.
type ModelTier string

const (
	TierFast     ModelTier = "FAST"
	TierAccurate ModelTier = "ACCURATE"
)

// ModelInvoker calls the underlying language model. A well-formed but
// nonsensical response is not an error; malformed output is the parser's
// concern. Implementations must respect ctx deadlines.
type ModelInvoker interface {
	Invoke(ctx context.Context, modelID string, tier ModelTier, prompt string) (string, error)
}

// OpportunityRepository persists opportunity aggregates.
type OpportunityRepository interface {
	Create(ctx context.Context, opp *domain.Opportunity) error
	GetByID(ctx context.Context, id string) (*domain.Opportunity, error)
	Update(ctx context.Context, opp *domain.Opportunity) error
	RecordTransition(ctx context.Context, tr *domain.StageTransition) error
	ListTransitions(ctx context.Context, opportunityID string) ([]domain.StageTransition, error)
}

// InteractionRepository persists submitted recruiter messages.
type InteractionRepository interface {
	Create(ctx context.Context, in *domain.Interaction) error
	GetByID(ctx context.Context, id string) (*domain.Interaction, error)
	FindByContentHash(ctx context.Context, hash string) (*domain.Interaction, error)
	ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Interaction, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error
}

// ProfileRepository reads and writes the candidate preference snapshot.
type ProfileRepository interface {
	GetByCandidateID(ctx context.Context, candidateID string) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// DraftRepository stores generated reply drafts.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.Draft) error
	ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Draft, error)
}

// MessageQueue hands submitted interactions to the pipeline worker.
type MessageQueue interface {
	PublishInteractionSubmitted(ctx context.Context, interactionID string) error
	SubscribeInteractionSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stores uploaded CV files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CVTextExtractor turns a stored CV file into plain text.
type CVTextExtractor interface {
	ExtractText(ctx context.Context, storageKey, filename string) (string, error)
}

// ProgressSink receives pipeline progress events. Implementations must not
// block: the orchestrator treats emission as fire-and-forget.
type ProgressSink interface {
	Emit(runID string, event domain.ProgressEvent)
	Complete(runID string, event domain.PipelineComplete)
}

// ProgressBus relays progress events across process boundaries, so the
// API can stream runs executed by the worker. Delivery is best-effort;
// the stored run record stays the source of truth.
type ProgressBus interface {
	PublishProgress(ctx context.Context, env domain.ProgressEnvelope) error
	SubscribeProgress(handler func(domain.ProgressEnvelope)) (func(), error)
}
