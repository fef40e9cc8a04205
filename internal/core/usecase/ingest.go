package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// IngestMessageUseCase records an inbound recruiter message and hands it
// to the pipeline worker. Validation and duplicate detection happen here,
// synchronously; the pipeline itself runs async behind the queue.
type IngestMessageUseCase struct {
	interactions  ports.InteractionRepository
	opportunities ports.OpportunityRepository
	queue         ports.MessageQueue
	maxLength     int
}

func NewIngestMessageUseCase(
	interactions ports.InteractionRepository,
	opportunities ports.OpportunityRepository,
	queue ports.MessageQueue,
	maxLength int,
) *IngestMessageUseCase {
	return &IngestMessageUseCase{
		interactions:  interactions,
		opportunities: opportunities,
		queue:         queue,
		maxLength:     maxLength,
	}
}

func (uc *IngestMessageUseCase) Submit(ctx context.Context, candidateID, rawContent string, source domain.Source) (*domain.Interaction, *domain.Opportunity, error) {
	if err := uc.validate(rawContent); err != nil {
		return nil, nil, err
	}
	hash := domain.ContentHash(rawContent, source)
	if err := uc.checkDuplicate(ctx, hash); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	opp := &domain.Opportunity{
		ID:                uuid.NewString(),
		CandidateID:       candidateID,
		Stage:             domain.StageDiscovery,
		LastInteractionAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.opportunities.Create(ctx, opp); err != nil {
		return nil, nil, fmt.Errorf("create opportunity: %w", err)
	}

	in, err := uc.createInteraction(ctx, candidateID, opp.ID, rawContent, source, domain.InteractionInitial, hash, now)
	if err != nil {
		return nil, nil, err
	}
	return in, opp, nil
}

func (uc *IngestMessageUseCase) SubmitFollowUp(ctx context.Context, candidateID, opportunityID, rawContent string, source domain.Source) (*domain.Interaction, error) {
	if err := uc.validate(rawContent); err != nil {
		return nil, err
	}

	opp, err := uc.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("load opportunity: %w", err)
	}
	if opp.CandidateID != candidateID {
		return nil, domain.WrapError(domain.ErrNotFound, "submit follow-up",
			fmt.Errorf("opportunity %s does not belong to candidate", opportunityID))
	}
	if domain.IsTerminalStage(opp.Stage) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit follow-up",
			fmt.Errorf("opportunity is in terminal stage %s", opp.Stage))
	}

	hash := domain.ContentHash(rawContent, source)
	if err := uc.checkDuplicate(ctx, hash); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	in, err := uc.createInteraction(ctx, candidateID, opp.ID, rawContent, source, domain.InteractionFollowUp, hash, now)
	if err != nil {
		return nil, err
	}

	opp.LastInteractionAt = now
	opp.UpdatedAt = now
	if err := uc.opportunities.Update(ctx, opp); err != nil {
		return nil, fmt.Errorf("touch opportunity: %w", err)
	}
	return in, nil
}

func (uc *IngestMessageUseCase) validate(rawContent string) error {
	if strings.TrimSpace(rawContent) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit message", errors.New("empty content"))
	}
	if uc.maxLength > 0 && len(rawContent) > uc.maxLength {
		return domain.WrapError(domain.ErrInvalidInput, "submit message",
			fmt.Errorf("content exceeds %d characters", uc.maxLength))
	}
	return nil
}

func (uc *IngestMessageUseCase) checkDuplicate(ctx context.Context, hash string) error {
	existing, err := uc.interactions.FindByContentHash(ctx, hash)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check duplicate: %w", err)
	}
	return domain.WrapError(domain.ErrDuplicate, "submit message",
		fmt.Errorf("matches interaction %s", existing.ID))
}

func (uc *IngestMessageUseCase) createInteraction(
	ctx context.Context,
	candidateID, opportunityID, rawContent string,
	source domain.Source,
	iType domain.InteractionType,
	hash string,
	now time.Time,
) (*domain.Interaction, error) {
	in := &domain.Interaction{
		ID:            uuid.NewString(),
		CandidateID:   candidateID,
		OpportunityID: opportunityID,
		RawContent:    rawContent,
		Source:        source,
		Type:          iType,
		Status:        domain.ProcessingPending,
		ContentHash:   hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.interactions.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	if err := uc.queue.PublishInteractionSubmitted(ctx, in.ID); err != nil {
		return nil, fmt.Errorf("publish interaction event: %w", err)
	}
	return in, nil
}
