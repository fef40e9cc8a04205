package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// OpportunityUseCase covers the manual lifecycle actions the candidate
// takes on an opportunity: archiving it and moving its stage by hand.
// Automatic transitions stay with the pipeline worker.
type OpportunityUseCase struct {
	opportunities ports.OpportunityRepository
	logger        *slog.Logger
}

func NewOpportunityUseCase(opportunities ports.OpportunityRepository, logger *slog.Logger) *OpportunityUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpportunityUseCase{opportunities: opportunities, logger: logger}
}

// Archive hides the opportunity from active views. Archiving an already
// archived opportunity is a no-op.
func (uc *OpportunityUseCase) Archive(ctx context.Context, candidateID, opportunityID string) (*domain.Opportunity, error) {
	opp, err := uc.load(ctx, candidateID, opportunityID)
	if err != nil {
		return nil, err
	}
	if opp.Archived {
		return opp, nil
	}
	opp.Archive()
	if err := uc.opportunities.Update(ctx, opp); err != nil {
		return nil, fmt.Errorf("archive opportunity: %w", err)
	}
	uc.logger.Info("opportunity_archived", "opportunity_id", opp.ID)
	return opp, nil
}

// Unarchive returns the opportunity to active views.
func (uc *OpportunityUseCase) Unarchive(ctx context.Context, candidateID, opportunityID string) (*domain.Opportunity, error) {
	opp, err := uc.load(ctx, candidateID, opportunityID)
	if err != nil {
		return nil, err
	}
	if !opp.Archived {
		return opp, nil
	}
	opp.Unarchive()
	if err := uc.opportunities.Update(ctx, opp); err != nil {
		return nil, fmt.Errorf("unarchive opportunity: %w", err)
	}
	return opp, nil
}

// ChangeStage moves the opportunity to an explicitly chosen stage and
// records the transition as user-triggered. Unlike pipeline suggestions,
// a manual move may go backwards; moves out of a terminal stage are
// still rejected by the domain.
func (uc *OpportunityUseCase) ChangeStage(ctx context.Context, candidateID, opportunityID, rawStage, reason string) (*domain.Opportunity, *domain.StageTransition, error) {
	const op = "change stage"
	stage, ok := domain.ParseStage(rawStage)
	if !ok {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, op,
			fmt.Errorf("unknown stage %q", rawStage))
	}

	opp, err := uc.load(ctx, candidateID, opportunityID)
	if err != nil {
		return nil, nil, err
	}
	if opp.Stage == stage {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, op,
			fmt.Errorf("opportunity is already in stage %s", stage))
	}

	tr, err := opp.ChangeStage(stage, domain.TriggerUser, reason)
	if err != nil {
		return nil, nil, err
	}
	tr.ID = uuid.NewString()
	if err := uc.opportunities.RecordTransition(ctx, tr); err != nil {
		return nil, nil, fmt.Errorf("record stage transition: %w", err)
	}
	if err := uc.opportunities.Update(ctx, opp); err != nil {
		return nil, nil, fmt.Errorf("update opportunity: %w", err)
	}
	uc.logger.Info("stage_transition",
		"opportunity_id", opp.ID,
		"from", string(tr.FromStage),
		"to", string(tr.ToStage),
		"triggered_by", string(tr.TriggeredBy),
	)
	return opp, tr, nil
}

func (uc *OpportunityUseCase) load(ctx context.Context, candidateID, opportunityID string) (*domain.Opportunity, error) {
	opp, err := uc.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if opp.CandidateID != candidateID {
		return nil, domain.WrapError(domain.ErrNotFound, "load opportunity", errors.New(opportunityID))
	}
	return opp, nil
}
