package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// ProcessInteractionUseCase runs the pipeline for one stored interaction
// and folds the result back into the opportunity.
type ProcessInteractionUseCase struct {
	interactions  ports.InteractionRepository
	opportunities ports.OpportunityRepository
	profiles      ports.ProfileRepository
	drafts        ports.DraftRepository
	runner        ports.PipelineRunner
	logger        *slog.Logger
}

func NewProcessInteractionUseCase(
	interactions ports.InteractionRepository,
	opportunities ports.OpportunityRepository,
	profiles ports.ProfileRepository,
	drafts ports.DraftRepository,
	runner ports.PipelineRunner,
	logger *slog.Logger,
) *ProcessInteractionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessInteractionUseCase{
		interactions:  interactions,
		opportunities: opportunities,
		profiles:      profiles,
		drafts:        drafts,
		runner:        runner,
		logger:        logger,
	}
}

func (uc *ProcessInteractionUseCase) ProcessByID(ctx context.Context, interactionID string) error {
	in, err := uc.interactions.GetByID(ctx, interactionID)
	if err != nil {
		return fmt.Errorf("load interaction: %w", err)
	}

	if err := uc.interactions.UpdateStatus(ctx, in.ID, domain.ProcessingInProgress, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.process(ctx, in); err != nil {
		if failErr := uc.interactions.UpdateStatus(ctx, in.ID, domain.ProcessingFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.interactions.UpdateStatus(ctx, in.ID, domain.ProcessingCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessInteractionUseCase) process(ctx context.Context, in *domain.Interaction) error {
	opp, err := uc.opportunities.GetByID(ctx, in.OpportunityID)
	if err != nil {
		return fmt.Errorf("load opportunity: %w", err)
	}

	req, err := uc.buildRequest(ctx, in, opp)
	if err != nil {
		return err
	}

	res, err := uc.runner.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	return uc.apply(ctx, in, opp, res)
}

func (uc *ProcessInteractionUseCase) buildRequest(ctx context.Context, in *domain.Interaction, opp *domain.Opportunity) (ports.RunRequest, error) {
	req := ports.RunRequest{
		RunID:        in.ID,
		RawText:      in.RawContent,
		Source:       in.Source,
		CandidateID:  in.CandidateID,
		Mode:         domain.ModeInitial,
		CurrentStage: opp.Stage,
	}

	profile, err := uc.profiles.GetByCandidateID(ctx, in.CandidateID)
	switch {
	case err == nil:
		req.Profile = profile
	case domain.IsKind(err, domain.ErrNotFound):
		uc.logger.Debug("no_profile_for_candidate", "candidate_id", in.CandidateID)
	default:
		return ports.RunRequest{}, fmt.Errorf("load profile: %w", err)
	}

	if in.Type != domain.InteractionInitial {
		req.Mode = domain.ModeFollowUp
		req.DetectedLanguage = opp.DetectedLanguage
		history, err := uc.loadHistory(ctx, in)
		if err != nil {
			return ports.RunRequest{}, err
		}
		req.History = history
	}
	return req, nil
}

// loadHistory renders the prior interactions on the opportunity as the
// conversation thread, excluding the one being processed.
func (uc *ProcessInteractionUseCase) loadHistory(ctx context.Context, in *domain.Interaction) ([]domain.Exchange, error) {
	prior, err := uc.interactions.ListByOpportunity(ctx, in.OpportunityID)
	if err != nil {
		return nil, fmt.Errorf("load interaction history: %w", err)
	}
	history := make([]domain.Exchange, 0, len(prior))
	for _, p := range prior {
		if p.ID == in.ID {
			continue
		}
		role := "recruiter"
		if p.Type == domain.InteractionCandidateResponse {
			role = "candidate"
		}
		history = append(history, domain.Exchange{Role: role, Content: p.RawContent, SentAt: p.CreatedAt})
	}
	return history, nil
}

func (uc *ProcessInteractionUseCase) apply(ctx context.Context, in *domain.Interaction, opp *domain.Opportunity, res *domain.PipelineResult) error {
	opp.ApplyResult(res)
	now := time.Now().UTC()
	opp.LastInteractionAt = now
	opp.UpdatedAt = now

	if in.Type == domain.InteractionInitial {
		if err := uc.transitionAfterInitialRun(ctx, opp, res); err != nil {
			return err
		}
	}

	if err := uc.opportunities.Update(ctx, opp); err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}

	if res.DraftText != "" {
		if err := uc.saveDraft(ctx, opp.ID, res); err != nil {
			return err
		}
	}
	return nil
}

// transitionAfterInitialRun applies automatic stage changes for first
// contact. Spam and non-offers move straight to REJECTED; an accepted
// forward suggestion is applied. Follow-up runs only record the
// suggestion, they never move the stage.
func (uc *ProcessInteractionUseCase) transitionAfterInitialRun(ctx context.Context, opp *domain.Opportunity, res *domain.PipelineResult) error {
	var target domain.Stage
	var note string
	switch {
	case res.Classification == domain.ClassificationSpam, res.Classification == domain.ClassificationNotAnOffer:
		target = domain.StageRejected
		note = "classified as " + string(res.Classification)
		opp.Archived = true
	case res.SuggestedStage != "" && domain.IsForwardMove(opp.Stage, res.SuggestedStage):
		target = res.SuggestedStage
		note = res.StageReason
	default:
		return nil
	}

	tr, err := opp.ChangeStage(target, domain.TriggerSystem, note)
	if err != nil {
		return fmt.Errorf("change stage: %w", err)
	}
	tr.ID = uuid.NewString()
	if err := uc.opportunities.RecordTransition(ctx, tr); err != nil {
		return fmt.Errorf("record stage transition: %w", err)
	}
	uc.logger.Info("stage_transition",
		"opportunity_id", opp.ID,
		"from", string(tr.FromStage),
		"to", string(tr.ToStage),
	)
	return nil
}

func (uc *ProcessInteractionUseCase) saveDraft(ctx context.Context, opportunityID string, res *domain.PipelineResult) error {
	draft := &domain.Draft{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		ResponseType:  domain.ResponseExpressInterest,
		Content:       res.DraftText,
		Language:      res.DetectedLanguage,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.drafts.Create(ctx, draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
