package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/pipeline"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// GenerateDraftUseCase produces a reply draft on demand, outside a
// pipeline run.
type GenerateDraftUseCase struct {
	opportunities ports.OpportunityRepository
	profiles      ports.ProfileRepository
	drafts        ports.DraftRepository
	deps          *pipeline.Deps
}

func NewGenerateDraftUseCase(
	opportunities ports.OpportunityRepository,
	profiles ports.ProfileRepository,
	drafts ports.DraftRepository,
	deps *pipeline.Deps,
) *GenerateDraftUseCase {
	return &GenerateDraftUseCase{
		opportunities: opportunities,
		profiles:      profiles,
		drafts:        drafts,
		deps:          deps,
	}
}

// GenerateDraft composes a draft from an explicit request. Implements
// ports.DraftGenerator.
func (uc *GenerateDraftUseCase) GenerateDraft(ctx context.Context, req ports.DraftRequest) (string, error) {
	return pipeline.GenerateDraft(ctx, uc.deps, pipeline.DraftInput{
		Intent:       req.ResponseType,
		Language:     req.Language,
		Extracted:    req.Extracted,
		Profile:      req.Profile,
		Instructions: req.Instructions,
	})
}

// GenerateForOpportunity loads the opportunity's extracted facts and the
// candidate profile, composes a draft, and stores it.
func (uc *GenerateDraftUseCase) GenerateForOpportunity(
	ctx context.Context,
	candidateID, opportunityID string,
	responseType domain.ResponseType,
	instructions string,
) (*domain.Draft, error) {
	opp, err := uc.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("load opportunity: %w", err)
	}
	if opp.CandidateID != candidateID {
		return nil, domain.WrapError(domain.ErrNotFound, "generate draft",
			fmt.Errorf("opportunity %s does not belong to candidate", opportunityID))
	}

	var profile *domain.Profile
	if p, err := uc.profiles.GetByCandidateID(ctx, candidateID); err == nil {
		profile = p
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	content, err := uc.GenerateDraft(ctx, ports.DraftRequest{
		Extracted:    extractionFromOpportunity(opp),
		Profile:      profile,
		ResponseType: responseType,
		Language:     opp.DetectedLanguage,
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}

	draft := &domain.Draft{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		ResponseType:  responseType,
		Content:       content,
		Language:      opp.DetectedLanguage,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.drafts.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return draft, nil
}

func extractionFromOpportunity(opp *domain.Opportunity) *domain.ExtractedData {
	return &domain.ExtractedData{
		CompanyName:      opp.CompanyName,
		ClientName:       opp.ClientName,
		RoleTitle:        opp.RoleTitle,
		SalaryRange:      opp.SalaryRange,
		TechStack:        opp.TechStack,
		WorkModel:        opp.WorkModel,
		RecruiterName:    opp.RecruiterName,
		RecruiterCompany: opp.RecruiterCompany,
		MissingFields:    opp.MissingFields,
	}
}
