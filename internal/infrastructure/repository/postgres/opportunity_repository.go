package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) Create(ctx context.Context, opp *domain.Opportunity) error {
	techJSON, missingJSON, err := marshalOpportunityLists(opp)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO opportunities (
	id, candidate_id, company_name, client_name, role_title, salary_range, tech_stack,
	work_model, recruiter_name, recruiter_company, missing_fields, classification,
	detected_language, match_score, match_reasoning, stage, suggested_stage, stage_reason,
	archived, last_interaction_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
`,
		opp.ID, opp.CandidateID, opp.CompanyName, opp.ClientName, opp.RoleTitle, opp.SalaryRange, techJSON,
		string(opp.WorkModel), opp.RecruiterName, opp.RecruiterCompany, missingJSON, string(opp.Classification),
		string(opp.DetectedLanguage), nullableScore(opp.MatchScore), opp.MatchReasoning, string(opp.Stage),
		string(opp.SuggestedStage), opp.StageReason, opp.Archived, opp.LastInteractionAt, opp.CreatedAt, opp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (r *OpportunityRepository) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, candidate_id, company_name, client_name, role_title, salary_range, tech_stack,
	work_model, recruiter_name, recruiter_company, missing_fields, classification,
	detected_language, match_score, match_reasoning, stage, suggested_stage, stage_reason,
	archived, last_interaction_at, created_at, updated_at
FROM opportunities
WHERE id = $1
`, id)

	opp, err := scanOpportunity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get opportunity", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return opp, nil
}

func (r *OpportunityRepository) Update(ctx context.Context, opp *domain.Opportunity) error {
	techJSON, missingJSON, err := marshalOpportunityLists(opp)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE opportunities
SET company_name = $2, client_name = $3, role_title = $4, salary_range = $5, tech_stack = $6,
	work_model = $7, recruiter_name = $8, recruiter_company = $9, missing_fields = $10,
	classification = $11, detected_language = $12, match_score = $13, match_reasoning = $14,
	stage = $15, suggested_stage = $16, stage_reason = $17, archived = $18,
	last_interaction_at = $19, updated_at = $20
WHERE id = $1
`,
		opp.ID, opp.CompanyName, opp.ClientName, opp.RoleTitle, opp.SalaryRange, techJSON,
		string(opp.WorkModel), opp.RecruiterName, opp.RecruiterCompany, missingJSON,
		string(opp.Classification), string(opp.DetectedLanguage), nullableScore(opp.MatchScore), opp.MatchReasoning,
		string(opp.Stage), string(opp.SuggestedStage), opp.StageReason, opp.Archived,
		opp.LastInteractionAt, opp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update opportunity rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update opportunity", fmt.Errorf("id=%s", opp.ID))
	}
	return nil
}

func (r *OpportunityRepository) RecordTransition(ctx context.Context, tr *domain.StageTransition) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO stage_transitions (id, opportunity_id, from_stage, to_stage, triggered_by, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, tr.ID, tr.OpportunityID, string(tr.FromStage), string(tr.ToStage), string(tr.TriggeredBy), tr.Note, tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stage transition: %w", err)
	}
	return nil
}

func (r *OpportunityRepository) ListTransitions(ctx context.Context, opportunityID string) ([]domain.StageTransition, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, opportunity_id, from_stage, to_stage, triggered_by, note, created_at
FROM stage_transitions
WHERE opportunity_id = $1
ORDER BY created_at ASC
`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list stage transitions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StageTransition, 0)
	for rows.Next() {
		var tr domain.StageTransition
		var from, to, trigger string
		if err := rows.Scan(&tr.ID, &tr.OpportunityID, &from, &to, &trigger, &tr.Note, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage transition: %w", err)
		}
		tr.FromStage = domain.Stage(from)
		tr.ToStage = domain.Stage(to)
		tr.TriggeredBy = domain.TransitionTrigger(trigger)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage transitions: %w", err)
	}
	return out, nil
}

type opportunityScanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row opportunityScanner) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	var techRaw, missingRaw []byte
	var workModel, classification, language, stage, suggested string
	var score sql.NullInt64

	err := row.Scan(
		&opp.ID, &opp.CandidateID, &opp.CompanyName, &opp.ClientName, &opp.RoleTitle, &opp.SalaryRange, &techRaw,
		&workModel, &opp.RecruiterName, &opp.RecruiterCompany, &missingRaw, &classification,
		&language, &score, &opp.MatchReasoning, &stage, &suggested, &opp.StageReason,
		&opp.Archived, &opp.LastInteractionAt, &opp.CreatedAt, &opp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(techRaw, &opp.TechStack); err != nil {
		return nil, fmt.Errorf("unmarshal tech stack: %w", err)
	}
	if err := json.Unmarshal(missingRaw, &opp.MissingFields); err != nil {
		return nil, fmt.Errorf("unmarshal missing fields: %w", err)
	}
	opp.WorkModel = domain.WorkModel(workModel)
	opp.Classification = domain.Classification(classification)
	opp.DetectedLanguage = domain.Language(language)
	opp.Stage = domain.Stage(stage)
	opp.SuggestedStage = domain.Stage(suggested)
	if score.Valid {
		v := int(score.Int64)
		opp.MatchScore = &v
	}
	return &opp, nil
}

func marshalOpportunityLists(opp *domain.Opportunity) ([]byte, []byte, error) {
	techJSON, err := json.Marshal(emptyIfNil(opp.TechStack))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tech stack: %w", err)
	}
	missingJSON, err := json.Marshal(emptyIfNil(opp.MissingFields))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal missing fields: %w", err)
	}
	return techJSON, missingJSON, nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nullableScore(score *int) sql.NullInt64 {
	if score == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*score), Valid: true}
}
