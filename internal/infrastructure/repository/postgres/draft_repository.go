package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

func (r *DraftRepository) Create(ctx context.Context, draft *domain.Draft) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO drafts (id, opportunity_id, response_type, content, language, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, draft.ID, draft.OpportunityID, string(draft.ResponseType), draft.Content, string(draft.Language), draft.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Draft, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, opportunity_id, response_type, content, language, created_at
FROM drafts
WHERE opportunity_id = $1
ORDER BY created_at DESC
`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Draft, 0)
	for rows.Next() {
		var d domain.Draft
		var responseType, language string
		if err := rows.Scan(&d.ID, &d.OpportunityID, &responseType, &d.Content, &language, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		d.ResponseType = domain.ResponseType(responseType)
		d.Language = domain.Language(language)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return out, nil
}
