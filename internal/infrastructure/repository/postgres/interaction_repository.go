package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

type InteractionRepository struct {
	db *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, in *domain.Interaction) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO interactions (
	id, candidate_id, opportunity_id, raw_content, source, interaction_type,
	processing_status, content_hash, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		in.ID, in.CandidateID, in.OpportunityID, in.RawContent, string(in.Source), string(in.Type),
		string(in.Status), in.ContentHash, in.Error, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (r *InteractionRepository) GetByID(ctx context.Context, id string) (*domain.Interaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, candidate_id, opportunity_id, raw_content, source, interaction_type,
	processing_status, content_hash, error_message, created_at, updated_at
FROM interactions
WHERE id = $1
`, id)

	in, err := scanInteraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get interaction", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	return in, nil
}

func (r *InteractionRepository) FindByContentHash(ctx context.Context, hash string) (*domain.Interaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, candidate_id, opportunity_id, raw_content, source, interaction_type,
	processing_status, content_hash, error_message, created_at, updated_at
FROM interactions
WHERE content_hash = $1
`, hash)

	in, err := scanInteraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "find interaction by hash", errors.New("no match"))
		}
		return nil, fmt.Errorf("find interaction by hash: %w", err)
	}
	return in, nil
}

func (r *InteractionRepository) ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Interaction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, candidate_id, opportunity_id, raw_content, source, interaction_type,
	processing_status, content_hash, error_message, created_at, updated_at
FROM interactions
WHERE opportunity_id = $1
ORDER BY created_at ASC
`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Interaction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

func (r *InteractionRepository) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE interactions
SET processing_status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update interaction status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update interaction status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update interaction status", fmt.Errorf("id=%s", id))
	}
	return nil
}

type interactionScanner interface {
	Scan(dest ...interface{}) error
}

func scanInteraction(row interactionScanner) (*domain.Interaction, error) {
	var in domain.Interaction
	var source, iType, status string
	err := row.Scan(
		&in.ID, &in.CandidateID, &in.OpportunityID, &in.RawContent, &source, &iType,
		&status, &in.ContentHash, &in.Error, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.Source = domain.Source(source)
	in.Type = domain.InteractionType(iType)
	in.Status = domain.ProcessingStatus(status)
	return &in, nil
}
