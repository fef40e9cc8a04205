package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByCandidateID(ctx context.Context, candidateID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT candidate_id, display_name, professional_title, skills, min_salary, currency,
	work_model, preferred_locations, cv_text, cv_path, updated_at
FROM profiles
WHERE candidate_id = $1
`, candidateID)

	var p domain.Profile
	var skillsRaw, locationsRaw []byte
	var workModel string
	err := row.Scan(
		&p.CandidateID, &p.DisplayName, &p.ProfessionalTitle, &skillsRaw, &p.MinSalary, &p.Currency,
		&workModel, &locationsRaw, &p.CVText, &p.CVPath, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get profile", fmt.Errorf("candidate_id=%s", candidateID))
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal(skillsRaw, &p.Skills); err != nil {
		return nil, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(locationsRaw, &p.PreferredLocations); err != nil {
		return nil, fmt.Errorf("unmarshal preferred locations: %w", err)
	}
	p.WorkModel = domain.WorkModel(workModel)
	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	skillsJSON, err := json.Marshal(emptyIfNil(profile.Skills))
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	locationsJSON, err := json.Marshal(emptyIfNil(profile.PreferredLocations))
	if err != nil {
		return fmt.Errorf("marshal preferred locations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO profiles (
	candidate_id, display_name, professional_title, skills, min_salary, currency,
	work_model, preferred_locations, cv_text, cv_path, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (candidate_id) DO UPDATE SET
	display_name = EXCLUDED.display_name,
	professional_title = EXCLUDED.professional_title,
	skills = EXCLUDED.skills,
	min_salary = EXCLUDED.min_salary,
	currency = EXCLUDED.currency,
	work_model = EXCLUDED.work_model,
	preferred_locations = EXCLUDED.preferred_locations,
	cv_text = EXCLUDED.cv_text,
	cv_path = EXCLUDED.cv_path,
	updated_at = EXCLUDED.updated_at
`,
		profile.CandidateID, profile.DisplayName, profile.ProfessionalTitle, skillsJSON, profile.MinSalary,
		profile.Currency, string(profile.WorkModel), locationsJSON, profile.CVText, profile.CVPath, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
