package domain

import "time"

// Profile is the candidate preference snapshot the Analyst scores against.
// It is read-only input to a pipeline run.
type Profile struct {
	CandidateID        string    `json:"candidate_id"`
	DisplayName        string    `json:"display_name,omitempty"`
	ProfessionalTitle  string    `json:"professional_title,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
	MinSalary          int       `json:"min_salary,omitempty"`
	Currency           string    `json:"currency,omitempty"`
	WorkModel          WorkModel `json:"work_model,omitempty"`
	PreferredLocations []string  `json:"preferred_locations,omitempty"`
	CVText             string    `json:"-"`
	CVPath             string    `json:"-"`
	UpdatedAt          time.Time `json:"updated_at"`
}
