package domain

import "time"

// Opportunity aggregates everything known about one inbound offer.
type Opportunity struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`

	CompanyName      string    `json:"company_name,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	RoleTitle        string    `json:"role_title,omitempty"`
	SalaryRange      string    `json:"salary_range,omitempty"`
	TechStack        []string  `json:"tech_stack,omitempty"`
	WorkModel        WorkModel `json:"work_model,omitempty"`
	RecruiterName    string    `json:"recruiter_name,omitempty"`
	RecruiterCompany string    `json:"recruiter_company,omitempty"`
	MissingFields    []string  `json:"missing_fields,omitempty"`

	Classification   Classification `json:"classification,omitempty"`
	DetectedLanguage Language       `json:"detected_language,omitempty"`
	MatchScore       *int           `json:"match_score,omitempty"`
	MatchReasoning   string         `json:"match_reasoning,omitempty"`

	Stage          Stage  `json:"stage"`
	SuggestedStage Stage  `json:"suggested_stage,omitempty"`
	StageReason    string `json:"stage_reason,omitempty"`

	Archived          bool      `json:"archived"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ApplyResult copies pipeline output onto the opportunity. The current
// stage is never touched here; stage transitions go through ChangeStage.
func (o *Opportunity) ApplyResult(res *PipelineResult) {
	if res == nil {
		return
	}
	if res.Classification != "" {
		o.Classification = res.Classification
	}
	if res.Extracted != nil {
		ex := res.Extracted
		if ex.CompanyName != "" {
			o.CompanyName = ex.CompanyName
		}
		if ex.ClientName != "" {
			o.ClientName = ex.ClientName
		}
		if ex.RoleTitle != "" {
			o.RoleTitle = ex.RoleTitle
		}
		if ex.SalaryRange != "" {
			o.SalaryRange = ex.SalaryRange
		}
		if len(ex.TechStack) > 0 {
			o.TechStack = ex.TechStack
		}
		if ex.WorkModel != "" {
			o.WorkModel = ex.WorkModel
		}
		if ex.RecruiterName != "" {
			o.RecruiterName = ex.RecruiterName
		}
		if ex.RecruiterCompany != "" {
			o.RecruiterCompany = ex.RecruiterCompany
		}
		o.MissingFields = ex.MissingFields
	}
	if res.DetectedLanguage != "" {
		o.DetectedLanguage = res.DetectedLanguage
	}
	if res.MatchScore != nil {
		o.MatchScore = res.MatchScore
		o.MatchReasoning = res.MatchReasoning
	}
	if res.SuggestedStage != "" {
		o.SuggestedStage = res.SuggestedStage
		o.StageReason = res.StageReason
	}
}

// StageTransition is one audit record of a stage change.
type StageTransition struct {
	ID            string            `json:"id"`
	OpportunityID string            `json:"opportunity_id"`
	FromStage     Stage             `json:"from_stage"`
	ToStage       Stage             `json:"to_stage"`
	TriggeredBy   TransitionTrigger `json:"triggered_by"`
	Note          string            `json:"note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ChangeStage moves the opportunity to a new stage and returns the audit
// record. Moving a terminal-stage opportunity is rejected.
func (o *Opportunity) ChangeStage(to Stage, trigger TransitionTrigger, note string) (*StageTransition, error) {
	if IsTerminalStage(o.Stage) && o.Stage != to {
		return nil, WrapError(ErrInvalidInput, "change stage",
			errStageTerminal(o.Stage))
	}
	tr := &StageTransition{
		OpportunityID: o.ID,
		FromStage:     o.Stage,
		ToStage:       to,
		TriggeredBy:   trigger,
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}
	o.Stage = to
	o.UpdatedAt = tr.CreatedAt
	return tr, nil
}

// Archive hides the opportunity from active views. Archiving is
// idempotent and independent of the stage.
func (o *Opportunity) Archive() {
	o.Archived = true
	o.UpdatedAt = time.Now().UTC()
}

// Unarchive returns the opportunity to active views.
func (o *Opportunity) Unarchive() {
	o.Archived = false
	o.UpdatedAt = time.Now().UTC()
}

type errStageTerminal Stage

func (e errStageTerminal) Error() string {
	return "opportunity is in terminal stage " + string(e)
}

// Draft is a generated reply attached to an opportunity.
type Draft struct {
	ID            string       `json:"id"`
	OpportunityID string       `json:"opportunity_id"`
	ResponseType  ResponseType `json:"response_type"`
	Content       string       `json:"content"`
	Language      Language     `json:"language,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
