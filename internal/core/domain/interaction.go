package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Interaction is one submitted recruiter message awaiting or holding a
// pipeline verdict.
type Interaction struct {
	ID            string           `json:"id"`
	CandidateID   string           `json:"candidate_id"`
	OpportunityID string           `json:"opportunity_id"`
	RawContent    string           `json:"raw_content"`
	Source        Source           `json:"source"`
	Type          InteractionType  `json:"interaction_type"`
	Status        ProcessingStatus `json:"processing_status"`
	ContentHash   string           `json:"content_hash"`
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ContentHash fingerprints a message for duplicate detection.
func ContentHash(rawContent string, source Source) string {
	sum := sha256.Sum256([]byte(rawContent + "|" + string(source)))
	return hex.EncodeToString(sum[:])
}
