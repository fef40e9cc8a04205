package domain

// Source identifies where a recruiter message came from.
type Source string

const (
	SourceLinkedIn  Source = "LINKEDIN"
	SourceEmail     Source = "EMAIL"
	SourceFreelance Source = "FREELANCE"
	SourceOther     Source = "OTHER"
)

// ParseSource validates a raw source string.
func ParseSource(raw string) (Source, bool) {
	switch Source(raw) {
	case SourceLinkedIn, SourceEmail, SourceFreelance, SourceOther:
		return Source(raw), true
	}
	return "", false
}

// Mode selects which pipeline steps run.
type Mode string

const (
	ModeInitial  Mode = "INITIAL"
	ModeFollowUp Mode = "FOLLOW_UP"
)

// Classification is the Gatekeeper verdict on a message.
type Classification string

const (
	ClassificationRealOffer  Classification = "REAL_OFFER"
	ClassificationSpam       Classification = "SPAM"
	ClassificationNotAnOffer Classification = "NOT_AN_OFFER"
)

// Language is an ISO 639-1 code the pipeline can detect.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// WorkModel describes where the work happens.
type WorkModel string

const (
	WorkModelRemote WorkModel = "REMOTE"
	WorkModelHybrid WorkModel = "HYBRID"
	WorkModelOnsite WorkModel = "ONSITE"
)

// Stage is an opportunity's position in the hiring lifecycle.
type Stage string

const (
	StageDiscovery    Stage = "DISCOVERY"
	StageEngaging     Stage = "ENGAGING"
	StageInterviewing Stage = "INTERVIEWING"
	StageNegotiating  Stage = "NEGOTIATING"
	StageOffer        Stage = "OFFER"
	StageRejected     Stage = "REJECTED"
	StageDeclined     Stage = "DECLINED"
	StageGhosted      Stage = "GHOSTED"
)

// StageFlow is the forward ordering of non-terminal stages.
var StageFlow = []Stage{
	StageDiscovery,
	StageEngaging,
	StageInterviewing,
	StageNegotiating,
}

var terminalStages = map[Stage]bool{
	StageOffer:    true,
	StageRejected: true,
	StageDeclined: true,
	StageGhosted:  true,
}

// IsTerminalStage reports whether a stage ends the lifecycle.
func IsTerminalStage(s Stage) bool {
	return terminalStages[s]
}

// IsForwardMove reports whether suggested is strictly ahead of current
// in the stage flow. Terminal and unknown stages never qualify.
func IsForwardMove(current, suggested Stage) bool {
	currentIdx, suggestedIdx := -1, -1
	for i, s := range StageFlow {
		if s == current {
			currentIdx = i
		}
		if s == suggested {
			suggestedIdx = i
		}
	}
	if currentIdx < 0 || suggestedIdx < 0 {
		return false
	}
	return suggestedIdx > currentIdx
}

// ParseStage validates a raw stage string.
func ParseStage(raw string) (Stage, bool) {
	switch Stage(raw) {
	case StageDiscovery, StageEngaging, StageInterviewing, StageNegotiating,
		StageOffer, StageRejected, StageDeclined, StageGhosted:
		return Stage(raw), true
	}
	return "", false
}

// ResponseType selects the intent of a drafted reply.
type ResponseType string

const (
	ResponseRequestInfo     ResponseType = "REQUEST_INFO"
	ResponseExpressInterest ResponseType = "EXPRESS_INTEREST"
	ResponseDecline         ResponseType = "DECLINE"
)

// ParseResponseType validates a raw response type string.
func ParseResponseType(raw string) (ResponseType, bool) {
	switch ResponseType(raw) {
	case ResponseRequestInfo, ResponseExpressInterest, ResponseDecline:
		return ResponseType(raw), true
	}
	return "", false
}

// ProcessingStatus tracks the asynchronous pipeline run for an interaction.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "PENDING"
	ProcessingInProgress ProcessingStatus = "PROCESSING"
	ProcessingCompleted  ProcessingStatus = "COMPLETED"
	ProcessingFailed     ProcessingStatus = "FAILED"
)

// InteractionType distinguishes first contact from later exchanges.
type InteractionType string

const (
	InteractionInitial           InteractionType = "INITIAL"
	InteractionFollowUp          InteractionType = "FOLLOW_UP"
	InteractionCandidateResponse InteractionType = "CANDIDATE_RESPONSE"
)

// TransitionTrigger records who caused a stage transition.
type TransitionTrigger string

const (
	TriggerSystem TransitionTrigger = "SYSTEM"
	TriggerUser   TransitionTrigger = "USER"
)
