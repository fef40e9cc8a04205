package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/pipeline"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
	"github.com/avelasquez/talent-inbound/internal/core/usecase"
	"github.com/avelasquez/talent-inbound/internal/observability/metrics"
)

const (
	candidateIDHeader  = "X-Candidate-Id"
	defaultCandidateID = "default"
)

// Config carries the transport guards of the API surface.
type Config struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	MaxInFlightWait time.Duration
}

type Router struct {
	cfg           Config
	ingestUC      *usecase.IngestMessageUseCase
	draftUC       *usecase.GenerateDraftUseCase
	profileUC     *usecase.ProfileUseCase
	opportunityUC *usecase.OpportunityUseCase
	opportunities ports.OpportunityRepository
	interactions  ports.InteractionRepository
	draftRepo     ports.DraftRepository
	hub           *pipeline.Hub
	serverMetrics *metrics.HTTPServerMetrics
	logger        *slog.Logger
}

func NewRouter(
	cfg Config,
	ingestUC *usecase.IngestMessageUseCase,
	draftUC *usecase.GenerateDraftUseCase,
	profileUC *usecase.ProfileUseCase,
	opportunityUC *usecase.OpportunityUseCase,
	opportunities ports.OpportunityRepository,
	interactions ports.InteractionRepository,
	draftRepo ports.DraftRepository,
	hub *pipeline.Hub,
	serverMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxInFlightWait <= 0 {
		cfg.MaxInFlightWait = 100 * time.Millisecond
	}
	return &Router{
		cfg:           cfg,
		ingestUC:      ingestUC,
		draftUC:       draftUC,
		profileUC:     profileUC,
		opportunityUC: opportunityUC,
		opportunities: opportunities,
		interactions:  interactions,
		draftRepo:     draftRepo,
		hub:           hub,
		serverMetrics: serverMetrics,
		logger:        logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/messages", rt.submitMessage)
	mux.HandleFunc("GET /v1/opportunities/{id}", rt.getOpportunity)
	mux.HandleFunc("POST /v1/opportunities/{id}/follow-ups", rt.submitFollowUp)
	mux.HandleFunc("POST /v1/opportunities/{id}/drafts", rt.generateDraft)
	mux.HandleFunc("POST /v1/opportunities/{id}/archive", rt.archiveOpportunity)
	mux.HandleFunc("DELETE /v1/opportunities/{id}/archive", rt.unarchiveOpportunity)
	mux.HandleFunc("POST /v1/opportunities/{id}/stage", rt.changeStage)
	mux.HandleFunc("GET /v1/pipeline/progress/{id}", rt.streamProgress)
	mux.HandleFunc("GET /v1/profile", rt.getProfile)
	mux.HandleFunc("PUT /v1/profile", rt.updateProfile)
	mux.HandleFunc("POST /v1/profile/cv", rt.uploadCV)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.MaxInFlightWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitMessageRequest struct {
	CandidateID string `json:"candidate_id"`
	Content     string `json:"content"`
	Source      string `json:"source"`
}

func (rt *Router) submitMessage(w http.ResponseWriter, r *http.Request) {
	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	source, ok := domain.ParseSource(req.Source)
	if !ok {
		if req.Source != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown source"})
			return
		}
		source = domain.SourceOther
	}

	in, opp, err := rt.ingestUC.Submit(r.Context(), candidateID(r, req.CandidateID), req.Content, source)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"interaction": in,
		"opportunity": opp,
	})
}

func (rt *Router) submitFollowUp(w http.ResponseWriter, r *http.Request) {
	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	source, ok := domain.ParseSource(req.Source)
	if !ok {
		source = domain.SourceOther
	}

	in, err := rt.ingestUC.SubmitFollowUp(r.Context(), candidateID(r, req.CandidateID), r.PathValue("id"), req.Content, source)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"interaction": in})
}

func (rt *Router) getOpportunity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	opp, err := rt.opportunities.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	interactions, err := rt.interactions.ListByOpportunity(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	transitions, err := rt.opportunities.ListTransitions(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	drafts, err := rt.draftRepo.ListByOpportunity(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunity":  opp,
		"interactions": interactions,
		"transitions":  transitions,
		"drafts":       drafts,
	})
}

type generateDraftRequest struct {
	CandidateID  string `json:"candidate_id"`
	ResponseType string `json:"response_type"`
	Instructions string `json:"instructions"`
}

func (rt *Router) generateDraft(w http.ResponseWriter, r *http.Request) {
	var req generateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	responseType, ok := domain.ParseResponseType(req.ResponseType)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown response_type"})
		return
	}

	draft, err := rt.draftUC.GenerateForOpportunity(r.Context(),
		candidateID(r, req.CandidateID), r.PathValue("id"), responseType, req.Instructions)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (rt *Router) archiveOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := rt.opportunityUC.Archive(r.Context(), candidateID(r, ""), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunity": opp})
}

func (rt *Router) unarchiveOpportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := rt.opportunityUC.Unarchive(r.Context(), candidateID(r, ""), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunity": opp})
}

type changeStageRequest struct {
	CandidateID string `json:"candidate_id"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason"`
}

func (rt *Router) changeStage(w http.ResponseWriter, r *http.Request) {
	var req changeStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	opp, tr, err := rt.opportunityUC.ChangeStage(r.Context(),
		candidateID(r, req.CandidateID), r.PathValue("id"), req.Stage, req.Reason)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunity": opp,
		"transition":  tr,
	})
}

func (rt *Router) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := rt.profileUC.Get(r.Context(), candidateID(r, r.URL.Query().Get("candidate_id")))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (rt *Router) updateProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if profile.CandidateID == "" {
		profile.CandidateID = candidateID(r, "")
	}
	updated, err := rt.profileUC.Update(r.Context(), &profile)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (rt *Router) uploadCV(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	profile, err := rt.profileUC.UploadCV(r.Context(),
		candidateID(r, r.FormValue("candidate_id")), fileHeader.Filename, file)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// candidateID resolves the acting candidate: explicit value, then the
// header, then the single-tenant default.
func candidateID(r *http.Request, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get(candidateIDHeader)); v != "" {
		return v
	}
	return defaultCandidateID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
