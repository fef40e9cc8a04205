package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

type interactionRepoFake struct {
	byID     map[string]*domain.Interaction
	byHash   map[string]*domain.Interaction
	statuses map[string]domain.ProcessingStatus
	errors   map[string]string
	failOn   string
}

func newInteractionRepoFake() *interactionRepoFake {
	return &interactionRepoFake{
		byID:     map[string]*domain.Interaction{},
		byHash:   map[string]*domain.Interaction{},
		statuses: map[string]domain.ProcessingStatus{},
		errors:   map[string]string{},
	}
}

func (f *interactionRepoFake) Create(_ context.Context, in *domain.Interaction) error {
	if f.failOn == "create" {
		return errors.New("db down")
	}
	clone := *in
	f.byID[in.ID] = &clone
	f.byHash[in.ContentHash] = &clone
	return nil
}

func (f *interactionRepoFake) GetByID(_ context.Context, id string) (*domain.Interaction, error) {
	in, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get interaction", errors.New(id))
	}
	clone := *in
	return &clone, nil
}

func (f *interactionRepoFake) FindByContentHash(_ context.Context, hash string) (*domain.Interaction, error) {
	in, ok := f.byHash[hash]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "find by hash", errors.New("no match"))
	}
	clone := *in
	return &clone, nil
}

func (f *interactionRepoFake) ListByOpportunity(_ context.Context, opportunityID string) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for _, in := range f.byID {
		if in.OpportunityID == opportunityID {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (f *interactionRepoFake) UpdateStatus(_ context.Context, id string, status domain.ProcessingStatus, errMessage string) error {
	if f.failOn == "status" {
		return errors.New("db down")
	}
	f.statuses[id] = status
	f.errors[id] = errMessage
	if in, ok := f.byID[id]; ok {
		in.Status = status
		in.Error = errMessage
	}
	return nil
}

type opportunityRepoFake struct {
	byID        map[string]*domain.Opportunity
	transitions []domain.StageTransition
	updateErr   error
}

func newOpportunityRepoFake() *opportunityRepoFake {
	return &opportunityRepoFake{byID: map[string]*domain.Opportunity{}}
}

func (f *opportunityRepoFake) Create(_ context.Context, opp *domain.Opportunity) error {
	clone := *opp
	f.byID[opp.ID] = &clone
	return nil
}

func (f *opportunityRepoFake) GetByID(_ context.Context, id string) (*domain.Opportunity, error) {
	opp, ok := f.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get opportunity", errors.New(id))
	}
	clone := *opp
	return &clone, nil
}

func (f *opportunityRepoFake) Update(_ context.Context, opp *domain.Opportunity) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[opp.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update opportunity", errors.New(opp.ID))
	}
	clone := *opp
	f.byID[opp.ID] = &clone
	return nil
}

func (f *opportunityRepoFake) RecordTransition(_ context.Context, tr *domain.StageTransition) error {
	f.transitions = append(f.transitions, *tr)
	return nil
}

func (f *opportunityRepoFake) ListTransitions(_ context.Context, opportunityID string) ([]domain.StageTransition, error) {
	var out []domain.StageTransition
	for _, tr := range f.transitions {
		if tr.OpportunityID == opportunityID {
			out = append(out, tr)
		}
	}
	return out, nil
}

type profileRepoFake struct {
	byCandidate map[string]*domain.Profile
}

func newProfileRepoFake() *profileRepoFake {
	return &profileRepoFake{byCandidate: map[string]*domain.Profile{}}
}

func (f *profileRepoFake) GetByCandidateID(_ context.Context, candidateID string) (*domain.Profile, error) {
	p, ok := f.byCandidate[candidateID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get profile", errors.New(candidateID))
	}
	clone := *p
	return &clone, nil
}

func (f *profileRepoFake) Upsert(_ context.Context, profile *domain.Profile) error {
	clone := *profile
	f.byCandidate[profile.CandidateID] = &clone
	return nil
}

type draftRepoFake struct {
	created []domain.Draft
	err     error
}

func (f *draftRepoFake) Create(_ context.Context, draft *domain.Draft) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *draft)
	return nil
}

func (f *draftRepoFake) ListByOpportunity(_ context.Context, opportunityID string) ([]domain.Draft, error) {
	var out []domain.Draft
	for _, d := range f.created {
		if d.OpportunityID == opportunityID {
			out = append(out, d)
		}
	}
	return out, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishInteractionSubmitted(_ context.Context, interactionID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, interactionID)
	return nil
}

func (f *queueFake) SubscribeInteractionSubmitted(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type runnerFake struct {
	result  *domain.PipelineResult
	err     error
	lastReq ports.RunRequest
}

func (f *runnerFake) Run(_ context.Context, req ports.RunRequest) (*domain.PipelineResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type storageFake struct {
	files map[string]string
}

func newStorageFake() *storageFake {
	return &storageFake{files: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open", errors.New(key))
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) ExtractText(context.Context, string, string) (string, error) {
	return f.text, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
