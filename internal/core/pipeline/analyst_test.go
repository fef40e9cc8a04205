package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

func testProfile() *domain.Profile {
	return &domain.Profile{
		CandidateID: "cand-1",
		DisplayName: "Alex Rivera",
		Skills:      []string{"Go", "PostgreSQL", "Kafka", "Kubernetes"},
		MinSalary:   100000,
		WorkModel:   domain.WorkModelRemote,
	}
}

func completeExtraction() *domain.ExtractedData {
	return &domain.ExtractedData{
		CompanyName: "TechCorp",
		RoleTitle:   "Senior Backend Engineer",
		SalaryRange: "$120k - $140k",
		TechStack:   []string{"Go", "PostgreSQL"},
		WorkModel:   domain.WorkModelRemote,
	}
}

func TestAnalystBaseline(t *testing.T) {
	step := newAnalystStep(heuristicDeps(), DefaultConfig().Scoring)
	st := &domain.PipelineState{
		RawText:   "offer",
		Profile:   testProfile(),
		Extracted: completeExtraction(),
	}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.MatchScore == nil {
		t.Fatal("no score")
	}
	// base 50 + skills 30*2/4 + work model 10 + salary 10
	if *st.MatchScore != 85 {
		t.Fatalf("score = %d, want 85", *st.MatchScore)
	}
	if !strings.Contains(st.MatchReasoning, "skill overlap") {
		t.Fatalf("reasoning = %q", st.MatchReasoning)
	}
}

func TestAnalystBlendsModelScore(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return `{"score": 95, "reasoning": "excellent match for the candidate"}`, nil
	}}
	step := newAnalystStep(modelDeps(t, inv), DefaultConfig().Scoring)
	st := &domain.PipelineState{
		RawText:   "offer",
		Profile:   testProfile(),
		Extracted: completeExtraction(),
	}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *st.MatchScore != 90 {
		t.Fatalf("score = %d, want blended 90", *st.MatchScore)
	}
	if st.MatchReasoning != "excellent match for the candidate" {
		t.Fatalf("reasoning = %q", st.MatchReasoning)
	}
}

func TestAnalystClampsOutOfRangeModelScore(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return `{"score": 740, "reasoning": "confused"}`, nil
	}}
	step := newAnalystStep(modelDeps(t, inv), DefaultConfig().Scoring)
	st := &domain.PipelineState{
		RawText:   "offer",
		Profile:   testProfile(),
		Extracted: completeExtraction(),
	}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 740 clamps to 100, blended with baseline 85.
	if *st.MatchScore != 92 {
		t.Fatalf("score = %d, want 92", *st.MatchScore)
	}
	if st.MatchReasoning != "confused" {
		t.Fatalf("reasoning = %q, want model reasoning kept", st.MatchReasoning)
	}
}

func TestAnalystClampsNegativeModelScore(t *testing.T) {
	inv := &fakeInvoker{fn: func(_ context.Context, _ string, _ ports.ModelTier, _ string) (string, error) {
		return `{"score": -30, "reasoning": "bad fit"}`, nil
	}}
	step := newAnalystStep(modelDeps(t, inv), DefaultConfig().Scoring)
	st := &domain.PipelineState{
		RawText:   "offer",
		Profile:   testProfile(),
		Extracted: completeExtraction(),
	}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// -30 clamps to 0, blended with baseline 85.
	if *st.MatchScore != 42 {
		t.Fatalf("score = %d, want 42", *st.MatchScore)
	}
}

func TestAnalystSalaryBelowMinimum(t *testing.T) {
	step := newAnalystStep(heuristicDeps(), DefaultConfig().Scoring)
	ex := completeExtraction()
	ex.SalaryRange = "$70k - $90k"
	st := &domain.PipelineState{RawText: "offer", Profile: testProfile(), Extracted: ex}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// base 50 + skills 15 + work model 10 - salary 10
	if *st.MatchScore != 65 {
		t.Fatalf("score = %d, want 65", *st.MatchScore)
	}
}

func TestAnalystNeutralWithoutProfile(t *testing.T) {
	step := newAnalystStep(heuristicDeps(), DefaultConfig().Scoring)
	st := &domain.PipelineState{RawText: "offer", Extracted: completeExtraction()}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *st.MatchScore != 50 {
		t.Fatalf("score = %d, want neutral 50", *st.MatchScore)
	}
}

func TestAnalystClampsScore(t *testing.T) {
	weights := ScoringWeights{Base: 95, Skills: 30, WorkModelMatch: 10, SalaryMeets: 10}
	step := newAnalystStep(heuristicDeps(), weights)
	st := &domain.PipelineState{RawText: "offer", Profile: testProfile(), Extracted: completeExtraction()}
	if _, err := step.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *st.MatchScore != 100 {
		t.Fatalf("score = %d, want clamp at 100", *st.MatchScore)
	}
}

func TestAnalystRequiresExtraction(t *testing.T) {
	step := newAnalystStep(heuristicDeps(), DefaultConfig().Scoring)
	st := &domain.PipelineState{RawText: "offer"}
	if _, err := step.Run(context.Background(), st); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestSalaryFloor(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"$120k - $140k", 120000, true},
		{"$120,000 - $140,000", 120000, true},
		{"80k", 80000, true},
		{"120-140", 120000, true},
		{"65000 EUR", 65000, true},
		{"competitive", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := salaryFloor(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("salaryFloor(%q) = %d, %v; want %d, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
