package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

var (
	companyPattern = regexp.MustCompile(`(?:at|from|with)\s+([A-Z][A-Za-z0-9\s&.]+?)(?:\.|,|\s+(?:we|is|are|looking|for|and))`)
	rolePattern    = regexp.MustCompile(`(?i)((?:Senior|Staff|Principal|Lead|Junior)?\s*\w+\s*(?:Engineer|Developer|Architect|Manager))`)
	salaryPattern  = regexp.MustCompile(`[$€£]?\s*\d{2,3}[kK,\d]*\s*(?:[-–]|to)+\s*[$€£]?\s*\d{2,3}[kK,\d]*`)
	namePattern    = regexp.MustCompile(`(?:I'?m|my name is|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

type extractorStep struct {
	deps     *Deps
	required []string
}

func newExtractorStep(deps *Deps, requiredFields []string) *extractorStep {
	return &extractorStep{deps: deps, required: requiredFields}
}

func (s *extractorStep) Name() domain.StepName { return domain.StepExtractor }

func (s *extractorStep) Run(ctx context.Context, st *domain.PipelineState) (string, error) {
	text := extractionInput(st)

	extracted, source, err := s.extract(ctx, text)
	if err != nil {
		return "", err
	}

	// Hallucination check: a field that cannot be traced back to the
	// source text is discarded, not kept.
	discarded := verifyAgainstSource(extracted, text)

	extracted.MissingFields = missingFields(extracted, s.required)
	st.Extracted = extracted

	summary := fmt.Sprintf("extracted via %s, missing: %v", source, extracted.MissingFields)
	if len(discarded) > 0 {
		summary += fmt.Sprintf(", discarded unverified: %v", discarded)
		s.deps.Logger.Warn("extractor_discarded_fields",
			"fields", discarded,
			"source", source,
		)
	}
	return summary, nil
}

// extractionInput renders prior exchanges ahead of the current message in
// follow-up mode so the model sees the whole thread.
func extractionInput(st *domain.PipelineState) string {
	if st.Mode != domain.ModeFollowUp || len(st.History) == 0 {
		return st.Text()
	}
	var b strings.Builder
	for i, ex := range st.History {
		if i == 0 {
			b.WriteString("--- Initial message ---\n")
		} else {
			fmt.Fprintf(&b, "--- Follow-up #%d ---\n", i)
		}
		b.WriteString(ex.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("--- Latest message ---\n")
	b.WriteString(st.Text())
	return b.String()
}

type extractedPayload struct {
	CompanyName      string   `json:"company_name"`
	ClientName       string   `json:"client_name"`
	RoleTitle        string   `json:"role_title"`
	SalaryRange      string   `json:"salary_range"`
	TechStack        []string `json:"tech_stack"`
	WorkModel        string   `json:"work_model"`
	RecruiterName    string   `json:"recruiter_name"`
	RecruiterCompany string   `json:"recruiter_company"`
}

func (s *extractorStep) extract(ctx context.Context, text string) (*domain.ExtractedData, string, error) {
	resp, err := s.deps.callModel(ctx, domain.StepExtractor, promptExtractor+"\n\nMessage:\n"+text)
	if err != nil {
		return nil, "", err
	}
	if resp == "" {
		return heuristicExtract(text), "heuristic", nil
	}

	var payload extractedPayload
	outcome := DecodeJSON(resp, &payload)
	s.deps.logFallback(domain.StepExtractor, outcome, resp)
	if !outcome.Usable() {
		return heuristicExtract(text), "heuristic", nil
	}

	extracted := &domain.ExtractedData{
		CompanyName:      strings.TrimSpace(payload.CompanyName),
		ClientName:       strings.TrimSpace(payload.ClientName),
		RoleTitle:        strings.TrimSpace(payload.RoleTitle),
		SalaryRange:      strings.TrimSpace(payload.SalaryRange),
		TechStack:        payload.TechStack,
		RecruiterName:    strings.TrimSpace(payload.RecruiterName),
		RecruiterCompany: strings.TrimSpace(payload.RecruiterCompany),
	}
	switch domain.WorkModel(strings.ToUpper(payload.WorkModel)) {
	case domain.WorkModelRemote, domain.WorkModelHybrid, domain.WorkModelOnsite:
		extracted.WorkModel = domain.WorkModel(strings.ToUpper(payload.WorkModel))
	}
	return extracted, "llm", nil
}

func heuristicExtract(text string) *domain.ExtractedData {
	lower := strings.ToLower(text)
	extracted := &domain.ExtractedData{}

	if m := companyPattern.FindStringSubmatch(text); m != nil {
		extracted.CompanyName = strings.TrimSpace(m[1])
	}
	if m := rolePattern.FindStringSubmatch(text); m != nil {
		extracted.RoleTitle = strings.TrimSpace(m[1])
	}
	if m := salaryPattern.FindString(text); m != "" {
		extracted.SalaryRange = strings.TrimSpace(m)
	}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		extracted.RecruiterName = strings.TrimSpace(m[1])
	}

	for _, tech := range KnownTechnologies {
		if ContainsTech(lower, tech) {
			extracted.TechStack = append(extracted.TechStack, tech)
		}
	}

	switch {
	case strings.Contains(lower, "hybrid"):
		extracted.WorkModel = domain.WorkModelHybrid
	case strings.Contains(lower, "remote"):
		extracted.WorkModel = domain.WorkModelRemote
	case strings.Contains(lower, "onsite"), strings.Contains(lower, "on-site"), strings.Contains(lower, "in-office"):
		extracted.WorkModel = domain.WorkModelOnsite
	}

	return extracted
}

// verifyAgainstSource drops name-like fields whose value does not appear
// in the source text. Returns the discarded field names.
func verifyAgainstSource(extracted *domain.ExtractedData, source string) []string {
	lowerSource := strings.ToLower(source)
	var discarded []string

	if extracted.CompanyName != "" && !strings.Contains(lowerSource, strings.ToLower(extracted.CompanyName)) {
		extracted.CompanyName = ""
		discarded = append(discarded, "company_name")
	}
	if extracted.RoleTitle != "" && !strings.Contains(lowerSource, strings.ToLower(extracted.RoleTitle)) {
		extracted.RoleTitle = ""
		discarded = append(discarded, "role_title")
	}
	if extracted.RecruiterName != "" && !strings.Contains(lowerSource, strings.ToLower(extracted.RecruiterName)) {
		extracted.RecruiterName = ""
		discarded = append(discarded, "recruiter_name")
	}

	kept := extracted.TechStack[:0]
	for _, tech := range extracted.TechStack {
		if ContainsTech(lowerSource, tech) {
			kept = append(kept, tech)
		}
	}
	if len(kept) < len(extracted.TechStack) {
		discarded = append(discarded, "tech_stack")
	}
	extracted.TechStack = kept

	return discarded
}

// ContainsTech reports whether a technology name occurs in lowercased
// text as a standalone token. Plain substring search is too eager: "go"
// hides inside "category", "rest" inside "interested".
func ContainsTech(lowerText, tech string) bool {
	needle := strings.ToLower(tech)
	for from := 0; ; {
		i := strings.Index(lowerText[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordByte(lowerText[start-1])
		afterOK := end == len(lowerText) || !isWordByte(lowerText[end])
		if beforeOK && afterOK {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func missingFields(extracted *domain.ExtractedData, required []string) []string {
	var missing []string
	for _, field := range required {
		empty := false
		switch field {
		case "company_name":
			empty = extracted.CompanyName == ""
		case "role_title":
			empty = extracted.RoleTitle == ""
		case "salary_range":
			empty = extracted.SalaryRange == ""
		case "tech_stack":
			empty = len(extracted.TechStack) == 0
		case "work_model":
			empty = extracted.WorkModel == ""
		case "recruiter_name":
			empty = extracted.RecruiterName == ""
		}
		if empty {
			missing = append(missing, field)
		}
	}
	return missing
}
