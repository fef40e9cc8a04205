package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
	"github.com/avelasquez/talent-inbound/internal/core/pipeline"
	"github.com/avelasquez/talent-inbound/internal/core/ports"
)

// ProfileUseCase manages the candidate preference snapshot and the CV
// upload that feeds the skill list.
type ProfileUseCase struct {
	profiles  ports.ProfileRepository
	storage   ports.ObjectStorage
	extractor ports.CVTextExtractor
	logger    *slog.Logger
}

func NewProfileUseCase(
	profiles ports.ProfileRepository,
	storage ports.ObjectStorage,
	extractor ports.CVTextExtractor,
	logger *slog.Logger,
) *ProfileUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileUseCase{
		profiles:  profiles,
		storage:   storage,
		extractor: extractor,
		logger:    logger,
	}
}

func (uc *ProfileUseCase) Get(ctx context.Context, candidateID string) (*domain.Profile, error) {
	profile, err := uc.profiles.GetByCandidateID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

func (uc *ProfileUseCase) Update(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	if profile.CandidateID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update profile",
			fmt.Errorf("missing candidate id"))
	}

	// CV fields are owned by UploadCV; carry them over from the stored row.
	if existing, err := uc.profiles.GetByCandidateID(ctx, profile.CandidateID); err == nil {
		profile.CVText = existing.CVText
		profile.CVPath = existing.CVPath
	} else if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load existing profile: %w", err)
	}

	profile.UpdatedAt = time.Now().UTC()
	if err := uc.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// UploadCV stores the file, extracts its text, and merges any recognized
// technologies into the profile's skill list.
func (uc *ProfileUseCase) UploadCV(ctx context.Context, candidateID, filename string, body io.Reader) (*domain.Profile, error) {
	key := fmt.Sprintf("cv_%s_%s", candidateID, sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, key, body); err != nil {
		return nil, fmt.Errorf("store cv: %w", err)
	}

	text, err := uc.extractor.ExtractText(ctx, key, filename)
	if err != nil {
		return nil, fmt.Errorf("extract cv text: %w", err)
	}

	profile, err := uc.profiles.GetByCandidateID(ctx, candidateID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		profile = &domain.Profile{CandidateID: candidateID}
	}

	profile.CVText = text
	profile.CVPath = key
	added := mergeSkillsFromText(profile, text)
	profile.UpdatedAt = time.Now().UTC()

	if err := uc.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	uc.logger.Info("cv_uploaded",
		"candidate_id", candidateID,
		"storage_key", key,
		"skills_added", added,
	)
	return profile, nil
}

// mergeSkillsFromText scans the CV text for known technologies and adds
// the ones the profile does not list yet. Returns how many were added.
func mergeSkillsFromText(profile *domain.Profile, text string) int {
	lower := strings.ToLower(text)
	have := make(map[string]bool, len(profile.Skills))
	for _, s := range profile.Skills {
		have[strings.ToLower(s)] = true
	}

	added := 0
	for _, tech := range pipeline.KnownTechnologies {
		if have[strings.ToLower(tech)] || !pipeline.ContainsTech(lower, tech) {
			continue
		}
		profile.Skills = append(profile.Skills, tech)
		have[strings.ToLower(tech)] = true
		added++
	}
	return added
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "cv.bin"
	}
	return base
}
