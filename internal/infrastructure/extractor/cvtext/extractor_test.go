package cvtext

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/avelasquez/talent-inbound/internal/core/domain"
)

type fakeStorage struct {
	files map[string]string
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.files[key] = string(raw)
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := s.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open", io.ErrUnexpectedEOF)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestExtractorReadsPlainTextCV(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{
		"cv-1": "  Senior Go engineer.\nSkills: Go, PostgreSQL, Kubernetes.  ",
	}}
	ex := NewExtractor(storage)

	text, err := ex.ExtractText(context.Background(), "cv-1", "resume.txt")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(text, "PostgreSQL") {
		t.Fatalf("unexpected text: %q", text)
	}
	if strings.HasPrefix(text, " ") || strings.HasSuffix(text, " ") {
		t.Fatalf("text not trimmed: %q", text)
	}
}

func TestExtractorRejectsUnsupportedExtension(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"cv-1": "binary"}}
	ex := NewExtractor(storage)

	_, err := ex.ExtractText(context.Background(), "cv-1", "resume.docx")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestExtractorRejectsBinaryPlainFile(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{"cv-1": string([]byte{0xff, 0xfe, 0x00})}}
	ex := NewExtractor(storage)

	_, err := ex.ExtractText(context.Background(), "cv-1", "resume.txt")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestExtractorPropagatesMissingFile(t *testing.T) {
	storage := &fakeStorage{files: map[string]string{}}
	ex := NewExtractor(storage)

	_, err := ex.ExtractText(context.Background(), "nope", "resume.txt")
	if err == nil {
		t.Fatalf("expected error")
	}
}
