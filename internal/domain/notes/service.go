package notes

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/pkg/display"
)

const (
	maxTitleLen = 80
	maxTextLen  = 64 << 10
)

type Service struct {
	notes     NoteRepository
	summaries DischargeSummaryRepository
	now       func() time.Time
}

func NewService(notes NoteRepository, summaries DischargeSummaryRepository) *Service {
	return &Service{notes: notes, summaries: summaries, now: time.Now}
}

func (s *Service) ListNotes(ctx context.Context, ssn string) ([]ClinicalNote, error) {
	return s.notes.List(ctx, ssn)
}

func (s *Service) GetNote(ctx context.Context, ssn, id string) (*ClinicalNote, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.notes.Get(ctx, ssn, id)
}

// CreateNote validates and saves a note, returning it as stored.
func (s *Service) CreateNote(ctx context.Context, ssn string, n NewNote) (*ClinicalNote, error) {
	n.Title = strings.TrimSpace(n.Title)
	n.Location = strings.TrimSpace(n.Location)
	if n.Title == "" {
		return nil, apierror.Invalid("title", "is required")
	}
	if utf8.RuneCountInString(n.Title) > maxTitleLen {
		return nil, apierror.Invalid("title", "is too long")
	}
	if strings.TrimSpace(n.Text) == "" {
		return nil, apierror.Invalid("text", "is required")
	}
	if len(n.Text) > maxTextLen {
		return nil, apierror.Invalid("text", "is too long")
	}
	// The backend stores word-processing lines; normalize line endings.
	n.Text = strings.ReplaceAll(n.Text, "\r\n", "\n")

	id, err := s.notes.Create(ctx, ssn, n)
	if err != nil {
		return nil, err
	}
	note := &ClinicalNote{
		ID:       id,
		Title:    n.Title,
		Author:   display.NotAvailable,
		Date:     s.now().Format(display.DateLayout),
		Status:   "UNSIGNED",
		Location: display.NA(n.Location),
		Text:     n.Text,
	}
	if sess := auth.SessionFromContext(ctx); sess != nil {
		note.Author = display.NA(sess.Name)
		if n.Location == "" {
			note.Location = display.NA(sess.Location)
		}
	}
	return note, nil
}

func (s *Service) ListDischargeSummaries(ctx context.Context, ssn string) ([]DischargeSummary, error) {
	return s.summaries.List(ctx, ssn)
}

func (s *Service) GetDischargeSummary(ctx context.Context, ssn, id string) (*DischargeSummary, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.summaries.Get(ctx, ssn, id)
}

// validID accepts backend internal entry numbers, which are numeric.
func validID(id string) error {
	if id == "" {
		return apierror.Invalid("id", "is required")
	}
	for _, r := range id {
		if (r < '0' || r > '9') && r != '.' {
			return apierror.Invalid("id", "must be numeric")
		}
	}
	return nil
}
