package allergies

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/gateway/internal/platform/apierror"
)

type mockRepo struct {
	allergies map[string][]Allergy
	created   []NewAllergy
	err       error
}

func newMockRepo() *mockRepo {
	return &mockRepo{allergies: make(map[string][]Allergy)}
}

func (m *mockRepo) List(_ context.Context, ssn string) ([]Allergy, error) {
	return m.allergies[ssn], m.err
}

func (m *mockRepo) Create(_ context.Context, _ string, a NewAllergy) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.created = append(m.created, a)
	return "301", nil
}

func TestCreate_Validation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	bad := []NewAllergy{
		{Type: "drug"},
		{Allergen: "PENICILLIN"},
		{Allergen: "PENICILLIN", Type: "environmental"},
		{Allergen: "PENICILLIN", Type: "drug", Severity: "fatal"},
		{Allergen: "PENICILLIN", Type: "drug", Reactions: []string{"HIVES^RASH"}},
	}
	for _, a := range bad {
		_, err := svc.Create(context.Background(), "123456789", a)
		var ve *apierror.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%+v: expected validation error, got %v", a, err)
		}
	}
	if len(repo.created) != 0 {
		t.Errorf("expected nothing sent, got %v", repo.created)
	}
}

func TestCreate_Normalizes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	got, err := svc.Create(context.Background(), "123456789", NewAllergy{
		Allergen:  " penicillin ",
		Type:      "Drug",
		Reactions: []string{"hives", " ", "Rash"},
		Severity:  "SEVERE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := NewAllergy{Allergen: "PENICILLIN", Type: "drug", Reactions: []string{"HIVES", "RASH"}, Severity: "severe"}
	if diff := cmp.Diff(want, repo.created[0]); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	if got.ID != "301" || got.Severity != "severe" {
		t.Errorf("unexpected allergy %+v", got)
	}
}

func TestCreate_SeverityOptional(t *testing.T) {
	svc := NewService(newMockRepo())
	got, err := svc.Create(context.Background(), "123456789", NewAllergy{Allergen: "PEANUTS", Type: "food"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Severity != "N/A" || got.Reactions == nil {
		t.Errorf("unexpected allergy %+v", got)
	}
}
