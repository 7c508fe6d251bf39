package vitals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/gateway/internal/platform/apierror"
)

var testNow = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

type mockRepo struct {
	vitals   map[string][]Vital
	io       map[string][]IntakeOutputRecord
	recorded [][]Measurement
	takenAt  []time.Time
	ioSaved  []NewIntakeOutput
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{vitals: make(map[string][]Vital), io: make(map[string][]IntakeOutputRecord)}
}

func (m *mockRepo) List(_ context.Context, ssn string) ([]Vital, error) {
	return m.vitals[ssn], m.err
}

func (m *mockRepo) Record(_ context.Context, _ string, at time.Time, ms []Measurement) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, ms)
	m.takenAt = append(m.takenAt, at)
	return nil
}

func (m *mockRepo) ListIntakeOutput(_ context.Context, ssn string) ([]IntakeOutputRecord, error) {
	return m.io[ssn], m.err
}

func (m *mockRepo) RecordIntakeOutput(_ context.Context, _ string, r NewIntakeOutput) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.ioSaved = append(m.ioSaved, r)
	return "42", nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func isValidation(err error) bool {
	var ve *apierror.ValidationError
	return errors.As(err, &ve)
}

func TestRecord_Validation(t *testing.T) {
	svc, repo := newTestService()
	future := testNow.Add(time.Hour)

	bad := []NewVitals{
		{},
		{Measurements: []Measurement{{Type: "XX", Value: "1"}}},
		{Measurements: []Measurement{{Type: "BP", Value: "120"}}},
		{Measurements: []Measurement{{Type: "BP", Value: "80/120"}}},
		{Measurements: []Measurement{{Type: "BP", Value: "abc/80"}}},
		{Measurements: []Measurement{{Type: "T", Value: "hot"}}},
		{Measurements: []Measurement{{Type: "WT", Value: "-5"}}},
		{Measurements: []Measurement{{Type: "PN", Value: "11"}}},
		{Measurements: []Measurement{{Type: "PN", Value: "2.5"}}},
		{Measurements: []Measurement{{Type: "P", Value: ""}}},
		{Measurements: []Measurement{{Type: "P", Value: "72"}, {Type: "p", Value: "80"}}},
		{TakenAt: &future, Measurements: []Measurement{{Type: "P", Value: "72"}}},
	}
	for _, req := range bad {
		if _, err := svc.Record(context.Background(), "123456789", req); !isValidation(err) {
			t.Errorf("%+v: expected validation error, got %v", req, err)
		}
	}
	if len(repo.recorded) != 0 {
		t.Errorf("expected no backend call, got %v", repo.recorded)
	}
}

func TestRecord_DefaultsUnitsAndTime(t *testing.T) {
	svc, repo := newTestService()
	got, err := svc.Record(context.Background(), "123456789", NewVitals{Measurements: []Measurement{
		{Type: "bp", Value: "120/80"},
		{Type: "T", Value: "37.2", Units: "C"},
		{Type: "PN", Value: "0"},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Measurement{
		{Type: "BP", Value: "120/80", Units: "mmHg"},
		{Type: "T", Value: "37.2", Units: "C"},
		{Type: "PN", Value: "0", Units: ""},
	}
	if diff := cmp.Diff(want, repo.recorded[0]); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	if !repo.takenAt[0].Equal(testNow) {
		t.Errorf("expected taken at now, got %v", repo.takenAt[0])
	}
	if len(got) != 3 || got[0].TakenAt != "2024-03-10 14:30" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestList_TypeFilter(t *testing.T) {
	svc, repo := newTestService()
	repo.vitals["123456789"] = []Vital{{ID: "1", Type: "BP"}, {ID: "2", Type: "P"}, {ID: "3", Type: "BP"}}

	got, err := svc.List(context.Background(), "123456789", "bp")
	if err != nil || len(got) != 2 {
		t.Errorf("expected 2 BP readings, got %d (%v)", len(got), err)
	}
	if _, err := svc.List(context.Background(), "123456789", "GLUCOSE"); !isValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLatest(t *testing.T) {
	got := Latest([]Vital{
		{ID: "1", Type: "P", TakenAt: "2024-03-01 08:00"},
		{ID: "2", Type: "BP", TakenAt: "2024-03-02 08:00"},
		{ID: "3", Type: "P", TakenAt: "2024-03-09 08:00"},
		{ID: "4", Type: "P", TakenAt: "N/A"},
		{ID: "5", Type: "BP", TakenAt: "2024-02-28 08:00"},
	})
	var ids []string
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	if diff := cmp.Diff([]string{"2", "3"}, ids); diff != "" {
		t.Errorf("latest mismatch (-want +got):\n%s", diff)
	}
}

func TestLatest_ReadableDates(t *testing.T) {
	got := Latest([]Vital{
		{ID: "1", Type: "T", Value: "98.6", TakenAt: "01/15/2024 09:00"},
		{ID: "2", Type: "T", Value: "101.2", TakenAt: "12/01/2023 10:00"},
		{ID: "3", Type: "P", Value: "72", TakenAt: "yesterday"},
		{ID: "4", Type: "P", Value: "80", TakenAt: "2024-01-15 09:00"},
	})
	var ids []string
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	// P keeps backend order because "yesterday" cannot be compared.
	if diff := cmp.Diff([]string{"3", "1"}, ids); diff != "" {
		t.Errorf("latest mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_BatchCap(t *testing.T) {
	if maxBatch != len(defaultUnits) {
		t.Fatalf("batch cap %d does not match %d vital types", maxBatch, len(defaultUnits))
	}

	svc, repo := newTestService()
	all := []Measurement{
		{Type: "BP", Value: "120/80"}, {Type: "T", Value: "98.6"}, {Type: "P", Value: "72"},
		{Type: "R", Value: "16"}, {Type: "PO2", Value: "97"}, {Type: "HT", Value: "70"},
		{Type: "WT", Value: "180"}, {Type: "PN", Value: "2"},
	}
	if _, err := svc.Record(context.Background(), "123456789", NewVitals{Measurements: all}); err != nil {
		t.Fatalf("expected all eight types accepted, got %v", err)
	}
	if len(repo.recorded) != 1 || len(repo.recorded[0]) != 8 {
		t.Fatalf("expected one batch of 8, got %v", repo.recorded)
	}

	over := append(append([]Measurement{}, all...), Measurement{Type: "P", Value: "80"})
	if _, err := svc.Record(context.Background(), "123456789", NewVitals{Measurements: over}); !isValidation(err) {
		t.Errorf("expected validation error for 9 measurements, got %v", err)
	}
}

func TestRecordIntakeOutput(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	bad := []NewIntakeOutput{
		{Kind: "drink", Category: "oral", AmountML: 100},
		{Kind: "intake", Category: "urine", AmountML: 100},
		{Kind: "output", Category: "urine", AmountML: 0},
		{Kind: "output", Category: "urine", AmountML: 20000},
	}
	for _, req := range bad {
		if _, err := svc.RecordIntakeOutput(ctx, "123456789", req); !isValidation(err) {
			t.Errorf("%+v: expected validation error, got %v", req, err)
		}
	}

	rec, err := svc.RecordIntakeOutput(ctx, "123456789", NewIntakeOutput{Kind: "Output", Category: "URINE", AmountML: 350})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "42" || rec.Kind != "output" || rec.Category != "urine" || rec.RecordedAt != "2024-03-10 14:30" {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(repo.ioSaved) != 1 || repo.ioSaved[0].RecordedAt == nil {
		t.Errorf("expected recorded_at defaulted, got %+v", repo.ioSaved)
	}
}

func TestListIntakeOutput_Kind(t *testing.T) {
	svc, repo := newTestService()
	repo.io["123456789"] = []IntakeOutputRecord{{ID: "1", Kind: "intake"}, {ID: "2", Kind: "output"}}

	got, err := svc.ListIntakeOutput(context.Background(), "123456789", "intake")
	if err != nil || len(got) != 1 || got[0].ID != "1" {
		t.Errorf("unexpected result %+v (%v)", got, err)
	}
	if _, err := svc.ListIntakeOutput(context.Background(), "123456789", "both"); !isValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
