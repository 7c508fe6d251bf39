package notes

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/internal/platform/backend/backendtest"
	"github.com/ehr/gateway/internal/platform/cache"
	"github.com/ehr/gateway/pkg/display"
)

func TestNoteRepo_List(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointNoteList, []map[string]any{
		{"NoteIEN": 4512, "Title": "NURSING NOTE", "Author": "NURSE,ONE", "EntryDate": "3240115.143", "Status": "COMPLETED", "Text": "ignored in lists"},
		{"NoteIEN": "4513", "Title": ""},
	})

	got, err := NewNoteRepo(fake.Client(nil)).List(context.Background(), "123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(got))
	}
	if got[0].ID != "4512" || got[0].Date != "2024-01-15 14:30" || got[0].Text != "" {
		t.Errorf("unexpected note %+v", got[0])
	}
	if got[1].Title != display.NotAvailable || got[1].Date != display.NotAvailable {
		t.Errorf("expected N/A defaults, got %+v", got[1])
	}
}

func TestNoteRepo_GetText(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointNoteText, map[string]any{
		"Title": "PRIMARY CARE NOTE",
		"Text":  []string{"SUBJECTIVE: doing well", "PLAN: follow up"},
	})

	n, err := NewNoteRepo(fake.Client(nil)).Get(context.Background(), "123456789", "4512")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "4512" || n.Text != "SUBJECTIVE: doing well\nPLAN: follow up" {
		t.Errorf("unexpected note %+v", n)
	}
	if fake.Last(endpointNoteText)["NoteIEN"] != "4512" {
		t.Error("expected NoteIEN in request")
	}
}

func TestNoteRepo_GetMissing(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointNoteText, nil)

	_, err := NewNoteRepo(fake.Client(nil)).Get(context.Background(), "123456789", "1")
	var nf *apierror.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestNoteRepo_CreateInvalidatesCachedList(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointNoteList, []map[string]any{{"NoteIEN": "1"}})
	fake.ReplyData(endpointNoteSave, map[string]any{"NoteIEN": "2"})
	repo := NewNoteRepo(fake.Client(cache.NewMemoryStore()))
	ctx := context.Background()

	repo.List(ctx, "123456789")
	repo.List(ctx, "123456789")
	if n := len(fake.Requests(endpointNoteList)); n != 1 {
		t.Fatalf("expected second list to be served from cache, got %d calls", n)
	}

	id, err := repo.Create(ctx, "123456789", NewNote{Title: "NOTE", Text: "text", Location: "3A"})
	if err != nil || id != "2" {
		t.Fatalf("unexpected create result %q %v", id, err)
	}
	body := fake.Last(endpointNoteSave)
	if body["NoteTitle"] != "NOTE" || body["VisitLocation"] != "3A" || body[backend.FieldPatientSSN] != "123456789" {
		t.Errorf("unexpected save body %v", body)
	}

	repo.List(ctx, "123456789")
	if n := len(fake.Requests(endpointNoteList)); n != 2 {
		t.Errorf("expected list to refetch after save, got %d calls", n)
	}
}

func TestDischargeRepo(t *testing.T) {
	fake := backendtest.New(t)
	fake.ReplyData(endpointDCList, []map[string]any{{"NoteIEN": "700", "Title": "DISCHARGE SUMMARY", "Status": "COMPLETED"}})
	fake.ReplyData(endpointDCText, map[string]any{"NoteIEN": "700", "Text": "Discharged home."})
	repo := NewDischargeSummaryRepo(fake.Client(nil))

	list, err := repo.List(context.Background(), "123456789")
	if err != nil || len(list) != 1 || list[0].Status != "COMPLETED" {
		t.Fatalf("unexpected list %v %v", list, err)
	}
	d, err := repo.Get(context.Background(), "123456789", "700")
	if err != nil || d.Text != "Discharged home." {
		t.Errorf("unexpected summary %v %v", d, err)
	}
}
