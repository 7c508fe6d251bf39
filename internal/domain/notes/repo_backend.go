package notes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointNoteList = "apiCLNoteList.sh"
	endpointNoteText = "apiCLNoteText.sh"
	endpointNoteSave = "apiCLNoteSave.sh"
	endpointDCList   = "apiDCSumList.sh"
	endpointDCText   = "apiDCSumText.sh"
)

// documentRow is shared by notes and discharge summaries, which the backend
// stores as the same TIU document type.
type documentRow struct {
	IEN      backend.Flex `json:"NoteIEN"`
	Title    string       `json:"Title"`
	Author   string       `json:"Author"`
	Date     string       `json:"EntryDate"`
	Status   string       `json:"Status"`
	Location string       `json:"Location"`
	Text     backend.Text `json:"Text"`
}

func (r documentRow) toNote() ClinicalNote {
	return ClinicalNote{
		ID:       string(r.IEN),
		Title:    display.NA(r.Title),
		Author:   display.NA(r.Author),
		Date:     display.Date(r.Date),
		Status:   display.NA(r.Status),
		Location: display.NA(r.Location),
		Text:     string(r.Text),
	}
}

func (r documentRow) toSummary() DischargeSummary {
	return DischargeSummary{
		ID:     string(r.IEN),
		Title:  display.NA(r.Title),
		Author: display.NA(r.Author),
		Date:   display.Date(r.Date),
		Status: display.NA(r.Status),
		Text:   string(r.Text),
	}
}

func fetchDocuments(ctx context.Context, c *backend.Client, endpoint, ssn string) ([]documentRow, error) {
	var rows []documentRow
	err := c.Fetch(ctx, endpoint, backend.Params{backend.FieldPatientSSN: ssn}, &rows)
	return rows, err
}

func fetchDocument(ctx context.Context, c *backend.Client, endpoint, ssn, id string) (*documentRow, error) {
	var row *documentRow
	err := c.Fetch(ctx, endpoint, backend.Params{
		backend.FieldPatientSSN: ssn,
		"NoteIEN":               id,
	}, &row)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if row.IEN == "" {
		row.IEN = backend.Flex(id)
	}
	return row, nil
}

type noteRepo struct {
	client *backend.Client
}

func NewNoteRepo(client *backend.Client) NoteRepository {
	return &noteRepo{client: client}
}

func (r *noteRepo) List(ctx context.Context, ssn string) ([]ClinicalNote, error) {
	rows, err := fetchDocuments(ctx, r.client, endpointNoteList, ssn)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make([]ClinicalNote, 0, len(rows))
	for _, row := range rows {
		n := row.toNote()
		n.Text = ""
		out = append(out, n)
	}
	return out, nil
}

func (r *noteRepo) Get(ctx context.Context, ssn, id string) (*ClinicalNote, error) {
	row, err := fetchDocument(ctx, r.client, endpointNoteText, ssn, id)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if row == nil {
		return nil, apierror.NotFound("note")
	}
	n := row.toNote()
	return &n, nil
}

func (r *noteRepo) Create(ctx context.Context, ssn string, n NewNote) (string, error) {
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"NoteTitle":             n.Title,
		"NoteText":              n.Text,
	}
	if n.Location != "" {
		params["VisitLocation"] = n.Location
	}

	var saved struct {
		IEN backend.Flex `json:"NoteIEN"`
	}
	if err := r.client.Call(ctx, endpointNoteSave, params, &saved); err != nil {
		return "", fmt.Errorf("save note: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("note saved; patient cache not invalidated")
	}
	return string(saved.IEN), nil
}

type dischargeRepo struct {
	client *backend.Client
}

func NewDischargeSummaryRepo(client *backend.Client) DischargeSummaryRepository {
	return &dischargeRepo{client: client}
}

func (r *dischargeRepo) List(ctx context.Context, ssn string) ([]DischargeSummary, error) {
	rows, err := fetchDocuments(ctx, r.client, endpointDCList, ssn)
	if err != nil {
		return nil, fmt.Errorf("list discharge summaries: %w", err)
	}
	out := make([]DischargeSummary, 0, len(rows))
	for _, row := range rows {
		d := row.toSummary()
		d.Text = ""
		out = append(out, d)
	}
	return out, nil
}

func (r *dischargeRepo) Get(ctx context.Context, ssn, id string) (*DischargeSummary, error) {
	row, err := fetchDocument(ctx, r.client, endpointDCText, ssn, id)
	if err != nil {
		return nil, fmt.Errorf("get discharge summary: %w", err)
	}
	if row == nil {
		return nil, apierror.NotFound("discharge summary")
	}
	d := row.toSummary()
	return &d, nil
}
