package allergies

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/pkg/display"
)

const (
	endpointList = "apiAllergyList.sh"
	endpointSave = "apiAllergySave.sh"
)

// typeCodes maps allergy types to the backend's allergy type codes.
var typeCodes = map[string]string{"drug": "D", "food": "F", "other": "O"}

type allergyRow struct {
	IEN       backend.Flex `json:"AllergyIEN"`
	Allergen  string       `json:"Allergen"`
	Type      string       `json:"AllergyType"`
	Reactions string       `json:"Reactions"` // caret-delimited
	Severity  string       `json:"Severity"`
	Verified  string       `json:"Verified"`
	Entered   string       `json:"EnteredDate"`
}

func typeName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for name, c := range typeCodes {
		if code == c || code == strings.ToUpper(name) {
			return name
		}
	}
	// Mixed types such as "DF" are reported as-is.
	return display.NA(strings.ToLower(code))
}

func splitReactions(s string) []string {
	out := []string{}
	for _, r := range strings.Split(s, "^") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type backendRepo struct {
	client *backend.Client
}

func NewBackendRepo(client *backend.Client) Repository {
	return &backendRepo{client: client}
}

func (r *backendRepo) List(ctx context.Context, ssn string) ([]Allergy, error) {
	var rows []allergyRow
	if err := r.client.Fetch(ctx, endpointList, backend.Params{backend.FieldPatientSSN: ssn}, &rows); err != nil {
		return nil, fmt.Errorf("list allergies: %w", err)
	}
	out := make([]Allergy, 0, len(rows))
	for _, row := range rows {
		out = append(out, Allergy{
			ID:        string(row.IEN),
			Allergen:  display.NA(row.Allergen),
			Type:      typeName(row.Type),
			Reactions: splitReactions(row.Reactions),
			Severity:  display.NA(strings.ToLower(strings.TrimSpace(row.Severity))),
			Verified:  display.Bool(row.Verified),
			Entered:   display.Date(row.Entered),
		})
	}
	return out, nil
}

func (r *backendRepo) Create(ctx context.Context, ssn string, a NewAllergy) (string, error) {
	params := backend.Params{
		backend.FieldPatientSSN: ssn,
		"Allergen":              a.Allergen,
		"AllergyType":           typeCodes[a.Type],
		"Reactions":             strings.Join(a.Reactions, "^"),
	}
	if a.Severity != "" {
		params["Severity"] = strings.ToUpper(a.Severity)
	}
	if a.Comment != "" {
		params["Comment"] = a.Comment
	}

	var saved struct {
		IEN backend.Flex `json:"AllergyIEN"`
	}
	if err := r.client.Call(ctx, endpointSave, params, &saved); err != nil {
		return "", fmt.Errorf("save allergy: %w", err)
	}
	if err := r.client.InvalidatePatient(ctx, ssn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("allergy saved; patient cache not invalidated")
	}
	return string(saved.IEN), nil
}
