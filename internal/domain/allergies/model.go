package allergies

import "strings"

// Allergy is an allergy or adverse reaction on file for a patient.
type Allergy struct {
	ID        string   `json:"id"`
	Allergen  string   `json:"allergen"`
	Type      string   `json:"type"`
	Reactions []string `json:"reactions"`
	Severity  string   `json:"severity"`
	Verified  bool     `json:"verified"`
	Entered   string   `json:"entered_at"`
}

func (a Allergy) Fields() map[string]string {
	return map[string]string{
		"allergen":   a.Allergen,
		"type":       a.Type,
		"reactions":  strings.Join(a.Reactions, ", "),
		"severity":   a.Severity,
		"entered_at": a.Entered,
	}
}

// NewAllergy is the body of an allergy create request.
type NewAllergy struct {
	Allergen  string   `json:"allergen"`
	Type      string   `json:"type"` // drug, food or other
	Reactions []string `json:"reactions"`
	Severity  string   `json:"severity"` // mild, moderate or severe; optional
	Comment   string   `json:"comment"`
}
