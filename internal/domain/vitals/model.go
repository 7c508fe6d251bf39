package vitals

import "time"

// Vital is a single vital sign measurement.
type Vital struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Value     string `json:"value"`
	Units     string `json:"units"`
	TakenAt   string `json:"taken_at"`
	EnteredBy string `json:"entered_by"`
}

func (v Vital) Fields() map[string]string {
	return map[string]string{
		"type":       v.Type,
		"value":      v.Value,
		"units":      v.Units,
		"taken_at":   v.TakenAt,
		"entered_by": v.EnteredBy,
	}
}

// Measurement is one type/value pair in a record request.
type Measurement struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Units string `json:"units"`
}

// NewVitals is a batch of measurements taken together.
type NewVitals struct {
	TakenAt      *time.Time    `json:"taken_at"` // defaults to now
	Measurements []Measurement `json:"measurements"`
}

// IntakeOutputRecord is one fluid intake or output entry.
type IntakeOutputRecord struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Category   string  `json:"category"`
	AmountML   float64 `json:"amount_ml"`
	RecordedAt string  `json:"recorded_at"`
	Shift      string  `json:"shift"`
	EnteredBy  string  `json:"entered_by"`
}

func (r IntakeOutputRecord) Fields() map[string]string {
	return map[string]string{
		"kind":        r.Kind,
		"category":    r.Category,
		"recorded_at": r.RecordedAt,
		"shift":       r.Shift,
		"entered_by":  r.EnteredBy,
	}
}

// NewIntakeOutput is the body of an intake/output record request.
type NewIntakeOutput struct {
	Kind       string     `json:"kind"` // intake or output
	Category   string     `json:"category"`
	AmountML   float64    `json:"amount_ml"`
	RecordedAt *time.Time `json:"recorded_at"` // defaults to now
}
