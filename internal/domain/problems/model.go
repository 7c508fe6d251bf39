package problems

// Problem is an entry on the patient's problem list.
type Problem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ICDCode     string `json:"icd_code"`
	Status      string `json:"status"` // active, inactive, or the backend's own value
	Onset       string `json:"onset"`
	RecordedBy  string `json:"recorded_by"`
}

func (p Problem) Fields() map[string]string {
	return map[string]string{
		"description": p.Description,
		"icd_code":    p.ICDCode,
		"status":      p.Status,
		"onset":       p.Onset,
		"recorded_by": p.RecordedBy,
	}
}

// Diagnosis is an encounter diagnosis.
type Diagnosis struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ICDCode     string `json:"icd_code"`
	Primary     bool   `json:"primary"`
	Date        string `json:"date"`
	Provider    string `json:"provider"`
}

func (d Diagnosis) Fields() map[string]string {
	primary := "secondary"
	if d.Primary {
		primary = "primary"
	}
	return map[string]string{
		"description": d.Description,
		"icd_code":    d.ICDCode,
		"primary":     primary,
		"date":        d.Date,
		"provider":    d.Provider,
	}
}

// NewProblem is the body of a problem create request.
type NewProblem struct {
	Description string `json:"description"`
	ICDCode     string `json:"icd_code"`
	Onset       string `json:"onset"` // YYYY-MM-DD, optional
	Status      string `json:"status"`
}
