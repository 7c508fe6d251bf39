package notes

// ClinicalNote is a progress note. Text is only filled on detail reads.
type ClinicalNote struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Text     string `json:"text,omitempty"`
}

func (n ClinicalNote) Fields() map[string]string {
	return map[string]string{
		"id":       n.ID,
		"title":    n.Title,
		"author":   n.Author,
		"date":     n.Date,
		"status":   n.Status,
		"location": n.Location,
	}
}

// DischargeSummary is a discharge summary document.
type DischargeSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

func (d DischargeSummary) Fields() map[string]string {
	return map[string]string{
		"id":     d.ID,
		"title":  d.Title,
		"author": d.Author,
		"date":   d.Date,
		"status": d.Status,
	}
}

// NewNote is the body of a note create request.
type NewNote struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Location string `json:"location"`
}
