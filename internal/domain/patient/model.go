package patient

// Patient is the demographic record shown in search results and headers.
type Patient struct {
	SSN        string `json:"ssn"`
	Name       string `json:"name"`
	Sex        string `json:"sex"`
	DOB        string `json:"dob"`
	Age        string `json:"age"`
	Ward       string `json:"ward"`
	RoomBed    string `json:"room_bed"`
	Attending  string `json:"attending"`
	AdmittedAt string `json:"admitted_at"`
	Last5      string `json:"last5"`
	Veteran    bool   `json:"veteran"`
}

// SearchQuery selects patients by one of name fragment, last-5 identifier or
// ward. Exactly one of Name and Last5 is set when Text was given.
type SearchQuery struct {
	Name  string
	Last5 string
	Ward  string
}

// Fields exposes display fields for list filtering and sorting.
func (p Patient) Fields() map[string]string {
	return map[string]string{
		"name":        p.Name,
		"last5":       p.Last5,
		"sex":         p.Sex,
		"dob":         p.DOB,
		"age":         p.Age,
		"ward":        p.Ward,
		"room_bed":    p.RoomBed,
		"attending":   p.Attending,
		"admitted_at": p.AdmittedAt,
	}
}
