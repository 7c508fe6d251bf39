package orders

// Medication is an inpatient or outpatient medication order.
type Medication struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Dose     string `json:"dose"`
	Route    string `json:"route"`
	Schedule string `json:"schedule"`
	Status   string `json:"status"`
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	Provider string `json:"provider"`
}

func (m Medication) Fields() map[string]string {
	return map[string]string{
		"name":     m.Name,
		"dose":     m.Dose,
		"route":    m.Route,
		"schedule": m.Schedule,
		"status":   m.Status,
		"start":    m.Start,
		"stop":     m.Stop,
		"provider": m.Provider,
	}
}

// LabOrder is a lab order with its result when one has been verified.
type LabOrder struct {
	ID          string `json:"id"`
	Test        string `json:"test"`
	Specimen    string `json:"specimen"`
	Status      string `json:"status"`
	CollectedAt string `json:"collected_at"`
	Result      string `json:"result"`
	Units       string `json:"units"`
	RefRange    string `json:"ref_range"`
	Abnormal    bool   `json:"abnormal"`
}

func (l LabOrder) Fields() map[string]string {
	abnormal := ""
	if l.Abnormal {
		abnormal = "abnormal"
	}
	return map[string]string{
		"test":         l.Test,
		"specimen":     l.Specimen,
		"status":       l.Status,
		"collected_at": l.CollectedAt,
		"result":       l.Result,
		"abnormal":     abnormal,
	}
}

// RadiologyEntry is a radiology order or completed exam.
type RadiologyEntry struct {
	ID          string `json:"id"`
	Procedure   string `json:"procedure"`
	Status      string `json:"status"`
	Urgency     string `json:"urgency"`
	RequestedAt string `json:"requested_at"`
	ExamDate    string `json:"exam_date"`
	Provider    string `json:"provider"`
	Report      string `json:"report,omitempty"`
}

func (r RadiologyEntry) Fields() map[string]string {
	return map[string]string{
		"procedure":    r.Procedure,
		"status":       r.Status,
		"urgency":      r.Urgency,
		"requested_at": r.RequestedAt,
		"exam_date":    r.ExamDate,
		"provider":     r.Provider,
	}
}

// NewRadiologyOrder is the body of a radiology order request.
type NewRadiologyOrder struct {
	Procedure string `json:"procedure"`
	Reason    string `json:"reason"`
	Urgency   string `json:"urgency"` // routine, urgent or stat
	Transport string `json:"transport"`
	Comment   string `json:"comment"`
}
