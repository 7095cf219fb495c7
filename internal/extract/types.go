package extract

// ResumeInfo is the best-effort structured record produced by the language
// model. Every field is optional; callers must tolerate an empty record.
type ResumeInfo struct {
	Firstname  string   `json:"firstname,omitempty"`
	Lastname   string   `json:"lastname,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Experience []string `json:"experience,omitempty"`
	Education  []string `json:"education,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

func (r ResumeInfo) IsEmpty() bool {
	return r.Firstname == "" && r.Lastname == "" && r.Email == "" &&
		r.Phone == "" && len(r.Skills) == 0 && len(r.Experience) == 0 &&
		len(r.Education) == 0 && r.Summary == ""
}

// Outcome tags a document extraction result so callers can tell "no data"
// apart from "format I can't handle" and "extraction blew up".
type Outcome string

const (
	OutcomeExtracted   Outcome = "extracted"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
)

// DocumentText is the result of text extraction. Text is always populated:
// unsupported and failed outcomes carry an explanatory placeholder that is
// still forwarded downstream as document text.
type DocumentText struct {
	Text    string
	Outcome Outcome
}
