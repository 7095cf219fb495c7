package customer

import (
	"time"

	"github.com/leadloop/leadloop/internal/extract"
)

const StatusLead = "lead"

// Customer is the canonical contact record, softly keyed by email.
type Customer struct {
	ID         string              `json:"id"`
	Firstname  string              `json:"firstname"`
	Lastname   string              `json:"lastname"`
	Email      string              `json:"email"`
	Phone      string              `json:"phone"`
	Status     string              `json:"status"`
	Source     string              `json:"source"`
	Notes      string              `json:"notes"`
	ResumeURL  string              `json:"resume_url,omitempty"`
	ResumeData *extract.ResumeInfo `json:"resume_data,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Patch carries candidate field values for resolution. Empty fields are
// ignored: a populated stored field is never overwritten by an absent one.
type Patch struct {
	Firstname  string
	Lastname   string
	Phone      string
	Source     string
	Notes      string
	ResumeURL  string
	ResumeData *extract.ResumeInfo
}
