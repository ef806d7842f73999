package leads

import (
	"strings"
	"time"
)

// Submission is a contact-form payload as posted by the website. Both
// form variants are accepted: a single name or a first/last pair, and
// either projectType or serviceType for the service category.
// Submissions are transient; they are never written to durable
// storage.
type Submission struct {
	Name        string `json:"name"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ZipCode     string `json:"zipCode"`
	ProjectType string `json:"projectType"`
	ServiceType string `json:"serviceType"`
	Budget      string `json:"budget"`
	Message     string `json:"message"`
	Honeypot    string `json:"honeypot"`

	// Filled in server-side, never decoded from the body.
	SubmittedAt time.Time `json:"-"`
	ClientIP    string    `json:"-"`
	UserAgent   string    `json:"-"`
}

// FullName returns the single name field when present, otherwise the
// joined first/last pair.
func (s *Submission) FullName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}

// Service returns the submitted service category, preferring
// projectType over serviceType.
func (s *Submission) Service() string {
	if v := strings.TrimSpace(s.ProjectType); v != "" {
		return v
	}
	return strings.TrimSpace(s.ServiceType)
}

// IsSpam reports whether the hidden honeypot field was filled in.
// Humans never see the field; any value means an automated sender.
func (s *Submission) IsSpam() bool {
	return strings.TrimSpace(s.Honeypot) != ""
}

// projectTypes covers the options of both form variants.
var projectTypes = map[string]struct{}{
	"kitchen":  {},
	"bathroom": {},
	"both":     {},
	"addition": {},
	"interior": {},
	"exterior": {},
	"sunroom":  {},
	"multiple": {},
	"other":    {},
}

// budgets covers the brackets of both form variants.
var budgets = map[string]struct{}{
	"under-10k": {},
	"10k-15k":   {},
	"15k-25k":   {},
	"10k-25k":   {},
	"25k-50k":   {},
	"50k-75k":   {},
	"25k-plus":  {},
	"75k-plus":  {},
}
