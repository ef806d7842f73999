package leads

import (
	"regexp"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ocZipRanges is the Orange County service area. Only enforced when
// the allow-list is enabled in config.
var ocZipRanges = [][2]int{
	{92601, 92649},
	{92703, 92714},
}

// ValidateOptions tunes submission validation.
type ValidateOptions struct {
	// RestrictToServiceArea rejects zip codes outside ocZipRanges.
	RestrictToServiceArea bool
}

// fieldOrder fixes which error becomes the top-level message.
var fieldOrder = []string{"email", "name", "phone", "zipCode", "projectType", "budget"}

// Validate checks every field and returns a field → message map. An
// empty map means the submission is valid. Validate is pure; it never
// mutates the submission.
func (s *Submission) Validate(opts ValidateOptions) map[string]string {
	errs := make(map[string]string)

	if s.FullName() == "" {
		errs["name"] = "Name is required"
	} else if strings.TrimSpace(s.Name) == "" {
		// First/last variant: each part needs some substance.
		if len(strings.TrimSpace(s.FirstName)) < 2 || len(strings.TrimSpace(s.LastName)) < 2 {
			errs["name"] = "Please enter your first and last name"
		}
	}

	if strings.TrimSpace(s.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(strings.TrimSpace(s.Email)) {
		errs["email"] = "Please enter a valid email address"
	}

	if strings.TrimSpace(s.Phone) == "" {
		errs["phone"] = "Phone number is required"
	} else if len(digitsOf(s.Phone)) != 10 {
		errs["phone"] = "Please enter a valid 10-digit phone number"
	}

	zip := digitsOf(s.ZipCode)
	switch {
	case strings.TrimSpace(s.ZipCode) == "":
		errs["zipCode"] = "ZIP code is required"
	case len(zip) != 5 || len(digitsOf(s.ZipCode)) != len(strings.TrimSpace(s.ZipCode)):
		errs["zipCode"] = "ZIP code must be 5 digits"
	case opts.RestrictToServiceArea && !inServiceArea(zip):
		errs["zipCode"] = "Sorry, we only service Orange County at this time"
	}

	if s.Service() == "" {
		errs["projectType"] = "Please select a project type"
	} else if _, ok := projectTypes[s.Service()]; !ok {
		errs["projectType"] = "Please select a project type from the list"
	}

	if strings.TrimSpace(s.Budget) == "" {
		errs["budget"] = "Please select a budget range"
	} else if _, ok := budgets[strings.TrimSpace(s.Budget)]; !ok {
		errs["budget"] = "Please select a budget range from the list"
	}

	return errs
}

// firstError picks the top-level message for a 400 response in a
// stable order.
func firstError(errs map[string]string) string {
	for _, field := range fieldOrder {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return ""
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func inServiceArea(zip string) bool {
	n, err := strconv.Atoi(zip)
	if err != nil {
		return false
	}
	for _, r := range ocZipRanges {
		if n >= r[0] && n <= r[1] {
			return true
		}
	}
	return false
}
