package leads

import (
	"strings"
	"testing"
)

func validSubmission() Submission {
	return Submission{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Phone:       "9495551234",
		ZipCode:     "92614",
		ProjectType: "kitchen",
		Budget:      "25k-plus",
	}
}

func TestValidateAccepted(t *testing.T) {
	sub := validSubmission()
	if errs := sub.Validate(ValidateOptions{}); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Submission)
		field   string
		mention string
	}{
		{"missing name", func(s *Submission) { s.Name = "  " }, "name", "required"},
		{"short first name", func(s *Submission) { s.Name = ""; s.FirstName = "J"; s.LastName = "Doe" }, "name", "first and last"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email", "required"},
		{"invalid email", func(s *Submission) { s.Email = "not-an-email" }, "email", "email"},
		{"email without tld", func(s *Submission) { s.Email = "jane@example" }, "email", "email"},
		{"missing phone", func(s *Submission) { s.Phone = "" }, "phone", "required"},
		{"short phone", func(s *Submission) { s.Phone = "555123" }, "phone", "10-digit"},
		{"missing zip", func(s *Submission) { s.ZipCode = "" }, "zipCode", "required"},
		{"short zip", func(s *Submission) { s.ZipCode = "926" }, "zipCode", "5 digits"},
		{"zip with letters", func(s *Submission) { s.ZipCode = "92a14" }, "zipCode", "5 digits"},
		{"missing project type", func(s *Submission) { s.ProjectType = "" }, "projectType", "project type"},
		{"unknown project type", func(s *Submission) { s.ProjectType = "moonbase" }, "projectType", "list"},
		{"missing budget", func(s *Submission) { s.Budget = "" }, "budget", "budget"},
		{"unknown budget", func(s *Submission) { s.Budget = "1M" }, "budget", "list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			errs := sub.Validate(ValidateOptions{})
			msg, ok := errs[tt.field]
			if !ok {
				t.Fatalf("expected error on %q, got %v", tt.field, errs)
			}
			if !strings.Contains(strings.ToLower(msg), strings.ToLower(tt.mention)) {
				t.Errorf("error %q should mention %q", msg, tt.mention)
			}
		})
	}
}

func TestValidateFormattedPhoneAccepted(t *testing.T) {
	sub := validSubmission()
	sub.Phone = "(949) 555-1234"
	if errs := sub.Validate(ValidateOptions{}); len(errs) != 0 {
		t.Fatalf("formatted phone should pass, got %v", errs)
	}
}

func TestValidateFirstLastPairAccepted(t *testing.T) {
	sub := validSubmission()
	sub.Name = ""
	sub.FirstName = "Jane"
	sub.LastName = "Doe"
	if errs := sub.Validate(ValidateOptions{}); len(errs) != 0 {
		t.Fatalf("first/last pair should pass, got %v", errs)
	}
	if sub.FullName() != "Jane Doe" {
		t.Errorf("FullName = %q", sub.FullName())
	}
}

func TestValidateServiceTypeVariantAccepted(t *testing.T) {
	sub := validSubmission()
	sub.ProjectType = ""
	sub.ServiceType = "bathroom"
	if errs := sub.Validate(ValidateOptions{}); len(errs) != 0 {
		t.Fatalf("serviceType variant should pass, got %v", errs)
	}
	if sub.Service() != "bathroom" {
		t.Errorf("Service = %q", sub.Service())
	}
}

func TestValidateServiceAreaAllowlist(t *testing.T) {
	opts := ValidateOptions{RestrictToServiceArea: true}

	sub := validSubmission()
	sub.ZipCode = "92614" // Irvine, inside the allow-list
	if errs := sub.Validate(opts); len(errs) != 0 {
		t.Fatalf("in-area zip should pass, got %v", errs)
	}

	sub.ZipCode = "90210" // outside the service area
	errs := sub.Validate(opts)
	if msg, ok := errs["zipCode"]; !ok || !strings.Contains(msg, "Orange County") {
		t.Fatalf("out-of-area zip should fail with service-area message, got %v", errs)
	}

	// Allow-list disabled: any 5-digit zip passes.
	if errs := sub.Validate(ValidateOptions{}); len(errs) != 0 {
		t.Fatalf("out-of-area zip should pass without the allow-list, got %v", errs)
	}
}

func TestFirstErrorPrefersEmail(t *testing.T) {
	errs := map[string]string{
		"budget": "Please select a budget range",
		"email":  "Please enter a valid email address",
		"name":   "Name is required",
	}
	if got := firstError(errs); !strings.Contains(got, "email") {
		t.Errorf("firstError = %q, want the email message", got)
	}
}
