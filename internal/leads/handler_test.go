package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apexremodeling/lead-service/internal/notify"
	"github.com/apexremodeling/lead-service/internal/ratelimit"
)

type mockNotifier struct {
	leads   []notify.Lead
	callErr error
}

func (m *mockNotifier) NotifyNewLead(_ context.Context, lead notify.Lead) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.leads = append(m.leads, lead)
	return nil
}

func newTestHandler(notifier *mockNotifier, limiter ratelimit.Limiter, opts HandlerOptions) *Handler {
	return NewHandler(limiter, notifier, nil, nil, opts)
}

func postJSON(t *testing.T, h *Handler, body any, ip string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(raw))
	req.RemoteAddr = ip + ":51234"
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestSubmitAccepted(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, ratelimit.NewMemoryLimiter(5, 15*time.Minute), HandlerOptions{})

	w := postJSON(t, h, validSubmission(), "203.0.113.7")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if !resp.Success {
		t.Fatal("expected success response")
	}
	if len(notifier.leads) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.leads))
	}

	lead := notifier.leads[0]
	if lead.Name != "Jane Doe" || lead.Service != "kitchen" || lead.Budget != "25k-plus" {
		t.Errorf("unexpected lead payload: %+v", lead)
	}
	if lead.ClientIP != "203.0.113.7" {
		t.Errorf("client ip = %q", lead.ClientIP)
	}
	if lead.SubmittedAt.IsZero() {
		t.Error("submission timestamp not set")
	}
}

func TestSubmitHoneypotFabricatesSuccess(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, ratelimit.NewMemoryLimiter(5, 15*time.Minute), HandlerOptions{})

	sub := validSubmission()
	sub.Honeypot = "http://spam.example"
	w := postJSON(t, h, sub, "203.0.113.7")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp := decodeResponse(t, w); !resp.Success {
		t.Fatal("spam response must be indistinguishable from success")
	}
	if len(notifier.leads) != 0 {
		t.Fatalf("notifier must never run for spam, sent %d", len(notifier.leads))
	}
}

func TestSubmitHoneypotDoesNotConsumeRateBudget(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, ratelimit.NewMemoryLimiter(1, 15*time.Minute), HandlerOptions{})

	spam := validSubmission()
	spam.Honeypot = "filled"
	for i := 0; i < 3; i++ {
		if w := postJSON(t, h, spam, "203.0.113.7"); w.Code != http.StatusOK {
			t.Fatalf("spam request %d: status %d", i, w.Code)
		}
	}

	// The genuine visitor still has their full budget.
	if w := postJSON(t, h, validSubmission(), "203.0.113.7"); w.Code != http.StatusOK {
		t.Fatalf("legitimate request blocked after spam traffic: %d", w.Code)
	}
}

func TestSubmitInvalidEmail(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, ratelimit.NewMemoryLimiter(5, 15*time.Minute), HandlerOptions{})

	sub := validSubmission()
	sub.Email = "not-an-email"
	w := postJSON(t, h, sub, "203.0.113.7")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Success {
		t.Fatal("invalid submission must not report success")
	}
	if !strings.Contains(strings.ToLower(resp.Error), "email") {
		t.Errorf("error %q should mention email", resp.Error)
	}
	if _, ok := resp.Fields["email"]; !ok {
		t.Errorf("expected field error for email, got %v", resp.Fields)
	}
	if len(notifier.leads) != 0 {
		t.Fatal("notifier must never run for invalid submissions")
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, nil, HandlerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{not json"))
	req.RemoteAddr = "203.0.113.7:1000"
	w := httptest.NewRecorder()
	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(notifier.leads) != 0 {
		t.Fatal("notifier must not run for malformed bodies")
	}
}

func TestSubmitRateLimited(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, ratelimit.NewMemoryLimiter(3, 15*time.Minute), HandlerOptions{})

	for i := 0; i < 3; i++ {
		if w := postJSON(t, h, validSubmission(), "203.0.113.7"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, w.Code)
		}
	}

	w := postJSON(t, h, validSubmission(), "203.0.113.7")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request: status = %d, want 429", w.Code)
	}
	resp := decodeResponse(t, w)
	if !strings.Contains(resp.Error, "try again in") || !strings.Contains(resp.Error, "minutes") {
		t.Errorf("retry-after hint missing from %q", resp.Error)
	}
	if len(notifier.leads) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notifier.leads))
	}

	// A different identifier is unaffected.
	if w := postJSON(t, h, validSubmission(), "198.51.100.9"); w.Code != http.StatusOK {
		t.Fatalf("other client blocked: %d", w.Code)
	}
}

func TestSubmitDispatchFailure(t *testing.T) {
	notifier := &mockNotifier{callErr: &notify.DispatchError{Kind: notify.KindAuth, Err: errors.New("535 rejected")}}
	h := newTestHandler(notifier, nil, HandlerOptions{FallbackPhone: "(949) 432-0359"})

	w := postJSON(t, h, validSubmission(), "203.0.113.7")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeResponse(t, w)
	if strings.Contains(resp.Error, "535") || strings.Contains(strings.ToLower(resp.Error), "auth") {
		t.Errorf("raw relay error leaked to the client: %q", resp.Error)
	}
	if !strings.Contains(resp.Error, "(949) 432-0359") {
		t.Errorf("fallback phone missing from %q", resp.Error)
	}
}

func TestSubmitSanitizesFields(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, nil, HandlerOptions{MaxMessageLength: 2000})

	sub := validSubmission()
	sub.Name = "  Jane <script>alert(1)</script>Doe  "
	sub.Phone = "(949) 555-1234"
	sub.ZipCode = "92614"
	sub.Message = "<b>Need</b> a kitchen & bath redo"
	w := postJSON(t, h, sub, "203.0.113.7")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	lead := notifier.leads[0]
	if strings.Contains(lead.Name, "<script>") {
		t.Errorf("script tag survived sanitization: %q", lead.Name)
	}
	if lead.Phone != "(949) 555-1234" {
		t.Errorf("phone = %q", lead.Phone)
	}
	if strings.Contains(lead.Message, "<b>") {
		t.Errorf("markup survived in message: %q", lead.Message)
	}
	if !strings.Contains(lead.Message, "kitchen &amp; bath") {
		t.Errorf("ampersand should be escaped once: %q", lead.Message)
	}
}

func TestSubmitClientIPFromRemoteAddr(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, nil, HandlerOptions{})

	raw, _ := json.Marshal(validSubmission())
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(raw))
	// RealIP has already folded any proxy headers into RemoteAddr by
	// the time the handler runs; a raw header must not override it.
	req.RemoteAddr = "203.0.113.50:9999"
	req.Header.Set("X-Real-Ip", "198.51.100.99")
	w := httptest.NewRecorder()
	h.Submit(w, req)

	if w.Code != http.StatusOK {
		t.Fatal(w.Code)
	}
	if notifier.leads[0].ClientIP != "203.0.113.50" {
		t.Errorf("client ip = %q, want connection address", notifier.leads[0].ClientIP)
	}
}

func TestSubmitStripsNewlinesFromName(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, nil, HandlerOptions{})

	sub := validSubmission()
	sub.Name = "Jane Doe\r\nBcc: attacker@evil.example"
	w := postJSON(t, h, sub, "203.0.113.7")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if got := notifier.leads[0].Name; strings.ContainsAny(got, "\r\n") {
		t.Errorf("newline reached the notification payload: %q", got)
	}
}

func TestSubmitRateLimiterFailureAdmits(t *testing.T) {
	notifier := &mockNotifier{}
	h := newTestHandler(notifier, failingLimiter{}, HandlerOptions{})

	if w := postJSON(t, h, validSubmission(), "203.0.113.7"); w.Code != http.StatusOK {
		t.Fatalf("limiter outage must not block intake, got %d", w.Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}
