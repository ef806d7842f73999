package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/apexremodeling/lead-service/internal/notify"
	"github.com/apexremodeling/lead-service/internal/observability/metrics"
	"github.com/apexremodeling/lead-service/internal/ratelimit"
	"github.com/apexremodeling/lead-service/internal/sanitize"
	"github.com/apexremodeling/lead-service/pkg/logging"
)

const genericSendError = "There was an error sending your message. Please try again."

// Notifier dispatches the staff email for an admitted submission.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead notify.Lead) error
}

// HandlerOptions tunes the submission pipeline.
type HandlerOptions struct {
	// RestrictToServiceArea enables the Orange County zip allow-list.
	RestrictToServiceArea bool
	// MaxMessageLength caps the free-text message after sanitization.
	MaxMessageLength int
	// FallbackPhone, when set, is appended to the generic 500 message
	// so callers have a second channel.
	FallbackPhone string
}

// Handler runs the lead submission pipeline: honeypot gate →
// validation → rate limit → sanitization → notification.
type Handler struct {
	limiter  ratelimit.Limiter
	notifier Notifier
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
	opts     HandlerOptions
}

// NewHandler creates a lead submission handler.
func NewHandler(limiter ratelimit.Limiter, notifier Notifier, m *metrics.LeadMetrics, logger *logging.Logger, opts HandlerOptions) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 2000
	}
	return &Handler{
		limiter:  limiter,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

type response struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Submit handles POST /api/contact requests.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.logger.Warn("failed to decode submission", "error", err)
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, response{Error: "Invalid request body"})
		return
	}
	sub.SubmittedAt = time.Now().UTC()
	sub.ClientIP = clientIP(r)
	sub.UserAgent = r.UserAgent()

	// Honeypot gate runs before rate-limit accounting so bot traffic
	// never consumes a legitimate visitor's budget. The fabricated
	// success is deliberate: a rejection would invite retries.
	if sub.IsSpam() {
		h.logger.Info("honeypot triggered, dropping submission",
			"client_ip", sub.ClientIP,
			"honeypot", sanitize.Clean(sub.Honeypot, 100),
		)
		h.metrics.ObserveSubmission(metrics.OutcomeSpam)
		writeJSON(w, http.StatusOK, response{Success: true})
		return
	}

	if errs := sub.Validate(ValidateOptions{RestrictToServiceArea: h.opts.RestrictToServiceArea}); len(errs) > 0 {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, response{Error: firstError(errs), Fields: errs})
		return
	}

	if h.limiter != nil {
		decision, err := h.limiter.Check(r.Context(), sub.ClientIP)
		if err != nil {
			// Fail open: the limiter is abuse protection, not a gate.
			h.logger.Error("rate limit check failed, admitting request", "error", err, "client_ip", sub.ClientIP)
		} else if !decision.Allowed {
			minutes := int(math.Ceil(time.Until(decision.ResetAt).Minutes()))
			if minutes < 1 {
				minutes = 1
			}
			h.logger.Warn("rate limit exceeded",
				"client_ip", sub.ClientIP,
				"reset_at", decision.ResetAt,
			)
			h.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
			writeJSON(w, http.StatusTooManyRequests, response{
				Error: fmt.Sprintf("Too many submissions. Please try again in %d minutes.", minutes),
			})
			return
		}
	}

	lead := h.sanitized(&sub)

	start := time.Now()
	if err := h.notifier.NotifyNewLead(r.Context(), lead); err != nil {
		h.metrics.ObserveDispatch("email", "error", time.Since(start).Seconds())
		h.metrics.ObserveSubmission(metrics.OutcomeDispatchError)
		msg := genericSendError
		if h.opts.FallbackPhone != "" {
			msg = fmt.Sprintf("%s Or call us at %s.", genericSendError, h.opts.FallbackPhone)
		}
		writeJSON(w, http.StatusInternalServerError, response{Error: msg})
		return
	}
	h.metrics.ObserveDispatch("email", "ok", time.Since(start).Seconds())

	h.logger.Info("lead accepted",
		"name", lead.Name,
		"service", lead.Service,
		"zip", lead.ZipCode,
		"client_ip", lead.ClientIP,
	)
	h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	writeJSON(w, http.StatusOK, response{Success: true})
}

// sanitized maps the raw submission to the notification payload,
// cleaning every field on the way.
func (h *Handler) sanitized(sub *Submission) notify.Lead {
	return notify.Lead{
		Name:        sanitize.Clean(sub.FullName(), 200),
		Email:       sanitize.Clean(sub.Email, 254),
		Phone:       sanitize.Phone(sub.Phone),
		ZipCode:     sanitize.ZipCode(sub.ZipCode),
		Service:     sanitize.Clean(sub.Service(), 50),
		Budget:      sanitize.Clean(sub.Budget, 50),
		Message:     sanitize.Clean(sub.Message, h.opts.MaxMessageLength),
		ClientIP:    sub.ClientIP,
		UserAgent:   sanitize.Clean(sub.UserAgent, 300),
		SubmittedAt: sub.SubmittedAt,
	}
}

// clientIP returns the peer address without the port. chi's RealIP
// middleware rewrites RemoteAddr from the proxy headers before this
// runs; reading those headers here would trust an unvalidated value.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
