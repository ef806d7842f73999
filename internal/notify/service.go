package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apexremodeling/lead-service/pkg/logging"
)

// Lead carries the submission fields the notification email is built
// from. Fields must already be sanitized (HTML-neutralized); they are
// interpolated into the HTML body as-is.
type Lead struct {
	Name        string
	Email       string
	Phone       string
	ZipCode     string
	Service     string
	Budget      string
	Message     string
	ClientIP    string
	UserAgent   string
	SubmittedAt time.Time
}

// LeadNotifier composes and dispatches the staff notification for a
// new lead.
type LeadNotifier struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

// NewLeadNotifier creates a lead notifier. recipient is the staff
// inbox leads are delivered to.
func NewLeadNotifier(sender EmailSender, recipient string, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{sender: sender, recipient: recipient, logger: logger}
}

// NotifyNewLead sends exactly one email for the submission. The
// Reply-To header is set to the submitter so staff can respond
// directly. Failures are returned as *DispatchError; there is no
// retry.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, lead Lead) error {
	if n.sender == nil {
		return &DispatchError{Kind: KindGeneric, Err: errors.New("notify: no email sender configured")}
	}
	if n.recipient == "" {
		return &DispatchError{Kind: KindGeneric, Err: errors.New("notify: no recipient configured")}
	}

	msg := EmailMessage{
		To:      n.recipient,
		ReplyTo: lead.Email,
		Subject: fmt.Sprintf("New Lead: %s - %s", lead.Name, lead.Service),
		Body:    n.textBody(lead),
		HTML:    n.htmlBody(lead),
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		var de *DispatchError
		if !errors.As(err, &de) {
			de = &DispatchError{Kind: KindGeneric, Err: err}
		}
		n.logger.Error("lead notification failed",
			"kind", de.Kind.String(),
			"error", de.Err,
			"lead_email", lead.Email,
			"client_ip", lead.ClientIP,
		)
		return de
	}

	n.logger.Info("lead notification sent", "lead_email", lead.Email, "service", lead.Service)
	return nil
}

const divider = "──────────────────────────────"

func (n *LeadNotifier) textBody(lead Lead) string {
	var b strings.Builder
	b.WriteString("New Lead Form Submission\n\n")

	b.WriteString(divider + "\nCONTACT INFORMATION\n" + divider + "\n\n")
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Phone: %s\n", orFallback(lead.Phone, "Not provided"))
	fmt.Fprintf(&b, "ZIP Code: %s\n", orFallback(lead.ZipCode, "Not provided"))

	b.WriteString("\n" + divider + "\nPROJECT DETAILS\n" + divider + "\n\n")
	fmt.Fprintf(&b, "Service Type: %s\n", orFallback(lead.Service, "General Inquiry"))
	fmt.Fprintf(&b, "Budget: %s\n", orFallback(lead.Budget, "Not specified"))

	if lead.Message != "" {
		b.WriteString("\n" + divider + "\nMESSAGE\n" + divider + "\n\n")
		b.WriteString(lead.Message + "\n")
	}

	b.WriteString("\n" + divider + "\nMETADATA\n" + divider + "\n\n")
	fmt.Fprintf(&b, "Submitted: %s\n", lead.SubmittedAt.Format("January 2, 2006 at 3:04 PM MST"))
	fmt.Fprintf(&b, "Client IP: %s\n", orFallback(lead.ClientIP, "Unknown"))
	fmt.Fprintf(&b, "User Agent: %s\n", orFallback(lead.UserAgent, "Unknown"))

	b.WriteString("\nReply directly to this email to contact the customer.\n")
	return b.String()
}

func (n *LeadNotifier) htmlBody(lead Lead) string {
	rows := [][2]string{
		{"Name", lead.Name},
		{"Email", lead.Email},
		{"Phone", orFallback(lead.Phone, "Not provided")},
		{"ZIP Code", orFallback(lead.ZipCode, "Not provided")},
		{"Service Type", orFallback(lead.Service, "General Inquiry")},
		{"Budget", orFallback(lead.Budget, "Not specified")},
	}
	if lead.Message != "" {
		rows = append(rows, [2]string{"Message", lead.Message})
	}
	rows = append(rows,
		[2]string{"Submitted", lead.SubmittedAt.Format("January 2, 2006 at 3:04 PM MST")},
		[2]string{"Client IP", orFallback(lead.ClientIP, "Unknown")},
	)

	var b strings.Builder
	b.WriteString("<h2>New Lead Form Submission</h2>")
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><th align="left">%s</th><td>%s</td></tr>`, row[0], row[1])
	}
	b.WriteString("</table>")
	b.WriteString("<p>Reply directly to this email to contact the customer.</p>")
	return b.String()
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
