package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/apexremodeling/lead-service/pkg/logging"
)

const smtpDialTimeout = 10 * time.Second

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SMTPConfig holds configuration for the SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
}

// NewSMTPSender creates an SMTP email sender, or nil when credentials
// are missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.FromName == "" {
		cfg.FromName = "Apex Remodeling"
	}
	return &SMTPSender{
		host:      cfg.Host,
		port:      cfg.Port,
		username:  cfg.Username,
		password:  cfg.Password,
		fromEmail: cfg.Username,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Verify dials the relay and authenticates, then disconnects. Called
// at startup so credential problems surface before the first lead.
func (s *SMTPSender) Verify(ctx context.Context) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Quit(); err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp quit: %w", err)}
	}
	return nil
}

// Send delivers one message through the relay.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	client, err := s.connect(ctx)
	if err != nil {
		s.logger.Error("smtp connect failed", "error", err, "host", s.host)
		return err
	}
	defer client.Close()

	if err := client.Mail(s.fromEmail); err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp mail from: %w", err)}
	}
	if err := client.Rcpt(msg.To); err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp rcpt to: %w", err)}
	}

	w, err := client.Data()
	if err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp data: %w", err)}
	}
	if _, err := w.Write([]byte(s.encode(msg))); err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp write: %w", err)}
	}
	if err := w.Close(); err != nil {
		return &DispatchError{Kind: KindGeneric, Err: fmt.Errorf("notify: smtp close data: %w", err)}
	}
	if err := client.Quit(); err != nil {
		s.logger.Warn("smtp quit failed after send", "error", err)
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject, "host", s.host)
	return nil
}

// connect dials, negotiates STARTTLS when offered, and authenticates.
func (s *SMTPSender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.host, s.port)

	deadline := time.Now().Add(smtpDialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return nil, &DispatchError{Kind: KindNetwork, Err: fmt.Errorf("notify: smtp dial %s: %w", addr, err)}
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return nil, &DispatchError{Kind: KindNetwork, Err: fmt.Errorf("notify: smtp handshake: %w", err)}
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			client.Close()
			return nil, &DispatchError{Kind: KindNetwork, Err: fmt.Errorf("notify: smtp starttls: %w", err)}
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, &DispatchError{Kind: KindAuth, Err: fmt.Errorf("notify: smtp auth: %w", err)}
		}
	}

	return client, nil
}

// headerLine folds CR and LF to spaces so a value cannot terminate
// its header line and start another.
func headerLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

// encode renders the RFC 5322 message. When an HTML body is present
// the message is multipart/alternative with the plain text first.
func (s *SMTPSender) encode(msg EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", headerLine(s.fromName), s.fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", headerLine(msg.To))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", headerLine(msg.ReplyTo))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", headerLine(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))

	if msg.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.Body)
		b.WriteString("\r\n")
		return b.String()
	}

	const boundary = "lead-alt-9f2c4b7e"
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Body)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String()
}

var _ EmailSender = (*SMTPSender)(nil)
