// Package notify delivers email notifications for routing events. It
// subscribes to domain events so the qualification modules never talk to
// SMTP directly. When email is disabled the module is a silent no-op.
package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	"leadrouting_backend/internal/events"
	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) Send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// Module routes domain events to email notifications.
type Module struct {
	sender  Sender
	enabled bool
	log     *logger.Logger
}

// New creates the notification module.
func New(sender Sender, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{
		sender:  sender,
		enabled: cfg.GetEmailEnabled(),
		log:     log,
	}
}

// RegisterHandlers subscribes the module to the events it notifies on.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.onLeadAssigned))
	bus.Subscribe(events.HotLeadDetected{}.EventName(), events.HandlerFunc(m.onHotLead))
}

func (m *Module) onLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}
	if !m.enabled || e.RepEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("New lead assigned: %s", e.LeadName)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>The lead <strong>%s</strong> has been assigned to you.</p>",
		e.RepName, e.LeadName)
	if e.Auto {
		body += "<p>This assignment was made automatically based on your track record and current workload.</p>"
	}

	if err := m.sender.Send(ctx, e.RepEmail, subject, body); err != nil {
		m.log.Error("assignment notification failed", "error", err, "leadId", e.LeadID, "repEmail", e.RepEmail)
	}
	return nil
}

func (m *Module) onHotLead(_ context.Context, event events.Event) error {
	e, ok := event.(events.HotLeadDetected)
	if !ok {
		return nil
	}
	// Hot leads are surfaced through assignment mail and metrics; log so
	// operators see them even with email disabled.
	m.log.Info("hot lead detected", "leadId", e.LeadID, "score", e.Score)
	return nil
}
