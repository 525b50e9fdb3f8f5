package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/config"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// SMTPMailer sends transactional mail over plain SMTP. When no host is
// configured every send becomes a logged no-op so local development works
// without a mail relay.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	logger  *zap.Logger
	printer *message.Printer
	send    func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// MailerOption customises the mailer.
type MailerOption func(*SMTPMailer)

// WithSendFunc replaces the SMTP transport, mainly for tests.
func WithSendFunc(send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error) MailerOption {
	return func(m *SMTPMailer) {
		if send != nil {
			m.send = send
		}
	}
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger, opts ...MailerOption) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := &SMTPMailer{
		cfg:     cfg,
		logger:  logger,
		printer: message.NewPrinter(language.Kazakh),
		send:    smtp.SendMail,
	}
	for _, opt := range opts {
		opt(mailer)
	}
	return mailer
}

// SendWelcome greets a newly registered customer.
func (m *SMTPMailer) SendWelcome(ctx context.Context, email, username string) error {
	body := fmt.Sprintf(
		`<h2>Welcome to Uly Dala Coffee, %s!</h2>
<p>Your account is ready. Browse the menu and place your first order at <a href="%s">%s</a>.</p>
<p>See you at the counter.</p>`,
		htmlEscape(username), m.cfg.AppBaseURL, m.cfg.AppBaseURL)
	return m.deliver(ctx, email, "Welcome to Uly Dala Coffee", body)
}

// SendPasswordReset mails the reset link. The token is only ever sent here;
// storage keeps a digest.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, username, resetToken string) error {
	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(m.cfg.AppBaseURL, "/"), resetToken)
	body := fmt.Sprintf(
		`<h2>Password reset</h2>
<p>Hi %s, we received a request to reset your password.</p>
<p><a href="%s">Choose a new password</a>. The link expires shortly; if you did not ask for this, ignore this mail.</p>`,
		htmlEscape(username), link)
	return m.deliver(ctx, email, "Reset your Uly Dala Coffee password", body)
}

// SendOrderStatus notifies the customer about an order event.
func (m *SMTPMailer) SendOrderStatus(ctx context.Context, event services.OrderEvent) error {
	if event.RecipientEmail == "" {
		m.logger.Debug("order event without recipient, skipping mail",
			zap.String("order_id", event.OrderID),
			zap.String("type", event.Type))
		return nil
	}
	subject, headline := orderStatusCopy(event)
	var pickup string
	if event.PickupTime != nil {
		pickup = fmt.Sprintf("<p>Pickup time: %s</p>", event.PickupTime.Format("15:04, 2 Jan 2006"))
	}
	body := fmt.Sprintf(
		`<h2>%s</h2>
<p>Hi %s,</p>
<p>Order <strong>%s</strong></p>
%s<p>Total: <strong>%s</strong></p>
%s<p>Thank you for choosing Uly Dala Coffee.</p>`,
		headline, htmlEscape(event.RecipientName), htmlEscape(event.OrderNumber),
		m.renderItems(event.Items), m.formatTenge(event.Total), pickup)
	return m.deliver(ctx, event.RecipientEmail, subject, body)
}

// renderItems renders one list entry per order line. Events without items
// (older producers) render no list at all.
func (m *SMTPMailer) renderItems(items []services.OrderEventItem) string {
	if len(items) == 0 {
		return ""
	}
	var list strings.Builder
	list.WriteString("<ul>\n")
	for _, item := range items {
		label := htmlEscape(item.Name)
		if item.Size != "" {
			label = fmt.Sprintf("%s (%s)", label, htmlEscape(item.Size))
		}
		fmt.Fprintf(&list, "<li>%s &times; %d &mdash; %s</li>\n",
			label, item.Quantity, m.formatTenge(item.UnitPrice*int64(item.Quantity)))
	}
	list.WriteString("</ul>\n")
	return list.String()
}

func orderStatusCopy(event services.OrderEvent) (subject, headline string) {
	if event.Type == services.OrderEventCreated {
		return fmt.Sprintf("Order %s received", event.OrderNumber), "We have your order"
	}
	switch event.Status {
	case "paid":
		return fmt.Sprintf("Order %s paid", event.OrderNumber), "Payment received"
	case "in_progress":
		return fmt.Sprintf("Order %s is being prepared", event.OrderNumber), "Your baristas are on it"
	case "ready":
		return fmt.Sprintf("Order %s is ready", event.OrderNumber), "Your order is ready for pickup"
	case "completed":
		return fmt.Sprintf("Order %s completed", event.OrderNumber), "Enjoy your coffee"
	case "cancelled":
		return fmt.Sprintf("Order %s cancelled", event.OrderNumber), "Your order was cancelled"
	default:
		return fmt.Sprintf("Order %s update", event.OrderNumber), "Order status update"
	}
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return errors.New("mailer: recipient is required")
	}
	if m.cfg.Host == "" {
		m.logger.Warn("smtp host not configured, dropping mail",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// formatTenge renders a minor-unit amount as whole tenge with locale
// grouping.
func (m *SMTPMailer) formatTenge(amount int64) string {
	return m.printer.Sprintf("%d ₸", amount/100)
}

func htmlEscape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(value)
}
