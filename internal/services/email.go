package services

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadcrm/internal/config"
)

// EmailService handles sending emails
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendImportDigest mails a summary of an import to the configured
// notification address. Without an address it only logs.
func (s *EmailService) SendImportDigest(filename string, result *ImportResult) error {
	if s.cfg.NotifyTo == "" {
		log.Printf("[EMAIL] Import digest not sent: no notification address (file=%s)", filename)
		return nil
	}

	subject := fmt.Sprintf("Lead import: %d imported, %d skipped", result.Imported, result.Skipped)
	return s.SendHTMLEmail(s.cfg.NotifyTo, subject, importDigestHTML(filename, result), importDigestText(filename, result))
}

func importDigestText(filename string, result *ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import of %s finished at %s.\r\n\r\n", filename, time.Now().Format(time.RFC1123))
	fmt.Fprintf(&b, "Total rows: %d\r\nImported: %d\r\nSkipped: %d\r\n", result.TotalRows, result.Imported, result.Skipped)
	if len(result.SkippedDetails) > 0 {
		b.WriteString("\r\nSkipped rows:\r\n")
		for _, d := range result.SkippedDetails {
			fmt.Fprintf(&b, "  row %d (%s): %s\r\n", d.Row, d.Name, strings.Join(d.Reasons, ", "))
		}
	}
	return b.String()
}

func importDigestHTML(filename string, result *ImportResult) string {
	var rows strings.Builder
	for _, d := range result.SkippedDetails {
		fmt.Fprintf(&rows, `<tr><td style="padding: 4px 8px;">%d</td><td style="padding: 4px 8px;">%s</td><td style="padding: 4px 8px;">%s</td></tr>`,
			d.Row, html.EscapeString(d.Name), html.EscapeString(strings.Join(d.Reasons, ", ")))
	}

	skipped := ""
	if rows.Len() > 0 {
		skipped = `<h3 style="margin: 24px 0 8px; font-size: 16px; color: #0D1A2D;">Skipped rows</h3>` +
			`<table role="presentation" cellspacing="0" cellpadding="0" border="1" style="border-collapse: collapse; font-size: 14px;">` +
			`<tr><th style="padding: 4px 8px;">Row</th><th style="padding: 4px 8px;">Name</th><th style="padding: 4px 8px;">Reasons</th></tr>` +
			rows.String() + `</table>`
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Lead import</title></head>
<body style="margin: 0; padding: 24px; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; color: #334155;">
    <h2 style="margin: 0 0 12px; font-size: 22px; color: #0D1A2D;">Lead import finished</h2>
    <p style="margin: 0 0 16px;">File: <strong>%s</strong></p>
    <p style="margin: 0;">Total rows: %d<br>Imported: %d<br>Skipped: %d</p>
    %s
</body>
</html>`, html.EscapeString(filename), result.TotalRows, result.Imported, result.Skipped, skipped)
}

// SendEmail sends a generic email (plain text)
func (s *EmailService) SendEmail(to, subject, body string) error {
	return s.SendHTMLEmail(to, subject, "", body)
}

// SendHTMLEmail sends an HTML email with plain text fallback
func (s *EmailService) SendHTMLEmail(to, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled {
		log.Printf("[EMAIL] Would send to %s: %s", to, subject)
		return nil
	}

	// Validate configuration
	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("email service not properly configured")
	}

	// Set up authentication
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)

	// Create email message
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	// Build multipart message
	boundary := "leadcrm-" + uuid.NewString()

	headers := fmt.Sprintf("From: %s\r\n", from) +
		fmt.Sprintf("To: %s\r\n", to) +
		fmt.Sprintf("Subject: %s\r\n", subject) +
		"MIME-Version: 1.0\r\n" +
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary) +
		"\r\n"

	// Plain text part
	message := headers +
		fmt.Sprintf("--%s\r\n", boundary) +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"Content-Transfer-Encoding: 8bit\r\n" +
		"\r\n" +
		textBody + "\r\n"

	// HTML part (if provided)
	if htmlBody != "" {
		message += fmt.Sprintf("--%s\r\n", boundary) +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"Content-Transfer-Encoding: 8bit\r\n" +
			"\r\n" +
			htmlBody + "\r\n"
	}

	message += fmt.Sprintf("--%s--\r\n", boundary)

	log.Printf("[EMAIL] Sending to %s: %s", to, subject)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// IsEnabled returns whether email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.cfg.Enabled
}
