// Package email sends submission decision notifications via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"mltf/portal/internal/store"
)

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service.
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SubmissionDecided notifies the submitter that a decision landed on their
// submission. Delivery failures are logged, never surfaced to the caller;
// the decision itself has already been recorded.
func (s *Service) SubmissionDecided(submission store.Submission, action, detail string) {
	if !s.IsConfigured() {
		return
	}

	recipient := recipientAddress(submission.SubmittedBy)
	subject := decisionSubject(submission.Title, action)
	html, err := renderTemplate(decisionEmailTemplate, decisionData{
		AppName:  "MLTF Portal",
		UserName: submission.SubmittedBy,
		Title:    submission.Title,
		Action:   action,
		Detail:   detail,
	})
	if err != nil {
		log.Printf("email: render decision template: %v", err)
		return
	}

	go func() {
		if err := s.SendHTMLEmail([]string{recipient}, subject, html); err != nil {
			log.Printf("email: notify %s about %s: %v", recipient, submission.ID, err)
		}
	}()
}

// SendEmail sends a plain text email.
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		s.fromHeader(),
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email with a plain text fallback part.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	boundary := "boundary-mltf-portal"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.fromHeader())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// decisionSubject builds the notification subject. The action arrives
// already in past tense ("approved", "rejected", "published").
func decisionSubject(title, action string) string {
	return fmt.Sprintf("Your submission %q was %s", title, action)
}

// recipientAddress mirrors how user accounts get their address on creation.
func recipientAddress(userName string) string {
	local := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(userName), " ", "."))
	if local == "" {
		local = "user"
	}
	return local + "@portal.local"
}

type decisionData struct {
	AppName  string
	UserName string
	Title    string
	Action   string
	Detail   string
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const decisionEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}} submission update</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .detail { background: #f5f5f5; padding: 12px; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Hi {{.UserName}},</h2>

    <p>Your submission <strong>{{.Title}}</strong> has a new decision: <strong>{{.Action}}</strong>.</p>

    {{if .Detail}}
    <div class="detail">{{.Detail}}</div>
    {{end}}

    <div class="footer">
        <p>You are receiving this because you submitted this document to {{.AppName}}.</p>
    </div>
</body>
</html>`
