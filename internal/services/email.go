package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// EmailService delivers credentials by mail when WhatsApp reports the
// buyer's number as invalid.
type EmailService struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewEmailService builds the service from SMTP_* environment variables.
// Returns an error when the mailer is not configured; callers treat a nil
// mailer as "no email fallback available".
func NewEmailService() (*EmailService, error) {
	host := os.Getenv("SMTP_HOST")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	if host == "" || user == "" || pass == "" {
		return nil, fmt.Errorf("missing SMTP credentials in environment variables")
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}

	return &EmailService{host: host, port: port, user: user, pass: pass, from: from}, nil
}

// SendCredentials mails the delivered credential lines to the buyer.
func (e *EmailService) SendCredentials(toEmail, name, productName string, credentials []string) error {
	subject := fmt.Sprintf("Acesso %s - VendaZap", productName)

	var body strings.Builder
	fmt.Fprintf(&body, "Olá %s,\r\n\r\n", name)
	fmt.Fprintf(&body, "Aqui estão os seus dados de acesso ao %s:\r\n\r\n", productName)
	for _, cred := range credentials {
		body.WriteString(cred)
		body.WriteString("\r\n")
	}
	body.WriteString("\r\nQualquer dúvida, responda no WhatsApp.\r\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		e.from, toEmail, subject, body.String())

	auth := smtp.PlainAuth("", e.user, e.pass, e.host)
	return smtp.SendMail(e.host+":"+e.port, auth, e.from, []string{toEmail}, []byte(msg))
}
