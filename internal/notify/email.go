// Package notify delivers invoices to customers by email.
package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"sync"
)

// Attachment is a file carried with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailSender delivers a single HTML email.
type EmailSender interface {
	Send(to, subject, htmlBody string, attachments ...Attachment) error
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender constructs an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, htmlBody string, attachments ...Attachment) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := buildMessage(s.cfg.FromName, s.cfg.From, to, subject, htmlBody, attachments)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

const mimeBoundary = "billing-mixed-boundary"

// buildMessage assembles an RFC 2045 message: a plain HTML body when there
// are no attachments, multipart/mixed with base64 parts otherwise.
func buildMessage(fromName, from, to, subject, htmlBody string, attachments []Attachment) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", fromName, from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(htmlBody)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	for _, att := range attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", att.Filename)
		writeBase64Wrapped(&buf, att.Data)
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}

// writeBase64Wrapped emits base64 in 76-character lines per RFC 2045.
func writeBase64Wrapped(buf *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")
}

// SentEmail records one delivery made through InMemorySender.
type SentEmail struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// InMemorySender collects emails for inspection in tests.
type InMemorySender struct {
	mu   sync.Mutex
	sent []SentEmail
}

func (m *InMemorySender) Send(to, subject, htmlBody string, attachments ...Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, HTMLBody: htmlBody, Attachments: attachments})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *InMemorySender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// NopSender drops every email, for environments without SMTP.
type NopSender struct{}

func (NopSender) Send(string, string, string, ...Attachment) error { return nil }
