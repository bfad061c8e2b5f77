package batch

import (
	"fmt"
	"strings"

	"text2shorts/config"
	"text2shorts/types"

	"gopkg.in/gomail.v2"
)

// Mailer delivers per-topic reports.
type Mailer interface {
	Send(result types.TopicResult) error
}

// ReportSubject is the subject line of a topic report email.
func ReportSubject(result types.TopicResult) string {
	return fmt.Sprintf("Topic %s Processing Report: %s", result.Topic, result.Status)
}

// ReportBody renders a topic report in plain text.
func ReportBody(result types.TopicResult) string {
	elapsed := int(result.Elapsed.Seconds())
	trace := "None"
	if !result.Failures.Empty() {
		trace = result.Failures.String()
	} else if result.Status != types.TopicSuccessful {
		trace = "probably interrupted"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", result.Topic)
	fmt.Fprintf(&b, "Status: %s\n\n", result.Status)
	fmt.Fprintf(&b, "Finish Time: %s\n\n", result.Finished.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Processing Time: %d minutes %d seconds\n\n", elapsed/60, elapsed%60)
	fmt.Fprintf(&b, "Traceback:\n%s\n\n", trace)
	fmt.Fprintf(&b, "Remaining Topics: %d", result.Remaining)
	return b.String()
}

// SMTPMailer sends reports through an SMTP server.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewSMTPMailer(s config.Settings) *SMTPMailer {
	to := s.ReportEmailTo
	if to == "" {
		to = s.SMTPUser
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(s.SMTPHost, s.SMTPPort, s.SMTPUser, s.SMTPPass),
		from:   s.SMTPUser,
		to:     to,
	}
}

func (m *SMTPMailer) Send(result types.TopicResult) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", ReportSubject(result))
	msg.SetBody("text/plain", ReportBody(result))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
