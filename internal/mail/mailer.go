// Package mail sends the post-run summary email over SMTP.
package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/venturedive/qa-sync/internal/config"
	"github.com/venturedive/qa-sync/internal/report"
)

var (
	// ErrMissingConfig is returned when required SMTP settings are absent.
	ErrMissingConfig = errors.New("missing required mail configuration: smtp_server, username, password and sender are required")
	// ErrNoRecipients is returned when no recipient addresses are configured.
	ErrNoRecipients = errors.New("at least one mail recipient is required")
)

// Notifier sends the summary mail for one suite run.
type Notifier struct {
	cfg   config.Mail
	suite config.Suite
	log   logrus.FieldLogger

	// dial is swapped in tests to avoid a real SMTP connection
	dial func(m *gomail.Message) error
}

// NewNotifier validates the mail settings and builds a notifier.
func NewNotifier(cfg config.Mail, suite config.Suite, log logrus.FieldLogger) (*Notifier, error) {
	if cfg.SMTPServer == "" || cfg.Username == "" || cfg.Password == "" || cfg.Sender == "" {
		return nil, ErrMissingConfig
	}
	if len(cfg.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	dialer := gomail.NewDialer(cfg.SMTPServer, cfg.Port, cfg.Username, cfg.Password)
	if cfg.UseTLS {
		dialer.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer}
	}

	return &Notifier{
		cfg:   cfg,
		suite: suite,
		log:   log,
		dial: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}, nil
}

// Send renders the summary body from the report and delivers the mail.
// Attachment paths that do not exist are skipped with a warning rather than
// failing the whole notification.
func (n *Notifier) Send(rep *report.Report, attachments ...string) error {
	body, err := Render(n.templateData(rep))
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.Sender)
	m.SetHeader("To", n.cfg.Recipients...)
	m.SetHeader("Subject", n.subject(rep))
	m.SetBody("text/plain", body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			n.log.WithField("path", path).Warn("skipping missing attachment")
			continue
		}
		m.Attach(path)
	}

	if err := n.dial(m); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", n.cfg.SMTPServer, n.cfg.Port, err)
	}

	n.log.WithField("recipients", len(n.cfg.Recipients)).Info("summary mail sent")
	return nil
}

func (n *Notifier) subject(rep *report.Report) string {
	return fmt.Sprintf("%s Results - %d passed, %d failed - %s",
		n.suite.Name,
		rep.Summary.Passed,
		rep.Summary.Failed,
		rep.StartTime().Format("2006-01-02"),
	)
}

func (n *Notifier) templateData(rep *report.Report) TemplateData {
	dateStr := ""
	if rep.Created > 0 {
		dateStr = rep.StartTime().Format("2006-01-02 15:04:05")
	}

	return TemplateData{
		SuiteName:      n.suite.Name,
		BuildVersion:   orNA(n.suite.BuildVersion),
		Date:           dateStr,
		Duration:       humanDuration(rep.Duration),
		Branch:         orNA(n.suite.Branch),
		TriggeredBy:    n.suite.TriggeredBy,
		Total:          rep.Summary.Total,
		Passed:         rep.Summary.Passed,
		Failed:         rep.Summary.Failed,
		Skipped:        rep.Summary.Skipped,
		FailRate:       failRate(rep.Summary.Failed, rep.Summary.Total),
		SenderName:     n.cfg.SenderName,
		SenderPosition: n.cfg.SenderPosition,
	}
}

// humanDuration renders seconds as "XmYs", dropping the minutes when zero.
func humanDuration(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
