// Package notification sends transactional email for allocation outcomes.
// Dispatch is best-effort: failures are logged and never surfaced to the
// caller, and a missing SMTP configuration disables sending entirely.
package notification

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Details carries the event/position context included in every template.
type Details struct {
	EventName     string
	PositionTitle string
	Location      string
	ShiftStart    time.Time
	ShiftEnd      time.Time
}

// Config holds SMTP settings read from environment variables. An empty
// Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ConfigFromEnv reads SMTP config from well-known environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	return Config{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// Mailer dispatches allocation emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

// NewMailer constructs a Mailer. When cfg.Host is empty the mailer runs
// disabled and logs each message it would have sent at debug level.
func NewMailer(cfg Config, log *zap.Logger) *Mailer {
	if cfg.Host == "" {
		log.Warn("smtp host not configured, email notifications disabled")
		return &Mailer{log: log}
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

// SignupConfirmed tells a volunteer their signup holds a slot.
func (m *Mailer) SignupConfirmed(ctx context.Context, to string, d Details) {
	body := fmt.Sprintf(
		"You're confirmed for %q at %s.\n\n%s",
		d.PositionTitle, d.EventName, scheduleBlock(d),
	)
	m.send(ctx, to, "Signup confirmed: "+d.EventName, body)
}

// SignupWaitlisted tells a volunteer they are queued, and where.
func (m *Mailer) SignupWaitlisted(ctx context.Context, to string, d Details, queuePosition int) {
	body := fmt.Sprintf(
		"%q at %s is currently full. You are number %d on the waitlist and "+
			"will be notified if a spot opens up.\n\n%s",
		d.PositionTitle, d.EventName, queuePosition, scheduleBlock(d),
	)
	m.send(ctx, to, "Added to waitlist: "+d.EventName, body)
}

// MovedToWaitlist tells a volunteer their confirmed slot no longer exists.
func (m *Mailer) MovedToWaitlist(ctx context.Context, to string, d Details) {
	body := fmt.Sprintf(
		"The capacity for %q at %s was reduced and your signup was moved to "+
			"the waitlist. You keep your place in line and will be notified if "+
			"a spot opens up.\n\n%s",
		d.PositionTitle, d.EventName, scheduleBlock(d),
	)
	m.send(ctx, to, "Moved to waitlist: "+d.EventName, body)
}

// PromotedFromWaitlist tells a volunteer a spot opened up for them.
func (m *Mailer) PromotedFromWaitlist(ctx context.Context, to string, d Details) {
	body := fmt.Sprintf(
		"A spot opened up! You've been moved off the waitlist and are now "+
			"confirmed for %q at %s.\n\n%s",
		d.PositionTitle, d.EventName, scheduleBlock(d),
	)
	m.send(ctx, to, "You're in: "+d.EventName, body)
}

// RegistrationRemoved tells a volunteer their registration was cancelled.
func (m *Mailer) RegistrationRemoved(ctx context.Context, to string, d Details) {
	body := fmt.Sprintf(
		"Your registration for %q at %s has been removed.\n\n%s",
		d.PositionTitle, d.EventName, scheduleBlock(d),
	)
	m.send(ctx, to, "Registration removed: "+d.EventName, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) {
	if m.dialer == nil {
		m.log.Debug("notification skipped (mailer disabled)",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return
	}
	if to == "" {
		m.log.Debug("notification skipped (no recipient)", zap.String("subject", subject))
		return
	}
	if err := ctx.Err(); err != nil {
		m.log.Debug("notification skipped (context cancelled)", zap.String("to", to))
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Error("failed to send notification email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func scheduleBlock(d Details) string {
	return fmt.Sprintf(
		"When: %s to %s\nWhere: %s",
		d.ShiftStart.Format("Mon, Jan 2 2006 3:04 PM"),
		d.ShiftEnd.Format("3:04 PM"),
		d.Location,
	)
}
