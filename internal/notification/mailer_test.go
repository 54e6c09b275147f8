package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testDetails() Details {
	start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	return Details{
		EventName:     "River Cleanup",
		PositionTitle: "Trash Crew",
		Location:      "North Shore Park",
		ShiftStart:    start,
		ShiftEnd:      start.Add(4 * time.Hour),
	}
}

// A mailer without SMTP configuration must swallow every send.
func TestDisabledMailerDropsMessages(t *testing.T) {
	m := NewMailer(Config{}, zap.NewNop())

	ctx := context.Background()
	d := testDetails()
	m.SignupConfirmed(ctx, "a@example.com", d)
	m.SignupWaitlisted(ctx, "a@example.com", d, 3)
	m.MovedToWaitlist(ctx, "a@example.com", d)
	m.PromotedFromWaitlist(ctx, "a@example.com", d)
	m.RegistrationRemoved(ctx, "a@example.com", d)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")

	cfg := ConfigFromEnv()
	assert.Empty(t, cfg.Host)
	assert.Equal(t, 587, cfg.Port)
}

func TestScheduleBlock(t *testing.T) {
	block := scheduleBlock(testDetails())
	assert.Contains(t, block, "North Shore Park")
	assert.Contains(t, block, "Sat, Sep 12 2026 9:00 AM")
	assert.Contains(t, block, "1:00 PM")
}
