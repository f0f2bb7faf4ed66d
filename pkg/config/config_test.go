package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, 5*time.Minute, parseDuration("", 5*time.Minute))
	assert.Equal(t, 5*time.Minute, parseDuration("soon", 5*time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", 5*time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, splitAndTrim(" http://a.test , ,http://b.test "))
}

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "portal_token", cfg.JWT.CookieName)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Exports.SignedURLTTL)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, "@hourly", cfg.Scheduler.ExportCleanupSpec)
	assert.Equal(t, 5, cfg.Dashboard.UpcomingEventsLimit)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("MAIL_PROVIDER", "SendGrid")
	v.Set("TIMETABLE_CACHE_TTL", "1h")
	v.Set("ALLOWED_ORIGINS", "https://portal.example.edu")

	cfg := fromViper(v)

	assert.Equal(t, "sendgrid", cfg.Mail.Provider)
	assert.Equal(t, time.Hour, cfg.Cache.TimetableTTL)
	assert.Equal(t, []string{"https://portal.example.edu"}, cfg.CORS.AllowedOrigins)
}
