package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"srmist.edu.in"}, cfg.Registration.AllowedEmailDomains)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.False(t, cfg.Uploads.LegacyNames)
	assert.Equal(t, 15*time.Minute, cfg.Downloads.SignedURLTTL)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRATION_EMAIL_DOMAINS", "srmist.edu.in, example.edu ,")
	t.Setenv("UPLOADS_LEGACY_NAMES", "true")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("COURSE_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"srmist.edu.in", "example.edu"}, cfg.Registration.AllowedEmailDomains)
	assert.True(t, cfg.Uploads.LegacyNames)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 90*time.Second, cfg.CourseCache.TTL)
}
