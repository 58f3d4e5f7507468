package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DB_URL=postgres://ledger@localhost/ledger\n" +
		"JWT_SECRET=s3cret\n" +
		"ADMIN_CHAT_ID=42\n" +
		"MIN_PRIMARY_WITHDRAWAL=250\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.DB_URL)
	assert.Equal(t, int64(42), cfg.AdminChatID)
	assert.Equal(t, "0 0 * * *", cfg.AccrualCron)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	require.NoError(t, cfg.Validate())

	limits, err := cfg.Limits()
	require.NoError(t, err)
	assert.Equal(t, "250", limits.MinPrimaryWithdrawal.String())
	assert.Equal(t, "10", limits.MinReferralWithdrawal.String())
	assert.Equal(t, "1", limits.ReferralBonusPercent.String())
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("DB_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ACCRUAL_CRON", "30 1 * * *")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.DB_URL)
	assert.Equal(t, "30 1 * * *", cfg.AccrualCron)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Config{JWTSecret: "x"}
	assert.Error(t, cfg.Validate())

	cfg = Config{
		DB_URL:                "postgres://x",
		JWTSecret:             "x",
		MinPrimaryWithdrawal:  "0",
		MinReferralWithdrawal: "10",
		MinReferralTransfer:   "10",
		ReferralBonusPercent:  "1",
	}
	assert.ErrorContains(t, cfg.Validate(), "MIN_PRIMARY_WITHDRAWAL")

	cfg.MinPrimaryWithdrawal = "abc"
	assert.Error(t, cfg.Validate())
}
