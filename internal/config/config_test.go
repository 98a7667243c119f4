package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "./data/ledger.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.LedgerMaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.JWTDuration)
	assert.False(t, cfg.SplitRemainderToPayer)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(env.Options{Environment: map[string]string{
		"PORT":                     "9090",
		"DB_DRIVER":                "postgres",
		"DATABASE_URL":             "postgres://localhost/ledger?sslmode=disable",
		"JWT_SECRET":               "s3cret",
		"LEDGER_MAX_RETRIES":       "5",
		"SPLIT_REMAINDER_TO_PAYER": "true",
	}})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 5, cfg.LedgerMaxRetries)
	assert.True(t, cfg.SplitRemainderToPayer)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"negative retries", map[string]string{"LEDGER_MAX_RETRIES": "-1"}},
		{"malformed port", map[string]string{"PORT": "eighty"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(env.Options{Environment: tc.env})
			assert.Error(t, err)
		})
	}
}
