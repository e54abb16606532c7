package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"VAT_RATES_FILE", "DEFAULT_COUNTRY", "MAX_PERMUTATIONS", "CREDIT_NOTE_DISCOUNT_CORRECTION",
		"BATCH_WORKERS", "METRICS_FILE", "GOOGLE_SHEET_URL", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "NL", cfg.DefaultCountry)
	assert.Equal(t, 4096, cfg.MaxPermutations)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.False(t, cfg.CreditNoteDiscountCorrection)
	assert.Equal(t, "stderr", cfg.GetLoggerConfig().Output)

	completion := cfg.GetCompletionConfig()
	assert.Equal(t, 4096, completion.MaxPermutations)
	assert.Nil(t, completion.DiscountCorrection)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DEFAULT_COUNTRY", "be")
	t.Setenv("MAX_PERMUTATIONS", "100")
	t.Setenv("CREDIT_NOTE_DISCOUNT_CORRECTION", "true")
	t.Setenv("BATCH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BE", cfg.DefaultCountry)
	assert.Equal(t, 2, cfg.BatchWorkers)

	completion := cfg.GetCompletionConfig()
	assert.Equal(t, 100, completion.MaxPermutations)
	assert.NotNil(t, completion.DiscountCorrection)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DEFAULT_COUNTRY":  "NLD",
		"MAX_PERMUTATIONS": "many",
		"BATCH_WORKERS":    "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
