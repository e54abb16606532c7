package vatrates_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table, err := vatrates.Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"BE", "DE", "FR", "LU", "NL"}, table.Countries())

	rates, err := table.Rates(context.Background(), "nl")
	require.NoError(t, err)
	require.Len(t, rates, 6)
	assert.Equal(t, 21.0, rates[0].Rate)
	assert.Equal(t, 1, rates[0].VatType)
	assert.Equal(t, 9.0, rates[1].Rate)

	fr, err := table.Rates(context.Background(), "FR")
	require.NoError(t, err)
	assert.InDelta(t, 5.5, fr[2].Rate, 0.0001)
	assert.InDelta(t, 2.1, fr[3].Rate, 0.0001)
}

func TestUnknownCountry(t *testing.T) {
	table, err := vatrates.Load("")
	require.NoError(t, err)

	_, err = table.Rates(context.Background(), "XX")
	assert.ErrorIs(t, err, vatrates.ErrUnknownCountry)
}

func TestRatesReturnsCopy(t *testing.T) {
	table, err := vatrates.Load("")
	require.NoError(t, err)

	rates, err := table.Rates(context.Background(), "DE")
	require.NoError(t, err)
	rates[0].Rate = 99

	again, err := table.Rates(context.Background(), "DE")
	require.NoError(t, err)
	assert.Equal(t, 19.0, again[0].Rate)
}

func TestCanceledContext(t *testing.T) {
	table, err := vatrates.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = table.Rates(ctx, "NL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	data := []byte("countries:\n  at:\n    - {rate: \"20%\", vat_type: 1}\n    - {rate: \"13\", vat_type: 1}\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	table, err := vatrates.Load(path)
	require.NoError(t, err)

	rates, err := table.Rates(context.Background(), "AT")
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 20.0, rates[0].Rate)
	assert.Equal(t, 13.0, rates[1].Rate)
}

func TestLoadFileInvalidRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countries:\n  NL:\n    - {rate: \"abc\", vat_type: 1}\n"), 0o600))

	_, err := vatrates.Load(path)
	assert.ErrorIs(t, err, vatrates.ErrInvalidRate)
}

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"21%", 21},
		{"21", 21},
		{"5,5 %", 5.5},
		{"0%", 0},
		{".5", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := vatrates.ParsePercentage(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}

	_, err := vatrates.ParsePercentage("150%")
	assert.ErrorIs(t, err, vatrates.ErrInvalidRate)
}
