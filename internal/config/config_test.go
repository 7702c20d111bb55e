package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "1.08", cfg.Rates()["EUR"].String())
	assert.Equal(t, "1", cfg.Rates()["USD"].String())
	assert.Equal(t, "United States", cfg.Synonyms()["USA"])
	assert.Equal(t, "United States", cfg.Synonyms()["US"])
	assert.Equal(t, "United States", cfg.Synonyms()["UNITED STATES"])
	assert.Equal(t, "United Kingdom", cfg.Synonyms()["U.K."])
	assert.Equal(t, 100, cfg.QuantityCeiling)
	assert.Equal(t, "100000", cfg.AmountCeilingDecimal().String())

	min, max := cfg.ValidDateWindow()
	assert.Equal(t, civil.Date{Year: 2020, Month: time.January, Day: 1}, min)
	assert.Equal(t, civil.Date{Year: 2030, Month: time.December, Day: 31}, max)
}

func TestLoad_NoFileMatchesDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Rates(), cfg.Rates())
	assert.Equal(t, d.Synonyms(), cfg.Synonyms())
	assert.Equal(t, d.Workers, cfg.Workers)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
exchange_rates:
  CHF: 1.12
  EUR: 1.10
countries:
  - canonical: Switzerland
    aliases: ["CH", "SUISSE", "Schweiz"]
  - canonical: United States
    aliases: ["USA", "U.S."]
date_window:
  min: "2023-01-01"
  max: "2024-12-31"
quantity_ceiling: 50
workers: 2
log_level: debug
bigquery:
  project: my-project
  dataset: sales_eu
gcs:
  bucket: reports
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.12", cfg.Rates()["CHF"].String())
	assert.Equal(t, "1.1", cfg.Rates()["EUR"].String(), "file overrides the built-in rate")
	assert.Equal(t, "1.26", cfg.Rates()["GBP"].String(), "built-in rates remain")

	assert.Equal(t, "Switzerland", cfg.Synonyms()["SCHWEIZ"])
	assert.Equal(t, "United States", cfg.Synonyms()["U.S."])
	_, hasUK := cfg.Synonyms()["UK"]
	assert.False(t, hasUK, "a countries list replaces the built-in one")

	assert.Equal(t, 50, cfg.QuantityCeiling)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "my-project", cfg.BigQuery.Project)
	assert.Equal(t, "sales_eu", cfg.BigQuery.Dataset)
	assert.Equal(t, "reports", cfg.GCS.Bucket)

	min, _ := cfg.ValidDateWindow()
	assert.Equal(t, 2023, min.Year)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TXCLEAN_WORKERS", "3")
	t.Setenv("TXCLEAN_GCS_BUCKET", "env-bucket")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "env-bucket", cfg.GCS.Bucket)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"empty countries", "countries: []\n", ErrMissingSynonymTable},
		{"negative rate", "exchange_rates:\n  EUR: -1\n", ErrInvalidConfig},
		{"zero workers", "workers: 0\n", ErrInvalidConfig},
		{"bad log level", "log_level: loud\n", ErrInvalidConfig},
		{"inverted window", "date_window:\n  min: \"2025-01-01\"\n  max: \"2024-01-01\"\n", ErrInvalidConfig},
		{"malformed date", "date_window:\n  min: \"01/01/2024\"\n", ErrInvalidConfig},
		{"conflicting alias", "countries:\n  - canonical: A\n    aliases: [X]\n  - canonical: B\n    aliases: [x]\n", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCompile_MissingRateTable(t *testing.T) {
	cfg := Default()
	cfg.ExchangeRates = nil
	assert.True(t, errors.Is(cfg.compile(), ErrMissingRateTable))
}
