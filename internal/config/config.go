package config

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRateTable means no usable exchange-rate table was configured.
	ErrMissingRateTable = errors.New("exchange rate table missing or empty")
	// ErrMissingSynonymTable means no usable country synonym table was configured.
	ErrMissingSynonymTable = errors.New("country synonym table missing or empty")
	// ErrInvalidConfig wraps every other configuration problem.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EnvPrefix is the prefix for environment overrides, e.g. TXCLEAN_WORKERS.
const EnvPrefix = "TXCLEAN"

// CountryEntry maps a set of spellings onto one canonical country name.
type CountryEntry struct {
	Canonical string   `mapstructure:"canonical" validate:"required"`
	Aliases   []string `mapstructure:"aliases"`
}

// DateWindow bounds the accepted order dates, inclusive, as YYYY-MM-DD strings.
type DateWindow struct {
	Min string `mapstructure:"min" validate:"required,datetime=2006-01-02"`
	Max string `mapstructure:"max" validate:"required,datetime=2006-01-02"`
}

// BigQuery selects the warehouse location for sources and sinks.
type BigQuery struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
}

// GCS selects the bucket used for report uploads.
type GCS struct {
	Bucket string `mapstructure:"bucket"`
}

// Config is the full engine configuration. The lookup tables are read-only
// once Load or Default returns and may be shared across goroutines.
type Config struct {
	ExchangeRates        map[string]float64 `mapstructure:"exchange_rates"`
	Countries            []CountryEntry     `mapstructure:"countries" validate:"dive"`
	DateWindow           DateWindow         `mapstructure:"date_window"`
	QuantityCeiling      int                `mapstructure:"quantity_ceiling" validate:"gt=0"`
	AmountCeiling        float64            `mapstructure:"amount_ceiling" validate:"gt=0"`
	MaxDistinctCountries int                `mapstructure:"max_distinct_countries" validate:"gt=0"`
	MinCompletenessPct   float64            `mapstructure:"min_completeness_pct" validate:"gte=0,lte=100"`
	Workers              int                `mapstructure:"workers" validate:"gt=0,lte=256"`
	LogLevel             string             `mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	BigQuery             BigQuery           `mapstructure:"bigquery"`
	GCS                  GCS                `mapstructure:"gcs"`

	rates    map[string]decimal.Decimal
	synonyms map[string]string
	minDate  civil.Date
	maxDate  civil.Date
}

// Default returns the built-in configuration with the standard rate and
// country tables.
func Default() *Config {
	cfg := &Config{
		ExchangeRates:        defaultRates(),
		Countries:            defaultCountries(),
		DateWindow:           DateWindow{Min: "2020-01-01", Max: "2030-12-31"},
		QuantityCeiling:      100,
		AmountCeiling:        100000,
		MaxDistinctCountries: 20,
		MinCompletenessPct:   95,
		Workers:              8,
		LogLevel:             "info",
		BigQuery:             BigQuery{Dataset: "sales"},
	}
	if err := cfg.compile(); err != nil {
		panic(fmt.Sprintf("config.Default: built-in tables invalid: %v", err))
	}
	return cfg
}

// Load builds a Config from defaults, an optional YAML file and TXCLEAN_*
// environment variables. Exchange-rate entries from the file overlay the
// built-in ones; a countries list replaces the built-in list entirely.
// Any failure is fatal for a run: no record may be processed without tables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load: reading %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: decoding: %w: %v", ErrInvalidConfig, err)
	}
	cfg.ExchangeRates = overlayRates(defaultRates(), cfg.ExchangeRates)
	if err := cfg.compile(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// overlayRates returns base with every entry of extra applied on top.
// Viper lower-cases map keys, so codes are upper-cased here.
func overlayRates(base, extra map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(extra))
	for code, mult := range base {
		out[strings.ToUpper(code)] = mult
	}
	for code, mult := range extra {
		out[strings.ToUpper(code)] = mult
	}
	return out
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("countries", d.Countries)
	v.SetDefault("date_window.min", d.DateWindow.Min)
	v.SetDefault("date_window.max", d.DateWindow.Max)
	v.SetDefault("quantity_ceiling", d.QuantityCeiling)
	v.SetDefault("amount_ceiling", d.AmountCeiling)
	v.SetDefault("max_distinct_countries", d.MaxDistinctCountries)
	v.SetDefault("min_completeness_pct", d.MinCompletenessPct)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("bigquery.project", "")
	v.SetDefault("bigquery.dataset", d.BigQuery.Dataset)
	v.SetDefault("gcs.bucket", "")
}

// compile validates the struct and builds the lookup tables used at run time.
func (c *Config) compile() error {
	if len(c.ExchangeRates) == 0 {
		return ErrMissingRateTable
	}
	if len(c.Countries) == 0 {
		return ErrMissingSynonymTable
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	rates := make(map[string]decimal.Decimal, len(c.ExchangeRates))
	for code, mult := range c.ExchangeRates {
		if mult <= 0 {
			return fmt.Errorf("%w: exchange rate for %q must be positive, got %v", ErrInvalidConfig, code, mult)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = decimal.NewFromFloat(mult)
	}

	synonyms := make(map[string]string)
	for _, entry := range c.Countries {
		canonical := strings.TrimSpace(entry.Canonical)
		synonyms[synonymKey(canonical)] = canonical
		for _, alias := range entry.Aliases {
			key := synonymKey(alias)
			if key == "" {
				continue
			}
			if prev, ok := synonyms[key]; ok && prev != canonical {
				return fmt.Errorf("%w: alias %q maps to both %q and %q", ErrInvalidConfig, alias, prev, canonical)
			}
			synonyms[key] = canonical
		}
	}

	minDate, err := civil.ParseDate(c.DateWindow.Min)
	if err != nil {
		return fmt.Errorf("%w: date_window.min: %v", ErrInvalidConfig, err)
	}
	maxDate, err := civil.ParseDate(c.DateWindow.Max)
	if err != nil {
		return fmt.Errorf("%w: date_window.max: %v", ErrInvalidConfig, err)
	}
	if maxDate.Before(minDate) {
		return fmt.Errorf("%w: date_window.max %s precedes min %s", ErrInvalidConfig, maxDate, minDate)
	}

	c.rates = rates
	c.synonyms = synonyms
	c.minDate = minDate
	c.maxDate = maxDate
	return nil
}

func synonymKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Rates returns the exchange-rate table keyed by upper-case currency code.
func (c *Config) Rates() map[string]decimal.Decimal { return c.rates }

// Synonyms returns the country table keyed by upper-case spelling.
func (c *Config) Synonyms() map[string]string { return c.synonyms }

// ValidDateWindow returns the inclusive order-date bounds.
func (c *Config) ValidDateWindow() (civil.Date, civil.Date) { return c.minDate, c.maxDate }

// AmountCeilingDecimal returns the amount ceiling as a decimal.
func (c *Config) AmountCeilingDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.AmountCeiling)
}
