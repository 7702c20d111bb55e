package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSynonyms() SynonymTable {
	return SynonymTable{
		"UNITED STATES":            "United States",
		"USA":                      "United States",
		"US":                       "United States",
		"U.S.":                     "United States",
		"UNITED STATES OF AMERICA": "United States",
		"UK":                       "United Kingdom",
		"UNITED KINGDOM":           "United Kingdom",
		"DEUTSCHLAND":              "Germany",
	}
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"USA", "United States"},
		{"US", "United States"},
		{"United States", "United States"},
		{" u.s. ", "United States"},
		{"united states of america", "United States"},
		{"uk", "United Kingdom"},
		{"Deutschland", "Germany"},
		{"new zealand", "New Zealand"},
		{"SOUTH AFRICA", "South Africa"},
		{"", "Unknown"},
		{"NULL", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCountry(tt.raw, testSynonyms()))
		})
	}
}
