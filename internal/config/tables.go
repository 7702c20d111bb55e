package config

func defaultRates() map[string]float64 {
	return map[string]float64{
		"EUR": 1.08,
		"GBP": 1.26,
		"JPY": 0.0067,
		"CAD": 0.74,
		"USD": 1.0,
	}
}

func defaultCountries() []CountryEntry {
	return []CountryEntry{
		{Canonical: "United States", Aliases: []string{"USA", "US", "U.S.", "U.S.A.", "UNITED STATES OF AMERICA", "AMERICA"}},
		{Canonical: "United Kingdom", Aliases: []string{"UK", "U.K.", "GB", "GREAT BRITAIN", "BRITAIN", "ENGLAND"}},
		{Canonical: "Canada", Aliases: []string{"CA", "CAN"}},
		{Canonical: "Germany", Aliases: []string{"DE", "DEU", "DEUTSCHLAND"}},
		{Canonical: "France", Aliases: []string{"FR", "FRA"}},
		{Canonical: "Spain", Aliases: []string{"ES", "ESP", "ESPANA", "ESPAÑA"}},
		{Canonical: "Italy", Aliases: []string{"IT", "ITA", "ITALIA"}},
		{Canonical: "Netherlands", Aliases: []string{"NL", "NLD", "HOLLAND", "THE NETHERLANDS"}},
		{Canonical: "Australia", Aliases: []string{"AU", "AUS"}},
		{Canonical: "Japan", Aliases: []string{"JP", "JPN"}},
		{Canonical: "China", Aliases: []string{"CN", "CHN", "PRC"}},
		{Canonical: "India", Aliases: []string{"IN", "IND"}},
		{Canonical: "Brazil", Aliases: []string{"BR", "BRA", "BRASIL"}},
		{Canonical: "Mexico", Aliases: []string{"MX", "MEX", "MÉXICO"}},
	}
}
