package models

import (
	"maps"
)

const (
	// ContinentOther is the bucket for countries missing from the lookup
	ContinentOther = "Other"
	// ContinentRoot labels the top of the hierarchy
	ContinentRoot = "World"
)

const (
	northAmerica = "North America"
	southAmerica = "South America"
	asia         = "Asia"
	europe       = "Europe"
	europeAsia   = "Europe/Asia"
	africa       = "Africa"
	oceania      = "Oceania"
)

// ContinentMap is a static country to continent lookup
type ContinentMap map[string]string

// DefaultContinents returns a fresh copy of the built-in lookup
func DefaultContinents() ContinentMap {
	return maps.Clone(defaultContinents)
}

// WithOverrides returns a copy with extra entries applied on top
func (m ContinentMap) WithOverrides(overrides map[string]string) ContinentMap {
	out := maps.Clone(m)
	if out == nil {
		out = make(ContinentMap, len(overrides))
	}
	for country, continent := range overrides {
		out[country] = continent
	}
	return out
}

// Lookup returns the continent of country, or ContinentOther
func (m ContinentMap) Lookup(country string) string {
	if continent, ok := m[country]; ok && continent != "" {
		return continent
	}
	return ContinentOther
}

// ContinentRow is a snapshot row placed in the World > Continent > Country tree
type ContinentRow struct {
	World     string `json:"world"`
	Continent string `json:"continent"`
	CountrySnapshot
}

// AnnotateContinents decorates rows with their continent; figures are untouched
func AnnotateContinents(rows []CountrySnapshot, continents ContinentMap) []ContinentRow {
	out := make([]ContinentRow, len(rows))
	for i, row := range rows {
		out[i] = ContinentRow{
			World:           ContinentRoot,
			Continent:       continents.Lookup(row.Country),
			CountrySnapshot: row,
		}
	}
	return out
}

// TreemapRows keeps the rows with a positive value for metric
func TreemapRows(rows []ContinentRow, metric Metric) []ContinentRow {
	out := make([]ContinentRow, 0, len(rows))
	for _, row := range rows {
		if row.Value(metric) > 0 {
			out = append(out, row)
		}
	}
	return out
}

var defaultContinents = ContinentMap{
	"US": northAmerica, "Canada": northAmerica, "Mexico": northAmerica,
	"Brazil": southAmerica, "Argentina": southAmerica, "Colombia": southAmerica,
	"Peru": southAmerica, "Chile": southAmerica, "Ecuador": southAmerica,
	"Venezuela": southAmerica, "Uruguay": southAmerica, "Paraguay": southAmerica,
	"China": asia, "India": asia, "Japan": asia, "Korea, South": asia, "Indonesia": asia,
	"Philippines": asia, "Vietnam": asia, "Thailand": asia, "Malaysia": asia, "Singapore": asia,
	"Pakistan": asia, "Bangladesh": asia, "Iran": asia, "Iraq": asia, "Saudi Arabia": asia,
	"Israel": asia, "Turkey": europeAsia, "Russia": europeAsia,
	"United Kingdom": europe, "France": europe, "Germany": europe, "Italy": europe, "Spain": europe,
	"Poland": europe, "Romania": europe, "Netherlands": europe, "Belgium": europe, "Czechia": europe,
	"Greece": europe, "Portugal": europe, "Sweden": europe, "Hungary": europe, "Austria": europe,
	"Belarus": europe, "Serbia": europe, "Switzerland": europe, "Bulgaria": europe, "Denmark": europe,
	"Finland": europe, "Slovakia": europe, "Norway": europe, "Ireland": europe, "Croatia": europe,
	"Moldova": europe, "Bosnia and Herzegovina": europe, "Albania": europe, "Lithuania": europe,
	"North Macedonia": europe, "Slovenia": europe, "Latvia": europe, "Estonia": europe,
	"South Africa": africa, "Morocco": africa, "Tunisia": africa, "Libya": africa, "Egypt": africa,
	"Ethiopia": africa, "Nigeria": africa, "Ghana": africa, "Kenya": africa, "Uganda": africa,
	"Algeria": africa, "Sudan": africa, "Angola": africa, "Mozambique": africa, "Madagascar": africa,
	"Cameroon": africa, "Ivory Coast": africa, "Niger": africa, "Burkina Faso": africa,
	"Australia": oceania, "New Zealand": oceania, "Fiji": oceania, "Papua New Guinea": oceania,
	"Dominican Republic": northAmerica, "Cuba": northAmerica, "Haiti": northAmerica,
	"Jamaica": northAmerica, "Trinidad and Tobago": northAmerica, "Costa Rica": northAmerica,
	"Panama": northAmerica, "Honduras": northAmerica, "Guatemala": northAmerica,
	"El Salvador": northAmerica, "Nicaragua": northAmerica, "Bolivia": southAmerica,
	"Burma": asia, "Sri Lanka": asia, "Nepal": asia, "Afghanistan": asia, "Uzbekistan": asia,
	"Kazakhstan": asia, "Kyrgyzstan": asia, "Tajikistan": asia, "Mongolia": asia,
	"Lebanon": asia, "Jordan": asia, "Azerbaijan": asia, "Armenia": asia, "Georgia": asia,
	"Kuwait": asia, "Bahrain": asia, "Qatar": asia, "United Arab Emirates": asia, "Oman": asia,
	"Yemen": asia, "Syria": asia, "Ukraine": europe, "Iceland": europe,
}
