package service

import (
	"strings"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
)

// JurisdictionClassifier maps an organization's locations to the disjoint set
// of regulatory jurisdictions it operates under. An explicit country field
// wins over postcode classification; classification is idempotent and
// order-independent, and an organization with zero classifiable locations
// yields an empty set (no applicable regulatory body, not an error).
type JurisdictionClassifier struct{}

// NewJurisdictionClassifier creates a classifier over the built-in postcode
// tables.
func NewJurisdictionClassifier() *JurisdictionClassifier {
	return &JurisdictionClassifier{}
}

// postcodeAreaTables maps each jurisdiction to the UK postcode areas it
// covers. The tables are declarative and disjoint: no area appears under two
// jurisdictions, so no location can ever classify twice. Areas spanning a
// border (TD, SY, CH) are assigned to a single jurisdiction.
var postcodeAreaTables = map[constants.Jurisdiction][]string{
	constants.JurisdictionScotland: {
		"AB", "DD", "DG", "EH", "FK", "G", "HS", "IV", "KA", "KW", "KY",
		"ML", "PA", "PH", "TD", "ZE",
	},
	constants.JurisdictionWales: {
		"CF", "LD", "LL", "NP", "SA", "SY",
	},
	constants.JurisdictionNorthernIreland: {"BT"},
	constants.JurisdictionJersey:          {"JE"},
	constants.JurisdictionGuernsey:        {"GY"},
	constants.JurisdictionIsleOfMan:       {"IM"},
	constants.JurisdictionEngland: {
		"AL", "B", "BA", "BB", "BD", "BH", "BL", "BN", "BR", "BS", "CA",
		"CB", "CH", "CM", "CO", "CR", "CT", "CV", "CW", "DA", "DE", "DH",
		"DL", "DN", "DT", "DY", "E", "EC", "EN", "EX", "FY", "GL", "GU",
		"HA", "HD", "HG", "HP", "HR", "HU", "HX", "IG", "IP", "KT", "L",
		"LA", "LE", "LN", "LS", "LU", "M", "ME", "MK", "N", "NE", "NG",
		"NN", "NR", "NW", "OL", "OX", "PE", "PL", "PO", "PR", "RG", "RH",
		"RM", "S", "SE", "SG", "SK", "SL", "SM", "SN", "SO", "SP", "SR",
		"SS", "ST", "SW", "TA", "TF", "TN", "TQ", "TR", "TS", "TW", "UB",
		"W", "WA", "WC", "WD", "WF", "WN", "WR", "WS", "WV", "YO",
	},
}

// areaIndex is the inverted lookup built once from the declarative tables.
var areaIndex = buildAreaIndex()

func buildAreaIndex() map[string]constants.Jurisdiction {
	index := make(map[string]constants.Jurisdiction)
	for jurisdiction, areas := range postcodeAreaTables {
		for _, area := range areas {
			index[area] = jurisdiction
		}
	}
	return index
}

// countryNames maps recognized explicit country values, lower-cased.
var countryNames = map[string]constants.Jurisdiction{
	"england":          constants.JurisdictionEngland,
	"scotland":         constants.JurisdictionScotland,
	"wales":            constants.JurisdictionWales,
	"northern ireland": constants.JurisdictionNorthernIreland,
	"northern_ireland": constants.JurisdictionNorthernIreland,
	"jersey":           constants.JurisdictionJersey,
	"guernsey":         constants.JurisdictionGuernsey,
	"isle of man":      constants.JurisdictionIsleOfMan,
	"isle_of_man":      constants.JurisdictionIsleOfMan,
}

// Classify returns the deduplicated union of jurisdictions across all
// locations, in the fixed jurisdiction order so results are deterministic
// regardless of input order.
func (c *JurisdictionClassifier) Classify(locations []models.Location) []constants.Jurisdiction {
	seen := make(map[constants.Jurisdiction]bool)
	for _, location := range locations {
		if jurisdiction, ok := c.ClassifyLocation(location); ok {
			seen[jurisdiction] = true
		}
	}

	var result []constants.Jurisdiction
	for _, jurisdiction := range constants.AllJurisdictions {
		if seen[jurisdiction] {
			result = append(result, jurisdiction)
		}
	}
	return result
}

// ClassifyLocation classifies a single location. The explicit country field
// is preferred; an unrecognized or absent country falls back to the postcode.
func (c *JurisdictionClassifier) ClassifyLocation(location models.Location) (constants.Jurisdiction, bool) {
	if country := strings.ToLower(strings.TrimSpace(location.Country)); country != "" {
		if jurisdiction, ok := countryNames[country]; ok {
			return jurisdiction, true
		}
	}
	return classifyPostcode(location.Postcode)
}

// classifyPostcode extracts the postcode area (the leading letters) and looks
// it up in the inverted table.
func classifyPostcode(postcode string) (constants.Jurisdiction, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	if normalized == "" {
		return "", false
	}

	end := 0
	for end < len(normalized) && end < 2 && normalized[end] >= 'A' && normalized[end] <= 'Z' {
		end++
	}
	if end == 0 {
		return "", false
	}

	// Two-letter areas take precedence over their one-letter prefix
	// (e.g. SW before S).
	if jurisdiction, ok := areaIndex[normalized[:end]]; ok {
		return jurisdiction, true
	}
	if end == 2 {
		if jurisdiction, ok := areaIndex[normalized[:1]]; ok {
			return jurisdiction, true
		}
	}
	return "", false
}

// AreaTables exposes the declarative tables for disjointness verification.
func AreaTables() map[constants.Jurisdiction][]string {
	return postcodeAreaTables
}
