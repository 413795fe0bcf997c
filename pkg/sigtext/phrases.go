package sigtext

import (
	"fmt"
	"strings"

	"meridianrx/galen/pkg/dosing"
)

// routePhrase pairs the instruction verb with the route clause that
// follows the dose.
type routePhrase struct {
	verb   string
	clause string
}

// routePhrases holds the conventional label wording per administration
// route.
var routePhrases = map[string]routePhrase{
	"oral":          {"Take", "by mouth"},
	"sublingual":    {"Place", "under the tongue"},
	"buccal":        {"Place", "between the cheek and gum"},
	"topical":       {"Apply", "to the affected area"},
	"transdermal":   {"Apply", "to the skin"},
	"subcutaneous":  {"Inject", "under the skin"},
	"intramuscular": {"Inject", "into the muscle"},
	"intravenous":   {"Administer", "intravenously"},
	"inhalation":    {"Inhale", "by mouth"},
	"nasal":         {"Spray", "into the nose"},
	"ophthalmic":    {"Instill", "into the affected eye"},
	"otic":          {"Instill", "into the affected ear"},
	"rectal":        {"Insert", "rectally"},
	"vaginal":       {"Insert", "vaginally"},
}

// routeFor resolves the phrase for a route. An empty route renders a
// bare "Take"; an unrecognized route is kept literally so the text
// never drops information the prescriber supplied.
func routeFor(route string) routePhrase {
	key := strings.ToLower(strings.TrimSpace(route))
	if key == "" {
		return routePhrase{verb: "Take"}
	}
	if p, ok := routePhrases[key]; ok {
		return p
	}
	return routePhrase{verb: "Use", clause: fmt.Sprintf("via the %s route", key)}
}

// frequencyClause renders the dosing frequency. An interval wins over
// a daily count when both are set.
func frequencyClause(d *Directions) string {
	switch {
	case d.EveryHours == 1:
		return "every hour"
	case d.EveryHours > 1:
		return fmt.Sprintf("every %d hours", d.EveryHours)
	case d.TimesPerDay == 1:
		return "once daily"
	case d.TimesPerDay == 2:
		return "twice daily"
	case d.TimesPerDay > 2:
		return fmt.Sprintf("%d times daily", d.TimesPerDay)
	}
	return ""
}

func asNeededClause(d *Directions) string {
	if !d.AsNeeded {
		return ""
	}
	if reason := strings.TrimSpace(d.AsNeededFor); reason != "" {
		return "as needed for " + reason
	}
	return "as needed"
}

// confidenceNotes maps confidence levels to the pharmacist note
// printed with the sig. High-confidence conversions carry none.
var confidenceNotes = map[dosing.ConfidenceLevel]string{
	dosing.ConfidenceMedium:  "Conversion involves device-specific or derived factors; verify against the medication label.",
	dosing.ConfidenceLow:     "Low conversion confidence; confirm with a pharmacist before dispensing.",
	dosing.ConfidenceVeryLow: "Conversion could not be established reliably; do not dispense without manual verification.",
}

func noteFor(score *dosing.Score) string {
	if score == nil {
		return ""
	}
	return confidenceNotes[score.Level]
}
