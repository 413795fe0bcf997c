// Package sigtext renders conversion results as dispensing signature
// text, the instruction line printed on a prescription label.
//
// Rendering is deterministic: the same result and directions always
// produce the same text. The dose comes from the conversion result,
// device units are spelled with their registered display names, and
// when the conversion changed units the original dose is kept in
// parentheses so the prescriber's intent stays visible:
//
//	Take 2 tablets (1,000 mg) by mouth twice daily
//
// Results below high confidence carry a note for the dispensing
// pharmacist alongside the instruction line.
package sigtext

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/devices"
	"meridianrx/galen/pkg/dosing/units"
)

// Directions describes how a dose is administered. The zero value
// renders a bare instruction with no route or frequency clause.
type Directions struct {
	// Route is the administration route ("oral", "topical", ...).
	// Known routes pick the instruction verb and clause; unknown
	// routes render literally.
	Route string `json:"route,omitempty"`

	// TimesPerDay renders a daily frequency clause ("twice daily").
	// Zero means unspecified.
	TimesPerDay int `json:"timesPerDay,omitempty"`

	// EveryHours renders an interval clause ("every 8 hours") and
	// takes precedence over TimesPerDay when both are set.
	EveryHours int `json:"everyHours,omitempty"`

	// AsNeeded appends an as-needed clause.
	AsNeeded bool `json:"asNeeded,omitempty"`

	// AsNeededFor names the indication for the as-needed clause
	// ("pain" renders "as needed for pain").
	AsNeededFor string `json:"asNeededFor,omitempty"`
}

// Sig is a rendered signature.
type Sig struct {
	// Text is the instruction line.
	Text string `json:"text"`

	// Note is the pharmacist-facing confidence note; empty for
	// high-confidence conversions.
	Note string `json:"note,omitempty"`
}

// String renders the sig as printable text, the note on its own line
// when present.
func (s *Sig) String() string {
	if s.Note == "" {
		return s.Text
	}
	return s.Text + "\n" + s.Note
}

// Renderer turns conversion results into signature text.
type Renderer struct {
	registry  *devices.Registry
	validator *units.Validator
}

// NewRenderer creates a renderer. A nil registry uses the default
// clinical device set; pass the converter's registry so custom device
// units render with their registered display names.
func NewRenderer(registry *devices.Registry) *Renderer {
	if registry == nil {
		registry = devices.DefaultRegistry()
	}
	return &Renderer{
		registry:  registry,
		validator: units.NewValidator(),
	}
}

// Render builds the signature for a conversion result. Nil directions
// render the dose with no route or frequency clause.
func (r *Renderer) Render(res *dosing.Result, d *Directions) (*Sig, error) {
	if res == nil {
		return nil, fmt.Errorf("sigtext: result cannot be nil")
	}
	if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
		return nil, fmt.Errorf("sigtext: result value %v is not a finite number", res.Value)
	}
	if strings.TrimSpace(res.ToUnit) == "" {
		return nil, fmt.Errorf("sigtext: result has no unit")
	}
	if d == nil {
		d = &Directions{}
	}

	phrase := routeFor(d.Route)

	parts := []string{phrase.verb, r.dosePhrase(res.Value, res.ToUnit)}
	if !r.sameUnit(res.FromUnit, res.ToUnit) {
		parts = append(parts, "("+r.dosePhrase(res.OriginalValue, res.FromUnit)+")")
	}
	if phrase.clause != "" {
		parts = append(parts, phrase.clause)
	}
	if freq := frequencyClause(d); freq != "" {
		parts = append(parts, freq)
	}
	if prn := asNeededClause(d); prn != "" {
		parts = append(parts, prn)
	}

	return &Sig{
		Text: strings.Join(parts, " "),
		Note: noteFor(res.Confidence),
	}, nil
}

// dosePhrase renders an amount with its unit: device units by display
// name with count-based pluralization, standard units by normalized
// code.
func (r *Renderer) dosePhrase(value float64, unit string) string {
	count := formatCount(value)
	token := strings.TrimSpace(unit)
	if units.IsDeviceToken(token) {
		singular, plural := r.deviceNames(token)
		if count == "1" || plural == "" {
			return count + " " + singular
		}
		return count + " " + plural
	}
	return count + " " + r.validator.Normalize(token)
}

// deviceNames resolves the display forms for a device token. Tokens
// missing from the registry fall back to the bare token name.
func (r *Renderer) deviceNames(token string) (singular, plural string) {
	if u, ok := r.registry.Lookup(token); ok {
		singular = u.Display
		if singular == "" {
			singular = strings.Trim(u.ID, "{}")
		}
		return singular, u.PluralDisplay
	}
	return strings.Trim(token, "{}"), ""
}

// sameUnit compares unit tokens: device tokens verbatim, standard
// units by normalized form.
func (r *Renderer) sameUnit(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if units.IsDeviceToken(a) || units.IsDeviceToken(b) {
		return a == b
	}
	return r.validator.Normalize(a) == r.validator.Normalize(b)
}

// formatCount renders a dose amount for label text: at most four
// decimal places, no trailing zeros, integer digits grouped with
// commas. Label amounts are read by humans, so float noise is
// rounded away rather than carried.
func formatCount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
