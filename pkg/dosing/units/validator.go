package units

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"meridianrx/galen/pkg/dosing"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
)

// TokenType classifies a unit token during validation.
type TokenType string

const (
	// TypeStandard marks tokens resolved against the standard unit
	// table.
	TypeStandard TokenType = "standard"

	// TypeDevice marks tokens with device syntax, owned by the device
	// adapter rather than this tier.
	TypeDevice TokenType = "device"

	// TypeUnknown marks tokens this tier could not recognize at all.
	TypeUnknown TokenType = "unknown"
)

// Validation is the result of validating a single unit token.
type Validation struct {
	// Valid reports whether this tier can resolve the token.
	Valid bool `json:"valid"`

	// Unit is the token exactly as supplied.
	Unit string `json:"unit"`

	// Type classifies the token.
	Type TokenType `json:"type"`

	// Normalized is the canonical form of the token, when one exists.
	Normalized string `json:"normalized,omitempty"`

	// Detail explains a rejection.
	Detail string `json:"detail,omitempty"`

	// Suggestions lists likely corrections for unknown tokens, best
	// first.
	Suggestions []string `json:"suggestions,omitempty"`
}

// deviceTokenPattern matches device unit syntax: a braced identifier
// such as "{click}" or "{metered dose}".
var deviceTokenPattern = regexp.MustCompile(`^\{[A-Za-z][A-Za-z0-9 _-]*\}$`)

// IsDeviceToken reports whether a token uses device unit syntax. It
// says nothing about whether the device unit is actually registered.
func IsDeviceToken(token string) bool {
	return deviceTokenPattern.MatchString(strings.TrimSpace(token))
}

// maxSuggestions caps how many corrections a validation failure
// carries.
const maxSuggestions = 3

// Validator resolves, converts and validates standard clinical units.
// It holds no state and is safe for concurrent use.
type Validator struct{}

// NewValidator returns a Validator backed by the curated clinical unit
// table.
func NewValidator() *Validator {
	return &Validator{}
}

// Normalize maps a unit token to its canonical form: synonyms collapse
// to their short token, and both sides of a compound mass/volume token
// are normalized independently. Device tokens and unrecognized tokens
// pass through trimmed but otherwise unchanged.
func (v *Validator) Normalize(unit string) string {
	token := strings.TrimSpace(unit)
	if token == "" || IsDeviceToken(token) {
		return token
	}
	if canonical, ok := resolveSimple(token); ok {
		return canonical
	}
	if num, den, found := strings.Cut(token, "/"); found {
		return v.normalizeSide(num) + "/" + v.normalizeSide(den)
	}
	return token
}

func (v *Validator) normalizeSide(side string) string {
	side = strings.TrimSpace(side)
	if canonical, ok := resolveSimple(side); ok {
		return canonical
	}
	return side
}

// resolveSimple maps a non-compound token to its canonical form,
// trying the token verbatim and then lowercased.
func resolveSimple(token string) (string, bool) {
	if _, ok := standardUnits[token]; ok {
		return token, true
	}
	if canonical, ok := synonyms[token]; ok {
		return canonical, true
	}
	lower := strings.ToLower(token)
	if canonical, ok := synonyms[lower]; ok {
		return canonical, true
	}
	if def, ok := findCaseInsensitive(lower); ok {
		return def.code, true
	}
	return "", false
}

func findCaseInsensitive(lower string) (definition, bool) {
	for code, def := range standardUnits {
		if strings.ToLower(code) == lower {
			return def, true
		}
	}
	return definition{}, false
}

// parse resolves a normalized token to its definition, deriving
// compound concentration definitions on demand.
func (v *Validator) parse(normalized string) (definition, bool) {
	if def, ok := standardUnits[normalized]; ok {
		return def, true
	}
	num, den, found := strings.Cut(normalized, "/")
	if !found {
		return definition{}, false
	}
	numDef, ok := standardUnits[num]
	if !ok || numDef.dimension != DimensionMass {
		return definition{}, false
	}
	denDef, ok := standardUnits[den]
	if !ok || denDef.dimension != DimensionVolume {
		return definition{}, false
	}
	return definition{
		code:      num + "/" + den,
		display:   numDef.display + " per " + denDef.display,
		dimension: DimensionConcentration,
		factor:    numDef.factor / denDef.factor,
	}, true
}

// Factor returns the multiplier that converts one unit of from into
// to. Both tokens must resolve to the same dimension.
func (v *Validator) Factor(from, to string) (float64, error) {
	fromDef, err := v.resolve(from)
	if err != nil {
		return 0, err
	}
	toDef, err := v.resolve(to)
	if err != nil {
		return 0, err
	}
	if fromDef.dimension != toDef.dimension {
		return 0, dosingErrors.NewImpossibleConversion(from, to,
			fmt.Sprintf("%s and %s are incompatible dimensions without additional context",
				fromDef.dimension, toDef.dimension))
	}
	return fromDef.factor / toDef.factor, nil
}

// Convert converts a value between two standard units of the same
// dimension.
func (v *Validator) Convert(value float64, from, to string) (float64, error) {
	factor, err := v.Factor(from, to)
	if err != nil {
		return 0, err
	}
	return value * factor, nil
}

func (v *Validator) resolve(unit string) (definition, error) {
	token := strings.TrimSpace(unit)
	if IsDeviceToken(token) {
		return definition{}, dosingErrors.NewInvalidUnit(unit,
			"device units are resolved by the device adapter, not the standard unit table", nil)
	}
	normalized := v.Normalize(token)
	def, ok := v.parse(normalized)
	if !ok {
		return definition{}, dosingErrors.NewInvalidUnit(unit, "unknown unit", v.suggest(token))
	}
	return def, nil
}

// DimensionOf returns the dimension of a standard unit token, or false
// when the token does not resolve to a standard unit.
func (v *Validator) DimensionOf(unit string) (Dimension, bool) {
	def, ok := v.parse(v.Normalize(unit))
	if !ok {
		return "", false
	}
	return def.dimension, true
}

// Validate classifies a single unit token. Device-syntax tokens come
// back valid=false with type "device"; they are not errors, just owned
// by the other tier.
func (v *Validator) Validate(unit string) Validation {
	token := strings.TrimSpace(unit)
	if token == "" {
		return Validation{Unit: unit, Type: TypeUnknown, Detail: "empty unit"}
	}
	if IsDeviceToken(token) {
		return Validation{
			Unit:       unit,
			Type:       TypeDevice,
			Normalized: token,
			Detail:     "device units are resolved by the device adapter",
		}
	}
	normalized := v.Normalize(token)
	if def, ok := v.parse(normalized); ok {
		return Validation{Valid: true, Unit: unit, Type: TypeStandard, Normalized: def.code}
	}
	return Validation{
		Unit:        unit,
		Type:        TypeUnknown,
		Detail:      "unknown unit",
		Suggestions: v.suggest(token),
	}
}

// suggest builds corrections for an unknown token: the typo table
// first, then the missing-separator heuristic for concatenated
// mass/volume tokens, then edit-distance matches over the canonical
// table.
func (v *Validator) suggest(token string) []string {
	lower := strings.ToLower(strings.TrimSpace(token))
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if fix, ok := typoTable[lower]; ok {
		add(fix)
	}
	if fix, ok := missingSeparator(lower); ok {
		add(fix)
	}
	for _, near := range dosingErrors.SuggestUnits(lower, v.Codes(), maxSuggestions) {
		add(near)
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// missingSeparator recognizes concatenated concentration tokens such
// as "mgml" and proposes the separated form "mg/mL".
func missingSeparator(lower string) (string, bool) {
	for _, prefix := range massPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := lower[len(prefix):]
		if canonical, ok := volumeShorthand[rest]; ok {
			return prefix + "/" + canonical, true
		}
	}
	return "", false
}

// CompatibleUnits returns the curated list of units a valid standard
// unit converts to, excluding the unit itself. The list is clinically
// curated, not the full dimensional closure.
func (v *Validator) CompatibleUnits(unit string) ([]dosing.Unit, error) {
	def, err := v.resolve(unit)
	if err != nil {
		return nil, err
	}
	codes := compatibleByDimension[def.dimension]
	out := make([]dosing.Unit, 0, len(codes))
	for _, code := range codes {
		if code == def.code {
			continue
		}
		cdef, ok := v.parse(code)
		if !ok {
			continue
		}
		out = append(out, dosing.Unit{
			Code:      cdef.code,
			Display:   cdef.display,
			Custom:    false,
			Dimension: string(cdef.dimension),
		})
	}
	return out, nil
}

// Compatible reports whether a conversion between two standard unit
// tokens could succeed.
func (v *Validator) Compatible(from, to string) bool {
	_, err := v.Factor(from, to)
	return err == nil
}

// Codes returns every canonical standard unit token, sorted.
func (v *Validator) Codes() []string {
	codes := make([]string, 0, len(standardUnits))
	for code := range standardUnits {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Describe returns the read-only description of a standard unit token.
func (v *Validator) Describe(unit string) (dosing.Unit, error) {
	def, err := v.resolve(unit)
	if err != nil {
		return dosing.Unit{}, err
	}
	return dosing.Unit{
		Code:      def.code,
		Display:   def.display,
		Custom:    false,
		Dimension: string(def.dimension),
	}, nil
}
