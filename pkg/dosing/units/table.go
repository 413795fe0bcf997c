package units

// Dimension is the physical dimension of a standard unit.
type Dimension string

const (
	// DimensionMass covers weight units, base unit gram.
	DimensionMass Dimension = "mass"

	// DimensionVolume covers liquid volume units, base unit liter.
	DimensionVolume Dimension = "volume"

	// DimensionConcentration covers compound mass-per-volume units,
	// base unit gram per liter.
	DimensionConcentration Dimension = "concentration"
)

// definition describes one standard unit: its canonical token, display
// name, dimension, and the factor that converts it to the dimension's
// base unit.
type definition struct {
	code      string
	display   string
	dimension Dimension
	factor    float64
}

// standardUnits is the curated clinical unit table. Compound
// concentration tokens are not listed; they are derived on demand from
// their mass and volume sides.
var standardUnits = map[string]definition{
	"ng":  {code: "ng", display: "nanogram", dimension: DimensionMass, factor: 1e-9},
	"mcg": {code: "mcg", display: "microgram", dimension: DimensionMass, factor: 1e-6},
	"mg":  {code: "mg", display: "milligram", dimension: DimensionMass, factor: 1e-3},
	"g":   {code: "g", display: "gram", dimension: DimensionMass, factor: 1},
	"kg":  {code: "kg", display: "kilogram", dimension: DimensionMass, factor: 1e3},

	"uL": {code: "uL", display: "microliter", dimension: DimensionVolume, factor: 1e-6},
	"mL": {code: "mL", display: "milliliter", dimension: DimensionVolume, factor: 1e-3},
	"dL": {code: "dL", display: "deciliter", dimension: DimensionVolume, factor: 1e-1},
	"L":  {code: "L", display: "liter", dimension: DimensionVolume, factor: 1},
}

// synonyms maps accepted spellings to canonical tokens. Lookup tries
// the token verbatim, then lowercased.
var synonyms = map[string]string{
	"µg":         "mcg",
	"ug":         "mcg",
	"microgram":  "mcg",
	"micrograms": "mcg",
	"milligram":  "mg",
	"milligrams": "mg",
	"gram":       "g",
	"grams":      "g",
	"kilogram":   "kg",
	"kilograms":  "kg",
	"nanogram":   "ng",
	"nanograms":  "ng",

	"cc":          "mL",
	"ml":          "mL",
	"milliliter":  "mL",
	"milliliters": "mL",
	"millilitre":  "mL",
	"millilitres": "mL",
	"l":           "L",
	"liter":       "L",
	"liters":      "L",
	"litre":       "L",
	"litres":      "L",
	"dl":          "dL",
	"deciliter":   "dL",
	"deciliters":  "dL",
	"ul":          "uL",
	"µl":          "uL",
	"microliter":  "uL",
	"microliters": "uL",
}

// typoTable maps frequently observed misspellings to the token the
// author almost certainly meant. Bare device names map to their braced
// form so "tabs" suggests "{tablet}" instead of failing cold.
var typoTable = map[string]string{
	"mgs":  "mg",
	"mcgs": "mcg",
	"mls":  "mL",
	"gm":   "g",
	"gms":  "g",
	"grm":  "g",
	"grms": "g",
	"lt":   "L",
	"ltr":  "L",
	"ltrs": "L",

	"tab":      "{tablet}",
	"tabs":     "{tablet}",
	"tablet":   "{tablet}",
	"tablets":  "{tablet}",
	"cap":      "{capsule}",
	"caps":     "{capsule}",
	"capsule":  "{capsule}",
	"capsules": "{capsule}",
	"click":    "{click}",
	"clicks":   "{click}",
	"drop":     "{drop}",
	"drops":    "{drop}",
	"gtt":      "{drop}",
	"gtts":     "{drop}",
	"puff":     "{puff}",
	"puffs":    "{puff}",
	"spray":    "{spray}",
	"sprays":   "{spray}",
	"patch":    "{patch}",
	"patches":  "{patch}",
	"scoop":    "{scoop}",
	"scoops":   "{scoop}",
}

// massPrefixes lists mass tokens checked by the missing-separator
// heuristic, longest first so "mcg" wins over "g".
var massPrefixes = []string{"mcg", "ng", "mg", "kg", "g"}

// volumeShorthand maps lowercase volume tails accepted by the
// missing-separator heuristic to canonical volume tokens.
var volumeShorthand = map[string]string{
	"ml": "mL",
	"l":  "L",
	"dl": "dL",
	"ul": "uL",
}

// compatibleByDimension holds the curated compatibility lists returned
// by CompatibleUnits. Intentionally smaller than the full dimensional
// closure; these are the targets a prescriber plausibly wants.
var compatibleByDimension = map[Dimension][]string{
	DimensionMass:          {"mcg", "mg", "g", "kg"},
	DimensionVolume:        {"mL", "L"},
	DimensionConcentration: {"mg/mL", "mcg/mL", "g/L"},
}
