package engine

// Default request option values.
const (
	defaultTolerance = 1e-6
	defaultMaxSteps  = 10
)

// Options tunes a single conversion request. A nil Options uses
// DefaultOptions; an unset field falls back to its default.
type Options struct {
	// Trace records the individual conversion steps on the result.
	// Nil means true; an explicit false suppresses step detail.
	Trace *bool `json:"trace,omitempty"`

	// Tolerance is the relative precision tolerance enforced in strict
	// mode. Default: 1e-6
	Tolerance float64 `json:"tolerance"`

	// MaxSteps bounds how many steps a conversion may take before it
	// fails. Default: 10
	MaxSteps int `json:"maxSteps"`

	// Strict makes the conversion fail with a precision-loss error
	// when the result cannot be represented within Tolerance.
	// Default: false
	Strict bool `json:"strict"`
}

// DefaultOptions returns the default request options.
func DefaultOptions() *Options {
	return &Options{
		Trace:     Bool(true),
		Tolerance: defaultTolerance,
		MaxSteps:  defaultMaxSteps,
		Strict:    false,
	}
}

// Bool returns a pointer to v, for filling optional option fields.
func Bool(v bool) *bool {
	return &v
}

// withDefaults resolves nil and unset options. The returned Options
// always has a non-nil Trace.
func (o *Options) withDefaults() Options {
	if o == nil {
		return *DefaultOptions()
	}
	resolved := *o
	if resolved.Trace == nil {
		resolved.Trace = Bool(true)
	}
	if resolved.Tolerance <= 0 {
		resolved.Tolerance = defaultTolerance
	}
	if resolved.MaxSteps <= 0 {
		resolved.MaxSteps = defaultMaxSteps
	}
	return resolved
}
