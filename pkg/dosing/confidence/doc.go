// Package confidence implements the deterministic conversion
// confidence scorer.
//
// Every successful conversion gets a score in [0,1] built from a fixed
// policy: a base score keyed to the number of steps the conversion
// took, plus signed adjustments for how the factors were obtained
// (lot-specific data, defaults, custom factors), what kinds of steps
// ran, and whether the magnitudes involved risk floating-point
// precision loss. The same steps and flags always produce an identical
// score, so scores are comparable across runs and testable to the
// digit.
//
// Scores also carry their own audit trail: the full adjustment list,
// a per-category breakdown, and a rationale naming every adjustment
// large enough to matter.
package confidence
