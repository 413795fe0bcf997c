// Package devices implements tier-2 unit handling: the device unit
// registry and the adapter that converts between device units and
// standard clinical units.
//
// A device unit is a braced token such as "{click}" or "{tablet}"
// describing a dose the way a dispensing device measures it. Each
// registered unit declares the standard unit it relates to (RatioTo)
// and how the conversion factor is found. Some factors are fixed by
// the device itself: a topical dispenser delivers 0.25 mL per click
// regardless of what is in it. Others depend on the medication: a
// tablet is worth however many milligrams the label says, so the
// factor must come from conversion context.
//
// The Adapter resolves factors with a strict precedence:
//
//  1. a caller-supplied custom conversion for the device unit
//  2. medication strength data, for tablets and capsules
//  3. a lot-specific factor selected by the context lot number
//  4. the factor registered on the unit
//
// When none of the sources apply the adapter fails with a missing
// context error naming exactly which fields would have resolved the
// device, so callers can prompt for them.
//
// Injection devices lose a few units to air-prime before each dose.
// When a device carries an air-prime loss (or the context overrides
// it), converting from that device subtracts the loss before the
// factor applies, floored at zero, and records the adjustment as its
// own step.
//
// The registry is populated at startup and treated as read-only while
// conversions are in flight; registration is not synchronized with
// concurrent converts.
package devices
