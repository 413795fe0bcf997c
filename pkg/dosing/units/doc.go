// Package units implements tier-1 unit handling: validation,
// normalization and dimensional conversion across the standard clinical
// units the engine supports.
//
// The unit table is a curated clinical set, not a general-purpose
// physics catalog: masses ng through kg, volumes uL through L, and
// compound mass/volume concentrations such as mg/mL. Device unit
// tokens like "{click}" are recognized as syntax but never resolved
// here; that is tier-2 territory (package devices).
//
// All lookups are table-driven and deterministic. The Validator holds
// no state and is safe for concurrent use.
package units
