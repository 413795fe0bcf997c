// Package formulary manages medication profiles: the ingredient
// strengths, device units and lot calibrations a conversion needs as
// context.
//
// A Medication is the unit of storage. Store implementations live in
// the storage subpackage (in-memory and SQLite); the cache subpackage
// wraps any Store with an LRU read cache. Seed data loads from YAML
// files through LoadFile and LoadDir.
//
// ContextBuilder is the bridge to the conversion engine: it resolves a
// medication ID (and optionally a lot number) into the
// dosing.ConversionContext the engine consumes, and DeviceUnits
// returns the medication's device units with lot calibration folded
// in, ready for registry registration.
package formulary
