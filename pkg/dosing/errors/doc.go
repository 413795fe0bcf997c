// Package errors defines the closed error taxonomy of the conversion
// engine.
//
// Every failure a conversion can surface is one of five types, each
// carrying the structured fields a caller needs to react without
// parsing message strings:
//
//   - ImpossibleConversionError: the units are dimensionally
//     incompatible and no context could bridge them
//   - MissingContextError: a device factor needs context data the
//     caller did not supply
//   - InvalidUnitError: a unit token is unknown, with suggestions when
//     a near miss is recognized
//   - PrecisionLossError: strict mode detected precision beyond the
//     requested tolerance
//   - ConversionError: the generic wrapper for every other failure
//
// All five implement EngineError, which adds a Kind discriminant and
// structured log fields to the standard error interface. Callers branch
// with errors.As on the concrete type or with KindOf on the
// discriminant.
package errors
