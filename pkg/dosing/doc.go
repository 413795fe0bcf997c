// Package dosing defines the shared data model for the Galen unit
// conversion engine.
//
// The engine translates medication quantities between standard clinical
// units (mass, volume, concentration) and device units (clicks, drops,
// tablets, patches, puffs, sprays), tracking how reliable each conversion
// is and why. This package holds the types every engine tier exchanges:
//
//   - Quantity: a value paired with a unit token
//   - Step / StepKind: one recorded hop of a multi-step conversion
//   - Result: the outcome of a conversion, with its full step audit trail
//   - ConversionContext: per-call data that resolves context-dependent
//     device factors (medication strength, lot number, overrides)
//   - Score: a deterministic [0,1] confidence estimate with itemized
//     rationale
//
// # Architecture
//
// The engine itself lives in subpackages, leaves first:
//
//   - errors: the closed conversion error taxonomy
//   - units: tier-1 standard unit validation and dimensional conversion
//   - devices: tier-2 device unit registry and context-aware factors
//   - confidence: the conversion confidence scorer
//   - trace: the optional execution tracer
//   - engine: the public orchestrator tying the tiers together
//
// Nothing under pkg/dosing performs I/O, persists state, or touches the
// network. Callers construct a ConversionContext per call and discard the
// Result when done; only the orchestrator retains the most recent result
// to serve its Explain convenience method.
//
// # Basic Usage
//
//	conv := engine.New(nil)
//	res, err := conv.Convert(1000, "mg", "g", nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Value)            // 1
//	fmt.Println(res.Confidence.Level) // high
//
// Device conversions that depend on medication data take a context:
//
//	ctx := &dosing.ConversionContext{
//	    StrengthRatio: &dosing.StrengthRatio{
//	        Numerator:   dosing.Quantity{Value: 100, Unit: "mg"},
//	        Denominator: dosing.Quantity{Value: 1, Unit: "mL"},
//	    },
//	}
//	res, err = conv.Convert(4, "{click}", "mg", ctx, nil)
package dosing
