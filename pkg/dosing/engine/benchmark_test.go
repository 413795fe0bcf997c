package engine

import (
	"io"
	"log/slog"
	"testing"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/trace"
)

func newBenchConverter(traced bool) *Converter {
	return New(&Config{
		Tracer: trace.New(&trace.Config{Enabled: traced, MaxEntries: 1000}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// BenchmarkConvertStandard benchmarks the hot path: a single standard
// unit conversion with tracing off.
func BenchmarkConvertStandard(b *testing.B) {
	c := newBenchConverter(false)
	opts := &Options{Trace: Bool(true)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Convert(1000, "mg", "g", nil, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConvertDevice benchmarks a registry-backed device
// conversion.
func BenchmarkConvertDevice(b *testing.B) {
	c := newBenchConverter(false)
	opts := &Options{Trace: Bool(true)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Convert(4, "{click}", "mL", nil, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConvertConcentration benchmarks the strength-ratio bridge
// between a device unit and a mass target.
func BenchmarkConvertConcentration(b *testing.B) {
	c := newBenchConverter(false)
	ctx := &dosing.ConversionContext{
		StrengthRatio: &dosing.StrengthRatio{
			Numerator:   dosing.Quantity{Value: 100, Unit: "mg"},
			Denominator: dosing.Quantity{Value: 1, Unit: "mL"},
		},
	}
	opts := &Options{Trace: Bool(true)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Convert(4, "{click}", "mg", ctx, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConvertTraced measures the tracing overhead on the standard
// path.
func BenchmarkConvertTraced(b *testing.B) {
	c := newBenchConverter(true)
	opts := &Options{Trace: Bool(true)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Tracer().Reset()
		if _, err := c.Convert(1000, "mg", "g", nil, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidate benchmarks unit token validation across both
// tiers.
func BenchmarkValidate(b *testing.B) {
	c := newBenchConverter(false)
	tokens := []string{"mg", "mL", "{click}", "mg/mL", "bogus"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Validate(tokens[i%len(tokens)])
	}
}
