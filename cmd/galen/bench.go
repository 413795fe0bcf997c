package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/dosing/engine"
)

var benchFlags struct {
	context    contextFlags
	iterations int
	value      float64
	from       string
	to         string
	format     string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark conversion throughput",
	Long: `Measure conversion throughput and latency for a single conversion
shape, run repeatedly in-process.

Step recording is disabled during the run so the numbers reflect the
conversion hot path. The same context flags as convert apply, so device
conversions can be benchmarked with their real context.

Metrics collected:
  - Conversion throughput (conversions/sec)
  - Latency percentiles (p50, p95, p99, max)
  - Success/error counts

Examples:
  # Standard conversion throughput
  galen bench

  # Device conversion with context
  galen bench --iterations 50000 --value 2 --from "{tablet}" --to mg --strength "325 mg"

  # JSON output for tracking over time
  galen bench --format json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	addContextFlags(benchCmd, &benchFlags.context)
	benchCmd.Flags().IntVarP(&benchFlags.iterations, "iterations", "n", 10000, "number of conversions to run")
	benchCmd.Flags().Float64Var(&benchFlags.value, "value", 250, "value to convert")
	benchCmd.Flags().StringVar(&benchFlags.from, "from", "mcg", "source unit")
	benchCmd.Flags().StringVar(&benchFlags.to, "to", "mg", "target unit")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchFlags.iterations <= 0 {
		return cli.NewConfigError("iterations", "must be positive")
	}

	env, err := setupConversion(cmd, &benchFlags.context, false)
	if err != nil {
		return err
	}
	defer env.cleanup()

	// Step recording off: measure the conversion hot path.
	env.opts.Trace = engine.Bool(false)

	if benchFlags.format == "text" {
		fmt.Println("Galen Conversion Benchmark")
		fmt.Println("==========================")
		fmt.Printf("Conversion: %g %s to %s\n", benchFlags.value, benchFlags.from, benchFlags.to)
		fmt.Printf("Iterations: %d\n", benchFlags.iterations)
		fmt.Println()
		fmt.Println("Running...")
		fmt.Println()
	}

	results := runConversionLoop(env)

	if benchFlags.format == "json" {
		if err := outputBenchJSON(results); err != nil {
			return cli.NewCommandError("bench", err)
		}
	} else {
		displayBenchResults(results)
	}

	if results.successful == 0 {
		return cli.NewCommandError("bench", fmt.Errorf("every conversion failed: %w", results.lastErr))
	}
	return nil
}

type benchResults struct {
	iterations int
	successful int
	failed     int
	duration   time.Duration
	latencies  []time.Duration
	lastErr    error
}

func runConversionLoop(env *conversionEnv) *benchResults {
	results := &benchResults{
		iterations: benchFlags.iterations,
		latencies:  make([]time.Duration, 0, benchFlags.iterations),
	}

	var progress cli.ProgressReporter
	if benchFlags.format == "text" {
		progress = cli.NewProgressReporter(nil)
	} else {
		progress = cli.NewProgressReporter(os.Stderr)
	}
	progress.Start(int64(results.iterations))

	start := time.Now()
	for i := 0; i < results.iterations; i++ {
		convStart := time.Now()
		_, err := env.conv.Convert(benchFlags.value, benchFlags.from, benchFlags.to, env.ctx, env.opts)
		results.latencies = append(results.latencies, time.Since(convStart))

		if err != nil {
			results.failed++
			results.lastErr = err
		} else {
			results.successful++
		}

		if (i+1)%100 == 0 {
			progress.Update(int64(i + 1))
		}
	}
	progress.Finish()

	results.duration = time.Since(start)
	return results
}

func displayBenchResults(results *benchResults) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Conversions:     %d total, %d successful, %d failed\n",
		results.iterations, results.successful, results.failed)
	fmt.Printf("Duration:        %.2fs\n", results.duration.Seconds())

	if results.successful > 0 && results.duration > 0 {
		throughput := float64(results.successful) / results.duration.Seconds()
		fmt.Printf("Throughput:      %.0f conv/s\n", throughput)
	}

	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := calculatePercentiles(results.latencies)

		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:     %s\n", formatLatency(min))
		fmt.Printf("  Mean:    %s\n", formatLatency(mean))
		fmt.Printf("  Median:  %s\n", formatLatency(median))
		fmt.Printf("  p95:     %s\n", formatLatency(p95))
		fmt.Printf("  p99:     %s\n", formatLatency(p99))
		fmt.Printf("  Max:     %s\n", formatLatency(max))
	}

	if results.failed > 0 && results.lastErr != nil {
		fmt.Println()
		fmt.Printf("⚠  Last error: %v\n", results.lastErr)
	}
}

type benchReport struct {
	Iterations int     `json:"iterations"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	DurationMS float64 `json:"durationMs"`
	Throughput float64 `json:"conversionsPerSecond"`
	Latency    struct {
		MinUS    float64 `json:"minUs"`
		MeanUS   float64 `json:"meanUs"`
		MedianUS float64 `json:"medianUs"`
		P95US    float64 `json:"p95Us"`
		P99US    float64 `json:"p99Us"`
		MaxUS    float64 `json:"maxUs"`
	} `json:"latency"`
	LastError string `json:"lastError,omitempty"`
}

func outputBenchJSON(results *benchResults) error {
	report := benchReport{
		Iterations: results.iterations,
		Successful: results.successful,
		Failed:     results.failed,
		DurationMS: float64(results.duration.Microseconds()) / 1000,
	}
	if results.duration > 0 {
		report.Throughput = float64(results.successful) / results.duration.Seconds()
	}
	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := calculatePercentiles(results.latencies)
		report.Latency.MinUS = microseconds(min)
		report.Latency.MeanUS = microseconds(mean)
		report.Latency.MedianUS = microseconds(median)
		report.Latency.P95US = microseconds(p95)
		report.Latency.P99US = microseconds(p99)
		report.Latency.MaxUS = microseconds(max)
	}
	if results.lastErr != nil {
		report.LastError = results.lastErr.Error()
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func calculatePercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[percentileIndex(len(sorted), 0.50)]
	p95 = sorted[percentileIndex(len(sorted), 0.95)]
	p99 = sorted[percentileIndex(len(sorted), 0.99)]

	return
}

func percentileIndex(n int, q float64) int {
	idx := int(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.1fµs", microseconds(d))
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func microseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1000
}
