// Command analyze_confidence prints a trend report from the performance
// tracker's on-disk dump (DATA_DIR/metrics.msgpack). This replaces the
// teacher's Postgres-backed trade-confidence-vs-PnL report: this engine
// has no trade-level persistence store to query, so the report instead
// walks the system-score records that performance.Tracker.DumpMetrics
// appends and summarizes their trend. The engine binary does not call
// DumpMetrics, so the file exists only where another caller wrote it.
package main

import (
	"fmt"
	"os"

	"xauengine/internal/performance"
)

func main() {
	dataDir := getEnv("DATA_DIR", "./data")

	records, err := performance.ReadDumpedMetrics(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read metrics dump: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("no metrics dump found at", dataDir)
		return
	}

	fmt.Printf("%-25s %-10s %-10s %-10s %s\n", "timestamp", "accuracy", "score", "trend", "evaluated")
	first := records[0]
	last := records[0]
	for _, rec := range records {
		fmt.Printf("%-25s %-10.3f %-10.3f %-10s %d\n",
			rec.Timestamp.Format("2006-01-02T15:04:05"),
			rec.AccuracyRate24h, rec.OverallSystemScore, rec.Trend, rec.EvaluatedDecisions)
		last = rec
	}

	fmt.Println()
	fmt.Printf("samples: %d\n", len(records))
	fmt.Printf("system score: %.3f -> %.3f (delta %.3f)\n",
		first.OverallSystemScore, last.OverallSystemScore, last.OverallSystemScore-first.OverallSystemScore)
	fmt.Printf("accuracy: %.3f -> %.3f\n", first.AccuracyRate24h, last.AccuracyRate24h)
	fmt.Printf("latest trend: %s\n", last.Trend)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
