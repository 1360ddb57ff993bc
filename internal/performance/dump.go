package performance

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// DumpRecord is one append-only metrics-dump entry. Absence of the data
// directory is not an error — the dump is best-effort only. Exported so
// the standalone report tool in cmd/ can decode the same stream this
// package appends to.
type DumpRecord struct {
	Timestamp          time.Time
	AccuracyRate24h    float64
	OverallSystemScore float64
	Trend              Trend
	EvaluatedDecisions int
}

// DumpMetrics appends one snapshot of the current metrics to
// <dataDir>/metrics.msgpack. A missing dataDir is silently skipped.
func (t *Tracker) DumpMetrics(dataDir string, recoveryEffectiveness, executionSuccess float64) error {
	if dataDir == "" {
		return nil
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return nil
	}

	t.mu.Lock()
	evaluated := 0
	for _, rec := range t.records {
		if rec.State == Evaluated {
			evaluated++
		}
	}
	t.mu.Unlock()

	rec := DumpRecord{
		Timestamp:          time.Now(),
		AccuracyRate24h:    t.AccuracyRate24h(),
		OverallSystemScore: t.OverallSystemScore(recoveryEffectiveness, executionSuccess),
		Trend:              t.ScoreTrend(),
		EvaluatedDecisions: evaluated,
	}

	encoded, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dataDir, "metrics.msgpack"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(encoded)
	return err
}

// ReadDumpedMetrics decodes every record appended by DumpMetrics, in
// order. A missing file yields an empty slice, not an error.
func ReadDumpedMetrics(dataDir string) ([]DumpRecord, error) {
	path := filepath.Join(dataDir, "metrics.msgpack")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	var records []DumpRecord
	for {
		var rec DumpRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}
