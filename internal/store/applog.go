package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// timestampLayout matches the historical log format, so logs written by
// earlier runs keep parsing.
const timestampLayout = "2006-01-02 15:04:05"

// Record is one application attempt, successful or not.
type Record struct {
	Timestamp time.Time
	JobID     string
	Title     string
	Company   string
	Attempted bool
	Result    bool
}

// ApplicationLog is the append-only attempt log. Rows are headerless CSV:
// timestamp, job ID, title, company, attempted flag, result flag.
type ApplicationLog struct {
	path   string
	logger *zap.Logger
}

// NewApplicationLog returns a log backed by the given file path. The file
// is created lazily on first append.
func NewApplicationLog(path string, logger *zap.Logger) *ApplicationLog {
	return &ApplicationLog{path: path, logger: logger.Named("app-log")}
}

// Append writes one record. Each append opens, writes, flushes, and closes
// so a crash never loses earlier rows.
func (l *ApplicationLog) Append(rec Record) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening application log %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		rec.Timestamp.Format(timestampLayout),
		rec.JobID,
		rec.Title,
		rec.Company,
		strconv.FormatBool(rec.Attempted),
		strconv.FormatBool(rec.Result),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("appending application log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing application log: %w", err)
	}
	return nil
}

// RecentIDs returns the skip-set: job IDs with a record newer than the
// window, relative to now. A missing or unreadable log yields an empty set
// rather than an error; the bot simply re-derives the set on the next run.
func (l *ApplicationLog) RecentIDs(now time.Time, window time.Duration) map[string]bool {
	ids := make(map[string]bool)

	raw, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("Application log unreadable; starting with an empty skip-set.",
				zap.String("path", l.path), zap.Error(err))
		}
		return ids
	}

	r := csv.NewReader(strings.NewReader(string(raw)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		l.logger.Warn("Application log malformed; starting with an empty skip-set.", zap.Error(err))
		return ids
	}

	cutoff := now.Add(-window)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, row[0], now.Location())
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			ids[row[1]] = true
		}
	}

	l.logger.Info("Skip-set computed from application log.",
		zap.Int("job_ids", len(ids)), zap.Duration("window", window))
	return ids
}
