// Package store owns the two durable artifacts of a run: the learned
// question/answer cache and the application log. Both are flat CSV files
// that are loaded fully at startup and appended to incrementally, never
// rewritten; the process exiting mid-run therefore loses at most the row
// being written.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// AnswerCache is the persisted mapping from a normalized question to the
// answer previously given for it. Entries are insertion ordered and are
// never updated or removed. The cache is process-wide state accessed from
// the single control goroutine, so no locking is required.
type AnswerCache struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	answers map[string]string
	order   []string
	logger  *zap.Logger
}

// OpenAnswerCache loads the cache file at path, creating it with a header
// row if it does not exist. The file is kept open for appending.
func OpenAnswerCache(path string, logger *zap.Logger) (*AnswerCache, error) {
	c := &AnswerCache{
		path:    path,
		answers: make(map[string]string),
		logger:  logger.Named("answer-cache"),
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := c.load(string(existing)); err != nil {
			return nil, fmt.Errorf("loading answer cache %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// First run; the header is written below.
	default:
		return nil, fmt.Errorf("reading answer cache %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening answer cache %s for append: %w", path, err)
	}
	c.file = f
	c.writer = csv.NewWriter(f)

	if len(existing) == 0 {
		if err := c.writer.Write([]string{"Question", "Answer"}); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing answer cache header: %w", err)
		}
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flushing answer cache header: %w", err)
		}
	}

	c.logger.Info("Answer cache loaded.", zap.String("path", path), zap.Int("entries", len(c.order)))
	return c, nil
}

func (c *AnswerCache) load(raw string) error {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			// Header row, or a malformed line from a prior crash.
			continue
		}
		q := row[0]
		if _, seen := c.answers[q]; seen {
			continue
		}
		c.answers[q] = row[1]
		c.order = append(c.order, q)
	}
	return nil
}

// Get returns the cached answer for the question, if any.
func (c *AnswerCache) Get(question string) (string, bool) {
	a, ok := c.answers[question]
	return a, ok
}

// Len reports the number of cached entries.
func (c *AnswerCache) Len() int { return len(c.order) }

// Questions returns the cached questions in insertion order.
func (c *AnswerCache) Questions() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Put records the answer for a question it has not seen before, appending
// it to the file immediately. A question already present is left untouched,
// preserving the no-duplicate-rows invariant.
func (c *AnswerCache) Put(question, answer string) error {
	if _, seen := c.answers[question]; seen {
		return nil
	}
	c.answers[question] = answer
	c.order = append(c.order, question)

	if err := c.writer.Write([]string{question, answer}); err != nil {
		return fmt.Errorf("appending answer cache row: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("flushing answer cache: %w", err)
	}
	c.logger.Debug("Learned answer persisted.", zap.String("question", question), zap.String("answer", answer))
	return nil
}

// Close releases the underlying file. Writes are already flushed per Put.
func (c *AnswerCache) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
