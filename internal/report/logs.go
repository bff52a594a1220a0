// Package report owns the per-run audit outputs: categorized log files and
// the optional Postgres history sink. Log files describe the most recent
// run only; they are truncated when a stage starts and appended line by
// line as records are processed, so a killed run keeps its partial log.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Log is a single categorized log file with one timestamped entry per line.
type Log struct {
	f *os.File
}

// CreateLog truncates/creates dir/name.
func CreateLog(dir, name string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{f: f}, nil
}

// Printf appends one timestamped entry. Write failures are swallowed: a log
// line must never abort the batch.
func (l *Log) Printf(format string, args ...any) {
	ts := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(l.f, ts+" "+format+"\n", args...)
}

func (l *Log) Close() error { return l.f.Close() }

// CloseAll closes a set of logs, keeping the first error.
func CloseAll(logs ...*Log) error {
	var first error
	for _, l := range logs {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
