// Package failure implements the three-sink failure logger (spec §4.4): a
// human-readable detail log, a deduplicated URL list for easy resubmission,
// and a JSONL record stream for programmatic consumption.
package failure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ytsubs/core/internal/errors"
)

// Record is one failure, serialized as a line in failed_records.json (§3
// FailureRecord).
type Record struct {
	VideoID     string `json:"video_id"`
	URL         string `json:"url"`
	Stage       string `json:"stage"`
	ErrorType   string `json:"error_type"`
	Reason      string `json:"reason"`
	Timestamp   string `json:"timestamp"`
	RunID       string `json:"run_id,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	ChannelName string `json:"channel_name,omitempty"`
}

// Logger writes failures to the three sinks under baseOutputDir:
// failed_detail.log, failed_urls.txt, failed_records.json.
type Logger struct {
	detailPath  string
	urlsPath    string
	recordsPath string

	mu sync.Mutex
}

// NewLogger creates baseOutputDir if needed and returns a Logger bound to
// its three sink files.
func NewLogger(baseOutputDir string) (*Logger, error) {
	if err := os.MkdirAll(baseOutputDir, 0o755); err != nil {
		return nil, apperrors.FileIOErr("create failure log dir", err)
	}
	return &Logger{
		detailPath:  filepath.Join(baseOutputDir, "failed_detail.log"),
		urlsPath:    filepath.Join(baseOutputDir, "failed_urls.txt"),
		recordsPath: filepath.Join(baseOutputDir, "failed_records.json"),
	}, nil
}

// nowFn is overridable in tests.
var nowFn = func() time.Time { return time.Now() }

// LogFailure appends a failure to all three sinks. Each sink write is
// line-granular (a single os.OpenFile append + WriteString), so a reader
// never observes a partial line.
func (l *Logger) LogFailure(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = nowFn().Format("2006-01-02 15:04:05")
	}

	if err := l.appendDetailLine(rec); err != nil {
		return err
	}
	if err := l.appendURLIfNew(rec.URL); err != nil {
		return err
	}
	return l.appendRecordLine(rec)
}

func (l *Logger) appendDetailLine(rec Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", rec.Timestamp)
	if rec.RunID != "" {
		fmt.Fprintf(&b, " [batch:%s]", rec.RunID)
	}
	fmt.Fprintf(&b, " [video:%s] %s error=%s msg=%s stage=%s\n",
		rec.VideoID, rec.URL, rec.ErrorType, rec.Reason, rec.Stage)

	return appendLine(l.detailPath, b.String())
}

func (l *Logger) appendURLIfNew(url string) error {
	existing, err := readLines(l.urlsPath)
	if err != nil {
		return err
	}
	for _, line := range existing {
		if line == url {
			return nil
		}
	}
	return appendLine(l.urlsPath, url+"\n")
}

func (l *Logger) appendRecordLine(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperrors.ParseErr("marshal failure record", err)
	}
	return appendLine(l.recordsPath, string(data)+"\n")
}

// ClearLogs removes all three sink files. Used by tests and explicit
// user-triggered resets; not called during normal operation.
func (l *Logger) ClearLogs() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range []string{l.detailPath, l.urlsPath, l.recordsPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return apperrors.FileIOErr("clear failure log "+p, err)
		}
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.FileIOErr("open "+path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return apperrors.FileIOErr("append "+path, err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FileIOErr("read "+path, err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
