package failure

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFailureWritesAllThreeSinks(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	require.NoError(t, l.LogFailure(Record{
		VideoID: "vid1", URL: "https://youtu.be/vid1", Stage: "download",
		ErrorType: "NETWORK", Reason: "connection reset", RunID: "batch1",
	}))

	detail, err := os.ReadFile(filepath.Join(dir, "failed_detail.log"))
	require.NoError(t, err)
	assert.Contains(t, string(detail), "[video:vid1]")
	assert.Contains(t, string(detail), "error=NETWORK")
	assert.Contains(t, string(detail), "stage=download")
	assert.Contains(t, string(detail), "[batch:batch1]")

	urls, err := os.ReadFile(filepath.Join(dir, "failed_urls.txt"))
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/vid1\n", string(urls))

	records, err := os.ReadFile(filepath.Join(dir, "failed_records.json"))
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(records))), &rec))
	assert.Equal(t, "vid1", rec.VideoID)
	assert.Equal(t, "NETWORK", rec.ErrorType)
}

func TestLogFailureDedupsURLs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	require.NoError(t, l.LogFailure(Record{VideoID: "vid1", URL: "https://youtu.be/v", Stage: "download", ErrorType: "NETWORK", Reason: "r1"}))
	require.NoError(t, l.LogFailure(Record{VideoID: "vid1", URL: "https://youtu.be/v", Stage: "translate", ErrorType: "TIMEOUT", Reason: "r2"}))

	urls, err := os.ReadFile(filepath.Join(dir, "failed_urls.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(urls), "https://youtu.be/v"))

	records, err := os.ReadFile(filepath.Join(dir, "failed_records.json"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(records)), "\n")
	assert.Len(t, lines, 2, "each failure still gets its own JSONL record even when the URL is deduped")
}

func TestLogFailureDefaultsCancelledRecordable(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	require.NoError(t, l.LogFailure(Record{
		VideoID: "vid1", URL: "https://youtu.be/vid1", Stage: "translate",
		ErrorType: "CANCELLED", Reason: "batch cancelled",
	}))

	records, err := os.ReadFile(filepath.Join(dir, "failed_records.json"))
	require.NoError(t, err)
	assert.Contains(t, string(records), `"error_type":"CANCELLED"`)
}

func TestClearLogsRemovesAllSinks(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	require.NoError(t, l.LogFailure(Record{VideoID: "v", URL: "u", Stage: "s", ErrorType: "NETWORK", Reason: "r"}))

	require.NoError(t, l.ClearLogs())

	for _, name := range []string{"failed_detail.log", "failed_urls.txt", "failed_records.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
}
