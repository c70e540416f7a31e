package views

import (
	"context"
	"strings"
	"time"

	"github.com/cimex/cimex-console/internal/domain"
)

// LogsName is the catalog name of the logs view.
const LogsName = "logs"

// DefaultLogLimit is the number of entries requested per poll.
const DefaultLogLimit = 300

// Logs polls the core log tail. Pause stops polling while keeping the buffer.
type Logs struct {
	*base[[]domain.LogEntry]
}

// LogsModel is the rendered log buffer.
type LogsModel struct {
	Entries []domain.LogEntry `json:"entries"`
	Count   int               `json:"count"`
}

// NewLogs returns the logs view polling GET /logs?limit=N.
func NewLogs(backend Backend, interval time.Duration, limit int, opts Options) *Logs {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	fetch := func(ctx context.Context) ([]domain.LogEntry, error) {
		return backend.Logs(ctx, limit)
	}
	return &Logs{newBase(LogsName, interval, fetch, renderLogs, opts)}
}

func renderLogs(entries []domain.LogEntry) any {
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	return LogsModel{Entries: entries, Count: len(entries)}
}

// Clear empties the displayed buffer until the next poll replaces it.
func (l *Logs) Clear() {
	l.task.Replace([]domain.LogEntry{})
}

// Entries returns the displayed buffer.
func (l *Logs) Entries() []domain.LogEntry {
	return l.task.Snapshot().Value
}

// Export renders the displayed buffer as a text file.
func (l *Logs) Export(now time.Time) (name string, body []byte) {
	return ExportLogs(l.Entries(), now)
}

// ExportLogs renders entries one per line as "[ts] [LEVEL] message" and
// names the file after now.
func ExportLogs(entries []domain.LogEntry, now time.Time) (name string, body []byte) {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line())
	}
	return ExportFilename(now), []byte(strings.Join(lines, "\n"))
}

// ExportFilename returns cimex-core-logs-<ISO timestamp>.txt with ':' and '.'
// replaced so the name is safe on every filesystem.
func ExportFilename(now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "cimex-core-logs-" + ts + ".txt"
}
