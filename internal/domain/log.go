package domain

import (
	"fmt"
	"strings"
)

// LogEntry is one line of the core log buffer.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Line renders the entry the way exported log files carry it.
func (e LogEntry) Line() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Timestamp, strings.ToUpper(e.Level), e.Message)
}

// LogPage is returned by GET /logs.
type LogPage struct {
	Logs []LogEntry `json:"logs"`
}
