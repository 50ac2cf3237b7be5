package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileInvocationLogger is an implementation of InvocationLogger that logs to a
// file. A file is created per execution. The file is formatted as
// newline-delimited JSON.
type FileInvocationLogger struct {
	directory string
	mutex     sync.Mutex
}

func NewFileInvocationLogger(directory string) *FileInvocationLogger {
	return &FileInvocationLogger{directory: directory}
}

func (l *FileInvocationLogger) executionLogPath(executionID string) string {
	return filepath.Join(l.directory, fmt.Sprintf("%s.jsonl", executionID))
}

func (l *FileInvocationLogger) LogInvocation(ctx context.Context, entry *InvocationLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	filePath := l.executionLogPath(entry.ExecutionID)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	// Concurrent nodes of one execution append to the same file.
	l.mutex.Lock()
	defer l.mutex.Unlock()

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func (l *FileInvocationLogger) GetInvocationHistory(ctx context.Context, executionID string) ([]*InvocationLogEntry, error) {
	data, err := os.ReadFile(l.executionLogPath(executionID))
	if err != nil {
		return nil, err
	}
	var entries []*InvocationLogEntry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		var entry InvocationLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
