package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileResultStore is a file-based implementation that persists execution
// results to disk, one JSON file per execution.
type FileResultStore struct {
	dataDir string
}

// NewFileResultStore creates a new file-based result store. An empty dataDir
// defaults to a directory under the user's home.
func NewFileResultStore(dataDir string) (*FileResultStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".agentscope", "workflows", "executions")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileResultStore{dataDir: dataDir}, nil
}

func (s *FileResultStore) resultPath(executionID string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s.json", executionID))
}

// SaveResult writes the execution result to disk as JSON.
func (s *FileResultStore) SaveResult(ctx context.Context, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}
	if err := os.WriteFile(s.resultPath(result.ExecutionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write execution result: %w", err)
	}
	return nil
}

// LoadResult loads a stored result. A missing execution yields (nil, nil).
func (s *FileResultStore) LoadResult(ctx context.Context, executionID string) (*Result, error) {
	data, err := os.ReadFile(s.resultPath(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read execution result: %w", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
	}
	return &result, nil
}

// DeleteResult removes the stored result for an execution.
func (s *FileResultStore) DeleteResult(ctx context.Context, executionID string) error {
	if err := os.Remove(s.resultPath(executionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete execution result: %w", err)
	}
	return nil
}

// ListExecutions returns summaries of all stored executions, newest first.
func (s *FileResultStore) ListExecutions(ctx context.Context) ([]*ExecutionSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*ExecutionSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	var summaries []*ExecutionSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		executionID := strings.TrimSuffix(entry.Name(), ".json")
		result, err := s.LoadResult(ctx, executionID)
		if err != nil || result == nil {
			// Skip results we can't read
			continue
		}
		summaries = append(summaries, &ExecutionSummary{
			ExecutionID:  result.ExecutionID,
			WorkflowID:   result.WorkflowID,
			WorkflowName: result.WorkflowName,
			Status:       result.Status,
			StartTime:    result.StartedAt,
			EndTime:      result.CompletedAt,
			Duration:     result.Duration,
			Error:        result.Error,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}
