package workflow

import "context"

// NullResultStore is a no-op implementation of ResultStore.
type NullResultStore struct{}

func NewNullResultStore() *NullResultStore {
	return &NullResultStore{}
}

func (s *NullResultStore) SaveResult(ctx context.Context, result *Result) error {
	return nil
}

func (s *NullResultStore) LoadResult(ctx context.Context, executionID string) (*Result, error) {
	return nil, nil
}

func (s *NullResultStore) DeleteResult(ctx context.Context, executionID string) error {
	return nil
}

func (s *NullResultStore) ListExecutions(ctx context.Context) ([]*ExecutionSummary, error) {
	return nil, nil
}
