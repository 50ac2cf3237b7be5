package workflow

import "context"

// NullInvocationLogger is a no-op implementation of InvocationLogger.
type NullInvocationLogger struct{}

func NewNullInvocationLogger() *NullInvocationLogger {
	return &NullInvocationLogger{}
}

func (l *NullInvocationLogger) LogInvocation(ctx context.Context, entry *InvocationLogEntry) error {
	return nil
}

func (l *NullInvocationLogger) GetInvocationHistory(ctx context.Context, executionID string) ([]*InvocationLogEntry, error) {
	return nil, nil
}
