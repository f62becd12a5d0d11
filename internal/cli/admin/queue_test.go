package admin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackpile/noteforge/internal/service"
)

// MockQueueProcessor is a mock implementation of queueProcessor
type MockQueueProcessor struct {
	mock.Mock
}

func (m *MockQueueProcessor) ProcessBatch(ctx context.Context) (service.BatchResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.BatchResult), args.Error(1)
}

func TestDrainQueue_RunsUntilEmpty(t *testing.T) {
	proc := new(MockQueueProcessor)
	proc.On("ProcessBatch", mock.Anything).Return(service.BatchResult{Claimed: 10, Processed: 10}, nil).Once()
	proc.On("ProcessBatch", mock.Anything).Return(service.BatchResult{Claimed: 3, Processed: 2, Failed: 1}, nil).Once()
	proc.On("ProcessBatch", mock.Anything).Return(service.BatchResult{}, nil).Once()

	var out bytes.Buffer
	err := drainQueue(context.Background(), proc, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "12 documents embedded, 1 failures")
	proc.AssertNumberOfCalls(t, "ProcessBatch", 3)
}

func TestDrainQueue_StopsWhenEntriesKeepFailing(t *testing.T) {
	proc := new(MockQueueProcessor)

	// A failed entry releases its claim and stays pending, so without a
	// progress check this pass would repeat forever.
	proc.On("ProcessBatch", mock.Anything).Return(service.BatchResult{Claimed: 2, Processed: 0, Failed: 2}, nil)

	var out bytes.Buffer
	err := drainQueue(context.Background(), proc, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "no progress, 2 entries left pending")
	proc.AssertNumberOfCalls(t, "ProcessBatch", 1)
}

func TestDrainQueue_ReturnsPassError(t *testing.T) {
	proc := new(MockQueueProcessor)
	proc.On("ProcessBatch", mock.Anything).Return(service.BatchResult{}, errors.New("connection refused"))

	var out bytes.Buffer
	err := drainQueue(context.Background(), proc, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue pass failed")
}
