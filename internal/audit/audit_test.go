package audit

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository/memory"
)

func TestStepRecorder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := memory.NewStore()
	rec := NewStepRecorder(store.StepLogs(), logger)

	messageID := int64(42)
	rec.Record(context.Background(), StepEvent{
		MessageID: &messageID,
		Step:      "router",
		Input:     map[string]string{"text": "hello"},
		Output:    map[string]string{"decision": "other"},
		Duration:  1500 * time.Millisecond,
	})
	rec.Record(context.Background(), StepEvent{MessageID: &messageID, Step: "has_answer", Failed: true})

	logs, err := store.StepLogs().ListByMessage(context.Background(), messageID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "router", logs[0].StepName)
	assert.JSONEq(t, `{"text":"hello"}`, string(logs[0].Input))
	assert.JSONEq(t, `{"decision":"other"}`, string(logs[0].Output))
	assert.InDelta(t, 1.5, logs[0].TimeSec, 1e-9)
	assert.False(t, logs[0].Error)

	assert.True(t, logs[1].Error)
	assert.Nil(t, logs[1].Input)
}

func TestStepRecorderUnserializablePayload(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := memory.NewStore()
	rec := NewStepRecorder(store.StepLogs(), logger)

	rec.Record(context.Background(), StepEvent{Step: "odd", Output: math.Inf(1)})
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

type failingStepRepo struct{}

func (failingStepRepo) Create(ctx context.Context, entry *models.StepLog) error {
	return errors.New("db down")
}

func (failingStepRepo) ListByMessage(ctx context.Context, messageID int64) ([]*models.StepLog, error) {
	return nil, nil
}

func TestStepRecorderSwallowsWriteErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := NewStepRecorder(failingStepRepo{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Record(ctx, StepEvent{Step: "router"})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to record step telemetry", hook.LastEntry().Message)
}

func TestLogrusSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := NewLogrusSink(logger)

	err := sink.Write(context.Background(), 7, Exchange{Response: `{"answer":"x"}`, SourceDocuments: []int64{1, 2}})
	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, int64(7), entry.Data["message_id"])
	assert.Equal(t, []int64{1, 2}, entry.Data["source_documents"])
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Write(context.Background(), 1, Exchange{Response: "a"}))
	require.NoError(t, sink.Write(context.Background(), 1, Exchange{Response: "b"}))

	got := sink.For(1)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Response)
	assert.Empty(t, sink.For(2))
}
