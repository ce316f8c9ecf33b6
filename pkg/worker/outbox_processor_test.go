package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/model"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/logger"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/messaging"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/metrics"
)

type memOutbox struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.OutboxEvent
}

func newMemOutbox(events ...*model.OutboxEvent) *memOutbox {
	m := &memOutbox{events: map[uuid.UUID]*model.OutboxEvent{}}
	for _, e := range events {
		m.events[e.ID] = e
	}
	return m
}

func (m *memOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	return nil
}

func (m *memOutbox) GetPendingEvents(_ context.Context, limit int, now time.Time) ([]*model.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range m.events {
		due := e.Status == string(model.OutboxStatusPending) ||
			(e.Status == string(model.OutboxStatusFailed) && e.RetryAt != nil && !e.RetryAt.After(now))
		if due && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memOutbox) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[id]
	e.Status = string(model.OutboxStatusProcessed)
	e.ProcessedAt = &at
	return nil
}

func (m *memOutbox) MarkFailed(_ context.Context, id uuid.UUID, msg string, retryAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[id]
	e.Status = string(model.OutboxStatusFailed)
	e.ErrorMessage = &msg
	e.RetryAt = retryAt
	e.RetryCount++
	return nil
}

func (m *memOutbox) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.events {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt.Before(before) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	failTimes int
	published map[string][][]byte
}

func (b *fakeBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTimes > 0 {
		b.failTimes--
		return errors.New("broker unavailable")
	}
	if b.published == nil {
		b.published = map[string][][]byte{}
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBroker) Close() error { return nil }

func newEvent(t *testing.T, now time.Time) *model.OutboxEvent {
	t.Helper()
	e, err := model.NewOutboxEvent(model.EventVisitCreated, uuid.New(), map[string]string{"status": "waiting"}, now)
	require.NoError(t, err)
	return e
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		ChannelPrefix: "salud",
	}
}

func TestOutboxProcessorPublishesPending(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	event := newEvent(t, now)
	repo := newMemOutbox(event)
	broker := &fakeBroker{}
	m := metrics.NewForTest()

	p := NewOutboxProcessor(repo, broker, testConfig(), logger.Nop(), m, clock.NewFixed(now))
	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	published := broker.published["salud."+model.EventVisitCreated]
	require.Len(t, published, 1)
	var msg messaging.Message
	require.NoError(t, json.Unmarshal(published[0], &msg))
	assert.Equal(t, event.ID.String(), msg.ID)
	assert.JSONEq(t, `{"status":"waiting"}`, string(msg.Payload))

	assert.Equal(t, string(model.OutboxStatusProcessed), event.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsProcessed))
}

func TestOutboxProcessorRetriesWithinAttempts(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	event := newEvent(t, now)
	repo := newMemOutbox(event)
	broker := &fakeBroker{failTimes: 1}
	m := metrics.NewForTest()

	p := NewOutboxProcessor(repo, broker, testConfig(), logger.Nop(), m, clock.NewFixed(now))
	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventVisitCreated)))
}

func TestOutboxProcessorSchedulesRetryOnFailure(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	event := newEvent(t, now)
	repo := newMemOutbox(event)
	broker := &fakeBroker{failTimes: 2}
	m := metrics.NewForTest()

	p := NewOutboxProcessor(repo, broker, testConfig(), logger.Nop(), m, clk)
	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, string(model.OutboxStatusFailed), event.Status)
	require.NotNil(t, event.RetryAt)
	assert.True(t, event.RetryAt.After(now))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))

	n, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "not due yet")

	clk.Advance(time.Second)
	n, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, string(model.OutboxStatusProcessed), event.Status)
}

func TestOutboxCleanupWorker(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	old := newEvent(t, now.Add(-48*time.Hour))
	fresh := newEvent(t, now)
	repo := newMemOutbox(old, fresh)
	require.NoError(t, repo.MarkProcessed(context.Background(), old.ID, now.Add(-48*time.Hour)))
	require.NoError(t, repo.MarkProcessed(context.Background(), fresh.ID, now))

	w := NewOutboxCleanupWorker(repo, 24*time.Hour, time.Hour, logger.Nop(), clock.NewFixed(now))
	rows, err := w.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.Len(t, repo.events, 1)
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(newMemOutbox(), &fakeBroker{}, OutboxProcessorConfig{}, logger.Nop(), metrics.NewForTest(), nil)
	})
}
