package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fxledger/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var fixedNow = time.Date(2025, 11, 7, 9, 0, 0, 0, time.UTC)

func newTestPublisher(w *fakeWriter) *Publisher {
	return &Publisher{writer: w, now: func() time.Time { return fixedNow }}
}

func TestPublisher_NeedsReauthorization(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.PublishNeedsReauthorization(context.Background(), "t1", "invalid_grant"))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "t1", string(w.msgs[0].Key))
	require.Equal(t, EventNeedsReauthorization, string(w.msgs[0].Headers[0].Value))

	var event Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	require.Equal(t, EventNeedsReauthorization, event.Type)
	require.Equal(t, "invalid_grant", event.Reason)
	require.Equal(t, fixedNow, event.OccurredAt)
	require.Nil(t, event.Summary)
}

func TestPublisher_PassCompleted(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	date := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)
	result := domain.NewSyncResult("t1", date, uuid.New())
	result.Add(domain.SyncOutcome{CurrencyCode: "EUR", Rate: decimal.RequireFromString("1"), Status: domain.StatusCreated})
	result.Add(domain.SyncOutcome{CurrencyCode: "USD", Status: domain.StatusFailed, ErrorDetail: "boom"})

	require.NoError(t, p.PublishPassCompleted(context.Background(), result))
	require.Len(t, w.msgs, 1)

	var event Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	require.Equal(t, EventPassCompleted, event.Type)
	require.Equal(t, "2025-11-07", event.AsOfDate)
	require.Equal(t, result.PassID, *event.PassID)
	require.Equal(t, domain.SyncSummary{Total: 2, Succeeded: 1, Failed: 1, Created: 1}, *event.Summary)
}

func TestPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestPublisher(w)

	err := p.PublishNeedsReauthorization(context.Background(), "t1", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broker down")
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestPublisher(w).Close())
	require.True(t, w.closed)
}
