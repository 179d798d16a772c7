package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pool-engine/events"
)

func TestNew_StampsIDAndUTC(t *testing.T) {
	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	a := events.New(events.TopicPool, events.ActionCreate, events.Subscriber{ID: 3, Name: "Acme"}, map[string]int{"id": 7}, at)
	b := events.New(events.TopicPool, events.ActionCreate, events.Subscriber{ID: 3, Name: "Acme"}, nil, at)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, time.UTC, a.At.Location())
	assert.True(t, a.At.Equal(at))
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := events.NewRecorder()

	require.NoError(t, rec.Publish(ctx, events.Event{Topic: events.TopicPool}))
	require.NoError(t, rec.Publish(ctx, events.Event{Topic: events.TopicPoolDateRange}))
	assert.Len(t, rec.Events(), 2)
	assert.Len(t, rec.ByTopic(events.TopicPoolDateRange), 1)

	rec.Err = errors.New("broker down")
	assert.Error(t, rec.Publish(ctx, events.Event{Topic: events.TopicPool}))
	assert.Len(t, rec.Events(), 2)
}

func TestLogPublisher_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	pub := events.NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	event := events.New(events.TopicPoolDateRange, events.ActionDelete, events.Subscriber{ID: 3}, []int64{1, 2}, time.Now())
	require.NoError(t, pub.Publish(context.Background(), event))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "event published", record["msg"])
	assert.Equal(t, event.ID, record["event_id"])
	assert.Equal(t, "pooling_date_range", record["topic"])
	assert.Equal(t, "delete", record["action"])
	assert.Equal(t, float64(3), record["subscriber_id"])
}
