package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSON(t *testing.T) {
	e := Event{Entity: "properties", Action: ActionCreate, ID: "p1", At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity":"properties","action":"create","id":"p1","at":"2024-01-02T03:04:05Z"}`, string(b))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), Event{ID: "a"}))
	require.NoError(t, r.Publish(context.Background(), Event{ID: "b"}))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}

	p, err := NewAMQPPublisher(url, "neighbor_events_test")
	require.NoError(t, err)
	defer p.Close()

	assert.NoError(t, p.Publish(context.Background(), Event{Entity: "bookings", Action: ActionUpdate, ID: "b1", At: time.Now()}))
}
