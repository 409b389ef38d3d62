package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"billbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestNewEvent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	e, err := NewEvent(ctx, DocumentCreated, "inv-1", map[string]string{"invoice_no": "INV-20240101-00001"})
	require.NoError(t, err)

	assert.Equal(t, DocumentCreated, e.Type)
	assert.Equal(t, "req-1", e.CorrelationID)
	assert.NotEmpty(t, e.ID)

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Equal(t, "INV-20240101-00001", data["invoice_no"])
}

func TestDispatcher_FansOutAndSwallowsErrors(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}
	d := NewDispatcher(failing, ok)

	d.Dispatch(context.Background(), KhataEntryCreated, "entry-1", map[string]int{"n": 1})

	assert.Len(t, failing.events, 1)
	require.Len(t, ok.events, 1)
	assert.Equal(t, "entry-1", ok.events[0].EntityID)
}

func TestDispatcher_Nil(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), DocumentDeleted, "x", nil)
	})
}

func TestFromConfig(t *testing.T) {
	_, enabled := FromConfig(config.KafkaConfig{})
	assert.False(t, enabled)

	p, enabled := FromConfig(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.True(t, enabled)
	assert.NoError(t, p.Close())
}
