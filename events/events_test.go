package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndEncode(t *testing.T) {
	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.FixedZone("X", 3*3600))
	ev := New(ToolIssued, 5, at)
	ev.Employee = "Alice"

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, time.UTC, ev.At.Location())

	b, err := Encode(ev)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "tool.issued", m["type"])
	assert.Equal(t, float64(5), m["toolId"])
	assert.Equal(t, "Alice", m["employee"])
	assert.NotContains(t, m, "issueId")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, New(RequestCreated, 1, time.Now())))
	require.NoError(t, r.Publish(ctx, New(RequestApproved, 1, time.Now())))
	assert.Equal(t, []Type{RequestCreated, RequestApproved}, r.Types())

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(ctx, New(ToolReturned, 1, time.Now())))
	assert.Len(t, r.Events, 2)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ToolEvent{}))
	assert.NoError(t, p.Close())
}
