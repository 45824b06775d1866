package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudEvent(t *testing.T) {
	payload := map[string]string{"user_id": "u1"}

	e, err := NewCloudEvent(SourceFitParser, TypeActivityChanged, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID())
	assert.Equal(t, "1.0", e.SpecVersion())
	assert.Equal(t, TypeActivityChanged, e.Type())
	assert.Equal(t, SourceFitParser, e.Source())
	require.NoError(t, e.Validate())

	var got map[string]string
	require.NoError(t, json.Unmarshal(e.Data(), &got))
	assert.Equal(t, payload, got)
}

func TestAttributes(t *testing.T) {
	e, err := NewCloudEvent(SourceAnalyticsRecompute, TypeAnalyticsUpdated, map[string]int{"ftp": 250})
	require.NoError(t, err)

	attrs := Attributes(e)
	assert.Equal(t, e.ID(), attrs["ce-id"])
	assert.Equal(t, TypeAnalyticsUpdated, attrs["ce-type"])
	assert.Equal(t, "application/json", attrs["content-type"])
}

func TestLogPublisher(t *testing.T) {
	e, err := NewCloudEvent(SourceFitParser, TypeActivityChanged, map[string]string{})
	require.NoError(t, err)

	id, err := (&LogPublisher{}).PublishCloudEvent(context.Background(), "topic", e)
	require.NoError(t, err)
	assert.Equal(t, "mock-msg-id", id)
}
