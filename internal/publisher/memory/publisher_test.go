package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	ctx := context.Background()

	id, err := p.Publish(ctx, "workflow-events", map[string]string{"instance_id": "inst-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = p.Publish(ctx, "workflow-events", map[string]string{"instance_id": "inst-2"})
	require.NoError(t, err)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "workflow-events", msgs[0].Topic)
	require.Equal(t, map[string]string{"instance_id": "inst-1"}, msgs[0].Payload)
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Publish(context.Background(), "t", "payload")
	require.NoError(t, err)

	msgs := p.Messages()
	msgs[0].Topic = "mutated"
	require.Equal(t, "t", p.Messages()[0].Topic)
}
