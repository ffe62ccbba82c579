package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvault/arvault/internal/logging"
)

func TestLoggerNotifierWritesWarning(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(logging.NewWithWriter(&buf, "info"))

	err := n.Send(context.Background(), Message{
		Kind:        KindCompensationFailure,
		Destination: "ops",
		Reference:   "rec-1",
		Body:        "reverse transfer failed",
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, KindCompensationFailure, entry["kind"])
	assert.Equal(t, "rec-1", entry["reference"])
}

func TestNilLoggerNotifierIsSilent(t *testing.T) {
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Message{Kind: KindCompensationFailure}))
}
