package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Stamp(t *testing.T) {
	t.Run("fills id and timestamp", func(t *testing.T) {
		event := Event{Action: "ensure_principal"}
		before := time.Now().UTC().UnixNano()
		event.stamp()

		assert.NotEmpty(t, event.ID)
		assert.GreaterOrEqual(t, event.Timestamp, before)
	})

	t.Run("keeps values the caller set", func(t *testing.T) {
		event := Event{ID: "an-id", Timestamp: 42}
		event.stamp()

		assert.Equal(t, "an-id", event.ID)
		assert.Equal(t, int64(42), event.Timestamp)
	})
}

func TestEvent_JSON(t *testing.T) {
	event := Event{
		Action:    "write_krb5_conf",
		Principal: "admin/admin@EXAMPLE.COM",
		Realm:     "EXAMPLE.COM",
		Success:   true,
	}
	event.stamp()

	serialized, err := json.Marshal(event)
	require.NoError(t, err)

	fields := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(serialized, &fields))

	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "createdUtcNs")
	assert.Equal(t, "write_krb5_conf", fields["action"])
	assert.Equal(t, "admin/admin@EXAMPLE.COM", fields["principal"])
	assert.Equal(t, "EXAMPLE.COM", fields["realm"])
	assert.Equal(t, true, fields["success"])
	assert.NotContains(t, fields, "detail", "empty detail should be omitted")
}
