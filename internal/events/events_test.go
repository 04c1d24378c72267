package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalWrapsPayloadInTypedEnvelope(t *testing.T) {
	body, err := Marshal(TypeMessageUpdated, map[string]string{"id": "42"})
	require.NoError(t, err)

	var decoded struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, TypeMessageUpdated, decoded.Type)
	assert.Equal(t, "42", decoded.Payload["id"])
}
