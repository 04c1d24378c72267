package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID_MarshalsAsString(t *testing.T) {
	b, err := json.Marshal(ID(7310293827361234944))
	require.NoError(t, err)
	require.Equal(t, `"7310293827361234944"`, string(b))
}

func TestID_UnmarshalFromString(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &id))
	require.Equal(t, ID(42), id)
}

func TestID_UnmarshalFromNumber(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`42`), &id))
	require.Equal(t, ID(42), id)
}

func TestID_UnmarshalRejectsGarbage(t *testing.T) {
	var id ID
	require.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &id))
}

func TestID_OptionalFieldOmitsAsNull(t *testing.T) {
	type wrapper struct {
		ReplyToID *ID `json:"reply_to_id"`
	}
	b, err := json.Marshal(wrapper{})
	require.NoError(t, err)
	require.JSONEq(t, `{"reply_to_id":null}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"reply_to_id":"99"}`), &w))
	require.NotNil(t, w.ReplyToID)
	require.Equal(t, ID(99), *w.ReplyToID)
}
