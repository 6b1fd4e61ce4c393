package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeItemID(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected string
	}{
		{
			name:     "empty content",
			content:  []byte(""),
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "abc",
			content:  []byte("abc"),
			expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeItemID(tt.content).Hex())
		})
	}
}

func TestParseItemID(t *testing.T) {
	id := ComputeItemID([]byte("abc"))

	parsed, err := ParseItemID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Equal(t, id.Hex(), parsed.String())
}

func TestParseItemID_Invalid(t *testing.T) {
	_, err := ParseItemID("abc")
	assert.ErrorContains(t, err, "invalid item ID length")

	_, err = ParseItemID(strings.Repeat("zz", 32))
	assert.ErrorContains(t, err, "invalid hex string")
}

func TestItemID_JSON(t *testing.T) {
	id := ComputeItemID([]byte("payload"))

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.Hex()+`"`, string(data))

	var decoded ItemID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"short"`), &decoded))
}
