package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_MarshalJSONKeepsInsertionOrder(t *testing.T) {
	r := NewReport()
	r.Set("polars", "5 downloads on 2024-01-02")
	r.Set("pandas", "12 downloads on 2024-01-02")
	r.Set("polars_ratio", "29.41%")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"polars":"5 downloads on 2024-01-02","pandas":"12 downloads on 2024-01-02","polars_ratio":"29.41%"}`, string(data))

	pretty, err := json.MarshalIndent(r, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"polars\": \"5 downloads on 2024-01-02\",\n  \"pandas\": \"12 downloads on 2024-01-02\",\n  \"polars_ratio\": \"29.41%\"\n}", string(pretty))
}

func TestReport_SetExistingKeyKeepsPosition(t *testing.T) {
	r := NewReport()
	r.Set("a", "1")
	r.Set("b", "2")
	r.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, r.Len())
}

func TestReport_EmptyMarshalsToObject(t *testing.T) {
	data, err := json.Marshal(NewReport())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input       string
		expected    Mode
		expectError bool
	}{
		{input: "daily", expected: ModeDaily},
		{input: "total", expected: ModeTotal},
		{input: "weekly", expectError: true},
		{input: "", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			mode, err := ParseMode(tc.input)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, mode)
		})
	}
}
