package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestRun_JSONOmitsEmptyStats(t *testing.T) {
	data, err := json.Marshal(Run{ID: "r1", City: "bj", Status: RunStatusRunning})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stats")
	assert.NotContains(t, string(data), "error")
	assert.Contains(t, string(data), `"city":"bj"`)
}
