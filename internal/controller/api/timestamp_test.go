package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", input: `"2024-03-01T10:30:00Z"`, want: want},
		{name: "rfc3339 with offset", input: `"2024-03-01T13:30:00+03:00"`, want: want},
		{name: "rfc3339 without seconds", input: `"2024-03-01T10:30Z"`, want: want},
		{name: "without seconds with offset", input: `"2024-03-01T13:30+03:00"`, want: want},
		{name: "milliseconds", input: `1709289000000`, want: want},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
		{name: "garbage", input: `"tomorrow"`, wantErr: true},
		{name: "date only", input: `"2024-03-01"`, wantErr: true},
		{name: "float", input: `1.5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}
