package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// rfc3339Minutes RFC 3339 без секунд: "2024-03-01T10:00Z"
const rfc3339Minutes = "2006-01-02T15:04Z07:00"

// Timestamp момент времени в JSON: строка RFC 3339 (секунды можно опустить)
// или число миллисекунд Unix
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			var shortErr error
			if parsed, shortErr = time.Parse(rfc3339Minutes, s); shortErr != nil {
				return err
			}
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
