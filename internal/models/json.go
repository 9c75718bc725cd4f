package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON is a free-form JSON object column.
type JSON map[string]interface{}

// Value implements driver.Valuer. The object is stored as JSON text.
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner. SQLite hands back TEXT as string, Postgres as []byte.
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = make(JSON)
		return nil
	case []byte:
		if len(v) == 0 {
			*j = make(JSON)
			return nil
		}
		return json.Unmarshal(v, j)
	case string:
		if v == "" {
			*j = make(JSON)
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}

// StringMap flattens the object into string values. Non-string scalars are
// formatted; nested values are dropped.
func (j JSON) StringMap() map[string]string {
	out := make(map[string]string, len(j))
	for key, raw := range j {
		switch v := raw.(type) {
		case string:
			out[key] = v
		case bool, float64, int, int64, json.Number:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}

// JSONFromStrings builds a JSON object from a string map, trimming values.
func JSONFromStrings(values map[string]string) JSON {
	out := make(JSON, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
