package cacheinfra

import (
	"encoding/json"
	"time"
)

// Entry is a stored result as returned by a backend Get.
type Entry struct {
	Key       string
	Data      json.RawMessage
	CreatedAt time.Time
}

// Decode unmarshals the stored payload into v.
func (e *Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return NewCorruptEntryError(e.Key, err)
	}
	return nil
}
