package interfaces

import (
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key/value lookup misses
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair is one stored key/value entry
type KeyValuePair struct {
	Key       string    `json:"key" badgerhold:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
