// Package backend contains what the external store implementations share.
//
// The implementations live in the sub packages:
//
//   - memory:      process local, for tests and "prepo serve" without a database
//   - sqlite:      a single table in a SQLite database file
//   - httpbackend: a remote HTTP service (GET/PUT {endpoint}/{handle})
//
// All of them satisfy repository.IBackend and store a repository as one JSON document.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/ValentinKolb/pRepo/lib/repository"
)

// ErrUnknownHandle is returned by Fetch when no record exists for the handle
// and the store is not configured to create missing records.
var ErrUnknownHandle = errors.New("backend: unknown handle")

// UnknownHandle returns ErrUnknownHandle annotated with handle.
func UnknownHandle(handle repository.Handle) error {
	return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
}

// Marshal encodes a repository document.
func Marshal(data path.Values) ([]byte, error) {
	if data == nil {
		data = path.Values{}
	}
	return json.Marshal(data)
}

// Unmarshal decodes a repository document. A JSON null yields an empty mapping.
func Unmarshal(raw []byte) (path.Values, error) {
	var data path.Values
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("backend: invalid document: %w", err)
	}
	if data == nil {
		data = path.Values{}
	}
	return data, nil
}
