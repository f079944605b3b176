// pkg/directory/snapshot.go

package directory

import (
	"encoding/json"
	"os"

	cerr "github.com/cockroachdb/errors"
)

// saveSnapshot writes v to path as JSON.
func saveSnapshot(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return cerr.Wrapf(err, "failed to encode snapshot for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerr.Wrapf(err, "failed to write snapshot %s", path)
	}
	return nil
}

// loadSnapshot reads path into v. Returns (false, nil) when the file does
// not exist so callers can fall through to a fresh fetch.
func loadSnapshot(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, cerr.Wrapf(err, "failed to read snapshot %s", path)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, cerr.Wrapf(err, "failed to decode snapshot %s", path)
	}
	return true, nil
}
