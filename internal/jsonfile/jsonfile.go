// Package jsonfile reads and writes the service's JSON state files with
// atomic-replace semantics: a write lands in a temp file that is renamed
// over the target, so a crash mid-write leaves the previous good state.
package jsonfile

import (
	"encoding/json"
	"os"
)

// Read unmarshals path into v. A missing or malformed file is reported
// as ok=false with a nil error; the caller keeps its defaults.
func Read(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// Write marshals v and atomically replaces path with it.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
