// Package file provides JSON file-backed storage implementations.
// Each store keeps its full state in memory and rewrites its backing
// file on every mutation, so a restart resumes from the last durable
// state.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic marshals v as indented JSON and replaces path with it.
// The write goes through a temp file in the same directory so a crash
// mid-write never leaves a truncated file behind.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// readJSON loads path into v. A missing file is not an error; v is
// left untouched and ok is false.
func readJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
