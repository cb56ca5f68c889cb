package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DataFile holds the captured content items.
	DataFile = "data.json"

	// MediaDir mirrors the portal's media container.
	MediaDir = "media"

	// ManifestFile describes where and when the snapshot was taken.
	ManifestFile = "manifest.yaml"
)

// IOError wraps failures reading or writing snapshot files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("snapshot: couldn't %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func DataPath(folder string) string     { return filepath.Join(folder, DataFile) }
func MediaPath(folder string) string    { return filepath.Join(folder, MediaDir) }
func ManifestPath(folder string) string { return filepath.Join(folder, ManifestFile) }

// Write stores s as folder/data.json, creating folder if needed.  The file is replaced
// atomically, so a failed write leaves any earlier data.json intact.
func Write(folder string, s *Snapshot) error {
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("snapshot: couldn't encode snapshot: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "    "); err != nil {
		return fmt.Errorf("snapshot: couldn't indent snapshot: %w", err)
	}
	pretty.WriteByte('\n')

	return writeFileAtomic(DataPath(folder), pretty.Bytes())
}

// Read loads folder/data.json.
func Read(folder string) (*Snapshot, error) {
	path := DataPath(folder)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	s := New()
	if err := s.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return s, nil
}

func writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return &IOError{Op: "create directory", Path: dir, Err: err}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Op: "create temp file in", Path: dir, Err: err}
	}
	tmp := f.Name()

	if _, err := f.Write(contents); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "close", Path: tmp, Err: err}
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "chmod", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
