package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// InfoSuffix marks sidecar files that live next to media but never get uploaded.
const InfoSuffix = ".info"

// LocalFile is a media file found on disk.
type LocalFile struct {
	// absolute (or caller-relative) path on disk
	Path string
	// slash-separated path relative to the media root; this is the blob name
	BlobName string
	Size     int64
}

// ListMediaFiles walks root and returns every regular file except *.info sidecars.  A missing root
// yields no files and no error.
func ListMediaFiles(root string) ([]LocalFile, error) {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return []LocalFile{}, nil
	} else if err != nil {
		return nil, &IOError{Op: "stat", Path: root, Err: err}
	}

	files := []LocalFile{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("media: error during file tree walk: %w", err)
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), InfoSuffix) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("media: couldn't compute relative path of %s: %w", p, err)
		}
		info, err := d.Info()
		if err != nil {
			return &IOError{Op: "stat", Path: p, Err: err}
		}

		files = append(files, LocalFile{
			Path:     p,
			BlobName: filepath.ToSlash(rel),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// localPath maps a blob name onto a path under root, refusing names that would land outside it.
func localPath(root, blobName string) (string, error) {
	rel := filepath.FromSlash(blobName)
	if blobName == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("media: refusing blob name %q: not a relative path", blobName)
	}
	return filepath.Join(root, rel), nil
}

// IOError wraps local file failures during a sync.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("media: couldn't %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
