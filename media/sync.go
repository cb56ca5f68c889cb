package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/toothbrush/portal-migrate/internal/progress"
	"github.com/vbauerster/mpb/v8"
	"golang.org/x/sync/errgroup"
)

// SASSource hands out a fresh SAS URL for the media container.
type SASSource interface {
	MediaSASURL(ctx context.Context) (string, error)
}

// Result summarises one sync.
type Result struct {
	Files int
	Bytes int64
}

// Syncer copies the portal media container to and from a local directory.
type Syncer struct {
	SAS  SASSource
	Open Opener

	// Concurrent transfers.  Anything below 2 means one blob at a time, in listing order.
	Workers int

	Logger *log.Logger

	// Optional; when set, each sync gets a progress bar.
	Progress *mpb.Progress
}

func NewSyncer(sas SASSource) *Syncer {
	return &Syncer{
		SAS:     sas,
		Open:    OpenSAS,
		Workers: 1,
	}
}

// DownloadAll writes every blob of the container to destDir/<blob name>, overwriting what's there.
func (s *Syncer) DownloadAll(ctx context.Context, destDir string) (Result, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return Result{}, &IOError{Op: "create directory", Path: destDir, Err: err}
	}

	c, err := s.container(ctx)
	if err != nil {
		return Result{}, err
	}

	blobs, err := c.List(ctx)
	if err != nil {
		return Result{}, err
	}
	s.logf("Downloading %d media files to %s...\n", len(blobs), destDir)

	bar := progress.Add(s.Progress, "media download", len(blobs))
	var (
		mu     sync.Mutex
		result Result
	)

	err = s.run(ctx, len(blobs), func(ctx context.Context, i int) error {
		n, err := downloadOne(ctx, c, destDir, blobs[i].Name)
		if err != nil {
			return err
		}
		mu.Lock()
		result.Files++
		result.Bytes += n
		mu.Unlock()
		bar.Increment()
		return nil
	})
	if err != nil {
		bar.Abort()
		return result, err
	}

	return result, nil
}

// UploadAll uploads every file under srcDir except *.info sidecars, overwriting remote blobs.  A
// missing srcDir is not an error: nothing is uploaded and no call is made.
func (s *Syncer) UploadAll(ctx context.Context, srcDir string) (Result, error) {
	if _, err := os.Stat(srcDir); errors.Is(err, os.ErrNotExist) {
		s.logf("No media files found in %s, skipping upload.\n", srcDir)
		return Result{}, nil
	} else if err != nil {
		return Result{}, &IOError{Op: "stat", Path: srcDir, Err: err}
	}

	files, err := ListMediaFiles(srcDir)
	if err != nil {
		return Result{}, err
	}

	c, err := s.container(ctx)
	if err != nil {
		return Result{}, err
	}
	s.logf("Uploading %d media files from %s...\n", len(files), srcDir)

	bar := progress.Add(s.Progress, "media upload", len(files))
	var (
		mu     sync.Mutex
		result Result
	)

	err = s.run(ctx, len(files), func(ctx context.Context, i int) error {
		if err := uploadOne(ctx, c, files[i]); err != nil {
			return err
		}
		mu.Lock()
		result.Files++
		result.Bytes += files[i].Size
		mu.Unlock()
		bar.Increment()
		return nil
	})
	if err != nil {
		bar.Abort()
		return result, err
	}

	return result, nil
}

func (s *Syncer) container(ctx context.Context) (Container, error) {
	if s.SAS == nil {
		return nil, fmt.Errorf("media: no SAS source configured")
	}
	sasURL, err := s.SAS.MediaSASURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("media: couldn't get SAS URL: %w", err)
	}

	open := s.Open
	if open == nil {
		open = OpenSAS
	}
	return open(ctx, sasURL)
}

// run calls job for 0..n-1 with at most Workers in flight, stopping at the first error.
func (s *Syncer) run(ctx context.Context, n int, job func(ctx context.Context, i int) error) error {
	grp, gctx := errgroup.WithContext(ctx)

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	grp.SetLimit(workers)

	var finished atomic.Int64
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return context.Cause(gctx)
			}
			if err := job(gctx, i); err != nil {
				return err
			}
			finished.Add(1)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return err
	}
	if finished.Load() == int64(n) {
		return nil
	}
	// cancelled by the caller before the remaining jobs were started
	return ctx.Err()
}

func downloadOne(ctx context.Context, c Container, destDir string, name string) (int64, error) {
	dest, err := localPath(destDir, name)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return 0, &IOError{Op: "create directory", Path: dir, Err: err}
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, &IOError{Op: "create file", Path: dest, Err: err}
	}

	n, err := c.Download(ctx, name, f)
	if err != nil {
		f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, &IOError{Op: "close", Path: dest, Err: err}
	}
	return n, nil
}

func uploadOne(ctx context.Context, c Container, file LocalFile) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return &IOError{Op: "open", Path: file.Path, Err: err}
	}
	defer f.Close()

	return c.Upload(ctx, file.BlobName, f)
}

func (s *Syncer) logf(format string, a ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, a...)
	}
}
