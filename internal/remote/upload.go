// Package remote adapts the backend client to the wizard's step syncer
// contract: fetch and save one step at a time, uploading pending files first.
package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/ad/go-scholar-wizard/internal/registry"
	"golang.org/x/sync/errgroup"
)

// maxParallelUploads bounds the upload fan-out of a single save.
const maxParallelUploads = 4

type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// FileSource opens the content of a queued file.
type FileSource interface {
	Open(ctx context.Context, f models.PendingFile) (io.ReadCloser, error)
}

// attachUploads uploads every file in parallel and returns a copy of p with
// the resulting URLs stored in the files' fields. The first failure cancels
// the remaining uploads; p is never modified.
func attachUploads(ctx context.Context, key models.StepKey, p models.StepPayload, files []models.PendingFile, up Uploader, src FileSource) (models.StepPayload, error) {
	if len(files) == 0 {
		return p, nil
	}
	out, err := registry.Clone(p)
	if err != nil {
		return nil, err
	}
	fa, ok := out.(models.FileAttacher)
	if !ok {
		return nil, &models.UploadError{Step: key, File: files[0].Name, Err: fmt.Errorf("step has no file fields")}
	}
	if src == nil {
		return nil, &models.UploadError{Step: key, File: files[0].Name, Err: fmt.Errorf("no file source configured")}
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		g.Go(func() error {
			rc, err := src.Open(gctx, f)
			if err != nil {
				return &models.UploadError{Step: key, File: f.Name, Err: err}
			}
			defer rc.Close()

			url, err := up.Upload(gctx, f.Name, rc)
			if err != nil {
				return &models.UploadError{Step: key, File: f.Name, Err: err}
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, f := range files {
		if !fa.AttachFile(f.Field, urls[i]) {
			return nil, &models.UploadError{Step: key, File: f.Name, Err: fmt.Errorf("unknown file field %q", f.Field)}
		}
	}
	return out, nil
}
