package transfer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xyz-asif/chatter/internal/pkg/datauri"
)

// Uploader runs one pipeline per file. Every file in a batch is uploaded at
// once; the composer caps how many files a message can carry.
type Uploader struct {
	remote Remote
	now    func() time.Time
}

func NewUploader(remote Remote) *Uploader {
	return &Uploader{remote: remote, now: time.Now}
}

// UploadOne creates a version for the file and resolves its document id.
// Files that already have a remote id are returned as-is without any call.
func (u *Uploader) UploadOne(ctx context.Context, f StagedFile) (UploadResult, error) {
	if f.Uploaded() {
		return UploadResult{Successful: true, ContentDocumentID: f.RemoteDocumentID}, nil
	}

	payload, err := datauri.Payload(f.Contents)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	rec := VersionRecord{
		APIName: ContentVersionAPIName,
		Fields: VersionFields{
			Title:           f.Name,
			PathOnClient:    f.Name,
			VersionData:     payload,
			Origin:          OriginChatter,
			ReasonForChange: fmt.Sprintf("%d_%s", u.now().UnixMilli(), f.LocalID),
		},
	}

	versionID, err := u.remote.CreateVersion(ctx, rec)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	ref, err := u.remote.ResolveContentDocumentID(ctx, versionID)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	if ref.ContentDocumentID == "" {
		return UploadResult{}, ErrNoContentDocumentID
	}

	return UploadResult{Successful: true, ContentDocumentID: ref.ContentDocumentID}, nil
}

// UploadAll uploads every file in parallel. Results keep the input order.
// The first failure cancels the remaining uploads and no results are
// returned; versions already created stay on the remote side.
func (u *Uploader) UploadAll(ctx context.Context, files []StagedFile) ([]UploadResult, error) {
	results := make([]UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)

	for i, f := range files {
		g.Go(func() error {
			res, err := u.UploadOne(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// UploadAllSettled uploads every file and reports each outcome separately,
// so a caller can keep what succeeded and retry the rest.
func (u *Uploader) UploadAllSettled(ctx context.Context, files []StagedFile) []UploadResult {
	results := make([]UploadResult, len(files))
	var g errgroup.Group

	for i, f := range files {
		g.Go(func() error {
			res, err := u.UploadOne(ctx, f)
			if err != nil {
				res = UploadResult{Err: err}
			}
			results[i] = res
			return nil
		})
	}

	_ = g.Wait()
	return results
}
