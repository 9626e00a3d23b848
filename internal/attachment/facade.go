package attachment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"recordvault/internal/audit"
	"recordvault/internal/identity"
	"recordvault/pkg/platform/sentinel"
	"recordvault/pkg/requestcontext"

	dErrors "recordvault/pkg/domain-errors"
)

// MaxBlobSize is the hard per-attachment cap (10 MiB).
const MaxBlobSize = 10 << 20

// allowedContentTypes is the closed set an upload must declare.
var allowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// Facade gates every blob operation on the path's owner segment. Unlike
// records there is no public-read rule: publication of a record never exposes
// its attachments.
type Facade struct {
	blobs  *BlobStore
	audit  *audit.Publisher
	logger *slog.Logger
}

func NewFacade(blobs *BlobStore, publisher *audit.Publisher, logger *slog.Logger) *Facade {
	return &Facade{
		blobs:  blobs,
		audit:  publisher,
		logger: logger.With(slog.String("component", "attachments")),
	}
}

// authorize admits only the authenticated owner named by the path.
func (f *Facade) authorize(ctx context.Context, action string, p Path) error {
	ident := requestcontext.Identity(ctx)
	if ident.Owns(p.OwnerID) {
		return nil
	}
	f.audit.Emit(ctx, audit.Event{
		Actor:    actorName(ident),
		Action:   "attachment." + action,
		Record:   p.String(),
		Decision: audit.DecisionDeny,
		Reason:   "caller does not own the attachment path",
	})
	return dErrors.New(dErrors.CodeAccessDenied, "access denied")
}

func actorName(ident identity.Identity) string {
	if ident.Authenticated {
		return ident.ID.String()
	}
	return "anonymous"
}

// Upload stores a blob after checking ownership, content type, and size. The
// size check happens before anything is persisted: the reader is capped at
// one byte past the limit so an oversized body is detected without buffering
// or writing it.
func (f *Facade) Upload(ctx context.Context, p Path, contentType string, body io.Reader) error {
	if err := f.authorize(ctx, "upload", p); err != nil {
		return err
	}
	if !allowedContentTypes[contentType] {
		return dErrors.New(dErrors.CodePayloadRejected, "unsupported content type "+contentType)
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxBlobSize+1))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read attachment body")
	}
	if len(data) > MaxBlobSize {
		return dErrors.New(dErrors.CodePayloadRejected, "attachment exceeds the 10 MiB limit")
	}

	if err := f.blobs.Put(p, bytes.NewReader(data)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "blob storage unavailable")
	}

	f.logger.InfoContext(ctx, "attachment stored",
		"path", p.String(),
		"content_type", contentType,
		"bytes", len(data),
	)
	return nil
}

// Download streams a blob back to its owner.
func (f *Facade) Download(ctx context.Context, p Path) (io.ReadCloser, error) {
	if err := f.authorize(ctx, "download", p); err != nil {
		return nil, err
	}

	rc, err := f.blobs.Get(p)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "attachment not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "blob storage unavailable")
	}
	return rc, nil
}

// Delete removes a blob.
func (f *Facade) Delete(ctx context.Context, p Path) error {
	if err := f.authorize(ctx, "delete", p); err != nil {
		return err
	}

	err := f.blobs.Delete(p)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "attachment not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "blob storage unavailable")
	}

	f.logger.InfoContext(ctx, "attachment deleted", "path", p.String())
	return nil
}
