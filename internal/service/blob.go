package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klaudly/klaudly/internal/model"
	"github.com/klaudly/klaudly/internal/storage"
	"github.com/klaudly/klaudly/internal/validation"
)

// Upload is the binary payload of a file upload.
type Upload struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// BlobCoordinator owns the object-storage side effects of entry mutations.
// Removal is advisory: it never fails the caller.
type BlobCoordinator struct {
	store            storage.BlobStore
	rootFolder       string
	constraints      validation.UploadConstraints
	uploadAuthExpiry time.Duration
}

func NewBlobCoordinator(store storage.BlobStore, rootFolder string, constraints validation.UploadConstraints, uploadAuthExpiry time.Duration) *BlobCoordinator {
	return &BlobCoordinator{
		store:            store,
		rootFolder:       strings.Trim(rootFolder, "/"),
		constraints:      constraints,
		uploadAuthExpiry: uploadAuthExpiry,
	}
}

// Store uploads the payload under a fresh uuid-based name inside the owner's
// folder. Unsupported uploads are rejected before any I/O.
func (c *BlobCoordinator) Store(ctx context.Context, ownerID string, parentID *string, upload Upload) (storage.Object, error) {
	ext, err := validation.ValidateUpload(upload.Filename, upload.ContentType, upload.Size, c.constraints)
	if err != nil {
		return storage.Object{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	name := uuid.New().String() + "." + ext
	folder := c.folderPath(ownerID, parentID)

	obj, err := c.store.Store(ctx, upload.Body, upload.Size, name, folder, upload.ContentType)
	if err != nil {
		return storage.Object{}, fmt.Errorf("%w: failed to store blob: %w", ErrDependencyFailure, err)
	}

	slog.Debug("blob stored", "user_id", ownerID, "path", obj.Path, "size", upload.Size)
	return obj, nil
}

// AuthorizeUpload issues a presigned PUT for a blob in the owner's folder so
// the client can send the bytes straight to the store. The blob gets the same
// uuid-based name as a proxied upload.
func (c *BlobCoordinator) AuthorizeUpload(ctx context.Context, ownerID string, parentID *string, filename, contentType string) (storage.PresignedUpload, error) {
	ext, err := validation.ValidateUploadType(filename, contentType, c.constraints)
	if err != nil {
		return storage.PresignedUpload{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	name := uuid.New().String() + "." + ext
	folder := c.folderPath(ownerID, parentID)

	auth, err := c.store.PresignUpload(ctx, name, folder, contentType, c.uploadAuthExpiry)
	if err != nil {
		return storage.PresignedUpload{}, fmt.Errorf("%w: failed to authorize upload: %w", ErrDependencyFailure, err)
	}

	return auth, nil
}

// Discard removes a blob that was stored but never got an entry row. It runs
// even when ctx is already cancelled.
func (c *BlobCoordinator) Discard(ctx context.Context, obj storage.Object) {
	key := strings.TrimPrefix(obj.Path, "/")
	if key == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := c.store.RemoveByNativeID(ctx, key)
	if err != nil {
		slog.Error("failed to delete blob from storage during cleanup", "error", err, "path", obj.Path)
	}
}

// removalStrategy tries to remove the blob known by candidate inside folder.
// A nil error means the blob is gone; any error means the next strategy
// should run.
type removalStrategy func(ctx context.Context, folder, candidate string) error

// LocateAndRemove makes a best-effort attempt to delete the blob behind a
// file entry. Folders have no blob. Every failure is folded into a single
// warning. Cancelling ctx does not abort the removal.
func (c *BlobCoordinator) LocateAndRemove(ctx context.Context, entry *model.Entry) {
	if entry == nil || entry.IsFolder {
		return
	}
	ctx = context.WithoutCancel(ctx)

	candidate := blobCandidateName(entry)
	if candidate == "" {
		slog.Warn("blob removal skipped: no locator on entry", "entry_id", entry.ID)
		return
	}

	strategies := []removalStrategy{
		c.removeByLookup,
		c.removeByCandidate,
	}

	folder := c.folderPath(entry.OwnerID, nil)

	var errs []error
	for _, remove := range strategies {
		err := remove(ctx, folder, candidate)
		if err == nil {
			slog.Debug("blob removed", "entry_id", entry.ID, "name", candidate)
			return
		}
		errs = append(errs, err)
	}

	slog.Warn("failed to delete blob from storage",
		"error", errors.Join(errs...),
		"entry_id", entry.ID,
		"name", candidate,
	)
}

// removeByLookup resolves the candidate name to a native id by searching the
// owner's folder. Only an unambiguous single match is removed.
func (c *BlobCoordinator) removeByLookup(ctx context.Context, folder, candidate string) error {
	matches, err := c.store.FindByName(ctx, folder, candidate, 2)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", candidate, err)
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("lookup %q: no match", candidate)
	case 1:
		err = c.store.RemoveByNativeID(ctx, matches[0].NativeID)
		if err != nil {
			return fmt.Errorf("remove %q: %w", matches[0].NativeID, err)
		}
		return nil
	default:
		return fmt.Errorf("lookup %q: %d matches", candidate, len(matches))
	}
}

// removeByCandidate treats the candidate name as if it were the native id.
func (c *BlobCoordinator) removeByCandidate(ctx context.Context, _, candidate string) error {
	err := c.store.RemoveByNativeID(ctx, candidate)
	if err != nil {
		return fmt.Errorf("remove %q: %w", candidate, err)
	}
	return nil
}

func (c *BlobCoordinator) folderPath(ownerID string, parentID *string) string {
	if parentID != nil {
		return path.Join("/", c.rootFolder, ownerID, "folder", *parentID)
	}
	return path.Join("/", c.rootFolder, ownerID)
}

// blobCandidateName derives the stored blob name from the entry: the last
// segment of its URL without query, else the last segment of its path.
func blobCandidateName(entry *model.Entry) string {
	if entry.BlobURL != "" {
		u, _, _ := strings.Cut(entry.BlobURL, "?")
		if name := lastSegment(u); name != "" {
			return name
		}
	}
	return lastSegment(entry.Path)
}

func lastSegment(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
