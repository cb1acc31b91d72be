package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/klaudly/klaudly/internal/model"
	"github.com/klaudly/klaudly/internal/repository"
	"github.com/klaudly/klaudly/internal/storage"
	"github.com/klaudly/klaudly/internal/validation"
)

type CreateFolderInput struct {
	OwnerID  string
	Name     string
	ParentID *string // nil creates the folder at the owner's root
}

type UploadAuthInput struct {
	OwnerID     string
	ParentID    *string
	Filename    string
	ContentType string
}

type UploadInput struct {
	OwnerID     string
	ParentID    *string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// EntryService implements the folder-tree use cases. Each call is one
// independent transition: ownership and parent checks against the store,
// blob side effects through the coordinator, and the row written last.
type EntryService struct {
	repo  repository.EntryRepository
	blobs *BlobCoordinator
}

func NewEntryService(repo repository.EntryRepository, blobs *BlobCoordinator) *EntryService {
	return &EntryService{
		repo:  repo,
		blobs: blobs,
	}
}

// List returns the children of parentID, or the owner's root items when
// parentID is nil.
func (s *EntryService) List(ctx context.Context, principal, ownerID string, parentID *string) ([]*model.Entry, error) {
	err := requireOwner(principal, ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.Children(ctx, principal, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list entries: %w", ErrDependencyFailure, err)
	}

	return entries, nil
}

func (s *EntryService) CreateFolder(ctx context.Context, principal string, in CreateFolderInput) (*model.Entry, error) {
	err := requireOwner(principal, in.OwnerID)
	if err != nil {
		return nil, err
	}

	name, err := validation.NormalizeEntryName(in.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if in.ParentID != nil {
		_, err = s.parentFolder(ctx, principal, *in.ParentID)
		if err != nil {
			return nil, err
		}
	}

	folder := &model.Entry{
		ID:       uuid.New().String(),
		Name:     name,
		Path:     fmt.Sprintf("/folders/%s/%s", principal, uuid.New().String()),
		Size:     0,
		Type:     model.EntryTypeFolder,
		OwnerID:  principal,
		ParentID: in.ParentID,
		IsFolder: true,
	}

	folder, err = s.repo.Create(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create folder: %w", ErrDependencyFailure, err)
	}

	slog.Info("folder created", "user_id", principal, "entry_id", folder.ID, "at_root", folder.IsRoot(), "parent_id", derefOr(folder.ParentID, ""))
	return folder, nil
}

// Upload stores the payload and records it as a file entry. Root uploads are
// rejected: every file must name an existing folder as its parent.
func (s *EntryService) Upload(ctx context.Context, principal string, in UploadInput) (*model.Entry, error) {
	err := requireOwner(principal, in.OwnerID)
	if err != nil {
		return nil, err
	}

	if in.Body == nil || in.Size <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, validation.ErrEmptyUpload)
	}

	if in.ParentID == nil {
		return nil, ErrInvalidParent
	}
	_, err = s.parentFolder(ctx, principal, *in.ParentID)
	if err != nil {
		return nil, err
	}

	// File names are kept as uploaded; only folder names are normalized.
	name := strings.TrimSpace(in.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, validation.ErrMissingUploadName)
	}

	obj, err := s.blobs.Store(ctx, principal, in.ParentID, Upload{
		Body:        in.Body,
		Filename:    name,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		return nil, err
	}

	file := &model.Entry{
		ID:       uuid.New().String(),
		Name:     name,
		Path:     obj.Path,
		Size:     in.Size,
		Type:     in.ContentType,
		BlobURL:  obj.URL,
		OwnerID:  principal,
		ParentID: in.ParentID,
	}
	if obj.ThumbnailURL != "" {
		file.ThumbnailURL = &obj.ThumbnailURL
	}

	file, err = s.repo.Create(ctx, file)
	if err != nil {
		s.blobs.Discard(ctx, obj)
		return nil, fmt.Errorf("%w: failed to create file record: %w", ErrDependencyFailure, err)
	}

	slog.Info("file uploaded", "user_id", principal, "entry_id", file.ID, "size", file.Size, "type", file.Type)
	return file, nil
}

// AuthorizeUpload hands out short-lived credentials for sending a file
// straight to the blob store. The parent rules match Upload.
func (s *EntryService) AuthorizeUpload(ctx context.Context, principal string, in UploadAuthInput) (storage.PresignedUpload, error) {
	err := requireOwner(principal, in.OwnerID)
	if err != nil {
		return storage.PresignedUpload{}, err
	}

	if in.ParentID == nil {
		return storage.PresignedUpload{}, ErrInvalidParent
	}
	_, err = s.parentFolder(ctx, principal, *in.ParentID)
	if err != nil {
		return storage.PresignedUpload{}, err
	}

	auth, err := s.blobs.AuthorizeUpload(ctx, principal, in.ParentID, strings.TrimSpace(in.Filename), in.ContentType)
	if err != nil {
		return storage.PresignedUpload{}, err
	}

	slog.Info("upload authorized", "user_id", principal, "key", auth.Key, "expires_at", auth.ExpiresAt)
	return auth, nil
}

func (s *EntryService) ToggleStar(ctx context.Context, principal, id string) (*model.Entry, error) {
	entry, err := s.entry(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	starred := !entry.IsStarred
	updated, err := s.repo.Update(ctx, principal, id, model.EntryPatch{IsStarred: &starred})
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update entry: %w", ErrDependencyFailure, err)
	}

	return updated, nil
}

// Delete removes the entry row and, for files, makes a best-effort attempt to
// remove the blob first. Children of a deleted folder are left in place.
func (s *EntryService) Delete(ctx context.Context, principal, id string) (*model.Entry, error) {
	entry, err := s.entry(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if !entry.IsFolder {
		s.blobs.LocateAndRemove(ctx, entry)
	}

	deleted, err := s.repo.Delete(ctx, principal, id)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to delete entry: %w", ErrDependencyFailure, err)
	}

	slog.Info("entry deleted", "user_id", principal, "entry_id", id, "is_folder", deleted.IsFolder)
	return deleted, nil
}

func (s *EntryService) entry(ctx context.Context, principal, id string) (*model.Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entry id is required", ErrInvalidInput)
	}

	entry, err := s.repo.ByID(ctx, principal, id)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get entry: %w", ErrDependencyFailure, err)
	}

	return entry, nil
}

// parentFolder resolves parentID to a folder owned by principal.
func (s *EntryService) parentFolder(ctx context.Context, principal, parentID string) (*model.Entry, error) {
	parent, err := s.repo.ByID(ctx, principal, parentID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, ErrInvalidParent
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get parent folder: %w", ErrDependencyFailure, err)
	}

	if !parent.IsFolder {
		return nil, ErrInvalidParent
	}

	return parent, nil
}

func requireOwner(principal, ownerID string) error {
	if principal == "" || ownerID != principal {
		return ErrUnauthorized
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
