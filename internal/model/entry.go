package model

import (
	"time"
)

// EntryTypeFolder is stored in Entry.Type for folders instead of a MIME type.
const EntryTypeFolder = "folder"

// Entry is a single file or folder. ParentID is a lookup key into the same
// table, never a pointer; children are found by querying on it.
type Entry struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Path         string    `db:"path" json:"path"` // Display only, not a storage key
	Size         int64     `db:"size" json:"size"`
	Type         string    `db:"type" json:"type"`
	BlobURL      string    `db:"file_url" json:"fileUrl"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnailUrl"`
	OwnerID      string    `db:"user_id" json:"userId"`
	ParentID     *string   `db:"parent_id" json:"parentId"` // nil = owner's root
	IsFolder     bool      `db:"is_folder" json:"isFolder"`
	IsStarred    bool      `db:"is_starred" json:"isStarred"`
	IsTrashed    bool      `db:"is_trash" json:"isTrash"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// IsRoot reports whether the entry lives at its owner's root.
func (e *Entry) IsRoot() bool {
	return e.ParentID == nil
}

// EntryPatch lists the mutable fields of an Entry. Nil fields are left untouched.
type EntryPatch struct {
	IsStarred *bool
}
