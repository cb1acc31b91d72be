package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/klaudly/klaudly/internal/model"
	"github.com/klaudly/klaudly/internal/repository"
	"github.com/klaudly/klaudly/internal/service"
	"github.com/klaudly/klaudly/internal/storage"
	"github.com/klaudly/klaudly/internal/storage/mocks"
	"github.com/klaudly/klaudly/internal/validation"
)

type entrySuite struct {
	db      *sqlx.DB
	repo    repository.EntryRepository
	store   *mocks.MockBlobStore
	service *service.EntryService
}

var _ = gc.Suite(&entrySuite{})

func (s *entrySuite) SetUpTest(c *gc.C) {
	s.db = openDB(c)
	s.repo = repository.NewEntryRepository(s.db)
}

func (s *entrySuite) TearDownTest(c *gc.C) {
	if s.db != nil {
		c.Check(s.db.Close(), gc.IsNil)
	}
}

func (s *entrySuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.store = mocks.NewMockBlobStore(ctrl)
	s.service = s.newService(s.repo)
	return ctrl
}

func (s *entrySuite) newService(repo repository.EntryRepository) *service.EntryService {
	blobs := service.NewBlobCoordinator(s.store, "klaudly", validation.DefaultUploadConstraints, 15*time.Minute)
	return service.NewEntryService(repo, blobs)
}

// expectStore makes the blob store accept uploads and hand back locators
// derived from the folder and name it was given.
func (s *entrySuite) expectStore() {
	s.store.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.Reader, _ int64, name, folder, contentType string) (storage.Object, error) {
			obj := storage.Object{
				URL:  "https://cdn.example.com" + folder + "/" + name,
				Path: folder + "/" + name,
			}
			if strings.HasPrefix(contentType, "image/") {
				obj.ThumbnailURL = obj.URL
			}
			return obj, nil
		}).
		AnyTimes()
}

func (s *entrySuite) folder(c *gc.C, owner, name string, parentID *string) *model.Entry {
	f, err := s.service.CreateFolder(context.Background(), owner, service.CreateFolderInput{
		OwnerID:  owner,
		Name:     name,
		ParentID: parentID,
	})
	c.Assert(err, gc.IsNil)
	return f
}

func (s *entrySuite) upload(owner string, parentID *string, filename, contentType string) (*model.Entry, error) {
	body := "content of " + filename
	return s.service.Upload(context.Background(), owner, service.UploadInput{
		OwnerID:     owner,
		ParentID:    parentID,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
}

func (s *entrySuite) TestFolderLifecycle(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()
	ctx := context.Background()

	f1 := s.folder(c, "U", "F1", nil)

	a, err := s.upload("U", &f1.ID, "a.png", "image/png")
	c.Assert(err, gc.IsNil)

	children, err := s.service.List(ctx, "U", "U", &f1.ID)
	c.Assert(err, gc.IsNil)
	c.Assert(children, gc.HasLen, 1)
	c.Check(children[0].Name, gc.Equals, "a.png")

	_, err = s.service.ToggleStar(ctx, "U", a.ID)
	c.Assert(err, gc.IsNil)

	children, err = s.service.List(ctx, "U", "U", &f1.ID)
	c.Assert(err, gc.IsNil)
	c.Assert(children, gc.HasLen, 1)
	c.Check(children[0].IsStarred, gc.Equals, true)

	s.store.EXPECT().FindByName(gomock.Any(), "/klaudly/U", gomock.Any(), 2).
		DoAndReturn(func(_ context.Context, _, _ string, _ int) ([]storage.ObjectInfo, error) {
			return []storage.ObjectInfo{{NativeID: strings.TrimPrefix(a.Path, "/")}}, nil
		})
	s.store.EXPECT().RemoveByNativeID(gomock.Any(), strings.TrimPrefix(a.Path, "/")).Return(nil)

	deleted, err := s.service.Delete(ctx, "U", a.ID)
	c.Assert(err, gc.IsNil)
	c.Check(deleted.ID, gc.Equals, a.ID)

	children, err = s.service.List(ctx, "U", "U", &f1.ID)
	c.Assert(err, gc.IsNil)
	c.Check(children, gc.HasLen, 0)
}

func (s *entrySuite) TestCreateFolder(c *gc.C) {
	defer s.setupMocks(c).Finish()

	root := s.folder(c, "alice", "  Projects ", nil)
	c.Check(root.Name, gc.Equals, "Projects")
	c.Check(root.IsFolder, gc.Equals, true)
	c.Check(root.Type, gc.Equals, model.EntryTypeFolder)
	c.Check(root.Size, gc.Equals, int64(0))
	c.Check(root.OwnerID, gc.Equals, "alice")
	c.Check(root.ParentID, gc.IsNil)
	c.Check(root.Path, gc.Matches, "/folders/alice/[0-9a-f-]{36}")

	nested := s.folder(c, "alice", "2024", &root.ID)
	c.Assert(nested.ParentID, gc.NotNil)
	c.Check(*nested.ParentID, gc.Equals, root.ID)

	// Sibling names are not unique.
	s.folder(c, "alice", "2024", &root.ID)
	children, err := s.service.List(context.Background(), "alice", "alice", &root.ID)
	c.Assert(err, gc.IsNil)
	c.Check(children, gc.HasLen, 2)
}

func (s *entrySuite) TestCreateFolderRejectsBadParent(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()

	docs := s.folder(c, "alice", "Docs", nil)
	photo, err := s.upload("alice", &docs.ID, "photo.png", "image/png")
	c.Assert(err, gc.IsNil)
	bobs := s.folder(c, "bob", "Private", nil)
	missing := "does-not-exist"

	for _, parentID := range []string{photo.ID, bobs.ID, missing} {
		_, err := s.service.CreateFolder(context.Background(), "alice", service.CreateFolderInput{
			OwnerID:  "alice",
			Name:     "Child",
			ParentID: &parentID,
		})
		c.Check(errors.Is(err, service.ErrInvalidParent), gc.Equals, true, gc.Commentf("parent %s: %v", parentID, err))
	}
}

func (s *entrySuite) TestCreateFolderValidation(c *gc.C) {
	defer s.setupMocks(c).Finish()

	_, err := s.service.CreateFolder(context.Background(), "alice", service.CreateFolderInput{OwnerID: "alice", Name: " "})
	c.Check(errors.Is(err, service.ErrInvalidInput), gc.Equals, true)

	_, err = s.service.CreateFolder(context.Background(), "alice", service.CreateFolderInput{OwnerID: "bob", Name: "x"})
	c.Check(err, gc.Equals, service.ErrUnauthorized)

	_, err = s.service.CreateFolder(context.Background(), "", service.CreateFolderInput{OwnerID: "", Name: "x"})
	c.Check(err, gc.Equals, service.ErrUnauthorized)
}

func (s *entrySuite) TestUploadTypePolicy(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()

	docs := s.folder(c, "alice", "Docs", nil)

	_, err := s.upload("alice", &docs.ID, "malware.exe", "image/png")
	c.Check(errors.Is(err, service.ErrInvalidInput), gc.Equals, true)
	c.Check(errors.Is(err, validation.ErrBlockedExtension), gc.Equals, true)

	_, err = s.upload("alice", &docs.ID, "report", "application/pdf")
	c.Check(errors.Is(err, service.ErrInvalidInput), gc.Equals, true)

	photo, err := s.upload("alice", &docs.ID, "photo.PNG", "image/png")
	c.Assert(err, gc.IsNil)
	c.Check(photo.Name, gc.Equals, "photo.PNG")
	c.Check(photo.Type, gc.Equals, "image/png")
	c.Check(photo.IsFolder, gc.Equals, false)
	c.Check(photo.Path, gc.Matches, `/klaudly/alice/folder/`+docs.ID+`/[0-9a-f-]{36}\.PNG`)
	c.Check(photo.BlobURL, gc.Equals, "https://cdn.example.com"+photo.Path)
	c.Assert(photo.ThumbnailURL, gc.NotNil)
	c.Check(*photo.ThumbnailURL, gc.Equals, photo.BlobURL)

	pdf, err := s.upload("alice", &docs.ID, "invoice.pdf", "application/pdf")
	c.Assert(err, gc.IsNil)
	c.Check(pdf.ThumbnailURL, gc.IsNil)

	children, err := s.service.List(context.Background(), "alice", "alice", &docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(children, gc.HasLen, 2)
}

func (s *entrySuite) TestUploadRequiresFolderParent(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()

	_, err := s.upload("alice", nil, "a.png", "image/png")
	c.Check(err, gc.Equals, service.ErrInvalidParent)

	bobs := s.folder(c, "bob", "Private", nil)
	_, err = s.upload("alice", &bobs.ID, "a.png", "image/png")
	c.Check(err, gc.Equals, service.ErrInvalidParent)
}

func (s *entrySuite) TestUploadWithoutBody(c *gc.C) {
	defer s.setupMocks(c).Finish()

	_, err := s.service.Upload(context.Background(), "alice", service.UploadInput{OwnerID: "alice"})
	c.Check(errors.Is(err, validation.ErrEmptyUpload), gc.Equals, true)

	_, err = s.service.Upload(context.Background(), "alice", service.UploadInput{OwnerID: "bob"})
	c.Check(err, gc.Equals, service.ErrUnauthorized)
}

func (s *entrySuite) TestUploadStoreFailureLeavesNoEntry(c *gc.C) {
	defer s.setupMocks(c).Finish()

	docs := s.folder(c, "alice", "Docs", nil)
	s.store.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(storage.Object{}, errors.New("unreachable"))

	_, err := s.upload("alice", &docs.ID, "a.png", "image/png")
	c.Check(errors.Is(err, service.ErrDependencyFailure), gc.Equals, true)

	children, err := s.service.List(context.Background(), "alice", "alice", &docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(children, gc.HasLen, 0)
}

func (s *entrySuite) TestUploadKeepsFilenameAsSent(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()

	docs := s.folder(c, "alice", "Docs", nil)

	decomposed := "Cafe\u0301.png"
	file, err := s.upload("alice", &docs.ID, decomposed, "image/png")
	c.Assert(err, gc.IsNil)
	c.Check(file.Name, gc.Equals, decomposed)

	long := strings.Repeat("x", 300) + ".png"
	file, err = s.upload("alice", &docs.ID, long, "image/png")
	c.Assert(err, gc.IsNil)
	c.Check(file.Name, gc.Equals, long)

	stored, err := s.repo.ByID(context.Background(), "alice", file.ID)
	c.Assert(err, gc.IsNil)
	c.Check(stored.Name, gc.Equals, long)
}

func (s *entrySuite) TestUploadDiscardsBlobWhenClientGoesAway(c *gc.C) {
	defer s.setupMocks(c).Finish()

	docs := s.folder(c, "alice", "Docs", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.store.EXPECT().
		Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ io.Reader, _ int64, name, folder, _ string) (storage.Object, error) {
			// The client disconnects once the blob is written.
			cancel()
			return storage.Object{Path: folder + "/" + name}, nil
		})
	s.store.EXPECT().RemoveByNativeID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, key string) error {
			c.Check(ctx.Err(), gc.IsNil)
			c.Check(key, gc.Matches, `klaudly/alice/folder/`+docs.ID+`/[0-9a-f-]{36}\.png`)
			return nil
		})

	_, err := s.service.Upload(ctx, "alice", service.UploadInput{
		OwnerID:     "alice",
		ParentID:    &docs.ID,
		Filename:    "a.png",
		ContentType: "image/png",
		Size:        3,
		Body:        strings.NewReader("png"),
	})
	c.Check(errors.Is(err, service.ErrDependencyFailure), gc.Equals, true)
	c.Check(errors.Is(err, context.Canceled), gc.Equals, true)
}

func (s *entrySuite) TestAuthorizeUpload(c *gc.C) {
	defer s.setupMocks(c).Finish()
	ctx := context.Background()

	docs := s.folder(c, "alice", "Docs", nil)
	bobs := s.folder(c, "bob", "Private", nil)

	s.store.EXPECT().
		PresignUpload(gomock.Any(), gomock.Any(), "/klaudly/alice/folder/"+docs.ID, "application/pdf", 15*time.Minute).
		Return(storage.PresignedUpload{URL: "https://s3.example.com/signed", Method: "PUT", Key: "k"}, nil)

	auth, err := s.service.AuthorizeUpload(ctx, "alice", service.UploadAuthInput{
		OwnerID:     "alice",
		ParentID:    &docs.ID,
		Filename:    " invoice.pdf ",
		ContentType: "application/pdf",
	})
	c.Assert(err, gc.IsNil)
	c.Check(auth.URL, gc.Equals, "https://s3.example.com/signed")

	_, err = s.service.AuthorizeUpload(ctx, "alice", service.UploadAuthInput{OwnerID: "alice", Filename: "a.png", ContentType: "image/png"})
	c.Check(err, gc.Equals, service.ErrInvalidParent)

	_, err = s.service.AuthorizeUpload(ctx, "alice", service.UploadAuthInput{OwnerID: "alice", ParentID: &bobs.ID, Filename: "a.png", ContentType: "image/png"})
	c.Check(err, gc.Equals, service.ErrInvalidParent)

	_, err = s.service.AuthorizeUpload(ctx, "alice", service.UploadAuthInput{OwnerID: "bob", ParentID: &docs.ID, Filename: "a.png", ContentType: "image/png"})
	c.Check(err, gc.Equals, service.ErrUnauthorized)

	_, err = s.service.AuthorizeUpload(ctx, "alice", service.UploadAuthInput{OwnerID: "alice", ParentID: &docs.ID, Filename: "run.sh", ContentType: "image/png"})
	c.Check(errors.Is(err, service.ErrInvalidInput), gc.Equals, true)
}

type failingCreateRepository struct {
	repository.EntryRepository
}

func (failingCreateRepository) Create(context.Context, *model.Entry) (*model.Entry, error) {
	return nil, errors.New("disk full")
}

func (s *entrySuite) TestUploadDiscardsBlobWhenRecordFails(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()

	docs := s.folder(c, "alice", "Docs", nil)
	s.service = s.newService(failingCreateRepository{s.repo})

	s.store.EXPECT().RemoveByNativeID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string) error {
			c.Check(key, gc.Matches, `klaudly/alice/folder/`+docs.ID+`/[0-9a-f-]{36}\.png`)
			return nil
		})

	_, err := s.upload("alice", &docs.ID, "a.png", "image/png")
	c.Check(errors.Is(err, service.ErrDependencyFailure), gc.Equals, true)
}

func (s *entrySuite) TestListScopedToOwner(c *gc.C) {
	defer s.setupMocks(c).Finish()

	docs := s.folder(c, "alice", "Docs", nil)
	s.folder(c, "alice", "Inner", &docs.ID)
	s.folder(c, "bob", "Bobs", nil)

	root, err := s.service.List(context.Background(), "alice", "alice", nil)
	c.Assert(err, gc.IsNil)
	c.Assert(root, gc.HasLen, 1)
	c.Check(root[0].ID, gc.Equals, docs.ID)
	for _, e := range root {
		c.Check(e.ParentID, gc.IsNil)
	}

	// bob knows the folder id but sees nothing inside it.
	peek, err := s.service.List(context.Background(), "bob", "bob", &docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(peek, gc.HasLen, 0)

	_, err = s.service.List(context.Background(), "bob", "alice", &docs.ID)
	c.Check(err, gc.Equals, service.ErrUnauthorized)
}

func (s *entrySuite) TestToggleStarTwice(c *gc.C) {
	defer s.setupMocks(c).Finish()
	ctx := context.Background()

	docs := s.folder(c, "alice", "Docs", nil)

	once, err := s.service.ToggleStar(ctx, "alice", docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(once.IsStarred, gc.Equals, true)
	c.Check(once.UpdatedAt.After(docs.UpdatedAt), gc.Equals, true)

	twice, err := s.service.ToggleStar(ctx, "alice", docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(twice.IsStarred, gc.Equals, false)
	c.Check(twice.UpdatedAt.After(once.UpdatedAt), gc.Equals, true)
}

func (s *entrySuite) TestToggleStarNotFound(c *gc.C) {
	defer s.setupMocks(c).Finish()

	docs := s.folder(c, "alice", "Docs", nil)

	_, err := s.service.ToggleStar(context.Background(), "bob", docs.ID)
	c.Check(err, gc.Equals, service.ErrNotFound)

	_, err = s.service.ToggleStar(context.Background(), "alice", "missing")
	c.Check(err, gc.Equals, service.ErrNotFound)

	_, err = s.service.ToggleStar(context.Background(), "alice", "")
	c.Check(errors.Is(err, service.ErrInvalidInput), gc.Equals, true)
}

func (s *entrySuite) TestDeleteSucceedsWhenBlobRemovalFails(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()
	ctx := context.Background()

	docs := s.folder(c, "alice", "Docs", nil)
	a, err := s.upload("alice", &docs.ID, "a.png", "image/png")
	c.Assert(err, gc.IsNil)

	s.store.EXPECT().FindByName(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
	s.store.EXPECT().RemoveByNativeID(gomock.Any(), gomock.Any()).Return(errors.New("down")).AnyTimes()

	deleted, err := s.service.Delete(ctx, "alice", a.ID)
	c.Assert(err, gc.IsNil)
	c.Check(deleted.ID, gc.Equals, a.ID)

	_, err = s.repo.ByID(ctx, "alice", a.ID)
	c.Check(err, gc.Equals, repository.ErrEntryNotFound)
}

func (s *entrySuite) TestDeleteFolderOrphansChildren(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectStore()
	ctx := context.Background()

	docs := s.folder(c, "alice", "Docs", nil)
	inner := s.folder(c, "alice", "Inner", &docs.ID)
	a, err := s.upload("alice", &docs.ID, "a.png", "image/png")
	c.Assert(err, gc.IsNil)

	// No blob calls are expected for a folder.
	deleted, err := s.service.Delete(ctx, "alice", docs.ID)
	c.Assert(err, gc.IsNil)
	c.Check(deleted.IsFolder, gc.Equals, true)

	for _, id := range []string{inner.ID, a.ID} {
		child, err := s.repo.ByID(ctx, "alice", id)
		c.Assert(err, gc.IsNil)
		c.Assert(child.ParentID, gc.NotNil)
		c.Check(*child.ParentID, gc.Equals, docs.ID)
	}
}

func (s *entrySuite) TestDeleteNotOwned(c *gc.C) {
	defer s.setupMocks(c).Finish()

	docs := s.folder(c, "alice", "Docs", nil)

	_, err := s.service.Delete(context.Background(), "bob", docs.ID)
	c.Check(err, gc.Equals, service.ErrNotFound)

	_, err = s.repo.ByID(context.Background(), "alice", docs.ID)
	c.Check(err, gc.IsNil)
}
