package files

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/pkg/cloudinary"
	"github.com/xyz-asif/chatter/internal/transfer"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

type memStore struct {
	mu       sync.Mutex
	docs     map[primitive.ObjectID]*Document
	versions map[primitive.ObjectID]*Version
}

func newMemStore() *memStore {
	return &memStore{docs: map[primitive.ObjectID]*Document{}, versions: map[primitive.ObjectID]*Version{}}
}

func (m *memStore) Insert(ctx context.Context, doc *Document, ver *Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if ver.ReasonForChange != "" && v.OwnerID == ver.OwnerID && v.ReasonForChange == ver.ReasonForChange {
			return ErrDuplicateReason
		}
	}
	doc.ID = primitive.NewObjectID()
	ver.ID = primitive.NewObjectID()
	ver.DocumentID = doc.ID
	doc.LatestVersionID = ver.ID
	m.docs[doc.ID] = doc
	m.versions[ver.ID] = ver
	return nil
}

func (m *memStore) FindVersionByReason(ctx context.Context, owner primitive.ObjectID, reason string) (*Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.OwnerID == owner && v.ReasonForChange == reason {
			return v, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetVersion(ctx context.Context, id primitive.ObjectID) (*Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[id], nil
}

func (m *memStore) GetDocument(ctx context.Context, id primitive.ObjectID) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id], nil
}

func (m *memStore) GetDocumentsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]*Document{}
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out[id.Hex()] = d
		}
	}
	return out, nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	for vid, v := range m.versions {
		if v.DocumentID == id {
			delete(m.versions, vid)
		}
	}
	return nil
}

type fakeAssets struct {
	uploads   []string
	deleted   []string
	uploadErr error
}

func (f *fakeAssets) Upload(ctx context.Context, r io.Reader, filename string) (*cloudinary.Asset, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, _ := io.ReadAll(r)
	f.uploads = append(f.uploads, string(data))
	return &cloudinary.Asset{
		URL:          "https://res.example.com/" + filename,
		PublicID:     "chatter/files/" + filename,
		ResourceType: cloudinary.ResourceTypeFor(filename),
		FileSize:     int64(len(data)),
	}, nil
}

func (f *fakeAssets) Delete(ctx context.Context, publicID, resourceType string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

func record(title, data, reason string) transfer.VersionRecord {
	return transfer.VersionRecord{
		APIName: transfer.ContentVersionAPIName,
		Fields: transfer.VersionFields{
			Title:           title,
			PathOnClient:    title,
			VersionData:     base64.StdEncoding.EncodeToString([]byte(data)),
			Origin:          transfer.OriginChatter,
			ReasonForChange: reason,
		},
	}
}

func TestCreateVersion_StoresAndResolves(t *testing.T) {
	store, assets := newMemStore(), &fakeAssets{}
	svc := NewService(store, assets)
	owner := primitive.NewObjectID()

	id, err := svc.CreateVersion(context.Background(), owner, record("notes.txt", "hello", "1_a"))
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, assets.uploads)

	ref, err := svc.ResolveDocument(context.Background(), owner, id)
	require.NoError(t, err)
	require.NotEmpty(t, ref.ContentDocumentID)

	doc := store.docs[mustOID(t, ref.ContentDocumentID)]
	require.Equal(t, "notes.txt", doc.Title)
	require.Equal(t, int64(5), doc.FileSize)
	require.Equal(t, "txt", doc.Attachment().FileExtension)
}

func TestCreateVersion_RepeatedReasonIsIdempotent(t *testing.T) {
	assets := &fakeAssets{}
	svc := NewService(newMemStore(), assets)
	owner := primitive.NewObjectID()

	first, err := svc.CreateVersion(context.Background(), owner, record("a.txt", "one", "42_x"))
	require.NoError(t, err)
	second, err := svc.CreateVersion(context.Background(), owner, record("a.txt", "one", "42_x"))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, assets.uploads, 1)
}

func TestCreateVersion_Rejects(t *testing.T) {
	svc := NewService(newMemStore(), &fakeAssets{})
	owner := primitive.NewObjectID()

	bad := record("a.txt", "x", "")
	bad.APIName = "Account"
	_, err := svc.CreateVersion(context.Background(), owner, bad)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	bad = record("a.txt", "x", "")
	bad.Fields.VersionData = "%%%"
	_, err = svc.CreateVersion(context.Background(), owner, bad)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateVersion(context.Background(), owner, record("setup.exe", "MZ", ""))
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NewService(newMemStore(), nil).CreateVersion(context.Background(), owner, record("a.txt", "x", ""))
	require.ErrorIs(t, err, ErrStorageDisabled)
}

func TestCreateVersion_AcceptsDataURI(t *testing.T) {
	assets := &fakeAssets{}
	svc := NewService(newMemStore(), assets)

	rec := record("a.txt", "", "")
	rec.Fields.VersionData = "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi"))
	_, err := svc.CreateVersion(context.Background(), primitive.NewObjectID(), rec)
	require.NoError(t, err)
	require.Equal(t, []string{"hi"}, assets.uploads)
}

func TestResolveDocument_OtherOwnerIsNotFound(t *testing.T) {
	svc := NewService(newMemStore(), &fakeAssets{})
	id, err := svc.CreateVersion(context.Background(), primitive.NewObjectID(), record("a.txt", "x", ""))
	require.NoError(t, err)

	_, err = svc.ResolveDocument(context.Background(), primitive.NewObjectID(), id)
	require.ErrorIs(t, err, ErrVersionNotFound)

	_, err = svc.ResolveDocument(context.Background(), primitive.NewObjectID(), "not-an-id")
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestDeleteDocument(t *testing.T) {
	store, assets := newMemStore(), &fakeAssets{}
	svc := NewService(store, assets)
	owner := primitive.NewObjectID()

	id, err := svc.CreateVersion(context.Background(), owner, record("a.png", "png", ""))
	require.NoError(t, err)
	ref, err := svc.ResolveDocument(context.Background(), owner, id)
	require.NoError(t, err)

	err = svc.DeleteDocument(context.Background(), primitive.NewObjectID(), ref.ContentDocumentID)
	require.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, svc.DeleteDocument(context.Background(), owner, ref.ContentDocumentID))
	require.Equal(t, []string{"chatter/files/a.png"}, assets.deleted)
	require.Empty(t, store.docs)
	require.Empty(t, store.versions)

	err = svc.DeleteDocument(context.Background(), owner, ref.ContentDocumentID)
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestOwnedDocumentIDs(t *testing.T) {
	svc := NewService(newMemStore(), &fakeAssets{})
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()

	docOf := func(who primitive.ObjectID, name string) string {
		id, err := svc.CreateVersion(context.Background(), who, record(name, "x", ""))
		require.NoError(t, err)
		ref, err := svc.ResolveDocument(context.Background(), who, id)
		require.NoError(t, err)
		return ref.ContentDocumentID
	}
	a, b, theirs := docOf(owner, "a.txt"), docOf(owner, "b.txt"), docOf(other, "c.txt")

	oids, err := svc.OwnedDocumentIDs(context.Background(), owner, []string{b, a, b})
	require.NoError(t, err)
	require.Equal(t, []string{b, a}, []string{oids[0].Hex(), oids[1].Hex()})

	_, err = svc.OwnedDocumentIDs(context.Background(), owner, []string{a, theirs})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.OwnedDocumentIDs(context.Background(), owner, []string{primitive.NewObjectID().Hex()})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	views, err := svc.Attachments(context.Background(), oids)
	require.NoError(t, err)
	require.Equal(t, "a.txt", views[a].Title)
}

func TestHandler_CreateAndResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	owner := primitive.NewObjectID()
	h := NewHandler(NewService(newMemStore(), &fakeAssets{}))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", owner.Hex()) })
	RegisterRoutes(r.Group("/api/v1"), h, func(c *gin.Context) { c.Next() })

	body, _ := json.Marshal(record("a.txt", "hello", "1_a"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/files/versions", strings.NewReader(string(body))))
	require.Equal(t, 201, w.Code)

	var created struct {
		Data CreateVersionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/files/versions/"+created.Data.ID+"/document", nil))
	require.Equal(t, 200, w.Code)
	var resolved struct {
		Data transfer.DocumentRef `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	require.Len(t, resolved.Data.ContentDocumentID, 24)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/files/documents/"+primitive.NewObjectID().Hex(), nil))
	require.Equal(t, 404, w.Code)
}

func TestHandler_UploadFailureIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(newMemStore(), &fakeAssets{uploadErr: errors.New("cloud down")}))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", primitive.NewObjectID().Hex()) })
	r.POST("/files/versions", h.CreateVersion)

	body, _ := json.Marshal(record("a.txt", "hello", ""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/files/versions", strings.NewReader(string(body))))
	require.Equal(t, 500, w.Code)
	require.NotContains(t, w.Body.String(), "cloud down")
}

func mustOID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return oid
}
