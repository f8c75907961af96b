package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/comments"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/features/notifications"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

type memStore struct {
	mu           sync.Mutex
	elements     map[primitive.ObjectID]*Element
	interactions map[string]bool
	clock        time.Time
}

func newMemStore() *memStore {
	return &memStore{
		elements:     map[primitive.ObjectID]*Element{},
		interactions: map[string]bool{},
		clock:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func interactionKey(elementID, userID primitive.ObjectID, kind string) string {
	return elementID.Hex() + "/" + userID.Hex() + "/" + kind
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateElement(ctx context.Context, e *Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = primitive.NewObjectID()
	e.CreatedAt = m.tick()
	e.LastModifiedAt = e.CreatedAt
	cp := *e
	m.elements[e.ID] = &cp
	return nil
}

func (m *memStore) GetElement(ctx context.Context, id primitive.ObjectID) (*Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elements[id]
	if !ok || e.DeletedAt != nil {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) UpdateContent(ctx context.Context, e *Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	e.IsEdited = true
	e.EditedAt = &now
	e.LastModifiedAt = now
	cp := *e
	m.elements[e.ID] = &cp
	return nil
}

func (m *memStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	m.elements[id].DeletedAt = &now
	return nil
}

func (m *memStore) List(ctx context.Context, f ListFilter) ([]Element, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := func(e Element) time.Time {
		if f.SortField == "lastModifiedAt" {
			return e.LastModifiedAt
		}
		return e.CreatedAt
	}
	excluded := map[primitive.ObjectID]bool{}
	for _, id := range f.ExcludeIDs {
		excluded[id] = true
	}

	var out []Element
	for _, e := range m.elements {
		switch {
		case e.DeletedAt != nil, excluded[e.ID]:
			continue
		case f.SubjectID != nil && e.SubjectID != *f.SubjectID:
			continue
		case f.Search != "" && !strings.Contains(strings.ToLower(e.BodyText), strings.ToLower(f.Search)):
			continue
		case f.After != nil && !at(*e).Before(f.After.Timestamp):
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return at(out[i]).After(at(out[j])) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) AdjustLikeCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements[id].LikeCount += delta
	return nil
}

func (m *memStore) SetInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := interactionKey(elementID, userID, kind)
	if m.interactions[key] {
		return false, nil
	}
	m.interactions[key] = true
	return true, nil
}

func (m *memStore) ClearInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := interactionKey(elementID, userID, kind)
	if !m.interactions[key] {
		return false, nil
	}
	delete(m.interactions, key)
	return true, nil
}

func (m *memStore) InteractionsFor(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (map[string]map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]map[string]bool{}
	for _, id := range ids {
		for _, kind := range []string{KindLike, KindBookmark, KindMute} {
			if m.interactions[interactionKey(id, userID, kind)] {
				if out[id.Hex()] == nil {
					out[id.Hex()] = map[string]bool{}
				}
				out[id.Hex()][kind] = true
			}
		}
	}
	return out, nil
}

func (m *memStore) ElementIDsWith(ctx context.Context, userID primitive.ObjectID, kind string) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []primitive.ObjectID
	for id := range m.elements {
		if m.interactions[interactionKey(id, userID, kind)] {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeUsers map[string]string

func (u fakeUsers) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	return u, nil
}

func (u fakeUsers) SummariesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]auth.Summary, error) {
	out := map[string]auth.Summary{}
	for _, id := range ids {
		if name, ok := u[id.Hex()]; ok {
			out[id.Hex()] = auth.Summary{ID: id.Hex(), Name: name}
		}
	}
	return out, nil
}

type fakeFiles struct {
	owned map[string]primitive.ObjectID
}

func (f fakeFiles) OwnedDocumentIDs(ctx context.Context, owner primitive.ObjectID, ids []string) ([]primitive.ObjectID, error) {
	var out []primitive.ObjectID
	for _, id := range ids {
		if f.owned[id] != owner {
			return nil, apperrors.Forbidden("not yours")
		}
		oid, _ := primitive.ObjectIDFromHex(id)
		out = append(out, oid)
	}
	return out, nil
}

func (f fakeFiles) Attachments(ctx context.Context, ids []primitive.ObjectID) (map[string]files.Attachment, error) {
	out := map[string]files.Attachment{}
	for _, id := range ids {
		out[id.Hex()] = files.Attachment{ContentDocumentID: id.Hex(), Title: "report.pdf"}
	}
	return out, nil
}

type sent struct {
	kind       string
	recipients []primitive.ObjectID
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) NotifyMentions(ctx context.Context, actor primitive.ObjectID, recipients []primitive.ObjectID, ref notifications.Ref, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{"mention", recipients})
	return nil
}

func (f *fakeNotifier) NotifyLike(ctx context.Context, actor, author primitive.ObjectID, ref notifications.Ref, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{"like", []primitive.ObjectID{author}})
	return nil
}

type fakeComments struct{}

func (fakeComments) Page(ctx context.Context, caller primitive.ObjectID, target comments.Target, token string, size int) (*comments.Page, error) {
	return &comments.Page{Items: []comments.CommentResponse{}}, nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	notifier *fakeNotifier
	ada      primitive.ObjectID
	bo       primitive.ObjectID
	doc      string
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		ada:      primitive.NewObjectID(),
		bo:       primitive.NewObjectID(),
		doc:      primitive.NewObjectID().Hex(),
	}
	users := fakeUsers{f.ada.Hex(): "Ada", f.bo.Hex(): "Bo"}
	fs := fakeFiles{owned: map[string]primitive.ObjectID{f.doc: f.ada}}
	f.svc = NewService(f.store, users, fs, f.notifier, fakeComments{})
	f.svc.background = func(fn func(ctx context.Context)) { fn(context.Background()) }
	return f
}

func (f *fixture) post(t *testing.T, actor primitive.ObjectID, body string) *ElementResponse {
	t.Helper()
	view, err := f.svc.CreatePost(context.Background(), actor, CreatePostRequest{Body: body})
	require.NoError(t, err)
	return view
}

func TestCreatePost(t *testing.T) {
	f := newFixture()

	view, err := f.svc.CreatePost(context.Background(), f.ada, CreatePostRequest{
		Body:               "<p>hello {" + f.bo.Hex() + "}</p>",
		ContentDocumentIDs: []string{f.doc},
	})
	require.NoError(t, err)
	require.Equal(t, "hello @Bo", view.Body.Text)
	require.Equal(t, "FeedItem", view.FeedElementType)
	require.Equal(t, f.ada.Hex(), view.Parent.ID)
	require.Equal(t, "Ada", view.Actor.Name)
	require.False(t, view.IsDeleteRestricted)
	require.False(t, view.Capabilities.Edit.IsEditRestricted)
	require.Len(t, view.Capabilities.Files.Items, 1)

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, []primitive.ObjectID{f.bo}, f.notifier.sent[0].recipients)
}

func TestCreatePost_Rejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.ada, CreatePostRequest{Body: "<p></p>"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.CreatePost(ctx, f.bo, CreatePostRequest{Body: "hi", ContentDocumentIDs: []string{f.doc}})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	many := make([]string, MaxAttachments+1)
	for i := range many {
		many[i] = f.doc
	}
	_, err = f.svc.CreatePost(ctx, f.ada, CreatePostRequest{Body: "hi", ContentDocumentIDs: many})
	require.ErrorIs(t, err, ErrTooManyFiles)

	_, err = f.svc.CreatePost(ctx, f.ada, CreatePostRequest{Body: "hi", SubjectID: "nope"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestNewsFeed_PagesNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, body := range []string{"one", "two", "three"} {
		f.post(t, f.ada, body)
	}

	first, err := f.svc.NewsFeed(ctx, f.bo, FeedQuery{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Feed.Elements, 2)
	require.Equal(t, "three", first.Feed.Elements[0].Body.Text)
	require.Equal(t, SortCreatedDateDesc, first.Feed.SortOrder)
	require.NotNil(t, first.Feed.NextPageToken)
	require.True(t, first.Feed.Elements[0].IsDeleteRestricted)

	second, err := f.svc.NewsFeed(ctx, f.bo, FeedQuery{PageSize: 2, PageToken: *first.Feed.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Feed.Elements, 1)
	require.Equal(t, "one", second.Feed.Elements[0].Body.Text)
	require.Nil(t, second.Feed.NextPageToken)
	require.Equal(t, *first.Feed.NextPageToken, second.Feed.CurrentPageToken)
}

func TestNewsFeed_SearchAndMute(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	keep := f.post(t, f.ada, "Quarterly report")
	muted := f.post(t, f.ada, "quarterly numbers")
	f.post(t, f.ada, "lunch")

	_, err := f.svc.Toggle(ctx, f.bo, muted.ID, KindMute, true)
	require.NoError(t, err)

	feed, err := f.svc.NewsFeed(ctx, f.bo, FeedQuery{SearchTerm: "QUARTERLY"})
	require.NoError(t, err)
	require.Len(t, feed.Feed.Elements, 1)
	require.Equal(t, keep.ID, feed.Feed.Elements[0].ID)

	_, err = f.svc.NewsFeed(ctx, f.bo, FeedQuery{SearchTerm: "q"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.NewsFeed(ctx, f.bo, FeedQuery{PageToken: "garbage"})
	require.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestRecordFeed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.post(t, f.ada, "mine")
	_, err := f.svc.CreatePost(ctx, f.bo, CreatePostRequest{Body: "on ada's wall", SubjectID: f.ada.Hex()})
	require.NoError(t, err)
	f.post(t, f.bo, "elsewhere")

	feed, err := f.svc.RecordFeed(ctx, f.bo, f.ada.Hex(), FeedQuery{})
	require.NoError(t, err)
	require.Len(t, feed.Feed.Elements, 2)

	_, err = f.svc.RecordFeed(ctx, f.bo, "bad", FeedQuery{})
	require.ErrorIs(t, err, ErrInvalidRecordID)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.post(t, f.ada, "{"+f.bo.Hex()+"} draft")
	f.notifier.sent = nil

	_, err := f.svc.UpdatePost(ctx, f.bo, view.ID, UpdatePostRequest{Body: "hijack"})
	require.ErrorIs(t, err, ErrNotAuthor)

	updated, err := f.svc.UpdatePost(ctx, f.ada, view.ID, UpdatePostRequest{Body: "{" + f.bo.Hex() + "} final"})
	require.NoError(t, err)
	require.Equal(t, "@Bo final", updated.Body.Text)
	require.NotNil(t, updated.Capabilities.Edit.LastEditedDate)
	require.Empty(t, f.notifier.sent)

	sorted, err := f.svc.NewsFeed(ctx, f.ada, FeedQuery{SortOrder: SortLastModifiedDateDesc})
	require.NoError(t, err)
	require.Equal(t, view.ID, sorted.Feed.Elements[0].ID)
}

func TestDeletePost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.post(t, f.ada, "bye")

	require.ErrorIs(t, f.svc.DeletePost(ctx, f.bo, view.ID), ErrNotAuthor)
	require.NoError(t, f.svc.DeletePost(ctx, f.ada, view.ID))

	_, err := f.svc.GetElement(ctx, f.ada, view.ID)
	require.ErrorIs(t, err, ErrElementNotFound)
}

func TestLikeIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.post(t, f.ada, "like me")

	for i := 0; i < 2; i++ {
		res, err := f.svc.Like(ctx, f.bo, view.ID)
		require.NoError(t, err)
		require.True(t, res.Active)
	}
	got, err := f.svc.GetElement(ctx, f.bo, view.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Capabilities.ChatterLikes.Total)
	require.True(t, got.Capabilities.ChatterLikes.IsLikedByCurrentUser)
	require.Equal(t, 1, got.Capabilities.Interactions.Count)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, "like", f.notifier.sent[0].kind)

	_, err = f.svc.Unlike(ctx, f.bo, view.ID)
	require.NoError(t, err)
	_, err = f.svc.Unlike(ctx, f.bo, view.ID)
	require.NoError(t, err)
	got, err = f.svc.GetElement(ctx, f.bo, view.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Capabilities.ChatterLikes.Total)
}

func TestToggleBookmark(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	view := f.post(t, f.ada, "save for later")

	_, err := f.svc.Toggle(ctx, f.bo, view.ID, KindBookmark, true)
	require.NoError(t, err)
	got, err := f.svc.GetElement(ctx, f.bo, view.ID)
	require.NoError(t, err)
	require.True(t, got.Capabilities.Bookmarks.IsBookmarkedByCurrentUser)

	_, err = f.svc.Toggle(ctx, f.bo, view.ID, KindLike, true)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetNewsFeedHandler_BadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture()
	router := gin.New()
	setCaller := func(c *gin.Context) { c.Set("userID", f.bo.Hex()) }
	RegisterRoutes(router.Group(""), NewHandler(f.svc), setCaller)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/feed/news?sortOrder=Oldest", nil))
	require.Equal(t, 400, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_FAILED", body["code"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/feed/elements/"+primitive.NewObjectID().Hex(), nil))
	require.Equal(t, 404, w.Code)
}
