package notifications

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/pkg/statuscache"
)

type memStore struct {
	mu     sync.Mutex
	items  []Notification
	counts int
	clock  time.Time
}

func (m *memStore) CreateMany(ctx context.Context, ns []Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range ns {
		m.clock = m.clock.Add(time.Second)
		ns[i].ID = primitive.NewObjectID()
		ns[i].CreatedAt = m.clock
		ns[i].LastModifiedAt = m.clock
		m.items = append(m.items, ns[i])
	}
	return nil
}

func (m *memStore) ListBefore(ctx context.Context, userID primitive.ObjectID, before time.Time, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.items {
		if n.RecipientID == userID && (before.IsZero() || n.LastModifiedAt.Before(before)) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModifiedAt.After(out[j].LastModifiedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountUnseen(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	var n int64
	for _, item := range m.items {
		if item.RecipientID == userID && !item.IsSeen {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Mark(ctx context.Context, userID, id primitive.ObjectID, flags bson.M) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].RecipientID == userID {
			if v, ok := flags["isRead"]; ok {
				m.items[i].IsRead = v.(bool)
			}
			if v, ok := flags["isSeen"]; ok {
				m.items[i].IsSeen = v.(bool)
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].RecipientID == userID && !m.items[i].IsRead {
			m.items[i].IsRead, m.items[i].IsSeen = true, true
			n++
		}
	}
	return n, nil
}

type users map[string]auth.Summary

func (u users) SummariesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]auth.Summary, error) {
	return u, nil
}

func newService(store *memStore, cache statuscache.Store) *Service {
	if store.clock.IsZero() {
		store.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewService(store, users{}, cache, 5*time.Minute)
}

func TestNotifyMentions_SkipsActorAndDuplicates(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	actor, ada, bo := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	ref := Ref{ResourceType: ResourceFeedElement, ResourceID: primitive.NewObjectID()}
	require.NoError(t, svc.NotifyMentions(context.Background(), actor, []primitive.ObjectID{ada, actor, bo, ada}, ref, "hi"))

	require.Len(t, store.items, 2)
	require.Equal(t, TypeMention, store.items[0].Type)
	require.Equal(t, ada, store.items[0].RecipientID)
	require.Equal(t, bo, store.items[1].RecipientID)
}

func TestNotifyCommentAndLike_NoSelfNotification(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	actor, author := primitive.NewObjectID(), primitive.NewObjectID()
	ref := Ref{ResourceType: ResourceFeedElement}

	require.NoError(t, svc.NotifyLike(context.Background(), actor, actor, ref, "x"))
	require.NoError(t, svc.NotifyComment(context.Background(), actor, actor, ref, "x"))
	require.Empty(t, store.items)

	require.NoError(t, svc.NotifyLike(context.Background(), actor, author, ref, "x"))
	require.NoError(t, svc.NotifyComment(context.Background(), actor, author, ref, "x"))
	require.Len(t, store.items, 2)
}

func TestNotify_TruncatesPreview(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'é'
	}

	require.NoError(t, svc.NotifyLike(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), Ref{}, string(long)))
	require.Len(t, []rune(store.items[0].Preview), previewLength)
}

func TestStatus_CachesAndInvalidates(t *testing.T) {
	store := &memStore{}
	svc := newService(store, statuscache.NewMemoryStore())
	me, actor := primitive.NewObjectID(), primitive.NewObjectID()
	ctx := context.Background()

	status, err := svc.Status(ctx, me)
	require.NoError(t, err)
	require.True(t, status.Success)
	require.EqualValues(t, 0, status.UnseenCount)

	_, err = svc.Status(ctx, me)
	require.NoError(t, err)
	require.Equal(t, 1, store.counts)

	// A new notification invalidates the cached count.
	require.NoError(t, svc.NotifyLike(ctx, actor, me, Ref{}, "x"))
	status, err = svc.Status(ctx, me)
	require.NoError(t, err)
	require.EqualValues(t, 1, status.UnseenCount)
	require.Equal(t, 2, store.counts)

	list, err := svc.List(ctx, me)
	require.NoError(t, err)
	require.NoError(t, svc.MarkSeen(ctx, me, list.Notifications[0].ID.Hex()))
	status, err = svc.Status(ctx, me)
	require.NoError(t, err)
	require.EqualValues(t, 0, status.UnseenCount)
}

func TestStatus_ExplicitTTLCheck(t *testing.T) {
	store := &memStore{}
	cache := statuscache.NewMemoryStore()
	svc := newService(store, cache)
	me := primitive.NewObjectID()
	ctx := context.Background()

	// An entry older than the TTL is ignored even if the store still has it.
	stale, _ := json.Marshal(cachedStatus{UnseenCount: 42, CachedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, cache.Set(ctx, statusKey(me), stale, 0))

	status, err := svc.Status(ctx, me)
	require.NoError(t, err)
	require.EqualValues(t, 0, status.UnseenCount)
	require.Equal(t, 1, store.counts)
}

func TestStatus_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &memStore{}
	svc := newService(store, statuscache.NewRedisStoreWithClient(client, "chatter:"))
	me := primitive.NewObjectID()
	ctx := context.Background()

	_, err := svc.Status(ctx, me)
	require.NoError(t, err)
	require.True(t, mr.Exists("chatter:"+statusKey(me)))
	require.Equal(t, 5*time.Minute, mr.TTL("chatter:"+statusKey(me)))

	require.NoError(t, svc.NotifyLike(ctx, primitive.NewObjectID(), me, Ref{}, "x"))
	require.False(t, mr.Exists("chatter:"+statusKey(me)))
}

func TestListAndMore(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	me, actor := primitive.NewObjectID(), primitive.NewObjectID()
	ctx := context.Background()

	for i := 0; i < PageSize+5; i++ {
		require.NoError(t, svc.NotifyLike(ctx, actor, me, Ref{}, "x"))
	}

	first, err := svc.List(ctx, me)
	require.NoError(t, err)
	require.Len(t, first.Notifications, PageSize)
	require.True(t, first.HasMore)
	require.Equal(t, "Unknown user", first.Notifications[0].Actor.Name)

	last := first.Notifications[PageSize-1].LastModifiedAt
	more, err := svc.More(ctx, me, last)
	require.NoError(t, err)
	require.Len(t, more.Notifications, 5)
	require.False(t, more.HasMore)

	_, err = svc.More(ctx, me, time.Time{})
	require.Error(t, err)
}

func TestMark_OnlyOwnNotifications(t *testing.T) {
	store := &memStore{}
	svc := newService(store, nil)
	me, other := primitive.NewObjectID(), primitive.NewObjectID()
	ctx := context.Background()

	require.NoError(t, svc.NotifyLike(ctx, other, me, Ref{}, "x"))
	id := store.items[0].ID.Hex()

	require.ErrorIs(t, svc.MarkRead(ctx, other, id), ErrNotificationNotFound)
	require.ErrorIs(t, svc.MarkRead(ctx, me, "bad"), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(ctx, me, id))
	require.True(t, store.items[0].IsRead)
	require.True(t, store.items[0].IsSeen)

	require.NoError(t, svc.NotifyLike(ctx, other, me, Ref{}, "y"))
	n, err := svc.MarkAllRead(ctx, me)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestHandler_StatusAndMore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{}
	svc := newService(store, nil)
	me := primitive.NewObjectID()
	require.NoError(t, svc.NotifyLike(context.Background(), primitive.NewObjectID(), me, Ref{}, "x"))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", me.Hex()) })
	RegisterRoutes(r.Group(""), NewHandler(svc), func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/notifications/status", nil))
	require.Equal(t, 200, w.Code)
	var body struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Data.UnseenCount)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/notifications/more?before=yesterday", nil))
	require.Equal(t, 400, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/notifications/read-all", nil))
	require.Equal(t, 200, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/notifications/"+primitive.NewObjectID().Hex()+"/seen", nil))
	require.Equal(t, 404, w.Code)
}
