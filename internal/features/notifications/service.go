package notifications

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/metrics"
	"github.com/xyz-asif/chatter/internal/pkg/statuscache"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

const previewLength = 100

var ErrNotificationNotFound = apperrors.NotFound("notification not found")

type Store interface {
	CreateMany(ctx context.Context, notifications []Notification) error
	ListBefore(ctx context.Context, userID primitive.ObjectID, before time.Time, limit int) ([]Notification, error)
	CountUnseen(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Mark(ctx context.Context, userID, notificationID primitive.ObjectID, flags bson.M) (bool, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// Users resolves actors for display
type Users interface {
	SummariesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]auth.Summary, error)
}

type Service struct {
	repo      Store
	users     Users
	cache     statuscache.Store
	statusTTL time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func NewService(repo Store, users Users, cache statuscache.Store, statusTTL time.Duration) *Service {
	if cache == nil {
		cache = statuscache.NewMemoryStore()
	}
	return &Service{
		repo:      repo,
		users:     users,
		cache:     cache,
		statusTTL: statusTTL,
		now:       time.Now,
		log:       logger.Default().Named("notifications"),
	}
}

// NotifyMentions tells each mentioned user about a message. The actor is
// never notified about their own message.
func (s *Service) NotifyMentions(ctx context.Context, actorID primitive.ObjectID, recipients []primitive.ObjectID, ref Ref, preview string) error {
	notifications := make([]Notification, 0, len(recipients))
	seen := make(map[primitive.ObjectID]bool, len(recipients))
	for _, id := range recipients {
		if id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		notifications = append(notifications, s.build(TypeMention, actorID, id, ref, preview))
	}
	return s.create(ctx, notifications)
}

// NotifyComment tells the author of a feed element about a new comment
func (s *Service) NotifyComment(ctx context.Context, actorID, authorID primitive.ObjectID, ref Ref, preview string) error {
	if actorID == authorID {
		return nil
	}
	return s.create(ctx, []Notification{s.build(TypeComment, actorID, authorID, ref, preview)})
}

// NotifyLike tells the author of a feed element that someone liked it
func (s *Service) NotifyLike(ctx context.Context, actorID, authorID primitive.ObjectID, ref Ref, preview string) error {
	if actorID == authorID {
		return nil
	}
	return s.create(ctx, []Notification{s.build(TypeLike, actorID, authorID, ref, preview)})
}

func (s *Service) build(kind string, actorID, recipientID primitive.ObjectID, ref Ref, preview string) Notification {
	return Notification{
		RecipientID:   recipientID,
		ActorID:       actorID,
		Type:          kind,
		ResourceType:  ref.ResourceType,
		ResourceID:    ref.ResourceID,
		FeedElementID: ref.FeedElementID,
		Preview:       truncate(preview, previewLength),
	}
}

func (s *Service) create(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := s.repo.CreateMany(ctx, notifications); err != nil {
		return err
	}

	recipients := make([]primitive.ObjectID, len(notifications))
	for i, n := range notifications {
		metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
		recipients[i] = n.RecipientID
	}
	s.invalidate(ctx, recipients...)
	return nil
}

// cachedStatus is the cache entry. CachedAt is checked against the TTL so
// a store that ignores expiry still serves fresh counts.
type cachedStatus struct {
	UnseenCount int64     `json:"unseenCount"`
	CachedAt    time.Time `json:"cachedAt"`
}

func statusKey(userID primitive.ObjectID) string {
	return "notification-status:" + userID.Hex()
}

// Status returns the number of unseen notifications, cached per user
func (s *Service) Status(ctx context.Context, userID primitive.ObjectID) (*StatusResponse, error) {
	key := statusKey(userID)

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Status cache read failed: %v", err)
		metrics.StatusCacheLookups.WithLabelValues("error").Inc()
	} else if ok {
		var entry cachedStatus
		if json.Unmarshal(raw, &entry) == nil && s.now().Sub(entry.CachedAt) < s.statusTTL {
			metrics.StatusCacheLookups.WithLabelValues("hit").Inc()
			return &StatusResponse{Success: true, UnseenCount: entry.UnseenCount}, nil
		}
		metrics.StatusCacheLookups.WithLabelValues("stale").Inc()
	} else {
		metrics.StatusCacheLookups.WithLabelValues("miss").Inc()
	}

	count, err := s.repo.CountUnseen(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, _ := json.Marshal(cachedStatus{UnseenCount: count, CachedAt: s.now()})
	if err := s.cache.Set(ctx, key, entry, s.statusTTL); err != nil {
		s.log.Warn("Status cache write failed: %v", err)
	}

	return &StatusResponse{Success: true, UnseenCount: count}, nil
}

func (s *Service) invalidate(ctx context.Context, userIDs ...primitive.ObjectID) {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = statusKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Status cache invalidation failed: %v", err)
	}
}

// List returns the latest notifications
func (s *Service) List(ctx context.Context, userID primitive.ObjectID) (*ListResponse, error) {
	return s.listBefore(ctx, userID, time.Time{})
}

// More returns notifications last modified before the given time
func (s *Service) More(ctx context.Context, userID primitive.ObjectID, before time.Time) (*ListResponse, error) {
	if before.IsZero() {
		return nil, apperrors.Invalid("before is required")
	}
	return s.listBefore(ctx, userID, before)
}

func (s *Service) listBefore(ctx context.Context, userID primitive.ObjectID, before time.Time) (*ListResponse, error) {
	items, err := s.repo.ListBefore(ctx, userID, before, PageSize+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > PageSize
	if hasMore {
		items = items[:PageSize]
	}

	actorIDs := make([]primitive.ObjectID, 0, len(items))
	for _, n := range items {
		actorIDs = append(actorIDs, n.ActorID)
	}
	actors, err := s.users.SummariesByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]NotificationResponse, len(items))
	for i, n := range items {
		actor, ok := actors[n.ActorID.Hex()]
		if !ok {
			actor = auth.Summary{ID: n.ActorID.Hex(), Name: "Unknown user"}
		}
		out[i] = NotificationResponse{
			ID:             n.ID,
			Type:           n.Type,
			ResourceType:   n.ResourceType,
			ResourceID:     n.ResourceID,
			FeedElementID:  n.FeedElementID,
			Preview:        n.Preview,
			IsRead:         n.IsRead,
			IsSeen:         n.IsSeen,
			CreatedAt:      n.CreatedAt,
			LastModifiedAt: n.LastModifiedAt,
			Actor:          actor,
		}
	}

	return &ListResponse{Notifications: out, HasMore: hasMore}, nil
}

// MarkRead marks one notification read. Reading implies seeing.
func (s *Service) MarkRead(ctx context.Context, userID primitive.ObjectID, notificationID string) error {
	return s.mark(ctx, userID, notificationID, bson.M{"isRead": true, "isSeen": true})
}

func (s *Service) MarkSeen(ctx context.Context, userID primitive.ObjectID, notificationID string) error {
	return s.mark(ctx, userID, notificationID, bson.M{"isSeen": true})
}

func (s *Service) mark(ctx context.Context, userID primitive.ObjectID, notificationID string, flags bson.M) error {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return ErrNotificationNotFound
	}
	found, err := s.repo.Mark(ctx, userID, oid, flags)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return n, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
