package notifications

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
)

// Notification type constants
const (
	TypeMention = "mention"
	TypeComment = "comment"
	TypeLike    = "like"
)

// Resource type constants
const (
	ResourceFeedElement = "feedElement"
	ResourceComment     = "comment"
)

// PageSize is how many notifications one list call returns
const PageSize = 20

// Notification represents a user notification
type Notification struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID    primitive.ObjectID `bson:"recipientId" json:"recipientId"`
	ActorID        primitive.ObjectID `bson:"actorId" json:"actorId"`
	Type           string             `bson:"type" json:"type"`
	ResourceType   string             `bson:"resourceType" json:"resourceType"`
	ResourceID     primitive.ObjectID `bson:"resourceId" json:"resourceId"`
	FeedElementID  primitive.ObjectID `bson:"feedElementId" json:"feedElementId"`
	Preview        string             `bson:"preview" json:"preview"`
	IsRead         bool               `bson:"isRead" json:"isRead"`
	IsSeen         bool               `bson:"isSeen" json:"isSeen"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	LastModifiedAt time.Time          `bson:"lastModifiedAt" json:"lastModifiedAt"`
}

// Ref points a notification at the message it is about
type Ref struct {
	ResourceType  string
	ResourceID    primitive.ObjectID
	FeedElementID primitive.ObjectID
}

// Request DTOs

type MoreQuery struct {
	Before string `form:"before" binding:"required"`
}

// Response DTOs

type StatusResponse struct {
	Success     bool  `json:"success"`
	UnseenCount int64 `json:"unseenCount"`
}

type NotificationResponse struct {
	ID             primitive.ObjectID `json:"id"`
	Type           string             `json:"type"`
	ResourceType   string             `json:"resourceType"`
	ResourceID     primitive.ObjectID `json:"resourceId"`
	FeedElementID  primitive.ObjectID `json:"feedElementId"`
	Preview        string             `json:"preview"`
	IsRead         bool               `json:"isRead"`
	IsSeen         bool               `json:"isSeen"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt"`
	Actor          auth.Summary       `json:"actor"`
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	HasMore       bool                   `json:"hasMore"`
}

type MarkAllReadResponse struct {
	MarkedCount int64 `json:"markedCount"`
}
