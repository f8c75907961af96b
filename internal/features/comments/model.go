package comments

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/pkg/segments"
)

// Page sizes for comment listings
const (
	PreviewPageSize = 3
	DefaultPageSize = 10
)

// Comment is a reply to a feed element
type Comment struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FeedElementID     primitive.ObjectID   `bson:"feedElementId" json:"feedElementId"`
	ActorID           primitive.ObjectID   `bson:"actorId" json:"actorId"`
	Body              []segments.Segment   `bson:"body" json:"body"`
	BodyText          string               `bson:"bodyText" json:"-"`
	Mentions          []primitive.ObjectID `bson:"mentions" json:"mentions"`
	ContentDocumentID *primitive.ObjectID  `bson:"contentDocumentId,omitempty" json:"contentDocumentId,omitempty"`
	IsEdited          bool                 `bson:"isEdited" json:"isEdited"`
	CreatedAt         time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Target is the feed element a comment belongs to
type Target struct {
	ID       primitive.ObjectID
	AuthorID primitive.ObjectID
	Preview  string
}

// Request DTOs

type CreateCommentRequest struct {
	Body              string `json:"body" binding:"required"`
	ContentDocumentID string `json:"contentDocumentId,omitempty"`
}

// UpdateCommentRequest changes the body only. ContentDocumentID, when sent,
// must match the current attachment.
type UpdateCommentRequest struct {
	Body              string  `json:"body" binding:"required"`
	ContentDocumentID *string `json:"contentDocumentId,omitempty"`
}

type ListQuery struct {
	PageParam string `form:"pageParam"`
	PageSize  int    `form:"pageSize"`
}

// Response DTOs

type Capabilities struct {
	Content *files.Attachment `json:"content,omitempty"`
	Edit    EditCapability    `json:"edit"`
}

type EditCapability struct {
	IsEditRestricted bool       `json:"isEditRestricted"`
	LastEditedDate   *time.Time `json:"lastEditedDate,omitempty"`
}

type CommentResponse struct {
	ID                 string        `json:"id"`
	FeedElementID      string        `json:"feedElementId"`
	Actor              auth.Summary  `json:"user"`
	Body               segments.Body `json:"body"`
	Capabilities       Capabilities  `json:"capabilities"`
	IsDeleteRestricted bool          `json:"isDeleteRestricted"`
	CreatedDate        time.Time     `json:"createdDate"`
}

// Page is one page of comments, oldest first
type Page struct {
	Items         []CommentResponse `json:"items"`
	Total         int64             `json:"total"`
	NextPageToken *string           `json:"nextPageToken"`
}
