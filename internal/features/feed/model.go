package feed

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/comments"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/pkg/segments"
)

// Sort orders
const (
	SortCreatedDateDesc      = "CreatedDateDesc"
	SortLastModifiedDateDesc = "LastModifiedDateDesc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	MaxAttachments  = 10
	MinSearchLength = 2
)

// Interaction kinds a user can toggle on an element
const (
	KindLike     = "like"
	KindBookmark = "bookmark"
	KindMute     = "mute"
)

// Element is a post in a feed
type Element struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	SubjectID          primitive.ObjectID   `bson:"subjectId"`
	ActorID            primitive.ObjectID   `bson:"actorId"`
	Body               []segments.Segment   `bson:"body"`
	BodyText           string               `bson:"bodyText"`
	Mentions           []primitive.ObjectID `bson:"mentions"`
	ContentDocumentIDs []primitive.ObjectID `bson:"contentDocumentIds"`
	LikeCount          int                  `bson:"likeCount"`
	CommentCount       int                  `bson:"commentCount"`
	IsEdited           bool                 `bson:"isEdited"`
	CreatedAt          time.Time            `bson:"createdAt"`
	LastModifiedAt     time.Time            `bson:"lastModifiedAt"`
	EditedAt           *time.Time           `bson:"editedAt,omitempty"`
	DeletedAt          *time.Time           `bson:"deletedAt,omitempty"`
}

// Interaction records a like, bookmark or mute
type Interaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ElementID primitive.ObjectID `bson:"elementId"`
	UserID    primitive.ObjectID `bson:"userId"`
	Kind      string             `bson:"kind"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Request DTOs

type FeedQuery struct {
	PageToken  string `form:"pageToken"`
	PageSize   int    `form:"pageSize"`
	SortOrder  string `form:"sortOrder"`
	SearchTerm string `form:"searchTerm"`
}

type CreatePostRequest struct {
	SubjectID          string   `json:"subjectId,omitempty"`
	Body               string   `json:"body" binding:"required"`
	ContentDocumentIDs []string `json:"contentDocumentIds,omitempty"`
}

// UpdatePostRequest replaces the body and the attachments
type UpdatePostRequest struct {
	Body               string   `json:"body" binding:"required"`
	ContentDocumentIDs []string `json:"contentDocumentIds"`
}

// Response DTOs

type Parent struct {
	ID string `json:"id"`
}

type CommentsCapability struct {
	Page *comments.Page `json:"page"`
}

type LikesCapability struct {
	IsLikedByCurrentUser bool `json:"isLikedByCurrentUser"`
	Total                int  `json:"total"`
}

type BookmarksCapability struct {
	IsBookmarkedByCurrentUser bool `json:"isBookmarkedByCurrentUser"`
}

type MuteCapability struct {
	IsMutedByCurrentUser bool `json:"isMutedByCurrentUser"`
}

type EditCapability struct {
	IsEditRestricted bool       `json:"isEditRestricted"`
	LastEditedDate   *time.Time `json:"lastEditedDate,omitempty"`
}

type FilesCapability struct {
	Items []files.Attachment `json:"items"`
}

type InteractionsCapability struct {
	Count int `json:"count"`
}

type Capabilities struct {
	Comments     CommentsCapability     `json:"comments"`
	ChatterLikes LikesCapability        `json:"chatterLikes"`
	Bookmarks    BookmarksCapability    `json:"bookmarks"`
	Mute         MuteCapability         `json:"mute"`
	Edit         EditCapability         `json:"edit"`
	Files        FilesCapability        `json:"files"`
	Interactions InteractionsCapability `json:"interactions"`
}

// ElementResponse is a feed element as clients see it
type ElementResponse struct {
	ID                 string        `json:"id"`
	FeedElementType    string        `json:"feedElementType"`
	Actor              auth.Summary  `json:"actor"`
	Parent             Parent        `json:"parent"`
	Body               segments.Body `json:"body"`
	Capabilities       Capabilities  `json:"capabilities"`
	IsDeleteRestricted bool          `json:"isDeleteRestricted"`
	CreatedDate        time.Time     `json:"createdDate"`
	ModifiedDate       time.Time     `json:"modifiedDate"`
}

type Page struct {
	Elements         []ElementResponse `json:"elements"`
	CurrentPageToken string            `json:"currentPageToken,omitempty"`
	NextPageToken    *string           `json:"nextPageToken"`
	SortOrder        string            `json:"sortOrder"`
}

type FeedResponse struct {
	Feed Page `json:"feed"`
}

type ToggleResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}
