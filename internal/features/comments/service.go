package comments

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/features/notifications"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/message"
	"github.com/xyz-asif/chatter/internal/pkg/pagetoken"
	"github.com/xyz-asif/chatter/internal/pkg/segments"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

var (
	ErrCommentNotFound     = apperrors.NotFound("comment not found")
	ErrElementNotFound     = apperrors.NotFound("feed element not found")
	ErrNotAuthor           = apperrors.Forbidden("only the author can edit this comment")
	ErrDeleteForbidden     = apperrors.Forbidden("only the comment or post author can delete this comment")
	ErrAttachmentImmutable = apperrors.Invalid("a comment's attachment cannot be changed")
	ErrInvalidPageToken    = apperrors.Invalid("invalid pageParam")
)

type Store interface {
	CreateComment(ctx context.Context, comment *Comment) error
	GetCommentByID(ctx context.Context, commentID primitive.ObjectID) (*Comment, error)
	UpdateBody(ctx context.Context, comment *Comment) error
	DeleteComment(ctx context.Context, commentID primitive.ObjectID) error
	ListByElement(ctx context.Context, elementID primitive.ObjectID, after *pagetoken.Token, limit int) ([]Comment, error)
	CountByElement(ctx context.Context, elementID primitive.ObjectID) (int64, error)
}

// Elements gives access to the feed elements comments hang off. It returns
// nil for missing or deleted elements.
type Elements interface {
	CommentTarget(ctx context.Context, elementID primitive.ObjectID) (*Target, error)
	AdjustCommentCount(ctx context.Context, elementID primitive.ObjectID, delta int) error
}

type Users interface {
	message.Names
	SummariesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]auth.Summary, error)
}

type Files interface {
	OwnedDocumentIDs(ctx context.Context, ownerID primitive.ObjectID, ids []string) ([]primitive.ObjectID, error)
	Attachments(ctx context.Context, ids []primitive.ObjectID) (map[string]files.Attachment, error)
}

type Notifier interface {
	NotifyMentions(ctx context.Context, actorID primitive.ObjectID, recipients []primitive.ObjectID, ref notifications.Ref, preview string) error
	NotifyComment(ctx context.Context, actorID, authorID primitive.ObjectID, ref notifications.Ref, preview string) error
}

type Service struct {
	repo     Store
	elements Elements
	users    Users
	files    Files
	notifier Notifier
	log      *logger.Logger

	// background runs notification fan-out off the request path
	background func(fn func(ctx context.Context))
}

func NewService(repo Store, elements Elements, users Users, files Files, notifier Notifier) *Service {
	s := &Service{
		repo:     repo,
		elements: elements,
		users:    users,
		files:    files,
		notifier: notifier,
		log:      logger.Default().Named("comments"),
	}
	s.background = func(fn func(ctx context.Context)) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			fn(ctx)
		}()
	}
	return s
}

// Page returns a page of comments on an element, oldest first
func (s *Service) Page(ctx context.Context, callerID primitive.ObjectID, target Target, pageToken string, size int) (*Page, error) {
	after, err := pagetoken.Decode(pageToken)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	items, err := s.repo.ListByElement(ctx, target.ID, after, size+1)
	if err != nil {
		return nil, err
	}
	hasMore := len(items) > size
	if hasMore {
		items = items[:size]
	}

	total, err := s.repo.CountByElement(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	views, err := s.views(ctx, callerID, items, target.AuthorID)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: views, Total: total}
	if hasMore {
		last := items[len(items)-1]
		next := pagetoken.Encode(last.CreatedAt, last.ID)
		page.NextPageToken = &next
	}
	return page, nil
}

// List is getFeedItemComments: the comments of an existing element
func (s *Service) List(ctx context.Context, callerID primitive.ObjectID, elementID string, query ListQuery) (*Page, error) {
	target, err := s.target(ctx, elementID)
	if err != nil {
		return nil, err
	}
	size := query.PageSize
	if size <= 0 || size > 50 {
		size = DefaultPageSize
	}
	return s.Page(ctx, callerID, *target, query.PageParam, size)
}

func (s *Service) target(ctx context.Context, elementID string) (*Target, error) {
	oid, err := primitive.ObjectIDFromHex(elementID)
	if err != nil {
		return nil, ErrElementNotFound
	}
	target, err := s.elements.CommentTarget(ctx, oid)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrElementNotFound
	}
	return target, nil
}

// Create is commentOnFeedElement. A comment carries at most one attachment.
func (s *Service) Create(ctx context.Context, actorID primitive.ObjectID, elementID string, req CreateCommentRequest) (*CommentResponse, error) {
	target, err := s.target(ctx, elementID)
	if err != nil {
		return nil, err
	}

	parsed, err := message.Parse(ctx, req.Body, s.users)
	if err != nil {
		return nil, err
	}

	comment := &Comment{
		FeedElementID: target.ID,
		ActorID:       actorID,
		Body:          parsed.Segments,
		BodyText:      parsed.Text,
		Mentions:      parsed.Mentions,
	}
	if req.ContentDocumentID != "" {
		ids, err := s.files.OwnedDocumentIDs(ctx, actorID, []string{req.ContentDocumentID})
		if err != nil {
			return nil, err
		}
		comment.ContentDocumentID = &ids[0]
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.elements.AdjustCommentCount(ctx, target.ID, 1); err != nil {
		s.log.Warn("Failed to bump comment count on %s: %v", target.ID.Hex(), err)
	}

	s.notifyCreated(actorID, comment, target)

	return s.view(ctx, actorID, comment, target.AuthorID)
}

func (s *Service) notifyCreated(actorID primitive.ObjectID, comment *Comment, target *Target) {
	mentions := comment.Mentions
	ref := notifications.Ref{
		ResourceType:  notifications.ResourceComment,
		ResourceID:    comment.ID,
		FeedElementID: target.ID,
	}
	preview := comment.BodyText

	s.background(func(ctx context.Context) {
		if err := s.notifier.NotifyMentions(ctx, actorID, mentions, ref, preview); err != nil {
			s.log.Error("Failed to create mention notifications: %v", err)
		}
		// A mentioned author already got a notification
		if containsID(mentions, target.AuthorID) {
			return
		}
		if err := s.notifier.NotifyComment(ctx, actorID, target.AuthorID, ref, preview); err != nil {
			s.log.Error("Failed to create comment notification: %v", err)
		}
	})
}

// Update is updateComment. Only the body can change.
func (s *Service) Update(ctx context.Context, actorID primitive.ObjectID, commentID string, req UpdateCommentRequest) (*CommentResponse, error) {
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.ActorID != actorID {
		return nil, ErrNotAuthor
	}
	if req.ContentDocumentID != nil && *req.ContentDocumentID != attachmentHex(comment) {
		return nil, ErrAttachmentImmutable
	}

	parsed, err := message.Parse(ctx, req.Body, s.users)
	if err != nil {
		return nil, err
	}

	added := message.Added(comment.Mentions, parsed.Mentions)
	comment.Body = parsed.Segments
	comment.BodyText = parsed.Text
	comment.Mentions = parsed.Mentions
	if err := s.repo.UpdateBody(ctx, comment); err != nil {
		return nil, err
	}

	if len(added) > 0 {
		ref := notifications.Ref{
			ResourceType:  notifications.ResourceComment,
			ResourceID:    comment.ID,
			FeedElementID: comment.FeedElementID,
		}
		preview := comment.BodyText
		s.background(func(ctx context.Context) {
			if err := s.notifier.NotifyMentions(ctx, actorID, added, ref, preview); err != nil {
				s.log.Error("Failed to create mention notifications: %v", err)
			}
		})
	}

	var authorID primitive.ObjectID
	if target, err := s.elements.CommentTarget(ctx, comment.FeedElementID); err == nil && target != nil {
		authorID = target.AuthorID
	}
	return s.view(ctx, actorID, comment, authorID)
}

// Delete removes a comment. The comment author and the post author may
// delete it.
func (s *Service) Delete(ctx context.Context, actorID primitive.ObjectID, commentID string) error {
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.ActorID != actorID {
		target, err := s.elements.CommentTarget(ctx, comment.FeedElementID)
		if err != nil {
			return err
		}
		if target == nil || target.AuthorID != actorID {
			return ErrDeleteForbidden
		}
	}

	if err := s.repo.DeleteComment(ctx, comment.ID); err != nil {
		return err
	}
	if err := s.elements.AdjustCommentCount(ctx, comment.FeedElementID, -1); err != nil {
		s.log.Warn("Failed to drop comment count on %s: %v", comment.FeedElementID.Hex(), err)
	}
	return nil
}

func (s *Service) comment(ctx context.Context, commentID string) (*Comment, error) {
	oid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, ErrCommentNotFound
	}
	comment, err := s.repo.GetCommentByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func (s *Service) view(ctx context.Context, callerID primitive.ObjectID, comment *Comment, elementAuthorID primitive.ObjectID) (*CommentResponse, error) {
	views, err := s.views(ctx, callerID, []Comment{*comment}, elementAuthorID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views builds responses. elementAuthorID, when known, lets the post author
// see their delete capability on other people's comments.
func (s *Service) views(ctx context.Context, callerID primitive.ObjectID, items []Comment, elementAuthorID primitive.ObjectID) ([]CommentResponse, error) {
	actorIDs := make([]primitive.ObjectID, 0, len(items))
	var docIDs []primitive.ObjectID
	for _, c := range items {
		actorIDs = append(actorIDs, c.ActorID)
		if c.ContentDocumentID != nil {
			docIDs = append(docIDs, *c.ContentDocumentID)
		}
	}

	actors, err := s.users.SummariesByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}
	attachments := map[string]files.Attachment{}
	if len(docIDs) > 0 {
		if attachments, err = s.files.Attachments(ctx, docIDs); err != nil {
			return nil, err
		}
	}

	out := make([]CommentResponse, len(items))
	for i, c := range items {
		actor, ok := actors[c.ActorID.Hex()]
		if !ok {
			actor = auth.Summary{ID: c.ActorID.Hex(), Name: "Unknown user"}
		}

		caps := Capabilities{Edit: EditCapability{IsEditRestricted: c.ActorID != callerID}}
		if c.IsEdited {
			edited := c.UpdatedAt
			caps.Edit.LastEditedDate = &edited
		}
		if c.ContentDocumentID != nil {
			if a, ok := attachments[c.ContentDocumentID.Hex()]; ok {
				caps.Content = &a
			}
		}

		out[i] = CommentResponse{
			ID:                 c.ID.Hex(),
			FeedElementID:      c.FeedElementID.Hex(),
			Actor:              actor,
			Body:               segments.NewBody(c.Body),
			Capabilities:       caps,
			IsDeleteRestricted: c.ActorID != callerID && elementAuthorID != callerID,
			CreatedDate:        c.CreatedAt,
		}
	}
	return out, nil
}

func attachmentHex(c *Comment) string {
	if c.ContentDocumentID == nil {
		return ""
	}
	return c.ContentDocumentID.Hex()
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
