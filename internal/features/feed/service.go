package feed

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/features/comments"
	"github.com/xyz-asif/chatter/internal/features/files"
	"github.com/xyz-asif/chatter/internal/features/notifications"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/message"
	"github.com/xyz-asif/chatter/internal/pkg/pagetoken"
	"github.com/xyz-asif/chatter/internal/pkg/segments"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

const feedElementType = "FeedItem"

var (
	ErrElementNotFound  = apperrors.NotFound("feed element not found")
	ErrNotAuthor        = apperrors.Forbidden("only the author can change this post")
	ErrInvalidPageToken = apperrors.Invalid("invalid pageToken")
	ErrInvalidRecordID  = apperrors.Invalid("invalid recordId")
	ErrTooManyFiles     = apperrors.Invalid("a post can carry at most %d attachments", MaxAttachments)
)

type Store interface {
	CreateElement(ctx context.Context, element *Element) error
	GetElement(ctx context.Context, id primitive.ObjectID) (*Element, error)
	UpdateContent(ctx context.Context, element *Element) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter ListFilter) ([]Element, error)
	AdjustLikeCount(ctx context.Context, id primitive.ObjectID, delta int) error
	SetInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error)
	ClearInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error)
	InteractionsFor(ctx context.Context, userID primitive.ObjectID, elementIDs []primitive.ObjectID) (map[string]map[string]bool, error)
	ElementIDsWith(ctx context.Context, userID primitive.ObjectID, kind string) ([]primitive.ObjectID, error)
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
	NotifyLike(ctx context.Context, actorID, authorID primitive.ObjectID, ref notifications.Ref, preview string) error
}

// Comments supplies the first page of comments shown under each element
type Comments interface {
	Page(ctx context.Context, callerID primitive.ObjectID, target comments.Target, pageToken string, size int) (*comments.Page, error)
}

type Service struct {
	repo     Store
	users    Users
	files    Files
	notifier Notifier
	comments Comments
	log      *logger.Logger

	background func(fn func(ctx context.Context))
}

func NewService(repo Store, users Users, files Files, notifier Notifier, comments Comments) *Service {
	s := &Service{
		repo:     repo,
		users:    users,
		files:    files,
		notifier: notifier,
		comments: comments,
		log:      logger.Default().Named("feed"),
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

// NewsFeed is the caller's news feed. Muted elements are left out.
func (s *Service) NewsFeed(ctx context.Context, callerID primitive.ObjectID, query FeedQuery) (*FeedResponse, error) {
	muted, err := s.repo.ElementIDsWith(ctx, callerID, KindMute)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, callerID, query, ListFilter{ExcludeIDs: muted})
}

// RecordFeed lists the elements posted to one record, such as a user profile
func (s *Service) RecordFeed(ctx context.Context, callerID primitive.ObjectID, recordID string, query FeedQuery) (*FeedResponse, error) {
	subjectID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, ErrInvalidRecordID
	}
	return s.page(ctx, callerID, query, ListFilter{SubjectID: &subjectID})
}

func (s *Service) page(ctx context.Context, callerID primitive.ObjectID, query FeedQuery, filter ListFilter) (*FeedResponse, error) {
	if err := ValidateFeedQuery(&query); err != nil {
		return nil, err
	}
	after, err := pagetoken.Decode(query.PageToken)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	filter.SortField = sortField(query.SortOrder)
	filter.Search = query.SearchTerm
	filter.After = after
	filter.Limit = query.PageSize + 1

	elements, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	hasMore := len(elements) > query.PageSize
	if hasMore {
		elements = elements[:query.PageSize]
	}

	views, err := s.views(ctx, callerID, elements)
	if err != nil {
		return nil, err
	}

	page := Page{
		Elements:         views,
		CurrentPageToken: query.PageToken,
		SortOrder:        query.SortOrder,
	}
	if hasMore {
		last := elements[len(elements)-1]
		next := pagetoken.Encode(sortTime(last, query.SortOrder), last.ID)
		page.NextPageToken = &next
	}
	return &FeedResponse{Feed: page}, nil
}

func sortTime(e Element, order string) time.Time {
	if order == SortLastModifiedDateDesc {
		return e.LastModifiedAt
	}
	return e.CreatedAt
}

// CreatePost is postFeedElement
func (s *Service) CreatePost(ctx context.Context, actorID primitive.ObjectID, req CreatePostRequest) (*ElementResponse, error) {
	subjectID := actorID
	if req.SubjectID != "" {
		oid, err := primitive.ObjectIDFromHex(req.SubjectID)
		if err != nil {
			return nil, apperrors.Invalid("invalid subjectId")
		}
		subjectID = oid
	}

	parsed, err := message.Parse(ctx, req.Body, s.users)
	if err != nil {
		return nil, err
	}
	docIDs, err := s.attachments(ctx, actorID, req.ContentDocumentIDs)
	if err != nil {
		return nil, err
	}

	element := &Element{
		SubjectID:          subjectID,
		ActorID:            actorID,
		Body:               parsed.Segments,
		BodyText:           parsed.Text,
		Mentions:           parsed.Mentions,
		ContentDocumentIDs: docIDs,
	}
	if err := s.repo.CreateElement(ctx, element); err != nil {
		return nil, err
	}

	s.notifyMentions(actorID, element, element.Mentions)

	return s.view(ctx, actorID, element)
}

// UpdatePost replaces the body and attachments of the caller's post
func (s *Service) UpdatePost(ctx context.Context, actorID primitive.ObjectID, elementID string, req UpdatePostRequest) (*ElementResponse, error) {
	element, err := s.element(ctx, elementID)
	if err != nil {
		return nil, err
	}
	if element.ActorID != actorID {
		return nil, ErrNotAuthor
	}

	parsed, err := message.Parse(ctx, req.Body, s.users)
	if err != nil {
		return nil, err
	}
	docIDs, err := s.attachments(ctx, actorID, req.ContentDocumentIDs)
	if err != nil {
		return nil, err
	}

	added := message.Added(element.Mentions, parsed.Mentions)
	element.Body = parsed.Segments
	element.BodyText = parsed.Text
	element.Mentions = parsed.Mentions
	element.ContentDocumentIDs = docIDs
	if err := s.repo.UpdateContent(ctx, element); err != nil {
		return nil, err
	}

	s.notifyMentions(actorID, element, added)

	return s.view(ctx, actorID, element)
}

// DeletePost soft deletes the caller's post
func (s *Service) DeletePost(ctx context.Context, actorID primitive.ObjectID, elementID string) error {
	element, err := s.element(ctx, elementID)
	if err != nil {
		return err
	}
	if element.ActorID != actorID {
		return ErrNotAuthor
	}
	return s.repo.SoftDelete(ctx, element.ID)
}

func (s *Service) GetElement(ctx context.Context, callerID primitive.ObjectID, elementID string) (*ElementResponse, error) {
	element, err := s.element(ctx, elementID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, callerID, element)
}

// Like marks the element liked. Liking twice is a no-op.
func (s *Service) Like(ctx context.Context, callerID primitive.ObjectID, elementID string) (*ToggleResponse, error) {
	element, err := s.element(ctx, elementID)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.SetInteraction(ctx, element.ID, callerID, KindLike)
	if err != nil {
		return nil, err
	}
	if created {
		if err := s.repo.AdjustLikeCount(ctx, element.ID, 1); err != nil {
			return nil, err
		}
		ref := notifications.Ref{
			ResourceType:  notifications.ResourceFeedElement,
			ResourceID:    element.ID,
			FeedElementID: element.ID,
		}
		authorID, preview := element.ActorID, element.BodyText
		s.background(func(ctx context.Context) {
			if err := s.notifier.NotifyLike(ctx, callerID, authorID, ref, preview); err != nil {
				s.log.Error("Failed to create like notification: %v", err)
			}
		})
	}
	return &ToggleResponse{ID: element.ID.Hex(), Kind: KindLike, Active: true}, nil
}

func (s *Service) Unlike(ctx context.Context, callerID primitive.ObjectID, elementID string) (*ToggleResponse, error) {
	element, err := s.element(ctx, elementID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.ClearInteraction(ctx, element.ID, callerID, KindLike)
	if err != nil {
		return nil, err
	}
	if removed {
		if err := s.repo.AdjustLikeCount(ctx, element.ID, -1); err != nil {
			return nil, err
		}
	}
	return &ToggleResponse{ID: element.ID.Hex(), Kind: KindLike, Active: false}, nil
}

// Toggle sets or clears a bookmark or mute
func (s *Service) Toggle(ctx context.Context, callerID primitive.ObjectID, elementID, kind string, active bool) (*ToggleResponse, error) {
	if kind != KindBookmark && kind != KindMute {
		return nil, apperrors.Invalid("unknown interaction %q", kind)
	}
	element, err := s.element(ctx, elementID)
	if err != nil {
		return nil, err
	}
	if active {
		_, err = s.repo.SetInteraction(ctx, element.ID, callerID, kind)
	} else {
		_, err = s.repo.ClearInteraction(ctx, element.ID, callerID, kind)
	}
	if err != nil {
		return nil, err
	}
	return &ToggleResponse{ID: element.ID.Hex(), Kind: kind, Active: active}, nil
}

func (s *Service) element(ctx context.Context, elementID string) (*Element, error) {
	oid, err := primitive.ObjectIDFromHex(elementID)
	if err != nil {
		return nil, ErrElementNotFound
	}
	element, err := s.repo.GetElement(ctx, oid)
	if err != nil {
		return nil, err
	}
	if element == nil {
		return nil, ErrElementNotFound
	}
	return element, nil
}

func (s *Service) attachments(ctx context.Context, actorID primitive.ObjectID, ids []string) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return []primitive.ObjectID{}, nil
	}
	if len(ids) > MaxAttachments {
		return nil, ErrTooManyFiles
	}
	return s.files.OwnedDocumentIDs(ctx, actorID, ids)
}

func (s *Service) notifyMentions(actorID primitive.ObjectID, element *Element, recipients []primitive.ObjectID) {
	if len(recipients) == 0 {
		return
	}
	ref := notifications.Ref{
		ResourceType:  notifications.ResourceFeedElement,
		ResourceID:    element.ID,
		FeedElementID: element.ID,
	}
	preview := element.BodyText
	s.background(func(ctx context.Context) {
		if err := s.notifier.NotifyMentions(ctx, actorID, recipients, ref, preview); err != nil {
			s.log.Error("Failed to create mention notifications: %v", err)
		}
	})
}

func (s *Service) view(ctx context.Context, callerID primitive.ObjectID, element *Element) (*ElementResponse, error) {
	views, err := s.views(ctx, callerID, []Element{*element})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) views(ctx context.Context, callerID primitive.ObjectID, elements []Element) ([]ElementResponse, error) {
	out := make([]ElementResponse, len(elements))
	if len(elements) == 0 {
		return out, nil
	}

	ids := make([]primitive.ObjectID, len(elements))
	actorIDs := make([]primitive.ObjectID, len(elements))
	var docIDs []primitive.ObjectID
	for i, e := range elements {
		ids[i] = e.ID
		actorIDs[i] = e.ActorID
		docIDs = append(docIDs, e.ContentDocumentIDs...)
	}

	actors, err := s.users.SummariesByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}
	mine, err := s.repo.InteractionsFor(ctx, callerID, ids)
	if err != nil {
		return nil, err
	}
	attachments := map[string]files.Attachment{}
	if len(docIDs) > 0 {
		if attachments, err = s.files.Attachments(ctx, docIDs); err != nil {
			return nil, err
		}
	}

	for i, e := range elements {
		actor, ok := actors[e.ActorID.Hex()]
		if !ok {
			actor = auth.Summary{ID: e.ActorID.Hex(), Name: "Unknown user"}
		}

		commentPage, err := s.comments.Page(ctx, callerID, comments.Target{
			ID:       e.ID,
			AuthorID: e.ActorID,
			Preview:  e.BodyText,
		}, "", comments.PreviewPageSize)
		if err != nil {
			return nil, err
		}

		items := make([]files.Attachment, 0, len(e.ContentDocumentIDs))
		for _, id := range e.ContentDocumentIDs {
			// Deleted documents drop out of the post
			if a, ok := attachments[id.Hex()]; ok {
				items = append(items, a)
			}
		}

		flags := mine[e.ID.Hex()]
		out[i] = ElementResponse{
			ID:              e.ID.Hex(),
			FeedElementType: feedElementType,
			Actor:           actor,
			Parent:          Parent{ID: e.SubjectID.Hex()},
			Body:            segments.NewBody(e.Body),
			Capabilities: Capabilities{
				Comments: CommentsCapability{Page: commentPage},
				ChatterLikes: LikesCapability{
					IsLikedByCurrentUser: flags[KindLike],
					Total:                e.LikeCount,
				},
				Bookmarks: BookmarksCapability{IsBookmarkedByCurrentUser: flags[KindBookmark]},
				Mute:      MuteCapability{IsMutedByCurrentUser: flags[KindMute]},
				Edit: EditCapability{
					IsEditRestricted: e.ActorID != callerID,
					LastEditedDate:   e.EditedAt,
				},
				Files:        FilesCapability{Items: items},
				Interactions: InteractionsCapability{Count: e.LikeCount + e.CommentCount},
			},
			IsDeleteRestricted: e.ActorID != callerID,
			CreatedDate:        e.CreatedAt,
			ModifiedDate:       e.LastModifiedAt,
		}
	}
	return out, nil
}
