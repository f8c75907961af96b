package feed

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xyz-asif/chatter/internal/features/comments"
	"github.com/xyz-asif/chatter/internal/pkg/pagetoken"
)

type Repository struct {
	elements     *mongo.Collection
	interactions *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	repo := &Repository{
		elements:     db.Collection("feed_elements"),
		interactions: db.Collection("feed_interactions"),
	}
	repo.ensureIndexes()
	return repo
}

func (r *Repository) ensureIndexes() {
	ctx := context.Background()
	_, _ = r.elements.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "deletedAt", Value: 1},
				{Key: "createdAt", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "deletedAt", Value: 1},
				{Key: "lastModifiedAt", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "subjectId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	})
	_, _ = r.interactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// One like, bookmark or mute per user and element
			Keys: bson.D{
				{Key: "elementId", Value: 1},
				{Key: "userId", Value: 1},
				{Key: "kind", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "kind", Value: 1},
			},
		},
	})
}

func (r *Repository) CreateElement(ctx context.Context, element *Element) error {
	now := time.Now()
	element.ID = primitive.NewObjectID()
	element.CreatedAt = now
	element.LastModifiedAt = now

	_, err := r.elements.InsertOne(ctx, element)
	return err
}

// GetElement returns nil for missing and deleted elements
func (r *Repository) GetElement(ctx context.Context, id primitive.ObjectID) (*Element, error) {
	var element Element
	err := r.elements.FindOne(ctx, bson.M{"_id": id, "deletedAt": nil}).Decode(&element)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &element, nil
}

// UpdateContent replaces the body and attachments of an element
func (r *Repository) UpdateContent(ctx context.Context, element *Element) error {
	now := time.Now()
	element.IsEdited = true
	element.EditedAt = &now
	element.LastModifiedAt = now

	_, err := r.elements.UpdateOne(ctx, bson.M{"_id": element.ID}, bson.M{"$set": bson.M{
		"body":               element.Body,
		"bodyText":           element.BodyText,
		"mentions":           element.Mentions,
		"contentDocumentIds": element.ContentDocumentIDs,
		"isEdited":           true,
		"editedAt":           now,
		"lastModifiedAt":     now,
	}})
	return err
}

func (r *Repository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.elements.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"deletedAt": time.Now()}})
	return err
}

// ListFilter selects a page of elements
type ListFilter struct {
	SubjectID  *primitive.ObjectID
	ExcludeIDs []primitive.ObjectID
	Search     string
	SortField  string
	After      *pagetoken.Token
	Limit      int
}

// List returns elements newest first by the sort field
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Element, error) {
	filter := bson.M{"deletedAt": nil}
	if f.SubjectID != nil {
		filter["subjectId"] = *f.SubjectID
	}
	if len(f.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": f.ExcludeIDs}
	}
	if f.Search != "" {
		filter["bodyText"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	if f.After != nil {
		filter["$or"] = []bson.M{
			{f.SortField: bson.M{"$lt": f.After.Timestamp}},
			{f.SortField: f.After.Timestamp, "_id": bson.M{"$lt": f.After.ID}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: f.SortField, Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(f.Limit))

	cursor, err := r.elements.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	elements := []Element{}
	if err = cursor.All(ctx, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *Repository) AdjustLikeCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.elements.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"likeCount": delta}})
	return err
}

// AdjustCommentCount keeps the comment total in step. A new comment also
// moves the element up in LastModifiedDateDesc order.
func (r *Repository) AdjustCommentCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	update := bson.M{"$inc": bson.M{"commentCount": delta}}
	if delta > 0 {
		update["$set"] = bson.M{"lastModifiedAt": time.Now()}
	}
	_, err := r.elements.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// CommentTarget exposes an element to the comments feature
func (r *Repository) CommentTarget(ctx context.Context, id primitive.ObjectID) (*comments.Target, error) {
	element, err := r.GetElement(ctx, id)
	if err != nil || element == nil {
		return nil, err
	}
	return &comments.Target{ID: element.ID, AuthorID: element.ActorID, Preview: element.BodyText}, nil
}

// SetInteraction records an interaction. It reports false if it already existed.
func (r *Repository) SetInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error) {
	_, err := r.interactions.InsertOne(ctx, Interaction{
		ID:        primitive.NewObjectID(),
		ElementID: elementID,
		UserID:    userID,
		Kind:      kind,
		CreatedAt: time.Now(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearInteraction removes an interaction. It reports false if there was none.
func (r *Repository) ClearInteraction(ctx context.Context, elementID, userID primitive.ObjectID, kind string) (bool, error) {
	result, err := r.interactions.DeleteOne(ctx, bson.M{"elementId": elementID, "userId": userID, "kind": kind})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// InteractionsFor maps element hex ids to the kinds the user has set on them
func (r *Repository) InteractionsFor(ctx context.Context, userID primitive.ObjectID, elementIDs []primitive.ObjectID) (map[string]map[string]bool, error) {
	out := make(map[string]map[string]bool)
	if len(elementIDs) == 0 {
		return out, nil
	}

	cursor, err := r.interactions.Find(ctx, bson.M{"userId": userID, "elementId": bson.M{"$in": elementIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []Interaction
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, it := range items {
		key := it.ElementID.Hex()
		if out[key] == nil {
			out[key] = map[string]bool{}
		}
		out[key][it.Kind] = true
	}
	return out, nil
}

// ElementIDsWith lists the elements the user has set kind on
func (r *Repository) ElementIDsWith(ctx context.Context, userID primitive.ObjectID, kind string) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"elementId": 1})
	cursor, err := r.interactions.Find(ctx, bson.M{"userId": userID, "kind": kind}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []Interaction
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(items))
	for i, it := range items {
		ids[i] = it.ElementID
	}
	return ids, nil
}
