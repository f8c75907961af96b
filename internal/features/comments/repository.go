package comments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xyz-asif/chatter/internal/pkg/pagetoken"
)

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("comments")

	_, _ = collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{
			{Key: "feedElementId", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
		},
	})

	return &Repository{collection: collection}
}

func (r *Repository) CreateComment(ctx context.Context, comment *Comment) error {
	now := time.Now()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// GetCommentByID returns nil when the comment does not exist
func (r *Repository) GetCommentByID(ctx context.Context, commentID primitive.ObjectID) (*Comment, error) {
	var comment Comment
	err := r.collection.FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// UpdateBody replaces the body of a comment and marks it edited
func (r *Repository) UpdateBody(ctx context.Context, comment *Comment) error {
	comment.UpdatedAt = time.Now()
	comment.IsEdited = true

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": comment.ID}, bson.M{"$set": bson.M{
		"body":      comment.Body,
		"bodyText":  comment.BodyText,
		"mentions":  comment.Mentions,
		"isEdited":  true,
		"updatedAt": comment.UpdatedAt,
	}})
	return err
}

func (r *Repository) DeleteComment(ctx context.Context, commentID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": commentID})
	return err
}

// ListByElement returns comments oldest first, starting after the token
func (r *Repository) ListByElement(ctx context.Context, elementID primitive.ObjectID, after *pagetoken.Token, limit int) ([]Comment, error) {
	filter := bson.M{"feedElementId": elementID}
	if after != nil {
		filter["$or"] = []bson.M{
			{"createdAt": bson.M{"$gt": after.Timestamp}},
			{"createdAt": after.Timestamp, "_id": bson.M{"$gt": after.ID}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
		}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []Comment{}
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *Repository) CountByElement(ctx context.Context, elementID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"feedElementId": elementID})
}
