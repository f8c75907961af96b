package notifications

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	collection := db.Collection("notifications")

	_, _ = collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipientId", Value: 1},
				{Key: "lastModifiedAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "recipientId", Value: 1},
				{Key: "isSeen", Value: 1},
			},
		},
	})

	return &Repository{collection: collection}
}

// CreateMany inserts notifications, stamping ids and times
func (r *Repository) CreateMany(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		notifications[i].ID = primitive.NewObjectID()
		notifications[i].CreatedAt = now
		notifications[i].LastModifiedAt = now
		docs[i] = notifications[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// ListBefore returns up to limit notifications for a user, newest first.
// A zero before means from the latest.
func (r *Repository) ListBefore(ctx context.Context, userID primitive.ObjectID, before time.Time, limit int) ([]Notification, error) {
	filter := bson.M{"recipientId": userID}
	if !before.IsZero() {
		filter["lastModifiedAt"] = bson.M{"$lt": before}
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "lastModifiedAt", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnseen counts notifications the user has not seen yet
func (r *Repository) CountUnseen(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"recipientId": userID,
		"isSeen":      false,
	})
}

// Mark sets the given flags on one of the user's notifications. It reports
// false when the notification does not exist or is someone else's.
func (r *Repository) Mark(ctx context.Context, userID, notificationID primitive.ObjectID, flags bson.M) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": notificationID, "recipientId": userID},
		bson.M{"$set": flags},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// MarkAllRead marks every unread notification of the user as read and seen
func (r *Repository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{"recipientId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "isSeen": true}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
