package files

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository handles the content_documents and content_versions collections
type Repository struct {
	documents *mongo.Collection
	versions  *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	documents := db.Collection("content_documents")
	versions := db.Collection("content_versions")

	_, _ = documents.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	_, _ = versions.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "contentDocumentId", Value: 1}},
		},
		{
			// Retried uploads carry the same reason; the second insert fails.
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "reasonForChange", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"reasonForChange": bson.M{"$type": "string"},
			}),
		},
	})

	return &Repository{documents: documents, versions: versions}
}

// Insert writes a new document and its first version. The version is
// written first so a duplicate reason leaves no orphan document.
func (r *Repository) Insert(ctx context.Context, doc *Document, ver *Version) error {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if ver.ID.IsZero() {
		ver.ID = primitive.NewObjectID()
	}
	ver.DocumentID = doc.ID
	doc.LatestVersionID = ver.ID

	if _, err := r.versions.InsertOne(ctx, ver); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReason
		}
		return err
	}
	if _, err := r.documents.InsertOne(ctx, doc); err != nil {
		_, _ = r.versions.DeleteOne(ctx, bson.M{"_id": ver.ID})
		return err
	}
	return nil
}

// FindVersionByReason returns nil when the owner has no version with that reason
func (r *Repository) FindVersionByReason(ctx context.Context, ownerID primitive.ObjectID, reason string) (*Version, error) {
	var ver Version
	err := r.versions.FindOne(ctx, bson.M{"ownerId": ownerID, "reasonForChange": reason}).Decode(&ver)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ver, nil
}

func (r *Repository) GetVersion(ctx context.Context, id primitive.ObjectID) (*Version, error) {
	var ver Version
	err := r.versions.FindOne(ctx, bson.M{"_id": id}).Decode(&ver)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ver, nil
}

func (r *Repository) GetDocument(ctx context.Context, id primitive.ObjectID) (*Document, error) {
	var doc Document
	err := r.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentsByIDs returns the documents that exist, keyed by hex id
func (r *Repository) GetDocumentsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]*Document, error) {
	out := make(map[string]*Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.documents.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for i := range docs {
		out[docs[i].ID.Hex()] = &docs[i]
	}
	return out, nil
}

// DeleteDocument removes a document and all of its versions
func (r *Repository) DeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.versions.DeleteMany(ctx, bson.M{"contentDocumentId": id}); err != nil {
		return err
	}
	_, err := r.documents.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
