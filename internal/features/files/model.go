package files

import (
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the stable handle for an uploaded file. Messages reference
// documents, never versions.
type Document struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Title           string             `bson:"title" json:"title"`
	LatestVersionID primitive.ObjectID `bson:"latestVersionId" json:"latestVersionId"`
	AssetPublicID   string             `bson:"assetPublicId" json:"-"`
	ResourceType    string             `bson:"resourceType" json:"-"`
	URL             string             `bson:"url" json:"url"`
	FileSize        int64              `bson:"fileSize" json:"fileSize"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// Version is one upload of a document
type Version struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID      primitive.ObjectID `bson:"contentDocumentId" json:"contentDocumentId"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Title           string             `bson:"title" json:"title"`
	PathOnClient    string             `bson:"pathOnClient" json:"pathOnClient"`
	Origin          string             `bson:"origin" json:"origin"`
	ReasonForChange string             `bson:"reasonForChange,omitempty" json:"reasonForChange,omitempty"`
	FileSize        int64              `bson:"fileSize" json:"fileSize"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// CreateVersionResponse carries the new version id
type CreateVersionResponse struct {
	ID string `json:"id" example:"65f0c0ffee0000000000abcd"`
}

// Attachment is the view of a document inside a feed element or comment
type Attachment struct {
	ContentDocumentID string `json:"contentDocumentId"`
	Title             string `json:"title"`
	FileExtension     string `json:"fileExtension"`
	FileSize          int64  `json:"fileSize"`
	DownloadURL       string `json:"downloadUrl"`
}

func (d *Document) Attachment() Attachment {
	return Attachment{
		ContentDocumentID: d.ID.Hex(),
		Title:             d.Title,
		FileExtension:     strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Title)), "."),
		FileSize:          d.FileSize,
		DownloadURL:       d.URL,
	}
}
