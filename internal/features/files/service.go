package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/pkg/cloudinary"
	"github.com/xyz-asif/chatter/internal/pkg/datauri"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/metrics"
	"github.com/xyz-asif/chatter/internal/transfer"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

var (
	ErrDuplicateReason  = errors.New("duplicate reason for change")
	ErrVersionNotFound  = apperrors.NotFound("content version not found")
	ErrDocumentNotFound = apperrors.NotFound("content document not found")
	ErrNotOwner         = apperrors.Forbidden("only the owner can change this document")
	ErrStorageDisabled  = errors.New("file storage is not configured")
)

// AssetStore keeps the file bytes. *cloudinary.Service satisfies it.
type AssetStore interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*cloudinary.Asset, error)
	Delete(ctx context.Context, publicID, resourceType string) error
}

type Store interface {
	Insert(ctx context.Context, doc *Document, ver *Version) error
	FindVersionByReason(ctx context.Context, ownerID primitive.ObjectID, reason string) (*Version, error)
	GetVersion(ctx context.Context, id primitive.ObjectID) (*Version, error)
	GetDocument(ctx context.Context, id primitive.ObjectID) (*Document, error)
	GetDocumentsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]*Document, error)
	DeleteDocument(ctx context.Context, id primitive.ObjectID) error
}

type Service struct {
	store  Store
	assets AssetStore
	log    *logger.Logger
}

// NewService wires the files service. assets may be nil, in which case
// uploads fail with ErrStorageDisabled.
func NewService(store Store, assets AssetStore) *Service {
	return &Service{store: store, assets: assets, log: logger.Default().Named("files")}
}

// CreateVersion stores the version data and records a new document. A
// repeated ReasonForChange from the same owner returns the earlier version.
func (s *Service) CreateVersion(ctx context.Context, ownerID primitive.ObjectID, rec transfer.VersionRecord) (id string, err error) {
	defer func() {
		if !errors.Is(err, ErrDuplicateReason) {
			metrics.FileUploads.WithLabelValues(metrics.Outcome(err)).Inc()
		}
	}()

	if err := ValidateVersionRecord(rec); err != nil {
		return "", err
	}
	fields := rec.Fields

	if fields.ReasonForChange != "" {
		existing, err := s.store.FindVersionByReason(ctx, ownerID, fields.ReasonForChange)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.ID.Hex(), nil
		}
	}

	data, err := datauri.Decode(fields.VersionData)
	if err != nil {
		return "", apperrors.Invalid("VersionData is not valid base64")
	}
	if err := cloudinary.ValidateUpload(fields.Title, int64(len(data))); err != nil {
		return "", apperrors.Invalid("%s", err.Error())
	}
	if s.assets == nil {
		return "", ErrStorageDisabled
	}

	asset, err := s.assets.Upload(ctx, bytes.NewReader(data), fields.PathOnClient)
	if err != nil {
		return "", fmt.Errorf("store version data: %w", err)
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	now := time.Now()
	doc := &Document{
		OwnerID:       ownerID,
		Title:         fields.Title,
		AssetPublicID: asset.PublicID,
		ResourceType:  asset.ResourceType,
		URL:           asset.URL,
		FileSize:      int64(len(data)),
		CreatedAt:     now,
	}
	ver := &Version{
		OwnerID:         ownerID,
		Title:           fields.Title,
		PathOnClient:    fields.PathOnClient,
		Origin:          fields.Origin,
		ReasonForChange: fields.ReasonForChange,
		FileSize:        doc.FileSize,
		CreatedAt:       now,
	}

	if err := s.store.Insert(ctx, doc, ver); err != nil {
		s.discardAsset(asset)
		if errors.Is(err, ErrDuplicateReason) {
			// Lost a race with a retry of the same upload.
			existing, ferr := s.store.FindVersionByReason(ctx, ownerID, fields.ReasonForChange)
			if ferr == nil && existing != nil {
				return existing.ID.Hex(), nil
			}
		}
		return "", err
	}

	s.log.Info("Stored %s (%d bytes) as document %s", fields.Title, doc.FileSize, doc.ID.Hex())
	return ver.ID.Hex(), nil
}

func (s *Service) discardAsset(asset *cloudinary.Asset) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.assets.Delete(ctx, asset.PublicID, asset.ResourceType); err != nil {
		s.log.Warn("Failed to discard asset %s: %v", asset.PublicID, err)
	}
}

// ResolveDocument returns the document a version belongs to. Only the
// owner can see their versions.
func (s *Service) ResolveDocument(ctx context.Context, ownerID primitive.ObjectID, versionID string) (transfer.DocumentRef, error) {
	oid, err := primitive.ObjectIDFromHex(versionID)
	if err != nil {
		return transfer.DocumentRef{}, ErrVersionNotFound
	}
	ver, err := s.store.GetVersion(ctx, oid)
	if err != nil {
		return transfer.DocumentRef{}, err
	}
	if ver == nil || ver.OwnerID != ownerID {
		return transfer.DocumentRef{}, ErrVersionNotFound
	}
	return transfer.DocumentRef{ContentDocumentID: ver.DocumentID.Hex()}, nil
}

// DeleteDocument destroys the stored asset and both records
func (s *Service) DeleteDocument(ctx context.Context, ownerID primitive.ObjectID, documentID string) (err error) {
	defer func() {
		metrics.FileDeletes.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	oid, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return ErrDocumentNotFound
	}
	doc, err := s.store.GetDocument(ctx, oid)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.OwnerID != ownerID {
		return ErrNotOwner
	}

	if s.assets != nil && doc.AssetPublicID != "" {
		if err := s.assets.Delete(ctx, doc.AssetPublicID, doc.ResourceType); err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}
	}
	return s.store.DeleteDocument(ctx, oid)
}

// OwnedDocumentIDs parses ids and checks that every document exists and
// belongs to ownerID. Duplicates are dropped; order is kept.
func (s *Service) OwnedDocumentIDs(ctx context.Context, ownerID primitive.ObjectID, ids []string) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
		if err != nil {
			return nil, apperrors.Invalid("invalid content document id %q", id)
		}
		if !seen[oid] {
			seen[oid] = true
			oids = append(oids, oid)
		}
	}

	docs, err := s.store.GetDocumentsByIDs(ctx, oids)
	if err != nil {
		return nil, err
	}
	for _, oid := range oids {
		doc, ok := docs[oid.Hex()]
		if !ok {
			return nil, apperrors.Invalid("content document %s does not exist", oid.Hex())
		}
		if doc.OwnerID != ownerID {
			return nil, apperrors.Forbidden("content document %s belongs to another user", oid.Hex())
		}
	}
	return oids, nil
}

// Attachments resolves document ids to their views, skipping deleted ones
func (s *Service) Attachments(ctx context.Context, ids []primitive.ObjectID) (map[string]Attachment, error) {
	docs, err := s.store.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Attachment, len(docs))
	for id, doc := range docs {
		out[id] = doc.Attachment()
	}
	return out, nil
}
