// Package transfer uploads staged attachments as content versions and
// deletes removed attachments, in parallel batches.
package transfer

import (
	"context"
	"errors"
)

const (
	ContentVersionAPIName = "ContentVersion"
	// OriginChatter marks versions created from a feed composer
	OriginChatter = "H"
)

var ErrNoContentDocumentID = errors.New("No content document id")

// StagedFile is a file selected in the composer. Contents holds a data URI.
// RemoteDocumentID is set once the file exists remotely.
type StagedFile struct {
	LocalID          string `json:"localId"`
	Name             string `json:"name"`
	Contents         string `json:"contents,omitempty"`
	RemoteDocumentID string `json:"contentDocumentId,omitempty"`
}

func (f StagedFile) Uploaded() bool { return f.RemoteDocumentID != "" }

// AttachedFile is an attachment that already belongs to a saved message
type AttachedFile struct {
	ID                string `json:"id"`
	ContentDocumentID string `json:"contentDocumentId"`
	Name              string `json:"name"`
}

// VersionFields are the fields of a new content version record
type VersionFields struct {
	Title           string `json:"Title"`
	PathOnClient    string `json:"PathOnClient"`
	VersionData     string `json:"VersionData"`
	Origin          string `json:"Origin"`
	ReasonForChange string `json:"ReasonForChange"`
}

// VersionRecord is the payload for creating a content version
type VersionRecord struct {
	APIName string        `json:"apiName"`
	Fields  VersionFields `json:"fields"`
}

// DocumentRef is the answer to a content document lookup. An empty
// ContentDocumentID means the version has no document.
type DocumentRef struct {
	ContentDocumentID string `json:"ContentDocumentId"`
}

// Remote is the file store the orchestrator talks to
type Remote interface {
	CreateVersion(ctx context.Context, rec VersionRecord) (string, error)
	ResolveContentDocumentID(ctx context.Context, versionID string) (DocumentRef, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// UploadResult is the outcome for one staged file
type UploadResult struct {
	Successful        bool   `json:"successful"`
	ContentDocumentID string `json:"contentDocumentId,omitempty"`
	Err               error  `json:"-"`
}

// DocumentIDs lists the document ids of successful results in order
func DocumentIDs(results []UploadResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Successful {
			ids = append(ids, r.ContentDocumentID)
		}
	}
	return ids
}
