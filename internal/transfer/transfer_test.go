package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu        sync.Mutex
	versions  map[string]VersionRecord
	created   int
	resolved  int
	deleted   []string
	failTitle string
	noDocFor  string
	failDoc   string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{versions: map[string]VersionRecord{}}
}

func (r *fakeRemote) CreateVersion(ctx context.Context, rec VersionRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Fields.Title == r.failTitle {
		return "", errors.New("insert failed")
	}
	r.created++
	id := fmt.Sprintf("068%03d", r.created)
	r.versions[id] = rec
	return id, nil
}

func (r *fakeRemote) ResolveContentDocumentID(ctx context.Context, versionID string) (DocumentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved++
	rec := r.versions[versionID]
	if rec.Fields.Title == r.noDocFor {
		return DocumentRef{}, nil
	}
	return DocumentRef{ContentDocumentID: "069-" + rec.Fields.Title}, nil
}

func (r *fakeRemote) DeleteDocument(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if documentID == r.failDoc {
		return errors.New("delete failed")
	}
	r.deleted = append(r.deleted, documentID)
	return nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.UnixMilli(1700000000000) }
}

func TestUploadAll_PreservesOrderAndSkipsUploaded(t *testing.T) {
	remote := newFakeRemote()
	u := NewUploader(remote)

	results, err := u.UploadAll(context.Background(), []StagedFile{
		{LocalID: "1", Name: "a.txt", Contents: "data:text/plain;base64,QQ=="},
		{LocalID: "2", Name: "b.txt", RemoteDocumentID: "069-existing"},
		{LocalID: "3", Name: "c.txt", Contents: "data:text/plain;base64,Qw=="},
	})

	require.NoError(t, err)
	require.Equal(t, []UploadResult{
		{Successful: true, ContentDocumentID: "069-a.txt"},
		{Successful: true, ContentDocumentID: "069-existing"},
		{Successful: true, ContentDocumentID: "069-c.txt"},
	}, results)
	require.Equal(t, 2, remote.created)
	require.Equal(t, 2, remote.resolved)
	require.Equal(t, []string{"069-a.txt", "069-existing", "069-c.txt"}, DocumentIDs(results))
}

func TestUploadOne_VersionRecordFields(t *testing.T) {
	remote := newFakeRemote()
	u := NewUploader(remote)
	u.now = fixedClock()

	_, err := u.UploadOne(context.Background(), StagedFile{
		LocalID:  "1699-0",
		Name:     "report.pdf",
		Contents: "data:application/pdf;base64,JVBERi0=",
	})
	require.NoError(t, err)

	rec := remote.versions["068001"]
	require.Equal(t, ContentVersionAPIName, rec.APIName)
	require.Equal(t, VersionFields{
		Title:           "report.pdf",
		PathOnClient:    "report.pdf",
		VersionData:     "JVBERi0=",
		Origin:          "H",
		ReasonForChange: "1700000000000_1699-0",
	}, rec.Fields)
}

func TestUploadAll_AllAlreadyUploadedMakesNoCalls(t *testing.T) {
	remote := newFakeRemote()
	results, err := NewUploader(remote).UploadAll(context.Background(), []StagedFile{
		{LocalID: "1", RemoteDocumentID: "069A"},
		{LocalID: "2", RemoteDocumentID: "069B"},
	})

	require.NoError(t, err)
	require.Equal(t, []string{"069A", "069B"}, DocumentIDs(results))
	require.Zero(t, remote.created)
	require.Zero(t, remote.resolved)
}

func TestUploadAll_Empty(t *testing.T) {
	results, err := NewUploader(newFakeRemote()).UploadAll(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestUploadAll_FailureYieldsNoResults(t *testing.T) {
	remote := newFakeRemote()
	remote.failTitle = "bad.txt"

	results, err := NewUploader(remote).UploadAll(context.Background(), []StagedFile{
		{LocalID: "1", Name: "good.txt", Contents: "data:text/plain;base64,QQ=="},
		{LocalID: "2", Name: "bad.txt", Contents: "data:text/plain;base64,QQ=="},
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "insert failed")
	require.Nil(t, results)
}

func TestUploadAll_MissingDocumentID(t *testing.T) {
	remote := newFakeRemote()
	remote.noDocFor = "orphan.txt"

	_, err := NewUploader(remote).UploadAll(context.Background(), []StagedFile{
		{LocalID: "1", Name: "orphan.txt", Contents: "data:text/plain;base64,QQ=="},
	})

	require.ErrorIs(t, err, ErrNoContentDocumentID)
	require.Equal(t, "No content document id", err.Error())
}

func TestUploadAll_MalformedContents(t *testing.T) {
	remote := newFakeRemote()
	_, err := NewUploader(remote).UploadAll(context.Background(), []StagedFile{
		{LocalID: "1", Name: "x.txt", Contents: "not a data uri"},
	})

	require.Error(t, err)
	require.Zero(t, remote.created)
}

func TestUploadAllSettled(t *testing.T) {
	remote := newFakeRemote()
	remote.failTitle = "bad.txt"

	results := NewUploader(remote).UploadAllSettled(context.Background(), []StagedFile{
		{LocalID: "1", Name: "good.txt", Contents: "data:text/plain;base64,QQ=="},
		{LocalID: "2", Name: "bad.txt", Contents: "data:text/plain;base64,QQ=="},
	})

	require.Len(t, results, 2)
	require.True(t, results[0].Successful)
	require.Equal(t, "069-good.txt", results[0].ContentDocumentID)
	require.False(t, results[1].Successful)
	require.Error(t, results[1].Err)
	require.Equal(t, []string{"069-good.txt"}, DocumentIDs(results))
}

func TestDeleter_SkipsNilAndEmptyIDs(t *testing.T) {
	remote := newFakeRemote()
	d := NewDeleter(remote)

	d.Add(nil)
	d.Add(&AttachedFile{ID: "1", ContentDocumentID: "069A", Name: "a"})
	d.Add(&AttachedFile{ID: "2", Name: "never uploaded"})
	d.Add(&AttachedFile{ID: "3", ContentDocumentID: "069C", Name: "c"})
	require.Len(t, d.Pending(), 3)

	require.NoError(t, d.DeleteAll(context.Background()))
	require.ElementsMatch(t, []string{"069A", "069C"}, remote.deleted)
	require.Empty(t, d.Pending())
}

func TestDeleter_EmptyQueue(t *testing.T) {
	remote := newFakeRemote()
	require.NoError(t, NewDeleter(remote).DeleteAll(context.Background()))
	require.Empty(t, remote.deleted)
}

func TestDeleter_FailureKeepsFailedEntries(t *testing.T) {
	remote := newFakeRemote()
	remote.failDoc = "069B"
	d := NewDeleter(remote)
	d.Add(&AttachedFile{ID: "1", ContentDocumentID: "069A"})
	d.Add(&AttachedFile{ID: "2", ContentDocumentID: "069B"})

	require.Error(t, d.DeleteAll(context.Background()))
	require.Equal(t, []AttachedFile{{ID: "2", ContentDocumentID: "069B"}}, d.Pending())

	remote.failDoc = ""
	require.NoError(t, d.DeleteAll(context.Background()))
	require.ElementsMatch(t, []string{"069A", "069B"}, remote.deleted)
}

// gatedRemote holds every CreateVersion call until want calls are in flight
type gatedRemote struct {
	*fakeRemote
	want int

	mu      sync.Mutex
	arrived int
	open    chan struct{}
}

func (r *gatedRemote) CreateVersion(ctx context.Context, rec VersionRecord) (string, error) {
	r.mu.Lock()
	r.arrived++
	if r.arrived == r.want {
		close(r.open)
	}
	r.mu.Unlock()

	select {
	case <-r.open:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.fakeRemote.CreateVersion(ctx, rec)
}

func TestUploadAll_RunsEveryFileAtOnce(t *testing.T) {
	const n = 12
	remote := &gatedRemote{fakeRemote: newFakeRemote(), want: n, open: make(chan struct{})}
	u := NewUploader(remote)

	files := make([]StagedFile, n)
	for i := range files {
		files[i] = StagedFile{LocalID: fmt.Sprintf("f%d", i), Name: fmt.Sprintf("%d.txt", i), Contents: "data:text/plain;base64,aGk="}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	results, err := u.UploadAll(ctx, files)
	require.NoError(t, err)
	require.Len(t, results, n)
	require.Equal(t, "069-11.txt", results[11].ContentDocumentID)
}
