package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xyz-asif/chatter/internal/composer"
	"github.com/xyz-asif/chatter/internal/mentions"
	"github.com/xyz-asif/chatter/internal/transfer"
)

type stubSearcher struct{}

func (stubSearcher) SearchUsers(ctx context.Context, term string) ([]mentions.User, error) {
	return []mentions.User{{ID: "005B", Name: "Bob Lee"}}, nil
}

type countingSearcher struct {
	mu    sync.Mutex
	terms []string
}

func (s *countingSearcher) SearchUsers(ctx context.Context, term string) ([]mentions.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = append(s.terms, term)
	return []mentions.User{{ID: "005B", Name: "Bob Lee"}}, nil
}

func (s *countingSearcher) Terms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

type stubRemote struct{}

func (stubRemote) CreateVersion(ctx context.Context, rec transfer.VersionRecord) (string, error) {
	return "068-" + rec.Fields.Title, nil
}

func (stubRemote) ResolveContentDocumentID(ctx context.Context, versionID string) (transfer.DocumentRef, error) {
	return transfer.DocumentRef{ContentDocumentID: "069-" + strings.TrimPrefix(versionID, "068-")}, nil
}

func (stubRemote) DeleteDocument(ctx context.Context, documentID string) error { return nil }

type stubPublisher struct {
	subject string
	body    string
	docs    []string
}

func (p *stubPublisher) CreatePost(ctx context.Context, subjectID, body string, docs []string) (string, error) {
	p.subject, p.body, p.docs = subjectID, body, docs
	return "0D5-new", nil
}

func (p *stubPublisher) UpdatePost(ctx context.Context, id, body string, docs []string) (string, error) {
	return id, nil
}

func (p *stubPublisher) CommentOnFeedElement(ctx context.Context, id, body, doc string) (string, error) {
	return "0D7-new", nil
}

func (p *stubPublisher) UpdateComment(ctx context.Context, id, body string) (string, error) {
	return id, nil
}

func TestRunCompose_MentionAttachSend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	pub := &stubPublisher{}
	session, err := composer.New(composer.Config{Mode: composer.ModeNewPost, TargetID: "001REC"}, stubSearcher{}, stubRemote{}, pub)
	require.NoError(t, err)
	defer session.Close()

	in := strings.NewReader("Hello @bo\n/pick 1\n/attach " + path + "\n/send\n")
	var out bytes.Buffer
	require.NoError(t, runCompose(context.Background(), session, in, &out))

	require.Contains(t, out.String(), "1. Bob Lee")
	require.Contains(t, out.String(), "mentioned Bob Lee")
	require.Contains(t, out.String(), "saved 0D5-new")
	require.Equal(t, "001REC", pub.subject)
	require.Equal(t, "Hello {005B}", pub.body)
	require.Equal(t, []string{"069-notes.txt"}, pub.docs)
}

func TestRunCompose_OneSearchPerLine(t *testing.T) {
	searcher := &countingSearcher{}
	session, err := composer.New(composer.Config{Mode: composer.ModeNewPost, TargetID: "001REC"}, searcher, stubRemote{}, &stubPublisher{})
	require.NoError(t, err)
	defer session.Close()

	var out bytes.Buffer
	require.NoError(t, runCompose(context.Background(), session, strings.NewReader("hello @bo\n"), &out))
	require.Contains(t, out.String(), "1. Bob Lee")

	time.Sleep(500 * time.Millisecond)
	require.Equal(t, []string{"bo"}, searcher.Terms())
}

func TestRunCompose_EmptySendKeepsGoing(t *testing.T) {
	session, err := composer.New(composer.Config{Mode: composer.ModeNewComment, TargetID: "0D5"}, stubSearcher{}, stubRemote{}, &stubPublisher{})
	require.NoError(t, err)
	defer session.Close()

	in := strings.NewReader("/send\n/pick 3\n/bogus\n/quit\n")
	var out bytes.Buffer
	require.NoError(t, runCompose(context.Background(), session, in, &out))

	require.Contains(t, out.String(), composer.ErrNothingToSave.Error())
	require.Contains(t, out.String(), "no such suggestion")
	require.Contains(t, out.String(), "unknown command /bogus")
}

func TestRootCommandRequiresToken(t *testing.T) {
	t.Setenv("CHATTER_TOKEN", "")
	root := NewRootCmd("test")
	root.SetArgs([]string{"feed"})
	var errOut bytes.Buffer
	root.SetErr(&errOut)

	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not signed in")
}
