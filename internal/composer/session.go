// Package composer holds the state of one post or comment form: its text,
// the mention table, staged attachments and the attachments queued for
// deletion. Submit runs the save sequence against the remote services.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xyz-asif/chatter/internal/mentions"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/segments"
	"github.com/xyz-asif/chatter/internal/transfer"
)

const (
	MaxPostAttachments    = 10
	MaxCommentAttachments = 1
)

var (
	ErrNothingToSave      = errors.New("nothing to save")
	ErrBusy               = errors.New("save already in progress")
	ErrAlreadySaved       = errors.New("form already saved")
	ErrTooManyAttachments = errors.New("too many attachments")
	ErrAttachmentsLocked  = errors.New("attachments cannot be changed on a comment edit")
	ErrUnknownAttachment  = errors.New("attachment not found")
	ErrMissingTarget      = errors.New("form target id is required")
)

type Mode int

const (
	ModeNewPost Mode = iota
	ModeEditPost
	ModeNewComment
	ModeEditComment
)

func (m Mode) String() string {
	switch m {
	case ModeEditPost:
		return "edit-post"
	case ModeNewComment:
		return "new-comment"
	case ModeEditComment:
		return "edit-comment"
	default:
		return "new-post"
	}
}

func (m Mode) editing() bool { return m == ModeEditPost || m == ModeEditComment }

func (m Mode) maxAttachments() int {
	if m == ModeNewComment || m == ModeEditComment {
		return MaxCommentAttachments
	}
	return MaxPostAttachments
}

type State int

const (
	StateIdle State = iota
	StateUploading
	StateSaving
	StateSaved
	StateUploadFailed
	StateSaveFailed
)

func (s State) String() string {
	return [...]string{"idle", "uploading", "saving", "saved", "upload-failed", "save-failed"}[s]
}

// Publisher saves the composed message
type Publisher interface {
	CreatePost(ctx context.Context, subjectID, body string, documentIDs []string) (string, error)
	UpdatePost(ctx context.Context, feedElementID, body string, documentIDs []string) (string, error)
	CommentOnFeedElement(ctx context.Context, feedElementID, body, documentID string) (string, error)
	UpdateComment(ctx context.Context, commentID, body string) (string, error)
}

// Config describes what the form edits. TargetID is the subject record for
// a new post, the feed element for a post edit or a new comment, and the
// comment for a comment edit. Body and Attachments seed an edit.
type Config struct {
	Mode        Mode
	TargetID    string
	Body        []segments.Segment
	Attachments []transfer.AttachedFile
}

type Session struct {
	cfg       Config
	publisher Publisher
	lookup    *mentions.Lookup
	uploader  *transfer.Uploader
	deleter   *transfer.Deleter
	log       *logger.Logger

	mu       sync.Mutex
	text     string
	original string
	files    []transfer.StagedFile
	attached map[string]transfer.AttachedFile
	removed  bool
	state    State
	lastErr  error
}

func New(cfg Config, searcher mentions.UserSearcher, remote transfer.Remote, publisher Publisher, opts ...mentions.Option) (*Session, error) {
	if cfg.TargetID == "" {
		return nil, ErrMissingTarget
	}

	s := &Session{
		cfg:       cfg,
		publisher: publisher,
		uploader:  transfer.NewUploader(remote),
		deleter:   transfer.NewDeleter(remote),
		log:       logger.Default().Named("composer"),
		attached:  make(map[string]transfer.AttachedFile),
	}

	table := mentions.NewTable(nil)
	if cfg.Mode.editing() {
		s.text = segments.Render(cfg.Body, true)
		s.original = s.text
		table = mentions.NewTable(segments.ExtractMentions(cfg.Body))
	}
	if cfg.Mode == ModeEditPost {
		for _, a := range cfg.Attachments {
			s.files = append(s.files, transfer.StagedFile{
				LocalID:          a.ID,
				Name:             a.Name,
				RemoteDocumentID: a.ContentDocumentID,
			})
			s.attached[a.ID] = a
		}
	}

	s.lookup = mentions.NewLookup(searcher, append([]mentions.Option{mentions.WithTable(table)}, opts...)...)
	return s, nil
}

func (s *Session) Mode() Mode               { return s.cfg.Mode }
func (s *Session) Lookup() *mentions.Lookup { return s.lookup }

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed submit
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SetText replaces the editor contents and schedules a mention lookup
func (s *Session) SetText(raw string) {
	s.mu.Lock()
	s.text = raw
	s.mu.Unlock()
	s.lookup.Update(raw)
}

// Enter replaces the contents with a finished line of input and evaluates
// the mention lookup once, right away. Line input arrives after the user has
// stopped typing, so nothing is left for the debouncer.
func (s *Session) Enter(ctx context.Context, raw string) mentions.View {
	s.mu.Lock()
	s.text = raw
	s.mu.Unlock()
	s.lookup.Cancel()
	return s.lookup.Evaluate(ctx, raw)
}

// Choose accepts a suggestion: the table learns the mention and the first
// "@term" in the text becomes the bracketed key.
func (s *Session) Choose(c mentions.Candidate) mentions.Selection {
	sel := s.lookup.Select(c)
	s.mu.Lock()
	s.text = strings.Replace(s.text, "@"+sel.Search, sel.Mention, 1)
	s.mu.Unlock()
	return sel
}

// Files returns the staged attachments in order
func (s *Session) Files() []transfer.StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transfer.StagedFile(nil), s.files...)
}

// PendingDeletes returns the attachments that will be deleted on save
func (s *Session) PendingDeletes() []transfer.AttachedFile {
	return s.deleter.Pending()
}

// Attach stages a new file given as a data URI
func (s *Session) Attach(name, contents string) (transfer.StagedFile, error) {
	if s.cfg.Mode == ModeEditComment {
		return transfer.StagedFile{}, ErrAttachmentsLocked
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.files) >= s.cfg.Mode.maxAttachments() {
		return transfer.StagedFile{}, fmt.Errorf("%w: limit is %d", ErrTooManyAttachments, s.cfg.Mode.maxAttachments())
	}
	f := transfer.StagedFile{LocalID: uuid.NewString(), Name: name, Contents: contents}
	s.files = append(s.files, f)
	return f, nil
}

// Remove unstages a file. Files that already exist remotely, whether they
// belonged to the saved message or were uploaded by a failed submit, are
// queued for deletion.
func (s *Session) Remove(localID string) error {
	if s.cfg.Mode == ModeEditComment {
		return ErrAttachmentsLocked
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.LocalID != localID {
			continue
		}
		s.files = append(s.files[:i], s.files[i+1:]...)
		if a, ok := s.attached[localID]; ok {
			s.deleter.Add(&a)
			delete(s.attached, localID)
			s.removed = true
		} else if f.Uploaded() {
			// uploaded by a submit whose save failed
			s.deleter.Add(&transfer.AttachedFile{ID: f.LocalID, ContentDocumentID: f.RemoteDocumentID, Name: f.Name})
		}
		return nil
	}
	return ErrUnknownAttachment
}

// Empty reports whether the text has no visible content
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return isEmpty(s.text)
}

// Changed reports whether an edit differs from what was loaded
func (s *Session) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedLocked()
}

func (s *Session) changedLocked() bool {
	if s.text != s.original || s.removed {
		return true
	}
	for _, f := range s.files {
		if !f.Uploaded() {
			return true
		}
	}
	return false
}

// CanSubmit mirrors the save button: a non-empty message, a change when
// editing, and no save in flight.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkLocked() == nil
}

func (s *Session) checkLocked() error {
	switch s.state {
	case StateUploading, StateSaving:
		return ErrBusy
	case StateSaved:
		return ErrAlreadySaved
	}
	if isEmpty(s.text) {
		return ErrNothingToSave
	}
	if s.cfg.Mode.editing() && !s.changedLocked() {
		return ErrNothingToSave
	}
	if len(s.files) > s.cfg.Mode.maxAttachments() {
		return ErrTooManyAttachments
	}
	return nil
}

// Submit resolves mentions, drains the deletion queue, uploads staged files
// and saves the message. It returns the saved record id. On failure the form
// keeps its text and attachments so the user can retry.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.state = StateUploading
	s.lastErr = nil
	body := s.lookup.Resolve(s.text)
	files := append([]transfer.StagedFile(nil), s.files...)
	s.mu.Unlock()
	s.lookup.Cancel()

	if s.cfg.Mode != ModeEditComment {
		if err := s.deleter.DeleteAll(ctx); err != nil {
			return "", s.fail(StateUploadFailed, fmt.Errorf("delete attachments: %w", err))
		}
	}

	var docIDs []string
	if s.cfg.Mode != ModeEditComment && len(files) > 0 {
		results, err := s.uploader.UploadAll(ctx, files)
		if err != nil {
			return "", s.fail(StateUploadFailed, err)
		}
		docIDs = transfer.DocumentIDs(results)
		s.markUploaded(files, results)
	}

	s.mu.Lock()
	s.state = StateSaving
	s.mu.Unlock()

	id, err := s.publish(ctx, body, docIDs)
	if err != nil {
		return "", s.fail(StateSaveFailed, err)
	}

	s.mu.Lock()
	s.state = StateSaved
	s.mu.Unlock()
	s.log.Info("%s saved as %s with %d attachment(s)", s.cfg.Mode, id, len(docIDs))
	return id, nil
}

func (s *Session) publish(ctx context.Context, body string, docIDs []string) (string, error) {
	switch s.cfg.Mode {
	case ModeEditPost:
		return s.publisher.UpdatePost(ctx, s.cfg.TargetID, body, docIDs)
	case ModeNewComment:
		var docID string
		if len(docIDs) > 0 {
			docID = docIDs[0]
		}
		return s.publisher.CommentOnFeedElement(ctx, s.cfg.TargetID, body, docID)
	case ModeEditComment:
		return s.publisher.UpdateComment(ctx, s.cfg.TargetID, body)
	default:
		return s.publisher.CreatePost(ctx, s.cfg.TargetID, body, docIDs)
	}
}

// markUploaded records document ids so a retry does not upload twice
func (s *Session) markUploaded(files []transfer.StagedFile, results []transfer.UploadResult) {
	ids := make(map[string]string, len(files))
	for i, f := range files {
		ids[f.LocalID] = results[i].ContentDocumentID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if id, ok := ids[s.files[i].LocalID]; ok && id != "" {
			s.files[i].RemoteDocumentID = id
			s.files[i].Contents = ""
		}
	}
}

func (s *Session) fail(state State, err error) error {
	s.mu.Lock()
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
	s.log.Error("%s submit failed: %v", s.cfg.Mode, err)
	return err
}

// Reset clears the form for the next message after a save
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	s.original = ""
	s.files = nil
	s.attached = make(map[string]transfer.AttachedFile)
	s.removed = false
	s.state = StateIdle
	s.lastErr = nil
	s.lookup.Cancel()
	s.lookup.Table().Clear()
}

// Close stops the mention lookup
func (s *Session) Close() {
	s.lookup.Close()
}

func isEmpty(text string) bool {
	return strings.TrimSpace(mentions.StripMarkup(text)) == ""
}
