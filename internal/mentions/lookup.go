// Package mentions detects "@" triggers in composed text, searches for users
// to mention and rewrites chosen mentions into id references.
package mentions

import (
	"context"
	"sync"
	"time"

	"github.com/xyz-asif/chatter/internal/pkg/debounce"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
)

// User is a search hit returned by the user directory
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// UserSearcher queries the user directory by name prefix
type UserSearcher interface {
	SearchUsers(ctx context.Context, term string) ([]User, error)
}

// Candidate is one entry of the suggestion list
type Candidate struct {
	Label  string `json:"label"`
	ID     string `json:"id"`
	Search string `json:"search"`
}

// Selection is emitted when a candidate is chosen. The host replaces the
// first "@"+Search in its text with Mention.
type Selection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Search  string `json:"search"`
	Mention string `json:"mention"`
}

type State int

const (
	StateIdle State = iota
	StateShowing
)

func (s State) String() string {
	if s == StateShowing {
		return "showing"
	}
	return "idle"
}

// View is a snapshot of what the suggestion list should display
type View struct {
	State      State
	Candidates []Candidate
}

type Option func(*Lookup)

func WithDelay(d time.Duration) Option {
	return func(l *Lookup) { l.debouncer = debounce.New(d) }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Lookup) { l.log = log }
}

// WithTable shares an existing table, e.g. one seeded from an edited message
func WithTable(t *Table) Option {
	return func(l *Lookup) { l.table = t }
}

// WithTimeout bounds each search call
func WithTimeout(d time.Duration) Option {
	return func(l *Lookup) { l.timeout = d }
}

// OnChange registers a callback invoked after every state change
func OnChange(fn func(View)) Option {
	return func(l *Lookup) { l.onChange = fn }
}

// Lookup drives the suggestion list for one composer. Text changes are
// debounced; a search response that arrives after a newer evaluation has
// started is discarded.
type Lookup struct {
	searcher  UserSearcher
	table     *Table
	debouncer *debounce.Debouncer
	log       *logger.Logger
	timeout   time.Duration
	onChange  func(View)

	mu         sync.Mutex
	state      State
	candidates []Candidate
	seq        uint64
}

func NewLookup(searcher UserSearcher, opts ...Option) *Lookup {
	l := &Lookup{
		searcher: searcher,
		log:      logger.Default().Named("mentions"),
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.table == nil {
		l.table = NewTable(nil)
	}
	if l.debouncer == nil {
		l.debouncer = debounce.New(debounce.DefaultDelay)
	}
	return l
}

func (l *Lookup) Table() *Table { return l.table }

// Update records a text change. Evaluation runs once the text has been
// quiet for the debounce delay.
func (l *Lookup) Update(raw string) {
	l.debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		l.Evaluate(ctx, raw)
	})
}

// Evaluate decides immediately whether raw should show suggestions and, if
// so, runs the search. Search failures are logged and hide the list.
func (l *Lookup) Evaluate(ctx context.Context, raw string) View {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	term, ok := SearchTerm(raw)
	if !ok {
		return l.apply(seq, StateIdle, nil)
	}

	users, err := l.searcher.SearchUsers(ctx, term)
	if err != nil {
		l.log.Error("user search for %q failed: %v", term, err)
		return l.apply(seq, StateIdle, nil)
	}
	if len(users) == 0 {
		return l.apply(seq, StateIdle, nil)
	}

	candidates := make([]Candidate, len(users))
	for i, u := range users {
		candidates[i] = Candidate{Label: u.Name, ID: u.ID, Search: term}
	}
	return l.apply(seq, StateShowing, candidates)
}

// Select records the candidate in the table unless its key is already
// present and hides the list.
func (l *Lookup) Select(c Candidate) Selection {
	key := Key(c.Label)
	l.table.Add(key, c.ID)
	l.Cancel()

	return Selection{ID: c.ID, Name: c.Label, Search: c.Search, Mention: key}
}

// Resolve rewrites every known placeholder in text into an id reference
func (l *Lookup) Resolve(text string) string {
	return l.table.Resolve(text)
}

// View returns the current state and candidates
func (l *Lookup) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return View{State: l.state, Candidates: append([]Candidate(nil), l.candidates...)}
}

// Cancel drops a pending evaluation and hides the list
func (l *Lookup) Cancel() {
	l.debouncer.Cancel()
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()
	l.apply(seq, StateIdle, nil)
}

// Close drops any pending evaluation and ignores later updates
func (l *Lookup) Close() {
	l.debouncer.Stop()
}

func (l *Lookup) apply(seq uint64, state State, candidates []Candidate) View {
	l.mu.Lock()
	if seq != l.seq {
		v := View{State: l.state, Candidates: append([]Candidate(nil), l.candidates...)}
		l.mu.Unlock()
		return v
	}
	l.state = state
	l.candidates = candidates
	v := View{State: state, Candidates: append([]Candidate(nil), candidates...)}
	cb := l.onChange
	l.mu.Unlock()

	if cb != nil {
		cb(v)
	}
	return v
}
