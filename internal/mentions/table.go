package mentions

import (
	"sort"
	"strings"
	"sync"
)

// Key formats a display name as the placeholder used in composed text
func Key(name string) string {
	return "[" + name + "]"
}

// Table maps placeholder keys to user ids for one composition session.
// Keys are resolved in insertion order.
type Table struct {
	mu   sync.RWMutex
	keys []string
	ids  map[string]string
}

// NewTable seeds a table, typically from segments.ExtractMentions when
// editing an existing message.
func NewTable(seed map[string]string) *Table {
	t := &Table{ids: make(map[string]string, len(seed))}
	keys := make([]string, 0, len(seed))
	for k := range seed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, seed[k])
	}
	return t
}

// Add inserts the key only when it is not already present. It reports
// whether the table changed.
func (t *Table) Add(key, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[key]; ok {
		return false
	}
	t.keys = append(t.keys, key)
	t.ids[key] = id
	return true
}

// Set inserts or overwrites a key
func (t *Table) Set(key, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.ids[key] = id
}

func (t *Table) Get(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[key]
	return id, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.keys)
}

// Clear empties the table
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys = nil
	t.ids = make(map[string]string)
}

// Map returns a copy of the table contents
func (t *Table) Map() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.ids))
	for k, v := range t.ids {
		out[k] = v
	}
	return out
}

// Resolve replaces every occurrence of every key with "{id}". Text that
// contains no keys is returned unchanged.
func (t *Table) Resolve(text string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, k := range t.keys {
		text = strings.ReplaceAll(text, k, "{"+t.ids[k]+"}")
	}
	return text
}
