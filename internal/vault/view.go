package vault

import (
	"sync"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/model/resource"
)

// DefaultDebounce delays recomputation after search text changes.
const DefaultDebounce = 300 * time.Millisecond

// Snapshot is one published result of a View.
type Snapshot struct {
	Query     Query               `json:"query"`
	Resources []resource.Resource `json:"resources"`
	Tags      []string            `json:"tags"`
}

// View holds one client's filter state over the resource list. Text changes
// are debounced; tag, sort and data changes publish immediately.
type View struct {
	mu       sync.Mutex
	emitMu   sync.Mutex
	all      []resource.Resource
	query    Query
	debounce time.Duration
	timer    *time.Timer
	closed   bool
	publish  func(Snapshot)
}

// NewView creates a view sorted by SortTop. publish receives every recomputed snapshot.
func NewView(all []resource.Resource, debounce time.Duration, publish func(Snapshot)) *View {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if publish == nil {
		publish = func(Snapshot) {}
	}
	return &View{
		all:      all,
		query:    Query{Sort: SortTop},
		debounce: debounce,
		publish:  publish,
	}
}

// SetQuery records the search text and recomputes once the debounce elapses
// without another change.
func (v *View) SetQuery(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.query.Text = text
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.debounce, v.emit)
}

// ToggleTag adds the tag to the selection or removes it if already selected.
func (v *View) ToggleTag(tag string) {
	v.update(func(q *Query) {
		for i, t := range q.Tags {
			if t == tag {
				q.Tags = append(q.Tags[:i:i], q.Tags[i+1:]...)
				return
			}
		}
		q.Tags = append(q.Tags, tag)
	})
}

// SetSort switches the ordering.
func (v *View) SetSort(mode SortMode) {
	v.update(func(q *Query) { q.Sort = mode })
}

// Clear drops the search text and tag selection.
func (v *View) Clear() {
	v.update(func(q *Query) {
		q.Text = ""
		q.Tags = nil
	})
}

// Replace swaps the underlying resource list.
func (v *View) Replace(all []resource.Resource) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.all = all
	v.mu.Unlock()
	v.emit()
}

// Current computes the snapshot for the present state without publishing.
func (v *View) Current() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close stops any pending recomputation. Later calls are ignored.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
	}
}

func (v *View) update(fn func(q *Query)) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	fn(&v.query)
	v.mu.Unlock()
	v.emit()
}

func (v *View) emit() {
	v.emitMu.Lock()
	defer v.emitMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	snap := v.snapshotLocked()
	v.mu.Unlock()

	v.publish(snap)
}

func (v *View) snapshotLocked() Snapshot {
	q := Query{Text: v.query.Text, Sort: v.query.Sort}
	q.Tags = append([]string(nil), v.query.Tags...)
	return Snapshot{
		Query:     q,
		Resources: Apply(v.all, q),
		Tags:      AllTags(v.all),
	}
}
