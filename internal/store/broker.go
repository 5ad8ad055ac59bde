package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/edgex-labs/edgex/backend/internal/model/chat"
	"github.com/edgex-labs/edgex/backend/internal/model/resource"
)

// broker fans snapshots out to subscribers of a key. Each subscriber holds at
// most one pending snapshot; a newer one replaces it. Snapshot loads for one
// key run under that key's lock, so they are published in load order.
type broker[T any] struct {
	mu    sync.Mutex
	subs  map[string]map[string]chan T
	loads map[string]*sync.Mutex
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		subs:  make(map[string]map[string]chan T),
		loads: make(map[string]*sync.Mutex),
	}
}

func (b *broker[T]) loadLock(key string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.loads[key]
	if !ok {
		l = &sync.Mutex{}
		b.loads[key] = l
	}
	return l
}

// subscribe registers for key and queues the snapshot returned by load as the
// first value. Registration happens before the load, so a write racing the
// subscription is either in that snapshot or published after it.
func (b *broker[T]) subscribe(key string, load func() (T, error)) (<-chan T, func(), error) {
	id := uuid.NewString()
	ch := make(chan T, 1)

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[string]chan T)
	}
	b.subs[key][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[key]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.subs, key)
				}
			}
			close(ch)
		})
	}

	l := b.loadLock(key)
	l.Lock()
	defer l.Unlock()
	initial, err := load()
	if err != nil {
		cancel()
		return nil, nil, err
	}
	b.mu.Lock()
	replace(ch, initial)
	b.mu.Unlock()
	return ch, cancel, nil
}

// refresh loads a snapshot for key and publishes it, unless nobody listens.
func (b *broker[T]) refresh(key string, load func() (T, error)) error {
	if !b.has(key) {
		return nil
	}
	l := b.loadLock(key)
	l.Lock()
	defer l.Unlock()
	snap, err := load()
	if err != nil {
		return err
	}
	b.publish(key, snap)
	return nil
}

func (b *broker[T]) publish(key string, snapshot T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[key] {
		replace(ch, snapshot)
	}
}

func replace[T any](ch chan T, snapshot T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

func (b *broker[T]) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key]) > 0
}

// Observed wraps a Repository and pushes fresh ordered snapshots to watchers
// after every successful write.
type Observed struct {
	Repository
	sessions  *broker[[]chat.Session]
	resources *broker[[]resource.Resource]
}

// NewObserved decorates repo with live subscriptions.
func NewObserved(repo Repository) *Observed {
	return &Observed{
		Repository: repo,
		sessions:   newBroker[[]chat.Session](),
		resources:  newBroker[[]resource.Resource](),
	}
}

const resourcesKey = "resources"

func sessionsKey(collection, userID string) string {
	return collection + "/" + userID
}

// WatchSessions delivers the current session list and then a new one after
// every change. The channel closes when ctx is done.
func (o *Observed) WatchSessions(ctx context.Context, collection, userID string) (<-chan []chat.Session, error) {
	return watch(ctx, o.sessions, sessionsKey(collection, userID), func() ([]chat.Session, error) {
		return o.Repository.ListSessions(ctx, collection, userID)
	})
}

// WatchResources delivers the current resource list and then a new one after
// every change. The channel closes when ctx is done.
func (o *Observed) WatchResources(ctx context.Context) (<-chan []resource.Resource, error) {
	return watch(ctx, o.resources, resourcesKey, func() ([]resource.Resource, error) {
		return o.Repository.ListResources(ctx)
	})
}

func watch[T any](ctx context.Context, b *broker[T], key string, load func() (T, error)) (<-chan T, error) {
	src, cancel, err := b.subscribe(key, load)
	if err != nil {
		return nil, err
	}
	out := make(chan T, 1)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (o *Observed) CreateSession(ctx context.Context, collection string, s *chat.Session) error {
	if err := o.Repository.CreateSession(ctx, collection, s); err != nil {
		return err
	}
	o.notifySessions(ctx, collection, s.UserID)
	return nil
}

func (o *Observed) UpdateSessionMessages(ctx context.Context, collection, userID, id string, messages []chat.Message) error {
	if err := o.Repository.UpdateSessionMessages(ctx, collection, userID, id, messages); err != nil {
		return err
	}
	o.notifySessions(ctx, collection, userID)
	return nil
}

func (o *Observed) RenameSession(ctx context.Context, collection, userID, id, title string) error {
	if err := o.Repository.RenameSession(ctx, collection, userID, id, title); err != nil {
		return err
	}
	o.notifySessions(ctx, collection, userID)
	return nil
}

func (o *Observed) DeleteSession(ctx context.Context, collection, userID, id string) error {
	if err := o.Repository.DeleteSession(ctx, collection, userID, id); err != nil {
		return err
	}
	o.notifySessions(ctx, collection, userID)
	return nil
}

func (o *Observed) CreateResource(ctx context.Context, r *resource.Resource) error {
	if err := o.Repository.CreateResource(ctx, r); err != nil {
		return err
	}
	o.notifyResources(ctx)
	return nil
}

func (o *Observed) UpdateResource(ctx context.Context, r *resource.Resource) error {
	if err := o.Repository.UpdateResource(ctx, r); err != nil {
		return err
	}
	o.notifyResources(ctx)
	return nil
}

func (o *Observed) DeleteResource(ctx context.Context, id string) error {
	if err := o.Repository.DeleteResource(ctx, id); err != nil {
		return err
	}
	o.notifyResources(ctx)
	return nil
}

func (o *Observed) notifySessions(ctx context.Context, collection, userID string) {
	err := o.sessions.refresh(sessionsKey(collection, userID), func() ([]chat.Session, error) {
		return o.Repository.ListSessions(context.WithoutCancel(ctx), collection, userID)
	})
	if err != nil {
		slog.Warn("session snapshot failed", "component", "store", "collection", collection, "error", err)
	}
}

func (o *Observed) notifyResources(ctx context.Context) {
	err := o.resources.refresh(resourcesKey, func() ([]resource.Resource, error) {
		return o.Repository.ListResources(context.WithoutCancel(ctx))
	})
	if err != nil {
		slog.Warn("resource snapshot failed", "component", "store", "error", err)
	}
}
