// Package group keeps one time window per key, for callers that track many
// independent series (per tenant, per endpoint, per sensor) at once.
package group

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"

	"github.com/LiuYuuChen/timequeue/queue"
)

// Group maps keys to independently expiring windows. It is safe for
// concurrent use; windows are created on first push.
type Group[V any] struct {
	maxAge     time.Duration
	constraint queue.Constraint[V]
	queueOpts  []queue.Option
	logger     logrus.FieldLogger

	windows cmap.ConcurrentMap[*queue.Locked[V]]
}

type options struct {
	queueOpts []queue.Option
	logger    logrus.FieldLogger
}

type Option func(*options)

// WithQueueOptions is applied to every window the group creates.
func WithQueueOptions(opts ...queue.Option) Option {
	return func(o *options) {
		o.queueOpts = append(o.queueOpts, opts...)
	}
}

// WithLogger is used by the group and by its windows.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
			o.queueOpts = append(o.queueOpts, queue.WithLogger(logger))
		}
	}
}

func New[V cmp.Ordered](maxAge time.Duration, opts ...Option) (*Group[V], error) {
	return NewWith[V](maxAge, queue.ConstraintFor[V](), opts...)
}

func NewWith[V any](maxAge time.Duration, constraint queue.Constraint[V], opts ...Option) (*Group[V], error) {
	if err := queue.ValidateMaxAge(maxAge); err != nil {
		return nil, err
	}
	if constraint == nil {
		return nil, fmt.Errorf("can not build a group without a constraint")
	}

	o := &options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}

	return &Group[V]{
		maxAge:     maxAge,
		constraint: constraint,
		queueOpts:  o.queueOpts,
		logger:     o.logger,
		windows:    cmap.New[*queue.Locked[V]](),
	}, nil
}

func (g *Group[V]) newWindow(key string) *queue.Locked[V] {
	window, err := queue.NewLockedWith[V](g.maxAge, g.constraint, g.queueOpts...)
	if err != nil {
		// maxAge and constraint were checked by NewWith
		panic(fmt.Sprintf("group: can not create window %q: %v", key, err))
	}
	g.logger.WithFields(logrus.Fields{
		"key":     key,
		"max_age": g.maxAge,
	}).Debug("created window")
	return window
}

// Push adds value to the window of key, creating the window if needed.
// It holds the key's shard lock so Prune can not drop the window under it.
func (g *Group[V]) Push(key string, value V) {
	g.windows.Upsert(key, nil, func(exist bool, window, _ *queue.Locked[V]) *queue.Locked[V] {
		if !exist {
			window = g.newWindow(key)
		}
		window.Push(value)
		return window
	})
}

// PushAndStats pushes value and returns the stats of key's window.
func (g *Group[V]) PushAndStats(key string, value V) queue.Stats[V] {
	var stats queue.Stats[V]
	g.windows.Upsert(key, nil, func(exist bool, window, _ *queue.Locked[V]) *queue.Locked[V] {
		if !exist {
			window = g.newWindow(key)
		}
		stats = window.PushAndStats(value)
		return window
	})
	return stats
}

// Window returns the window of key without creating it. The handle is
// detached if Remove or Prune drops key afterwards: values pushed through
// it then no longer show up in the group. Use the group's own Push to
// write, and keep the handle for reads or short batches via Do.
func (g *Group[V]) Window(key string) (*queue.Locked[V], bool) {
	return g.windows.Get(key)
}

func (g *Group[V]) Pop(key string) (V, bool) {
	window, ok := g.windows.Get(key)
	if !ok {
		var empty V
		return empty, false
	}
	return window.Pop()
}

func (g *Group[V]) Peek(key string) (V, bool) {
	window, ok := g.windows.Get(key)
	if !ok {
		var empty V
		return empty, false
	}
	return window.Peek()
}

// List returns the live values of key, oldest first.
func (g *Group[V]) List(key string) []V {
	window, ok := g.windows.Get(key)
	if !ok {
		return nil
	}
	return window.List()
}

// Stats reports false when key has no window.
func (g *Group[V]) Stats(key string) (queue.Stats[V], bool) {
	window, ok := g.windows.Get(key)
	if !ok {
		return queue.Stats[V]{}, false
	}
	return window.Stats(), true
}

func (g *Group[V]) Len(key string) int {
	window, ok := g.windows.Get(key)
	if !ok {
		return 0
	}
	return window.Len()
}

// Remove drops key and everything in its window.
func (g *Group[V]) Remove(key string) {
	g.windows.Remove(key)
	g.logger.WithField("key", key).Debug("removed window")
}

// Keys returns the keys that have a window, sorted.
func (g *Group[V]) Keys() []string {
	keys := g.windows.Keys()
	slices.Sort(keys)
	return keys
}

// Count returns the number of windows, empty ones included.
func (g *Group[V]) Count() int {
	return g.windows.Count()
}

// Snapshot evicts every window and returns their stats by key.
func (g *Group[V]) Snapshot() map[string]queue.Stats[V] {
	items := g.windows.Items()
	snapshot := make(map[string]queue.Stats[V], len(items))
	for key, window := range items {
		snapshot[key] = window.Stats()
	}
	return snapshot
}

// Prune removes the windows that are empty once their expired entries are
// gone and returns how many were removed. Pushes made through the group
// are never lost to it; handles taken earlier from Window may be detached.
func (g *Group[V]) Prune() int {
	pruned := 0
	for _, key := range g.windows.Keys() {
		removed := g.windows.RemoveCb(key, func(_ string, window *queue.Locked[V], exists bool) bool {
			return exists && window.Len() == 0
		})
		if removed {
			pruned++
		}
	}
	if pruned > 0 {
		g.logger.WithFields(logrus.Fields{
			"pruned":    pruned,
			"remaining": g.windows.Count(),
		}).Debug("pruned empty windows")
	}
	return pruned
}
