package hashmap

import (
	"sync/atomic"
	"time"

	"github.com/MasterLKH180cm/keycloak-poc/internal/task"
)

type expiringEntry[T any] struct {
	raw T
	// unix nanoseconds of the last write or read
	touched atomic.Int64
}

func newExpiringEntry[T any](raw T) *expiringEntry[T] {
	entry := &expiringEntry[T]{raw: raw}
	entry.touched.Store(time.Now().UnixNano())
	return entry
}

func (entry *expiringEntry[T]) expired(lifetime time.Duration, now time.Time) bool {
	return now.Sub(time.Unix(0, entry.touched.Load())) > lifetime
}

// ExpiringMap implements the Map interface and wraps the standard NormalMap in order to implement value expiration.
// The lifetime of a value slides: every successful lookup renews it.
type ExpiringMap[K comparable, V any] struct {
	normal      *NormalMap[K, *expiringEntry[V]]
	lifetime    time.Duration
	cleanupTask *task.RepeatingTask
}

var _ Map[int, any] = (*ExpiringMap[int, any])(nil)

// NewExpiring creates a new expiring map whose values exist for a specific lifetime after their last use.
// Expired values are invisible to readers right away but will not be freed before ScheduleCleanupTask is called.
func NewExpiring[K comparable, V any](lifetime time.Duration) *ExpiringMap[K, V] {
	return &ExpiringMap[K, V]{
		normal:   NewNormal[K, *expiringEntry[V]](),
		lifetime: lifetime,
	}
}

// ScheduleCleanupTask schedules the task that cleans up expired values in a specific interval.
// A call to StopCleanupTask as soon as the map is no longer needed is highly recommended because it would not be
// garbage collected otherwise.
func (obj *ExpiringMap[K, V]) ScheduleCleanupTask(tick time.Duration) {
	if obj.cleanupTask != nil {
		return
	}
	obj.cleanupTask = task.NewRepeating(func() {
		obj.Purge()
	}, tick)
	obj.cleanupTask.Start()
}

// StopCleanupTask stops the cleanup task
func (obj *ExpiringMap[K, V]) StopCleanupTask() {
	if obj.cleanupTask == nil {
		return
	}
	obj.cleanupTask.Stop(true)
	obj.cleanupTask = nil
}

// Purge removes all expired values and returns their amount
func (obj *ExpiringMap[K, V]) Purge() int {
	now := time.Now()
	return obj.normal.DeleteFunc(func(_ K, val *expiringEntry[V]) bool {
		return val.expired(obj.lifetime, now)
	})
}

// Size returns the amount of stored key-value pairs, including expired ones not purged yet
func (obj *ExpiringMap[K, V]) Size() int {
	return obj.normal.Size()
}

// Has returns whether a non-expired value is assigned to the given key
func (obj *ExpiringMap[K, V]) Has(key K) bool {
	_, ok := obj.Lookup(key)
	return ok
}

// Lookup returns the value assigned to the given key and a boolean indicating if the value was set manually or is
// the type's zero value.
// Expired values are reported as absent.
func (obj *ExpiringMap[K, V]) Lookup(key K) (V, bool) {
	val, ok := obj.normal.Lookup(key)
	if !ok || val.expired(obj.lifetime, time.Now()) {
		var zero V
		return zero, false
	}
	val.touched.Store(time.Now().UnixNano())
	return val.raw, true
}

// Get returns the value assigned to the given key.
// Will be the zero value if it was not set using Set before or expired.
func (obj *ExpiringMap[K, V]) Get(key K) V {
	val, _ := obj.Lookup(key)
	return val
}

// Set sets a key-value pair
func (obj *ExpiringMap[K, V]) Set(key K, value V) {
	obj.normal.Set(key, newExpiringEntry(value))
}

// LoadOrStore returns the non-expired value assigned to the given key or assigns the one returned by create
func (obj *ExpiringMap[K, V]) LoadOrStore(key K, create func() V) (V, bool) {
	var loaded bool
	var result V
	obj.normal.mtx.Lock()
	defer obj.normal.mtx.Unlock()
	if val, ok := obj.normal.underlying[key]; ok && !val.expired(obj.lifetime, time.Now()) {
		val.touched.Store(time.Now().UnixNano())
		result, loaded = val.raw, true
	} else {
		result = create()
		obj.normal.underlying[key] = newExpiringEntry(result)
	}
	return result, loaded
}

// Unset deletes the value assigned to given key
func (obj *ExpiringMap[K, V]) Unset(key K) {
	obj.normal.Unset(key)
}

// DeleteFunc deletes every key-value pair the given predicate returns true for
func (obj *ExpiringMap[K, V]) DeleteFunc(predicate func(key K, value V) bool) int {
	return obj.normal.DeleteFunc(func(key K, val *expiringEntry[V]) bool {
		return predicate(key, val.raw)
	})
}

// Clear clears the whole map (essentially re-creating the underlying map)
func (obj *ExpiringMap[K, V]) Clear() {
	obj.normal.Clear()
}
