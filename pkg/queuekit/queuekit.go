// Package queuekit implements an owned FIFO buffer that prefers compaction over reallocation.
//
// The Queue keeps its items in a single backing slice.
// Shifted items leave a consumed prefix behind,
// and when the buffer runs out of room the Queue first slides the live items down over that prefix.
// Only when there is no consumed prefix to reclaim will it double its capacity.
// This keeps the memory footprint proportional to the peak number of queued items,
// rather than to the number of items ever pushed.
package queuekit

import (
	"iter"

	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/port/option"
)

const (
	// ErrExhausted is returned by Push when growing the buffer would exceed Config.MaxCapacity.
	ErrExhausted errorkit.Error = "queuekit: capacity exhausted"
	// ErrClosed is returned by Push after the Queue is closed.
	ErrClosed errorkit.Error = "queuekit: queue is closed"
)

// InitialCapacity is the number of slots a Queue starts with.
const InitialCapacity = 4

type Config[T any] struct {
	// InitialCapacity is the slot count of the first allocation.
	//
	// Default: 4
	InitialCapacity int
	// MaxCapacity is the ceiling for growth.
	// The last growth step stops at MaxCapacity instead of doubling past it.
	// Zero means the Queue may grow without a limit.
	MaxCapacity int
	// Release is called for each item the Queue still owns when it is closed.
	Release func(T)
}

func (c *Config[T]) Init() {
	c.InitialCapacity = InitialCapacity
}

func (c Config[T]) Configure(t *Config[T]) {
	if c.InitialCapacity != 0 {
		t.InitialCapacity = c.InitialCapacity
	}
	if c.MaxCapacity != 0 {
		t.MaxCapacity = c.MaxCapacity
	}
	if c.Release != nil {
		t.Release = c.Release
	}
}

type Option[T any] option.Option[Config[T]]

func WithInitialCapacity[T any](n int) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		if 0 < n {
			c.InitialCapacity = n
		}
	})
}

func WithMaxCapacity[T any](n int) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		c.MaxCapacity = n
	})
}

// WithRelease sets the hook that takes back ownership of items that were never shifted out.
func WithRelease[T any](fn func(T)) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		c.Release = fn
	})
}

// Stats is a snapshot of how often the Queue had to make room for a Push.
type Stats struct {
	Compactions int
	Growths     int
}

// Queue is a single consumer FIFO buffer which owns its items between Push and Shift.
// The zero value is an empty Queue with the default Config.
//
// Queue is not safe for concurrent use.
type Queue[T any] struct {
	Config Config[T]

	items  []T
	length int
	read   int
	closed bool
	init   bool
	stats  Stats
}

func NewQueue[T any](opts ...Option[T]) *Queue[T] {
	return &Queue[T]{
		Config: option.ToConfig[Config[T]](opts),
		init:   true,
	}
}

func (q *Queue[T]) config() Config[T] {
	if !q.init {
		var c Config[T]
		c.Init()
		q.Config.Configure(&c)
		q.Config = c
		q.init = true
	}
	return q.Config
}

// Push appends v to the end of the Queue and takes ownership of it.
// When Push returns an error, the Queue is left untouched and v still belongs to the caller.
func (q *Queue[T]) Push(v T) error {
	if q.closed {
		return ErrClosed
	}
	if q.items == nil {
		if err := q.alloc(); err != nil {
			return err
		}
	}
	if len(q.items) <= q.length+1 {
		if err := q.makeRoom(); err != nil {
			return err
		}
	}
	q.items[q.length] = v
	q.length++
	return nil
}

func (q *Queue[T]) alloc() error {
	c := q.config()
	size := c.InitialCapacity
	if size < 2 {
		// a single slot buffer could never hold an item under the length+1 rule
		size = 2
	}
	if 0 < c.MaxCapacity && c.MaxCapacity < size {
		size = c.MaxCapacity
	}
	if size < 2 {
		return ErrExhausted.F("a limit of %d slots can not hold any item", c.MaxCapacity)
	}
	q.items = make([]T, size)
	return nil
}

func (q *Queue[T]) makeRoom() error {
	if 0 < q.read {
		q.compact()
		return nil
	}
	return q.grow()
}

func (q *Queue[T]) compact() {
	n := copy(q.items, q.items[q.read:q.length])
	clear(q.items[n:q.length])
	q.length = n
	q.read = 0
	q.stats.Compactions++
}

func (q *Queue[T]) grow() error {
	size := len(q.items) * 2
	if limit := q.config().MaxCapacity; 0 < limit && limit < size {
		if limit <= len(q.items) {
			return ErrExhausted.F("the buffer already uses the limit of %d slots", limit)
		}
		size = limit
	}
	items := make([]T, size)
	copy(items, q.items[:q.length])
	q.items = items
	q.stats.Growths++
	return nil
}

// Shift removes the oldest item and hands its ownership over to the caller.
// It reports false when the Queue is empty.
func (q *Queue[T]) Shift() (T, bool) {
	var zero T
	if q.read == q.length {
		return zero, false
	}
	v := q.items[q.read]
	q.items[q.read] = zero
	q.read++
	return v, true
}

// Len returns the number of items currently owned by the Queue.
func (q *Queue[T]) Len() int {
	return q.length - q.read
}

// Cap returns the number of allocated slots.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

func (q *Queue[T]) IsEmpty() bool {
	return q.read == q.length
}

func (q *Queue[T]) Stats() Stats {
	return q.stats
}

// Iter walks the queued items in FIFO order without shifting them.
func (q *Queue[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := q.read; i < q.length; i++ {
			if !yield(q.items[i]) {
				return
			}
		}
	}
}

func (q *Queue[T]) ToSlice() []T {
	var vs []T
	for v := range q.Iter() {
		vs = append(vs, v)
	}
	return vs
}

// Close gives up ownership of the remaining items by passing each of them to Config.Release.
// Calling Close more than once has no further effect.
func (q *Queue[T]) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	if release := q.config().Release; release != nil {
		for i := q.read; i < q.length; i++ {
			release(q.items[i])
		}
	}
	q.items = nil
	q.length = 0
	q.read = 0
	return nil
}
