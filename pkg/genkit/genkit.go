// Package genkit turns push based production into a pull based iterator.
//
// A Generator owns a queue that producers can Push into at any time.
// Consumers pull values one by one,
// and whenever the queue runs dry before the producer declared itself Done,
// the Generator synchronously calls the refill function,
// which is expected to Push more values or to call Done.
//
// # Contract
//
// The refill function runs on the consumer's call stack.
// It may push zero, one or many values per call.
// A refill that returns without pushing and without calling Done is simply called again,
// so it is the refill function's responsibility to make progress.
//
// Generator is single threaded. It does not lock, and it never starts goroutines.
package genkit

import (
	"context"

	uuid "github.com/satori/go.uuid"
	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/iterkit"
	"go.llib.dev/frameless/pkg/logger"
	"go.llib.dev/frameless/pkg/logging"
	"go.llib.dev/frameless/port/option"

	"github.com/pushpull/pushpull/pkg/queuekit"
)

const (
	// ErrRefill wraps the error returned by a failed refill function.
	ErrRefill errorkit.Error = "genkit: refill failed"
	// ErrClosed is returned when a closed Generator is used.
	ErrClosed errorkit.Error = "genkit: generator is closed"
)

// RefillFunc is called by the Generator when its queue is empty and production is not done yet.
type RefillFunc func() error

// Pusher is the producer side of a Generator.
type Pusher[T any] interface {
	// Push hands over the ownership of v to the consumer side.
	Push(v T) error
	// Done tells that no further values will be produced through the refill path.
	Done()
}

// Source is a producer that knows how to refill a Pusher.
type Source[T any] interface {
	Refill(p Pusher[T]) error
}

type Generator[T any] struct {
	refill RefillFunc
	queue  *queuekit.Queue[T]
	done   bool
	closed bool

	logger  *logging.Logger
	name    string
	refills int

	value T
	err   error
}

var (
	_ Pusher[any]           = (*Generator[any])(nil)
	_ iterkit.PullIter[any] = (*Generator[any])(nil)
)

// New creates a Generator that calls refill whenever a consumer asks for a value from an empty queue.
func New[T any](refill RefillFunc, opts ...Option[T]) *Generator[T] {
	if refill == nil {
		panic("genkit: nil RefillFunc")
	}
	c := option.ToConfig[Config[T]](opts)
	return &Generator[T]{
		refill: refill,
		queue:  queuekit.NewQueue[T](c.Queue...),
		logger: c.Logger,
		name:   c.Name,
	}
}

// FromSource creates a Generator which is refilled by src.
func FromSource[T any](src Source[T], opts ...Option[T]) *Generator[T] {
	if src == nil {
		panic("genkit: nil Source")
	}
	var g *Generator[T]
	g = New(func() error { return src.Refill(g) }, opts...)
	return g
}

// Push enqueues v. It is safe to call from within the refill function.
// Values pushed after Done are still delivered before the end of the sequence.
func (g *Generator[T]) Push(v T) error {
	if g.closed {
		return ErrClosed
	}
	return g.queue.Push(v)
}

// Done marks the production as finished.
// Values already in the queue are still delivered.
func (g *Generator[T]) Done() {
	g.done = true
}

func (g *Generator[T]) IsDone() bool {
	return g.done
}

// Name identifies the Generator in its log entries.
// Without WithName, a random UUID is assigned on first use.
func (g *Generator[T]) Name() string {
	if g.name == "" {
		g.name = uuid.NewV4().String()
	}
	return g.name
}

// Len returns the number of values waiting in the queue.
func (g *Generator[T]) Len() int {
	return g.queue.Len()
}

// Pull returns the next value.
// When the queue is empty and the production is done, it reports the end of the sequence with ok as false.
// A failing refill function is not retried, its error is returned wrapped in ErrRefill.
func (g *Generator[T]) Pull() (_ T, ok bool, _ error) {
	var zero T
	if g.closed {
		return zero, false, ErrClosed
	}
	for g.queue.IsEmpty() {
		if g.done {
			g.debug("generator reached end of sequence")
			return zero, false, nil
		}
		g.refills++
		g.debug("refill callback invoked")
		if err := g.refill(); err != nil {
			g.log().Warn(context.Background(), "refill callback failed",
				logging.Field("generator", g.Name()),
				logging.Field("refills", g.refills),
				logging.ErrField(err))
			return zero, false, ErrRefill.Wrap(err)
		}
		if g.closed {
			// the refill function closed the generator
			return zero, false, ErrClosed
		}
	}
	v, _ := g.queue.Shift()
	return v, true, nil
}

// Next implements iterkit.PullIter.
// It returns false at the end of the sequence and on failure, in which case Err tells the cause.
// Unlike most PullIter implementations, the end of the sequence is not final:
// a value pushed after Next returned false makes the following Next call return true.
func (g *Generator[T]) Next() bool {
	if g.err != nil {
		return false
	}
	v, ok, err := g.Pull()
	if err != nil {
		g.err = err
		return false
	}
	if !ok {
		var zero T
		g.value = zero
		return false
	}
	g.value = v
	return true
}

// Value returns the value that the last successful Next call moved to.
func (g *Generator[T]) Value() T {
	return g.value
}

func (g *Generator[T]) Err() error {
	return g.err
}

// Close releases the values that are still queued, and drops the refill function.
func (g *Generator[T]) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.debug("generator closed")
	g.refill = nil
	return g.queue.Close()
}

// Iter returns the Generator as a single-use iterator sequence.
// The Generator is closed when the iteration finishes or breaks.
func (g *Generator[T]) Iter() iterkit.SingleUseSeqE[T] {
	return iterkit.FromPullIter[T](g)
}

type logFunc func(ctx context.Context, msg string, ds ...logging.Detail)

type logHandle struct {
	Debug logFunc
	Warn  logFunc
}

func (g *Generator[T]) log() logHandle {
	if g.logger != nil {
		return logHandle{Debug: g.logger.Debug, Warn: g.logger.Warn}
	}
	return logHandle{Debug: logger.Debug, Warn: logger.Warn}
}

func (g *Generator[T]) debug(msg string) {
	g.log().Debug(context.Background(), msg,
		logging.Field("generator", g.Name()),
		logging.Field("queued", g.queue.Len()),
		logging.Field("refills", g.refills))
}
