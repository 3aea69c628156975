package genkit

import (
	"go.llib.dev/frameless/pkg/logging"
	"go.llib.dev/frameless/port/option"

	"github.com/pushpull/pushpull/pkg/queuekit"
)

type Config[T any] struct {
	// Queue holds the options of the underlying queuekit.Queue.
	Queue []queuekit.Option[T]
	// Logger is used for the Generator's debug logging.
	// When nil, the package level logger is used.
	Logger *logging.Logger
	// Name identifies the Generator in the log entries.
	// By default a random UUID is used.
	Name string
}

func (c Config[T]) Configure(t *Config[T]) {
	t.Queue = append(t.Queue, c.Queue...)
	if c.Logger != nil {
		t.Logger = c.Logger
	}
	if c.Name != "" {
		t.Name = c.Name
	}
}

type Option[T any] option.Option[Config[T]]

func WithQueueOptions[T any](opts ...queuekit.Option[T]) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		c.Queue = append(c.Queue, opts...)
	})
}

// WithRelease sets the function that takes back the values
// which were still queued when the Generator got closed.
func WithRelease[T any](fn func(T)) Option[T] {
	return WithQueueOptions[T](queuekit.WithRelease[T](fn))
}

// WithMaxCapacity limits how far the queue may grow.
// Pushing beyond the limit fails with queuekit.ErrExhausted.
func WithMaxCapacity[T any](n int) Option[T] {
	return WithQueueOptions[T](queuekit.WithMaxCapacity[T](n))
}

func WithLogger[T any](l *logging.Logger) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		c.Logger = l
	})
}

func WithName[T any](name string) Option[T] {
	return option.Func[Config[T]](func(c *Config[T]) {
		c.Name = name
	})
}
