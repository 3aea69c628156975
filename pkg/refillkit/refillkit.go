// Package refillkit provides genkit.Source implementations for common producers.
//
// Each source pushes a bounded batch per refill call,
// so the generator's queue only ever holds about one batch of values.
package refillkit

import (
	"bufio"

	"github.com/pushpull/pushpull/pkg/genkit"
)

// DefaultBatchSize is used when a non positive batch size is given.
const DefaultBatchSize = 64

func batchSize(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	return n
}

// Lines pushes up to batch lines from the scanner on every refill.
// It marks the generator done when the scanner is exhausted.
func Lines(s *bufio.Scanner, batch int) genkit.Source[string] {
	return &linesSource{Scanner: s, Batch: batchSize(batch)}
}

type linesSource struct {
	Scanner *bufio.Scanner
	Batch   int

	// pending is a scanned line that the pusher has not accepted yet.
	pending *string
}

func (src *linesSource) Refill(p genkit.Pusher[string]) error {
	for i := 0; i < src.Batch; i++ {
		if src.pending == nil {
			if !src.Scanner.Scan() {
				if err := src.Scanner.Err(); err != nil {
					return err
				}
				p.Done()
				return nil
			}
			line := src.Scanner.Text()
			src.pending = &line
		}
		if err := p.Push(*src.pending); err != nil {
			return err
		}
		src.pending = nil
	}
	return nil
}

// PageFunc fetches the page that starts at the given offset.
// The more flag tells whether there are pages after this one.
type PageFunc[T any] func(offset int) (values []T, more bool, err error)

// Pages pushes one page per refill.
// An empty page or a false more flag marks the generator done.
func Pages[T any](fetch PageFunc[T]) genkit.Source[T] {
	return &pagesSource[T]{Fetch: fetch}
}

type pagesSource[T any] struct {
	Fetch  PageFunc[T]
	offset int
}

func (src *pagesSource[T]) Refill(p genkit.Pusher[T]) error {
	vs, more, err := src.Fetch(src.offset)
	if err != nil {
		return err
	}
	for _, v := range vs {
		if err := p.Push(v); err != nil {
			return err
		}
		src.offset++
	}
	if !more || len(vs) == 0 {
		p.Done()
	}
	return nil
}
