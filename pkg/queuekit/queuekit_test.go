package queuekit_test

import (
	"testing"

	"github.com/pushpull/pushpull/pkg/queuekit"
	"go.llib.dev/testcase"
	"go.llib.dev/testcase/assert"
	"go.llib.dev/testcase/let"
	"go.llib.dev/testcase/random"
)

func ExampleQueue() {
	var q queuekit.Queue[string]
	_ = q.Push("foo")
	_ = q.Push("bar")

	v, ok := q.Shift()
	_, _ = v, ok // "foo", true
}

func TestQueue(t *testing.T) {
	s := testcase.NewSpec(t)

	opts := testcase.LetValue[[]queuekit.Option[int]](s, nil)
	q := let.Var(s, func(t *testcase.T) *queuekit.Queue[int] {
		q := queuekit.NewQueue(opts.Get(t)...)
		t.Defer(q.Close)
		return q
	})

	pushN := func(t *testcase.T, from, n int) {
		t.Helper()
		for i := from; i < from+n; i++ {
			assert.NoError(t, q.Get(t).Push(i))
		}
	}

	shiftN := func(t *testcase.T, n int) []int {
		t.Helper()
		var vs []int
		for i := 0; i < n; i++ {
			v, ok := q.Get(t).Shift()
			assert.True(t, ok)
			vs = append(vs, v)
		}
		return vs
	}

	s.Test("smoke", func(t *testcase.T) {
		assert.True(t, q.Get(t).IsEmpty())
		assert.NoError(t, q.Get(t).Push(1))
		assert.NoError(t, q.Get(t).Push(2))
		assert.Equal(t, 2, q.Get(t).Len())
		assert.Equal(t, []int{1, 2}, q.Get(t).ToSlice())

		v, ok := q.Get(t).Shift()
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		v, ok = q.Get(t).Shift()
		assert.True(t, ok)
		assert.Equal(t, 2, v)

		_, ok = q.Get(t).Shift()
		assert.False(t, ok)
		assert.True(t, q.Get(t).IsEmpty())
	})

	s.Test("zero value is usable with the default initial capacity", func(t *testcase.T) {
		var q queuekit.Queue[int]
		assert.NoError(t, q.Push(42))
		assert.Equal(t, queuekit.InitialCapacity, q.Cap())
		v, ok := q.Shift()
		assert.True(t, ok)
		assert.Equal(t, 42, v)
	})

	s.Test("items are delivered in FIFO order when pushes and shifts interleave", func(t *testcase.T) {
		var (
			exp  []int
			got  []int
			next int
		)
		t.Random.Repeat(32, 128, func() {
			if t.Random.Bool() || q.Get(t).IsEmpty() {
				assert.NoError(t, q.Get(t).Push(next))
				exp = append(exp, next)
				next++
				return
			}
			v, ok := q.Get(t).Shift()
			assert.True(t, ok)
			got = append(got, v)
		})
		for {
			v, ok := q.Get(t).Shift()
			if !ok {
				break
			}
			got = append(got, v)
		}
		assert.Equal(t, exp, got)
	})

	s.Describe("growth", func(s *testcase.Spec) {
		s.Test("pushing past the capacity without shifting keeps every item in order", func(t *testcase.T) {
			n := queuekit.InitialCapacity*t.Random.IntBetween(2, 8) + 1
			pushN(t, 0, n)

			assert.Equal(t, n, q.Get(t).Len())
			assert.True(t, n < q.Get(t).Cap())
			assert.Equal(t, 0, q.Get(t).Stats().Compactions)
			assert.True(t, 0 < q.Get(t).Stats().Growths)

			var exp []int
			for i := 0; i < n; i++ {
				exp = append(exp, i)
			}
			assert.Equal(t, exp, shiftN(t, n))
		})

		s.Test("capacity doubles when there is no consumed prefix", func(t *testcase.T) {
			pushN(t, 0, queuekit.InitialCapacity-1)
			assert.Equal(t, queuekit.InitialCapacity, q.Get(t).Cap())

			pushN(t, queuekit.InitialCapacity-1, 1)
			assert.Equal(t, queuekit.InitialCapacity*2, q.Get(t).Cap())
			assert.Equal(t, queuekit.Stats{Growths: 1}, q.Get(t).Stats())
		})
	})

	s.Describe("compaction", func(s *testcase.Spec) {
		s.Test("after draining, new pushes reuse the existing capacity", func(t *testcase.T) {
			pushN(t, 0, queuekit.InitialCapacity-1)
			shiftN(t, queuekit.InitialCapacity-1)

			pushN(t, 100, queuekit.InitialCapacity-1)
			assert.Equal(t, queuekit.InitialCapacity, q.Get(t).Cap())
			assert.Equal(t, 0, q.Get(t).Stats().Growths)
			assert.Equal(t, 1, q.Get(t).Stats().Compactions)
			assert.Equal(t, []int{100, 101, 102}, shiftN(t, queuekit.InitialCapacity-1))
		})

		s.Test("a consumed prefix is reclaimed before reallocation", func(t *testcase.T) {
			pushN(t, 0, 3)
			assert.Equal(t, []int{0}, shiftN(t, 1))

			pushN(t, 3, 1)
			assert.Equal(t, queuekit.InitialCapacity, q.Get(t).Cap())
			assert.Equal(t, queuekit.Stats{Compactions: 1}, q.Get(t).Stats())
			assert.Equal(t, []int{1, 2, 3}, q.Get(t).ToSlice())
		})

		s.Test("long running streams stay proportional to the peak queue length", func(t *testcase.T) {
			for i := 0; i < 1024; i++ {
				pushN(t, i*2, 2)
				shiftN(t, 2)
			}
			assert.Equal(t, queuekit.InitialCapacity, q.Get(t).Cap())
		})
	})

	s.When("the capacity has a limit", func(s *testcase.Spec) {
		opts.Let(s, func(t *testcase.T) []queuekit.Option[int] {
			return []queuekit.Option[int]{queuekit.WithMaxCapacity[int](queuekit.InitialCapacity)}
		})

		s.Then("push fails without touching the queue once growth would exceed it", func(t *testcase.T) {
			pushN(t, 0, queuekit.InitialCapacity-1)

			err := q.Get(t).Push(42)
			assert.ErrorIs(t, err, queuekit.ErrExhausted)
			assert.Equal(t, queuekit.InitialCapacity-1, q.Get(t).Len())
			assert.Equal(t, queuekit.InitialCapacity, q.Get(t).Cap())
			assert.Equal(t, []int{0, 1, 2}, q.Get(t).ToSlice())
		})

		s.Then("compaction can still make room", func(t *testcase.T) {
			pushN(t, 0, queuekit.InitialCapacity-1)
			shiftN(t, 1)
			assert.NoError(t, q.Get(t).Push(42))
			assert.Equal(t, []int{1, 2, 42}, q.Get(t).ToSlice())
		})
	})

	s.When("the limit is not a doubling of the initial capacity", func(s *testcase.Spec) {
		opts.Let(s, func(t *testcase.T) []queuekit.Option[int] {
			return []queuekit.Option[int]{queuekit.WithMaxCapacity[int](queuekit.InitialCapacity + 2)}
		})

		s.Then("the last growth stops at the limit", func(t *testcase.T) {
			pushN(t, 0, queuekit.InitialCapacity+1)
			assert.Equal(t, queuekit.InitialCapacity+2, q.Get(t).Cap())
			assert.Equal(t, queuekit.Stats{Growths: 1}, q.Get(t).Stats())

			assert.ErrorIs(t, q.Get(t).Push(42), queuekit.ErrExhausted)
			assert.Equal(t, queuekit.InitialCapacity+1, q.Get(t).Len())
			assert.Equal(t, queuekit.InitialCapacity+2, q.Get(t).Cap())
		})
	})

	s.When("an initial capacity is configured", func(s *testcase.Spec) {
		initCap := let.IntB(s, 2, 16)
		opts.Let(s, func(t *testcase.T) []queuekit.Option[int] {
			return []queuekit.Option[int]{queuekit.WithInitialCapacity[int](initCap.Get(t))}
		})

		s.Then("the first allocation uses it", func(t *testcase.T) {
			assert.NoError(t, q.Get(t).Push(1))
			assert.Equal(t, initCap.Get(t), q.Get(t).Cap())
		})
	})

	s.Describe("Close", func(s *testcase.Spec) {
		released := testcase.LetValue[[]int](s, nil)
		opts.Let(s, func(t *testcase.T) []queuekit.Option[int] {
			return []queuekit.Option[int]{queuekit.WithRelease(func(v int) {
				testcase.Append(t, released, v)
			})}
		})

		s.Test("the items still owned by the queue are released in order", func(t *testcase.T) {
			pushN(t, 0, 5)
			shiftN(t, 2)

			assert.NoError(t, q.Get(t).Close())
			assert.Equal(t, []int{2, 3, 4}, released.Get(t))
			assert.Equal(t, 0, q.Get(t).Len())
		})

		s.Test("closing twice releases nothing the second time", func(t *testcase.T) {
			pushN(t, 0, 2)
			assert.NoError(t, q.Get(t).Close())
			assert.NoError(t, q.Get(t).Close())
			assert.Equal(t, []int{0, 1}, released.Get(t))
		})

		s.Test("push after close is rejected", func(t *testcase.T) {
			assert.NoError(t, q.Get(t).Close())
			assert.ErrorIs(t, q.Get(t).Push(1), queuekit.ErrClosed)
		})
	})
}

func TestQueue_drainedPrefixIsReclaimedForPointerItems(t *testing.T) {
	rnd := random.New(random.CryptoSeed{})
	q := queuekit.NewQueue[*string]()

	for i := 0; i < queuekit.InitialCapacity-1; i++ {
		v := rnd.String()
		assert.NoError(t, q.Push(&v))
	}
	for i := 0; i < queuekit.InitialCapacity-1; i++ {
		_, ok := q.Shift()
		assert.True(t, ok)
	}

	v := rnd.String()
	assert.NoError(t, q.Push(&v))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, []*string{&v}, q.ToSlice())
}
