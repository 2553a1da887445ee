package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_Order(t *testing.T) {
	assert := assert.New(t)

	q := New[int](8)
	for n := range 5 {
		assert.True(q.TryAdd(n))
	}
	assert.Equal(5, q.Len())

	for n := range 5 {
		item, ok := q.TryRemove()
		assert.True(ok)
		assert.Equal(n, item)
	}

	_, ok := q.TryRemove()
	assert.False(ok)
}

func TestQueue_Full(t *testing.T) {
	assert := assert.New(t)

	q := New[string](2)
	assert.True(q.TryAdd("a"))
	assert.True(q.TryAdd("b"))
	assert.True(q.Full())
	assert.False(q.TryAdd("c"))
	assert.Equal(0, q.Free())

	item, ok := q.TryRemove()
	assert.True(ok)
	assert.Equal("a", item)
	assert.False(q.Full())
	assert.Equal(1, q.Free())

	// "c" was dropped, not queued behind the full mark.
	assert.True(q.TryAdd("d"))
	item, _ = q.TryRemove()
	assert.Equal("b", item)
	item, _ = q.TryRemove()
	assert.Equal("d", item)
}

func TestQueue_Drain(t *testing.T) {
	assert := assert.New(t)

	q := New[int](4)
	q.TryAdd(1)
	q.TryAdd(2)
	q.TryAdd(3)

	assert.Equal(3, q.Drain())
	assert.Equal(0, q.Len())
	assert.Equal(0, q.Drain())

	assert.True(q.TryAdd(9))
	item, ok := q.TryRemove()
	assert.True(ok)
	assert.Equal(9, item)
}

func TestQueue_SingleProducerSingleConsumer(t *testing.T) {
	assert := assert.New(t)

	const total = 10000
	q := New[int](8)

	done := make(chan []int)
	go func() {
		var got []int
		for len(got) < total {
			if item, ok := q.TryRemove(); ok {
				got = append(got, item)
			}
		}
		done <- got
	}()

	for n := 0; n < total; {
		if q.TryAdd(n) {
			n++
		}
	}

	got := <-done
	for n := range total {
		assert.Equal(n, got[n])
	}
}
