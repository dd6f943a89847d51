// Package ringbuffer provides a fixed-capacity circular buffer with O(1)
// append and O(1) reads by logical index.
package ringbuffer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// RingBuffer stores the most recent Cap() values appended to it. Logical
// index 0 is the oldest retained value.
//
// RingBuffer is not safe for concurrent use.
type RingBuffer[T any] struct {
	data   []T
	start  int
	length int
}

// New allocates a buffer holding up to capacity values.
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidArgument, capacity)
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
	}, nil
}

// Len returns the number of valid entries.
func (r *RingBuffer[T]) Len() int {
	return r.length
}

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// Get returns the value at logical index.
func (r *RingBuffer[T]) Get(index int) (T, error) {
	if index < 0 || index >= r.length {
		var zero T
		return zero, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, index, r.length)
	}
	return r.data[r.physical(index)], nil
}

// Append adds value at the end, evicting the oldest entry when full.
func (r *RingBuffer[T]) Append(value T) {
	switch {
	case r.length < len(r.data):
		r.length++
	case r.length == len(r.data):
		// Full: drop logical index 0. The slot it occupied becomes the new tail.
		r.start = (r.start + 1) % len(r.data)
	default:
		panic(fmt.Sprintf("ringbuffer: length %d exceeds capacity %d", r.length, len(r.data)))
	}
	r.data[r.physical(r.length-1)] = value
}

func (r *RingBuffer[T]) physical(index int) int {
	return (r.start + index) % len(r.data)
}
