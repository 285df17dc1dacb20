// Package batch buffers mapped rows and writes them in bounded bulk statements.
package batch

import (
	"context"
	"errors"
)

// ErrWriterClosed is returned by Add after Close.
var ErrWriterClosed = errors.New("batch writer is closed")

// FlushFunc writes one batch and returns the number of rows affected.
type FlushFunc[T any] func(ctx context.Context, rows []T) (int64, error)

// KeyFunc returns the natural key of a row.
type KeyFunc[T any] func(row T) int64

// Writer collects rows until the batch is full and hands them to the flush
// function. A row whose key is already buffered replaces the earlier one, so
// one statement never touches the same key twice.
type Writer[T any] struct {
	size    int
	flush   FlushFunc[T]
	key     KeyFunc[T]
	buf     []T
	index   map[int64]int
	written int64
	batches int
	closed  bool
}

// NewWriter creates a Writer flushing every size rows.
func NewWriter[T any](size int, key KeyFunc[T], flush FlushFunc[T]) *Writer[T] {
	if size <= 0 {
		size = 1000
	}
	return &Writer[T]{
		size:  size,
		flush: flush,
		key:   key,
		buf:   make([]T, 0, size),
		index: make(map[int64]int, size),
	}
}

// Add buffers row and flushes when the buffer reaches its size.
func (w *Writer[T]) Add(ctx context.Context, row T) error {
	if w.closed {
		return ErrWriterClosed
	}

	k := w.key(row)
	if i, ok := w.index[k]; ok {
		w.buf[i] = row
		return nil
	}
	w.index[k] = len(w.buf)
	w.buf = append(w.buf, row)

	if len(w.buf) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered rows, if any.
func (w *Writer[T]) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	n, err := w.flush(ctx, w.buf)
	if err != nil {
		return err
	}
	w.written += n
	w.batches++
	w.buf = w.buf[:0]
	clear(w.index)
	return nil
}

// Close flushes the remainder. Further calls to Add fail.
func (w *Writer[T]) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.Flush(ctx)
}

// Pending returns the number of buffered rows.
func (w *Writer[T]) Pending() int {
	return len(w.buf)
}

// Written returns the rows reported as affected by all flushes.
func (w *Writer[T]) Written() int64 {
	return w.written
}

// Batches returns the number of successful flushes.
func (w *Writer[T]) Batches() int {
	return w.batches
}
