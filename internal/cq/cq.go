// Package cq implements a simple unbounded concurrent queue that hands
// out everything queued so far in a single batch.
package cq

import "sync"

// Flush runs each function in queue in order and collects the errors
// that they return.
func Flush(queue []func() error) (errs []error) {
	for _, ev := range queue {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

type Queue[T any] struct {
	done  chan struct{}
	close sync.Once

	add chan T
	get chan []T
}

func New[T any]() *Queue[T] {
	q := Queue[T]{
		done: make(chan struct{}),
		add:  make(chan T),
		get:  make(chan []T),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that have not yet been retrieved are
// dropped.
func (q *Queue[T]) Stop() {
	q.close.Do(func() {
		close(q.done)
	})
}

// Done is closed when the queue is stopped.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

// Add returns a channel that accepts new values for the queue.
func (q *Queue[T]) Add() chan<- T {
	return q.add
}

// Push adds v to the queue, returning false if the queue was stopped
// first.
func (q *Queue[T]) Push(v T) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	select {
	case <-q.done:
		return false
	case q.add <- v:
		return true
	}
}

// Get returns a channel that yields everything queued since the last
// receive. It never yields an empty batch.
func (q *Queue[T]) Get() <-chan []T {
	return q.get
}

func (q *Queue[T]) run() {
	var s []T
	var get chan []T

	for {
		select {
		case <-q.done:
			return

		case v := <-q.add:
			s = append(s, v)
			get = q.get

		case get <- s:
			s = nil
			get = nil
		}
	}
}
