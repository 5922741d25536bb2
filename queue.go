// queue.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package ardrone

import (
	"container/heap"
	"sync"
)

type commandHeap []Command

func (h commandHeap) Len() int           { return len(h) }
func (h commandHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h commandHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *commandHeap) Push(x any)        { *h = append(*h, x.(Command)) }
func (h *commandHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = Command{}
	*h = old[:n-1]
	return c
}

// commandQueue is a priority queue with many producers and a single consumer.
type commandQueue struct {
	mu      sync.Mutex
	items   commandHeap
	nextSeq uint64
	wake    chan struct{} // holds at most one pending wake-up for the consumer
}

func newCommandQueue() *commandQueue {
	return &commandQueue{wake: make(chan struct{}, 1)}
}

// push stamps c with the next sequence number and queues it. It never blocks.
func (q *commandQueue) push(c Command) Command {
	q.mu.Lock()
	q.nextSeq++
	c.sequence = q.nextSeq
	heap.Push(&q.items, c)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return c
}

// pop blocks until a command is available and removes the first in dispatch order.
func (q *commandQueue) pop() Command {
	for {
		if c, ok := q.tryPop(); ok {
			return c
		}
		<-q.wake
	}
}

func (q *commandQueue) tryPop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Command{}, false
	}
	return heap.Pop(&q.items).(Command), true
}

func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
