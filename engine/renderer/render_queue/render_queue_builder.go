package render_queue

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
)

// RenderQueueBuilderOption is a functional option used to configure a RenderQueue during construction.
type RenderQueueBuilderOption func(*renderQueue)

// WithWorkerThreads sets how many threads may call AddRenderable concurrently.
//
// Parameters:
//   - n: the number of fill threads
//
// Returns:
//   - RenderQueueBuilderOption: a function that sets the thread count
func WithWorkerThreads(n int) RenderQueueBuilderOption {
	return func(q *renderQueue) {
		q.numThreads = n
	}
}

// WithMaterialSystem registers the system rendering datablocks of type t.
//
// Parameters:
//   - t: the datablock type
//   - ms: the material system
//
// Returns:
//   - RenderQueueBuilderOption: a function that registers the system
func WithMaterialSystem(t material.Type, ms MaterialSystem) RenderQueueBuilderOption {
	return func(q *renderQueue) {
		q.SetMaterialSystem(t, ms)
	}
}

// WithQueueMode sets the mode of one queue id.
//
// Parameters:
//   - id: the queue id
//   - mode: the queue mode
//
// Returns:
//   - RenderQueueBuilderOption: a function that sets the mode
func WithQueueMode(id uint8, mode QueueMode) RenderQueueBuilderOption {
	return func(q *renderQueue) {
		q.buckets[id].mode = mode
	}
}

// WithSortMode sets the sort mode of one queue id.
//
// Parameters:
//   - id: the queue id
//   - mode: the sort mode
//
// Returns:
//   - RenderQueueBuilderOption: a function that sets the sort mode
func WithSortMode(id uint8, mode SortMode) RenderQueueBuilderOption {
	return func(q *renderQueue) {
		q.buckets[id].sortMode = mode
	}
}

// WithCommandCapacity sets the initial capacity of the command buffer.
//
// Parameters:
//   - n: number of commands to reserve
//
// Returns:
//   - RenderQueueBuilderOption: a function that sets the capacity
func WithCommandCapacity(n int) RenderQueueBuilderOption {
	return func(q *renderQueue) {
		q.commandCapacity = n
	}
}
