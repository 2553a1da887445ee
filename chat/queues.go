package chat

import (
	"github.com/ezrec/altairnet/queue"
)

// Queues bundles the three single-producer single-consumer channels between
// the command unit and the network engine. The adapter produces Requests
// and Chunks; the engine produces Responses.
type Queues struct {
	Requests  *queue.Queue[Request]
	Chunks    *queue.Queue[BodyChunk]
	Responses *queue.Queue[Response]
}

// NewQueues creates the queue set at the fixed protocol depths.
func NewQueues() *Queues {
	return &Queues{
		Requests:  queue.New[Request](RequestQueueDepth),
		Chunks:    queue.New[BodyChunk](ChunkQueueDepth),
		Responses: queue.New[Response](ResponseQueueDepth),
	}
}

// DrainAll discards every queued message so no state bleeds across
// requests.
func (q *Queues) DrainAll() {
	q.Requests.Drain()
	q.Chunks.Drain()
	q.Responses.Drain()
}
