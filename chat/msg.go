// Package chat implements the command-unit side of the streaming chat
// device: the port protocol adapter the emulated processor talks to, the
// token extractor that turns streamed payloads into text, and the typed
// messages exchanged with the network engine.
package chat

const (
	// ChunkSize is the capacity of one outbound body chunk.
	ChunkSize = 256
	// ResponseSize is the capacity of one inbound response payload.
	ResponseSize = 512
	// MaxContentLength is the largest accepted declared body length.
	MaxContentLength = 32768

	// RequestQueueDepth is the capacity of the request start queue.
	RequestQueueDepth = 2
	// ChunkQueueDepth is the capacity of the body chunk queue.
	ChunkQueueDepth = 2
	// ResponseQueueDepth is the capacity of the response queue.
	ResponseQueueDepth = 8
)

// Status is the device status reported on the status port and carried by
// response messages. The numeric values are part of the port protocol.
type Status uint8

const (
	// StatusEOF reports a completed stream.
	StatusEOF Status = 0
	// StatusWaiting reports that no response text is staged yet.
	StatusWaiting Status = 1
	// StatusDataReady reports staged response text.
	StatusDataReady Status = 2
	// StatusFailed reports a failed request.
	StatusFailed Status = 3
	// StatusBusy reports a full body chunk queue; the emulated program
	// must pause its upload loop until the engine catches up.
	StatusBusy Status = 4
)

var statusNames = map[Status]string{
	StatusEOF:       "EOF",
	StatusWaiting:   "WAITING",
	StatusDataReady: "DATA_READY",
	StatusFailed:    "FAILED",
	StatusBusy:      "BUSY",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "UNKNOWN"
	}
	return name
}

// Terminal reports whether the status ends a request.
func (s Status) Terminal() bool {
	return s == StatusEOF || s == StatusFailed
}

// Request starts one network exchange. Exactly one is enqueued per logical
// request; a second is never enqueued before the first is consumed.
type Request struct {
	ContentLength int  // Declared body length, <= MaxContentLength.
	Abort         bool // If set, the network phase never starts.
}

// ChunkKind tags a body chunk message.
type ChunkKind uint8

const (
	// ChunkData carries body bytes.
	ChunkData ChunkKind = iota
	// ChunkEnd marks the end of the body. Always follows the last
	// ChunkData of a request, exactly once.
	ChunkEnd
)

// BodyChunk carries up to ChunkSize request body bytes from the adapter to
// the engine, in order.
type BodyChunk struct {
	Kind ChunkKind
	Data []byte
}

// Response carries one streamed payload (or a terminal status) from the
// engine to the adapter. Exactly one terminal response is produced per
// request, always last.
type Response struct {
	Status Status
	Data   []byte
}
