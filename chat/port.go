// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package chat

import (
	"bytes"
	"log"
)

// Adapter translates the emulated processor's port-write/port-read sequence
// into queue traffic and back. Every handler returns immediately; the
// adapter never blocks inside the instruction loop.
type Adapter struct {
	Verbose bool

	queues *Queues

	// Outbound request state.
	chunk         []byte
	contentLength int
	lengthLow     uint8
	lengthReady   bool

	requestPending bool
	bodyComplete   bool

	// Inbound response state.
	response []byte
	position int
	complete bool
	status   Status
}

// NewAdapter creates an adapter producing into and consuming from queues.
func NewAdapter(queues *Queues) *Adapter {
	return &Adapter{
		queues: queues,
		chunk:  make([]byte, 0, ChunkSize),
		status: StatusEOF,
	}
}

// ResetRequest clears all request state for a fresh request and drains
// every queue so nothing bleeds across requests.
func (a *Adapter) ResetRequest() {
	a.chunk = a.chunk[:0]
	a.contentLength = 0
	a.lengthLow = 0
	a.lengthReady = false
	a.requestPending = false
	a.bodyComplete = false
	a.response = nil
	a.position = 0
	a.complete = false
	a.status = StatusWaiting

	a.queues.DrainAll()
}

// AppendBodyByte streams one body byte toward the engine. Non-zero bytes
// accumulate into the current chunk, which is enqueued as soon as it fills;
// the zero sentinel flushes any partial chunk and enqueues the end marker.
// The full body is never buffered at once.
//
// The adapter must not block, so a full chunk queue here is fatal for the
// request: the emulated program is expected to throttle on StatusBusy
// before ever reaching this condition.
func (a *Adapter) AppendBodyByte(data uint8) {
	if data != 0 {
		a.chunk = append(a.chunk, data)
		if len(a.chunk) >= ChunkSize {
			a.flushChunk()
		}
		return
	}

	if len(a.chunk) > 0 {
		if !a.flushChunk() {
			return
		}
	}

	if !a.queues.Chunks.TryAdd(BodyChunk{Kind: ChunkEnd}) {
		log.Printf("chat: chunk queue full, end marker dropped")
		a.status = StatusFailed
		return
	}

	a.bodyComplete = true
}

func (a *Adapter) flushChunk() (ok bool) {
	chunk := BodyChunk{Kind: ChunkData, Data: bytes.Clone(a.chunk)}
	if !a.queues.Chunks.TryAdd(chunk) {
		log.Printf("chat: chunk queue full, %v body bytes dropped", len(a.chunk))
		a.status = StatusFailed
		return
	}

	a.chunk = a.chunk[:0]
	ok = true

	return
}

// ResetResponse clears the inbound read state and drains any queued
// responses.
func (a *Adapter) ResetResponse() {
	a.response = nil
	a.position = 0
	a.complete = false
	a.status = StatusWaiting

	a.queues.Responses.Drain()
}

// SetLengthLow stages the low byte of the declared content length.
func (a *Adapter) SetLengthLow(data uint8) {
	a.lengthLow = data
}

// SetLengthHigh assembles the declared content length from the staged low
// byte and data. A length above MaxContentLength is rejected outright
// rather than truncated, and never reaches the network.
func (a *Adapter) SetLengthHigh(data uint8) {
	length := int(a.lengthLow) | int(data)<<8
	if length > MaxContentLength {
		log.Printf("chat: content length %v exceeds maximum %v, rejected", length, MaxContentLength)
		a.contentLength = 0
		a.lengthReady = false
		return
	}

	a.contentLength = length
	a.lengthReady = true
}

// Trigger enqueues the request start message if a valid content length has
// been declared. Returns whether the request was accepted; the emulated
// program uses the result to detect a full request queue.
func (a *Adapter) Trigger() (ok bool) {
	if !a.lengthReady || a.contentLength == 0 {
		return
	}

	request := Request{ContentLength: a.contentLength}
	if !a.queues.Requests.TryAdd(request) {
		log.Printf("chat: request queue full, trigger ignored")
		return
	}

	a.requestPending = true
	a.status = StatusWaiting
	ok = true

	return
}

// PollStatus reports the device status. A full chunk queue is reported as
// StatusBusy immediately, without touching the response queue; this is how
// the engine's backpressure reaches the emulated program's upload loop.
// Otherwise the adapter refills its staging buffer from the response queue
// as needed.
func (a *Adapter) PollStatus() Status {
	if a.queues.Chunks.Full() {
		return StatusBusy
	}

	if a.position >= len(a.response) {
		a.refill()
	}

	switch {
	case a.position < len(a.response):
		return StatusDataReady
	case a.complete:
		return a.status
	default:
		return StatusWaiting
	}
}

// ReadByte returns the next staged text byte, or 0 if none is staged.
// When the staged text runs out the adapter immediately tries to refill
// from the response queue, preserving PollStatus semantics.
func (a *Adapter) ReadByte() (data uint8) {
	if a.position >= len(a.response) {
		return
	}

	data = a.response[a.position]
	a.position++

	if a.position >= len(a.response) {
		a.refill()
	}

	return
}

// IsComplete reports whether a terminal status has been recorded.
func (a *Adapter) IsComplete() bool {
	return a.complete
}

// refill dequeues at most one response message and runs it through the
// token extractor. Terminal statuses are recorded directly; payloads with
// no assistant text leave the adapter waiting without advancing completion.
func (a *Adapter) refill() {
	a.response = nil
	a.position = 0

	response, ok := a.queues.Responses.TryRemove()
	if !ok {
		if a.status == StatusDataReady && !a.complete {
			a.status = StatusWaiting
		}
		return
	}

	if response.Status.Terminal() {
		a.complete = true
		a.status = response.Status
		return
	}

	if response.Status != StatusDataReady || len(response.Data) == 0 {
		a.status = StatusWaiting
		return
	}

	text, done := ExtractToken(response.Data)
	if done {
		a.complete = true
		a.status = StatusEOF
		return
	}
	if text == nil {
		if a.Verbose {
			log.Printf("chat: payload had no content, waiting")
		}
		a.status = StatusWaiting
		return
	}

	if len(text) > ResponseSize {
		log.Printf("chat: token truncated (%v > %v bytes)", len(text), ResponseSize)
		text = text[:ResponseSize]
	}

	a.response = text
	a.status = StatusDataReady
}
