// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ezrec/altairnet/chat"
	"github.com/ezrec/altairnet/sse"
)

const (
	// DecryptedBufferSize bounds the decrypted working buffer.
	DecryptedBufferSize = 2048
	// RecvChunkSize bounds one transport read.
	RecvChunkSize = 512

	// responseMargin is the number of response queue slots kept free for
	// the terminal message. Frames are withheld (and pushed back) when
	// fewer than responseMargin+1 slots remain, which transitively stops
	// the engine from consuming more received bytes.
	responseMargin = 2

	// DefaultTimeout is the overall wall-clock deadline per request.
	DefaultTimeout = 90 * time.Second
	// DefaultDNSTimeout is the name resolution sub-deadline.
	DefaultDNSTimeout = 10 * time.Second
)

// State identifies the engine's lifecycle phase.
type State uint8

const (
	StateIdle State = iota
	StateDNSResolving
	StateConnecting
	StateHandshake
	StateSendingHeaders
	StateStreamingBody
	StateReceiving
	StateDone
	StateError
)

var stateNames = map[State]string{
	StateIdle:           "IDLE",
	StateDNSResolving:   "DNS_RESOLVING",
	StateConnecting:     "CONNECTING",
	StateHandshake:      "TLS_HANDSHAKE",
	StateSendingHeaders: "SENDING_HEADERS",
	StateStreamingBody:  "STREAMING_BODY",
	StateReceiving:      "RECEIVING",
	StateDone:           "DONE",
	StateError:          "ERROR",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return "UNKNOWN"
	}
	return name
}

// Engine owns one in-flight request at a time. It consumes Requests and
// BodyChunks, produces Responses, and is advanced by calling Poll from a
// cooperative scheduler. All transport I/O is non-blocking; a would-block
// result simply defers work to the next poll.
type Engine struct {
	Verbose bool

	// Service endpoint.
	Host   string
	Port   int
	Path   string
	APIKey string

	// Wall-clock deadlines, checked every poll.
	Timeout    time.Duration
	DNSTimeout time.Duration

	queues *chat.Queues
	dial   DialFunc

	state     State
	transport Transport
	events    <-chan ConnEvent

	requestID     uuid.UUID
	contentLength int
	bodySent      int

	headers      []byte
	headerOffset int
	partial      []byte

	decrypted   *sse.Buffer
	scratch     []byte
	headersDone bool
	httpStatus  int
	streamDone  bool
	closed      bool
	recvErr     error

	totalReceived int
	requestsRun   int

	startTime time.Time
	stateTime time.Time
}

// New creates an engine consuming from and producing into queues, dialing
// a fresh transport per request.
func New(queues *chat.Queues, dial DialFunc) *Engine {
	return &Engine{
		Host:       "api.openai.com",
		Port:       443,
		Path:       "/v1/chat/completions",
		Timeout:    DefaultTimeout,
		DNSTimeout: DefaultDNSTimeout,
		queues:     queues,
		dial:       dial,
		decrypted:  sse.NewBuffer(DecryptedBufferSize),
		scratch:    make([]byte, RecvChunkSize),
	}
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	return e.state
}

// Stats yields diagnostic high-water marks and counters.
func (e *Engine) Stats() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		if !yield("engine.decrypted_high_water", e.decrypted.HighWater()) {
			return
		}
		if !yield("engine.total_received", e.totalReceived) {
			return
		}
		yield("engine.requests_run", e.requestsRun)
	}
}

// Poll advances the engine by one step. It is called at regular intervals
// by the scheduler and never blocks.
func (e *Engine) Poll() {
	if e.state == StateIdle {
		e.pollIdle()
		return
	}

	if time.Since(e.startTime) > e.Timeout {
		e.fail(ErrTimeout)
		return
	}

	switch e.state {
	case StateDNSResolving:
		e.pollResolving()
	case StateConnecting:
		e.pollConnecting()
	case StateHandshake:
		e.pollHandshake()
	case StateSendingHeaders:
		e.pollHeaders()
	case StateStreamingBody:
		e.pollBody()
	case StateReceiving:
		e.pollReceiving()
	}
}

func (e *Engine) pollIdle() {
	request, ok := e.queues.Requests.TryRemove()
	if !ok {
		return
	}

	if request.Abort {
		// Best-effort cancellation: the network phase never starts.
		e.queues.Responses.Drain()
		log.Printf("engine: aborted request dropped")
		return
	}

	e.requestID = uuid.New()
	e.requestsRun++
	e.contentLength = request.ContentLength
	e.bodySent = 0
	e.headers = nil
	e.headerOffset = 0
	e.partial = nil
	e.headersDone = false
	e.httpStatus = 0
	e.streamDone = false
	e.closed = false
	e.recvErr = nil
	e.decrypted.Reset()
	e.startTime = time.Now()
	e.stateTime = e.startTime

	e.transport = e.dial()
	e.events = e.transport.Connect(e.Host, e.Port)
	e.setState(StateDNSResolving)
	log.Printf("engine: %v: request started, content length %v", e.requestID, e.contentLength)
}

func (e *Engine) pollResolving() {
	select {
	case event := <-e.events:
		if event.Err != nil {
			e.fail(event.Err)
			return
		}
		if event.Phase == PhaseResolved {
			if e.Verbose {
				log.Printf("engine: %v: resolved %v", e.requestID, event.Addr)
			}
			e.setState(StateConnecting)
		}
	default:
		if time.Since(e.stateTime) > e.DNSTimeout {
			e.fail(ErrDNSTimeout)
		}
	}
}

func (e *Engine) pollConnecting() {
	// The transport opened exactly one connection; advance only on its
	// completion signal.
	select {
	case event := <-e.events:
		if event.Err != nil {
			e.fail(event.Err)
			return
		}
		if event.Phase == PhaseConnected {
			e.setState(StateHandshake)
		}
	default:
	}
}

func (e *Engine) pollHandshake() {
	err := e.transport.HandshakeStep()
	switch {
	case err == nil:
		e.setState(StateSendingHeaders)
	case errors.Is(err, ErrWouldBlock):
	default:
		e.fail(err)
	}
}

func (e *Engine) pollHeaders() {
	if e.headers == nil {
		e.headers = []byte(fmt.Sprintf(
			"POST %s HTTP/1.1\r\n"+
				"Host: %s\r\n"+
				"Authorization: Bearer %s\r\n"+
				"Content-Type: application/json\r\n"+
				"Content-Length: %d\r\n"+
				"Connection: close\r\n"+
				"\r\n",
			e.Path, e.Host, e.APIKey, e.contentLength))
		e.headerOffset = 0
	}

	for e.headerOffset < len(e.headers) {
		count, err := e.transport.Send(e.headers[e.headerOffset:])
		e.headerOffset += count
		if err != nil {
			if !errors.Is(err, ErrWouldBlock) {
				e.fail(err)
			}
			return
		}
	}

	if e.Verbose {
		log.Printf("engine: %v: headers sent, streaming body", e.requestID)
	}
	e.setState(StateStreamingBody)
}

func (e *Engine) pollBody() {
	// Retry the residue of a partially written chunk before dequeuing a
	// new one; chunk order and byte order must never change.
	if len(e.partial) > 0 {
		count, err := e.transport.Send(e.partial)
		e.bodySent += count
		e.partial = e.partial[count:]
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			e.fail(err)
			return
		}
		if len(e.partial) > 0 {
			return
		}
		if e.bodySent >= e.contentLength {
			e.finishBody()
			return
		}
	}

	chunk, ok := e.queues.Chunks.TryRemove()
	if !ok {
		return
	}

	switch chunk.Kind {
	case chat.ChunkEnd:
		// The end marker and the byte count must agree.
		if e.bodySent != e.contentLength {
			e.fail(ErrBodyUnderrun)
			return
		}
		e.finishBody()

	case chat.ChunkData:
		if e.bodySent+len(chunk.Data) > e.contentLength {
			e.fail(ErrBodyOverrun)
			return
		}

		count, err := e.transport.Send(chunk.Data)
		e.bodySent += count
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			e.fail(err)
			return
		}
		if count < len(chunk.Data) {
			// Preserve the unsent remainder verbatim for the next poll.
			e.partial = bytes.Clone(chunk.Data[count:])
			return
		}
		if e.bodySent >= e.contentLength {
			e.finishBody()
		}
	}
}

func (e *Engine) finishBody() {
	// Stray entries for this request (including a trailing end marker)
	// are dropped here.
	e.queues.Chunks.Drain()
	if e.Verbose {
		log.Printf("engine: %v: body complete, %v bytes sent", e.requestID, e.bodySent)
	}
	e.setState(StateReceiving)
}

func (e *Engine) pollReceiving() {
	for {
		// Drain complete frames before decrypting more, bounding the
		// working buffer.
		stall, err := e.drainFrames(e.closed)
		if err != nil {
			e.fail(err)
			return
		}
		if e.streamDone {
			e.done()
			return
		}
		if stall {
			// The adapter must catch up first; nothing buffered is
			// discarded.
			return
		}
		if e.closed {
			switch {
			case e.recvErr != nil:
				e.fail(e.recvErr)
			case !e.headersDone:
				e.fail(ErrNoResponse)
			default:
				e.done()
			}
			return
		}

		space := e.decrypted.Free()
		if space == 0 {
			return
		}
		if space > len(e.scratch) {
			space = len(e.scratch)
		}

		count, err := e.transport.Recv(e.scratch[:space])
		if count > 0 {
			e.totalReceived += count
			if aerr := e.decrypted.Append(e.scratch[:count]); aerr != nil {
				e.fail(aerr)
				return
			}
			continue
		}

		switch {
		case errors.Is(err, ErrWouldBlock):
			return
		case errors.Is(err, io.EOF) || err == nil:
			// Clean peer close: force a final flush of any
			// undelimited trailing bytes.
			e.closed = true
		default:
			e.closed = true
			e.recvErr = err
		}
	}
}

// drainFrames extracts as many complete frames as the response queue has
// credit for. With flush set, trailing undelimited bytes are delivered as a
// best-effort final frame. stall reports that a frame was pushed back
// because the queue lacked credit.
func (e *Engine) drainFrames(flush bool) (stall bool, err error) {
	if !e.headersDone {
		status, ok := sse.SkipResponseHeaders(e.decrypted)
		if !ok {
			return
		}
		e.headersDone = true
		e.httpStatus = status
		log.Printf("engine: %v: HTTP %v", e.requestID, status)
	}

	for {
		frame, ok := sse.PopFrame(e.decrypted)
		if !ok && flush {
			frame, ok = sse.PopRemainder(e.decrypted)
		}
		if !ok {
			return
		}

		forwarded, ferr := e.forwardFrame(frame)
		if ferr != nil {
			err = ferr
			return
		}
		if !forwarded {
			// Push-back must be exact; losing the frame here would
			// be silent data loss, which is fatal instead.
			if perr := sse.PushBack(e.decrypted, frame); perr != nil {
				err = ErrFrameLost
				return
			}
			stall = true
			return
		}
		if e.streamDone {
			return
		}
	}
}

// forwardFrame queues one frame's payload for the command unit. It reports
// forwarded == false when the response queue is down to its safety margin.
func (e *Engine) forwardFrame(frame []byte) (forwarded bool, err error) {
	payload, done := sse.Payload(frame)
	if done {
		e.streamDone = true
		forwarded = true
		return
	}
	if payload == nil {
		// Comment or fieldless frame.
		forwarded = true
		return
	}

	if e.queues.Responses.Free() < 1+responseMargin {
		return
	}

	if len(payload) > chat.ResponseSize {
		log.Printf("engine: %v: payload truncated (%v > %v bytes)",
			e.requestID, len(payload), chat.ResponseSize)
		payload = payload[:chat.ResponseSize]
	}

	response := chat.Response{
		Status: chat.StatusDataReady,
		Data:   bytes.Clone(payload),
	}
	if !e.queues.Responses.TryAdd(response) {
		log.Printf("engine: %v: response queue full, payload dropped", e.requestID)
	}
	forwarded = true

	return
}

func (e *Engine) done() {
	log.Printf("engine: %v: complete, %v bytes received", e.requestID, e.totalReceived)
	e.setState(StateDone)
	e.sendTerminal(chat.StatusEOF)
	e.cleanup()
	e.setState(StateIdle)
}

func (e *Engine) fail(err error) {
	if e.state == StateIdle {
		return
	}

	log.Printf("engine: %v: failed in %v: %v", e.requestID, e.state, err)
	e.setState(StateError)
	e.sendTerminal(chat.StatusFailed)
	e.cleanup()
	e.setState(StateIdle)
}

func (e *Engine) sendTerminal(status chat.Status) {
	if !e.queues.Responses.TryAdd(chat.Response{Status: status}) {
		log.Printf("engine: %v: response queue full, terminal %v dropped", e.requestID, status)
	}
}

func (e *Engine) cleanup() {
	if e.transport != nil {
		e.transport.Close()
		e.transport = nil
	}
	e.events = nil
	e.headers = nil
	e.partial = nil
}

func (e *Engine) setState(next State) {
	if e.Verbose && next != e.state {
		log.Printf("engine: %v: %v -> %v", e.requestID, e.state, next)
	}
	e.state = next
	e.stateTime = time.Now()
}
