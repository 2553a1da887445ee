package sse

import (
	"bytes"
	"strconv"
)

const (
	// dataMarker introduces the payload line of an event frame.
	dataMarker = "data:"
	// doneMarker is the payload that signals end-of-stream.
	doneMarker = "[DONE]"
)

// frameDelim is the delimiter re-inserted ahead of a pushed-back frame.
var frameDelim = []byte("\n\n")

// PopFrame extracts the next complete event frame from the buffer. A frame
// is everything up to the first blank-line delimiter, in either bare ("\n\n")
// or carriage-return-qualified ("\r\n\r\n") form. The frame and its delimiter
// are consumed; ok is false while no complete frame is buffered.
//
// The returned frame is a copy and remains valid after further buffer use.
func PopFrame(b *Buffer) (frame []byte, ok bool) {
	data := b.Peek()

	for i := 0; i+1 < len(data); i++ {
		var delim int
		switch {
		case data[i] == '\n' && data[i+1] == '\n':
			delim = 2
		case i+3 < len(data) && data[i] == '\r' && data[i+1] == '\n' &&
			data[i+2] == '\r' && data[i+3] == '\n':
			delim = 4
		default:
			continue
		}

		frame = bytes.Clone(data[:i])
		b.Consume(i + delim)
		ok = true
		return
	}

	return
}

// PopRemainder consumes every buffered byte as a final, undelimited frame.
// Used when the peer closes the connection (or errors out) with trailing
// bytes still buffered; ok is false if the buffer is empty.
func PopRemainder(b *Buffer) (frame []byte, ok bool) {
	if b.Len() == 0 {
		return
	}

	frame = bytes.Clone(b.Peek())
	b.Consume(len(frame))
	ok = true

	return
}

// PushBack re-inserts a frame, reconstructed with its delimiter, at the head
// of the buffer so it is extracted again on the next poll. The push-back is
// exact; if the buffer lacks room for frame plus delimiter the frame is lost
// and ErrBufferFull is returned, which the caller must treat as fatal.
func PushBack(b *Buffer, frame []byte) (err error) {
	if len(frame)+len(frameDelim) > b.Free() {
		err = ErrBufferFull
		return
	}

	// Head insertion in two steps: delimiter first so the frame lands
	// ahead of it.
	err = b.Prepend(frameDelim)
	if err != nil {
		return
	}

	err = b.Prepend(frame)

	return
}

// Payload isolates the event payload from one frame: the text following a
// line beginning with the "data:" marker, with one optional leading space
// stripped and trailing line endings trimmed. done reports the "[DONE]"
// end-of-stream marker, which is never returned as a payload. A frame with
// no data line yields neither.
func Payload(frame []byte) (payload []byte, done bool) {
	idx := bytes.Index(frame, []byte(dataMarker))
	if idx < 0 {
		return
	}

	payload = frame[idx+len(dataMarker):]
	if len(payload) > 0 && payload[0] == ' ' {
		payload = payload[1:]
	}

	if bytes.HasPrefix(payload, []byte(doneMarker)) {
		payload = nil
		done = true
		return
	}

	for len(payload) > 0 {
		last := payload[len(payload)-1]
		if last != '\r' && last != '\n' {
			break
		}
		payload = payload[:len(payload)-1]
	}

	if len(payload) == 0 {
		payload = nil
	}

	return
}

// SkipResponseHeaders discards the HTTP response headers from the head of
// the buffer, once a complete terminator has arrived. Returns the parsed
// status code (0 if the status line was unreadable) and ok when the headers
// were found and consumed.
func SkipResponseHeaders(b *Buffer) (status int, ok bool) {
	data := b.Peek()

	end := bytes.Index(data, []byte("\r\n\r\n"))
	if end < 0 {
		return
	}

	head := data[:end]
	if line := bytes.Index(head, []byte("HTTP/")); line >= 0 {
		rest := head[line:]
		if sp := bytes.IndexByte(rest, ' '); sp >= 0 {
			field := rest[sp+1:]
			if sp2 := bytes.IndexAny(field, " \r\n"); sp2 >= 0 {
				field = field[:sp2]
			}
			status, _ = strconv.Atoi(string(field))
		}
	}

	b.Consume(end + 4)
	ok = true

	return
}
