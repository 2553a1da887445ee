package sse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopFrame(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  string
		frames []string
		left   string
	}{
		{
			name:   "bare newlines",
			input:  "data: one\n\ndata: two\n\n",
			frames: []string{"data: one", "data: two"},
		},
		{
			name:   "carriage return qualified",
			input:  "data: one\r\n\r\ndata: two\r\n\r\n",
			frames: []string{"data: one", "data: two"},
		},
		{
			name:   "mixed delimiters",
			input:  "data: one\n\ndata: two\r\n\r\n",
			frames: []string{"data: one", "data: two"},
		},
		{
			name:   "earliest delimiter wins",
			input:  "a\r\n\r\nb\n\n",
			frames: []string{"a", "b"},
		},
		{
			name:  "partial frame stays buffered",
			input: "data: one\n\ndata: tw",
			frames: []string{
				"data: one",
			},
			left: "data: tw",
		},
		{
			name:  "no delimiter yet",
			input: "data: on",
			left:  "data: on",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			b := NewBuffer(256)
			assert.NoError(b.Append([]byte(tc.input)))

			var frames []string
			for {
				frame, ok := PopFrame(b)
				if !ok {
					break
				}
				frames = append(frames, string(frame))
			}

			assert.Equal(len(tc.frames), len(frames))
			for n := range tc.frames {
				assert.Equal(tc.frames[n], frames[n])
			}
			assert.Equal(tc.left, string(b.Peek()))
		})
	}
}

func TestPopFrame_SplitAcrossFragments(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(256)

	// Delimiter only arrives in the second fragment.
	assert.NoError(b.Append([]byte(`data: {"content":"Hel`)))
	_, ok := PopFrame(b)
	assert.False(ok)

	assert.NoError(b.Append([]byte("lo\"}\n\n")))
	frame, ok := PopFrame(b)
	assert.True(ok)
	assert.Equal(`data: {"content":"Hello"}`, string(frame))
}

func TestPopRemainder(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(64)
	assert.NoError(b.Append([]byte(`data: {"content":"bye"}`)))

	frame, ok := PopRemainder(b)
	assert.True(ok)
	assert.Equal(`data: {"content":"bye"}`, string(frame))
	assert.Equal(0, b.Len())

	_, ok = PopRemainder(b)
	assert.False(ok)
}

func TestPushBack(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(64)
	assert.NoError(b.Append([]byte("data: second\n\n")))

	// The pushed-back frame is extracted again, ahead of buffered data.
	assert.NoError(PushBack(b, []byte("data: first")))
	frame, ok := PopFrame(b)
	assert.True(ok)
	assert.Equal("data: first", string(frame))
	frame, ok = PopFrame(b)
	assert.True(ok)
	assert.Equal("data: second", string(frame))
}

func TestPushBack_NoRoomIsFatal(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(8)
	assert.NoError(b.Append([]byte("abcdef")))
	assert.Equal(ErrBufferFull, PushBack(b, []byte("frame")))
	// Nothing was lost from the buffer itself.
	assert.Equal([]byte("abcdef"), b.Peek())
}

func TestPayload(t *testing.T) {
	for _, tc := range []struct {
		name    string
		frame   string
		payload string
		done    bool
	}{
		{name: "simple", frame: "data: hello", payload: "hello"},
		{name: "no space after colon", frame: "data:hello", payload: "hello"},
		{name: "one space stripped", frame: "data:  hello", payload: " hello"},
		{name: "done marker", frame: "data: [DONE]", done: true},
		{name: "trailing line endings trimmed", frame: "data: hello\r\n", payload: "hello"},
		{name: "event line before data", frame: "event: delta\ndata: hello", payload: "hello"},
		{name: "comment only", frame: ": keepalive"},
		{name: "empty payload", frame: "data:"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			payload, done := Payload([]byte(tc.frame))
			assert.Equal(tc.done, done)
			if tc.payload == "" {
				assert.Nil(payload)
			} else {
				assert.Equal(tc.payload, string(payload))
			}
		})
	}
}

func TestSkipResponseHeaders(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(512)
	assert.NoError(b.Append([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\n")))

	// Headers are incomplete; nothing is consumed.
	_, ok := SkipResponseHeaders(b)
	assert.False(ok)

	assert.NoError(b.Append([]byte("\r\ndata: one\n\n")))
	status, ok := SkipResponseHeaders(b)
	assert.True(ok)
	assert.Equal(200, status)
	assert.Equal("data: one\n\n", string(b.Peek()))
}

// FuzzFragmentation asserts that splitting a frame stream across arbitrary
// delivery fragments never changes the extracted payload sequence.
func FuzzFragmentation(f *testing.F) {
	f.Add(uint8(1), uint8(7))
	f.Add(uint8(3), uint8(1))
	f.Add(uint8(13), uint8(64))

	stream := []byte("data: alpha\n\n" +
		"event: delta\r\ndata: beta\r\n\r\n" +
		"data: gamma\n\n" +
		": comment\n\n" +
		"data: [DONE]\n\n")
	want := []string{"alpha", "beta", "gamma"}

	f.Fuzz(func(t *testing.T, first uint8, step uint8) {
		require := require.New(t)

		if step == 0 {
			step = 1
		}

		b := NewBuffer(1024)
		var payloads []string
		var done bool

		feed := func(p []byte) {
			require.NoError(b.Append(p))
			for {
				frame, ok := PopFrame(b)
				if !ok {
					break
				}
				payload, isDone := Payload(frame)
				if isDone {
					done = true
					continue
				}
				if payload != nil {
					payloads = append(payloads, string(payload))
				}
			}
		}

		rest := bytes.Clone(stream)
		n := int(first) % (len(rest) + 1)
		feed(rest[:n])
		rest = rest[n:]
		for len(rest) > 0 {
			n = int(step)
			if n > len(rest) {
				n = len(rest)
			}
			feed(rest[:n])
			rest = rest[n:]
		}

		require.Equal(want, payloads)
		require.True(done)
		require.Equal(0, b.Len())
	})
}
