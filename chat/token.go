package chat

import (
	"bytes"
)

var (
	finishMarker  = []byte(`"finish_reason":`)
	contentMarker = []byte(`"content":"`)
	nullValue     = []byte("null")
)

// ExtractToken scans one streamed payload for assistant text.
//
// A finish_reason field with a non-null value signals end-of-stream and
// yields no text. Otherwise the content field's string value is returned
// with the backslash escapes \n \r \t \" \\ decoded. A payload with
// neither field yields neither: the caller keeps waiting without
// advancing completion state.
//
// The payload is scanned byte-wise rather than unmarshalled: a forced
// final flush can deliver a truncated JSON object, and the text up to the
// truncation point must still be recovered.
func ExtractToken(payload []byte) (text []byte, done bool) {
	if len(payload) == 0 {
		return
	}

	if idx := bytes.Index(payload, finishMarker); idx >= 0 {
		value := payload[idx+len(finishMarker):]
		for len(value) > 0 && (value[0] == ' ' || value[0] == '\t') {
			value = value[1:]
		}
		if !bytes.HasPrefix(value, nullValue) {
			done = true
			return
		}
	}

	idx := bytes.Index(payload, contentMarker)
	if idx < 0 {
		return
	}
	raw := payload[idx+len(contentMarker):]

	// The string value ends at the first unescaped quote; a truncated
	// payload simply ends at the truncation point.
	end := len(raw)
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			continue
		}
		if raw[i] == '"' {
			end = i
			break
		}
	}
	raw = raw[:end]
	if len(raw) == 0 {
		return
	}

	text = make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			text = append(text, raw[i])
			continue
		}
		switch raw[i+1] {
		case 'n':
			text = append(text, '\n')
			i++
		case 'r':
			text = append(text, '\r')
			i++
		case 't':
			text = append(text, '\t')
			i++
		case '"':
			text = append(text, '"')
			i++
		case '\\':
			text = append(text, '\\')
			i++
		default:
			// Unknown escape; keep the backslash as-is.
			text = append(text, raw[i])
		}
	}

	if len(text) == 0 {
		text = nil
	}

	return
}
