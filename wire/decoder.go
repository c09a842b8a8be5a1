// Package wire decodes the A2UI transport framing: a text/event-stream byte
// sequence arriving in arbitrary chunks. The decoder is push based — callers
// feed it each network read and collect the frames completed so far — so it
// never blocks and never owns the connection.
package wire

import (
	"bytes"
	"strings"
)

type (
	// Frame is one decoded event block: an event name and the joined data
	// payload. Data is UTF-8 JSON for every event this protocol defines.
	Frame struct {
		// Event is the frame's event name. Empty when the block carried
		// data lines but no event line; such frames belong to no
		// recognized event type and are ignored upstream.
		Event string
		// Data is the block's data value. Multiple data lines join with a
		// newline.
		Data []byte
	}

	// Decoder accumulates stream bytes and emits complete frames. The
	// pending event name and partially accumulated data are explicit
	// decoder state so that a frame split across any chunk boundary —
	// including mid-line — decodes identically to the unsplit stream.
	//
	// A Decoder is not safe for concurrent use; the session's read loop is
	// its only caller.
	Decoder struct {
		buf      []byte
		event    string
		data     []byte
		hasData  bool
		comments int
	}
)

// NewDecoder constructs an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write consumes one transport read and returns the frames whose terminating
// blank line arrived within the accumulated input. Trailing bytes that have
// not reached a newline are retained and prefixed onto the next write.
func (d *Decoder) Write(p []byte) []Frame {
	d.buf = append(d.buf, p...)
	var frames []Frame
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return frames
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if frame, ok := d.line(line); ok {
			frames = append(frames, frame)
		}
	}
}

// Flush reports the unterminated frame buffered when the stream ended, if
// any. A non-empty leftover means the stream closed mid-frame; callers treat
// that as a transport-level truncation rather than decoding the partial
// data.
func (d *Decoder) Flush() (Frame, bool) {
	if !d.hasData && d.event == "" && len(bytes.TrimRight(d.buf, "\r\n")) == 0 {
		return Frame{}, false
	}
	return Frame{Event: d.event, Data: d.data}, true
}

// Comments returns the number of comment (keepalive) lines discarded so far.
func (d *Decoder) Comments() int {
	return d.comments
}

// line processes one complete line and reports a finished frame when the
// line is the block-terminating blank.
func (d *Decoder) line(raw []byte) (Frame, bool) {
	line := strings.TrimRight(string(raw), "\r")
	switch {
	case line == "":
		if !d.hasData {
			// Event-only or empty block: reset the pending name, nothing
			// to emit.
			d.event = ""
			return Frame{}, false
		}
		frame := Frame{Event: d.event, Data: d.data}
		d.event = ""
		d.data = nil
		d.hasData = false
		return frame, true
	case strings.HasPrefix(line, ":"):
		d.comments++
	default:
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			d.event = strings.TrimSpace(name)
			break
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			value = strings.TrimPrefix(value, " ")
			if d.hasData {
				d.data = append(d.data, '\n')
			}
			d.data = append(d.data, value...)
			d.hasData = true
		}
		// Unrecognized fields (id, retry, ...) carry no semantics here.
	}
	return Frame{}, false
}
