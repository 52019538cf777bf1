package line

// Framer accumulates bytes from a connection and yields complete lines,
// implementing spec §4.E's overrun rule: "If the buffer fills with no
// newline, the current command is flushed and the next newline boundary
// marks the buffer as dirty so the tail is discarded rather than
// mis-parsed."
type Framer struct {
	buf      []byte
	cap      int
	dirty    bool
	maxArgs  int
}

// NewFramer creates a Framer whose input buffer holds at most capacity
// bytes before overrunning, mirroring the Connection's fixed-size input
// buffer (spec §3, "Connection... input buffer (size equal to protocol
// line limit)"). maxArgs is forwarded to Parse.
func NewFramer(capacity, maxArgs int) *Framer {
	if capacity <= 0 {
		capacity = MaxLine
	}
	return &Framer{cap: capacity, maxArgs: maxArgs}
}

// Feed appends newly read bytes and returns every complete message now
// available. The returned error is always nil: an overrun on a line with
// no terminator is handled by discarding that line up to its next
// boundary, and unparsable lines are skipped.
func (f *Framer) Feed(data []byte) ([]*Message, error) {
	var out []*Message
	f.buf = append(f.buf, data...)

	for {
		idx := -1
		for i, c := range f.buf {
			if c == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}

		line := f.buf[:idx]
		f.buf = f.buf[idx+1:]

		if f.dirty {
			f.dirty = false
			continue
		}

		msg, err := Parse(string(line), f.maxArgs)
		if err != nil {
			if err == ErrEmpty {
				continue
			}
			continue
		}
		out = append(out, msg)
	}

	if len(f.buf) > f.cap {
		// Overrun with no newline yet: drop everything buffered so far and
		// mark dirty so the remainder of this oversized line, once its
		// newline finally arrives, is discarded rather than parsed as a
		// truncated command.
		f.buf = f.buf[:0]
		f.dirty = true
	}

	return out, nil
}
