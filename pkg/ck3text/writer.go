package ck3text

import (
	"fmt"
	"io"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// frame tracks one open container's emission state. Every container
// starts out array-like (bare, space-separated values); the first
// Equal seen inside it flips it into object-like (newline-
// separated key=value pairs) under the mixed-mode-array rule.
type frame struct {
	isArray  bool
	wroteAny bool
}

// Writer emits the textual dialect, tracking container depth,
// indentation, and the array/object mixed-mode transition. The
// top-level document is an implicit object frame with no enclosing
// braces.
type Writer struct {
	w       io.Writer
	frames  []*frame
	pending []byte
	err     error
}

// NewWriter wraps w as a text emitter starting at the implicit
// top-level object frame.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:      w,
		frames: []*frame{{isArray: false, wroteAny: true}},
	}
}

func (w *Writer) indent() []byte {
	depth := len(w.frames) - 1
	buf := make([]byte, depth)
	for i := range buf {
		buf[i] = '\t'
	}
	return buf
}

func (w *Writer) top() *frame { return w.frames[len(w.frames)-1] }

func (w *Writer) flushPending() {
	if w.err != nil || len(w.pending) == 0 {
		return
	}
	if _, err := w.w.Write(w.pending); err != nil {
		w.err = ck3errors.NewWriter(err)
	}
	w.pending = nil
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(b); err != nil {
		w.err = ck3errors.NewWriter(err)
	}
}

// queueSeparator arms the separator emitted before the next token,
// chosen by the current frame's array/object mode. It is discarded
// instead of flushed if the next call is Equal.
func (w *Writer) queueSeparator() {
	f := w.top()
	if f.isArray {
		w.pending = []byte(" ")
	} else {
		w.pending = append([]byte("\n"), w.indent()...)
	}
}

// Open begins a new container. It defaults to array mode; a later
// Equal flips it to object mode.
func (w *Writer) Open() error {
	w.flushPending()
	w.write([]byte("{"))
	w.frames = append(w.frames, &frame{isArray: true})
	w.pending = append([]byte("\n"), w.indent()...)
	return w.err
}

// Close ends the innermost container.
func (w *Writer) Close() error {
	if len(w.frames) == 1 {
		return ck3errors.NewWriter(fmt.Errorf("Close called with no open container"))
	}
	w.pending = nil
	w.frames = w.frames[:len(w.frames)-1]
	w.write(append([]byte("\n"), append(w.indent(), '}')...))
	w.queueSeparator()
	return w.err
}

// Equal writes the key/value separator and flips the enclosing
// container into object mode, discarding any queued array separator
// so the key and `=` sit adjacent, supporting mixed object/array bodies.
func (w *Writer) Equal() error {
	w.pending = nil
	w.write([]byte("="))
	w.top().isArray = false
	return w.err
}

// WriteQuoted emits data inside double quotes, escaping embedded quotes
// and backslashes.
func (w *Writer) WriteQuoted(data []byte) error {
	w.flushPending()
	w.write([]byte{'"'})
	for _, b := range data {
		if b == '"' || b == '\\' {
			w.write([]byte{'\\'})
		}
		w.write([]byte{b})
	}
	w.write([]byte{'"'})
	w.top().wroteAny = true
	w.queueSeparator()
	return w.err
}

// WriteUnquoted emits data verbatim: used for identifiers, numbers,
// dates, booleans, and any value the melter has already decided should
// not be quoted.
func (w *Writer) WriteUnquoted(data []byte) error {
	w.flushPending()
	w.write(data)
	w.top().wroteAny = true
	w.queueSeparator()
	return w.err
}

// WriteRgb emits the compact `rgb { R G B }` form.
func (w *Writer) WriteRgb(r, g, b uint32) error {
	w.flushPending()
	w.write([]byte(fmt.Sprintf("rgb { %d %d %d }", r, g, b)))
	w.top().wroteAny = true
	w.queueSeparator()
	return w.err
}

// Err returns the first write error encountered, if any.
func (w *Writer) Err() error { return w.err }
