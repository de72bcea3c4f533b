package protocol

import (
	"errors"
	"io"
)

// defaultReadSize is the chunk size used to pull bytes from the source
const defaultReadSize = 4096

// maxRetainedSize caps the backing array a Buffer keeps once it has been
// drained. Larger arrays left behind by a big frame are released.
const maxRetainedSize = 64 * 1024

// Buffer accumulates bytes received so far and hands out complete frames
// from its front. It is not safe for concurrent use; each connection owns
// its own Buffer.
//
// Completeness is tracked with a checkpoint: the offset up to which the
// front frame has been scanned and the number of elements still expected
// by each open aggregate. A retry after more bytes arrive resumes from the
// checkpoint, and the frame is materialized once, when it is complete.
type Buffer struct {
	buf []byte
	off int // start of the unread bytes in buf

	scanned  int   // bytes of the front frame known to be well formed
	pending  []int // elements still expected per open aggregate
	complete bool
}

// Write appends p to the buffer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.off > 0 {
		b.compact()
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Next decodes one frame from the front of the buffer.
//
// On success the frame's bytes are removed from the buffer. On
// ErrIncomplete the buffered bytes are kept so more can be appended.
// A *ProtocolError means the buffered stream is unusable.
func (b *Buffer) Next() (Frame, error) {
	if err := b.scan(); err != nil {
		return Frame{}, err
	}

	f, n, err := Decode(b.buf[b.off : b.off+b.scanned])
	if err != nil {
		return Frame{}, err
	}

	b.off += n
	b.scanned = 0
	b.pending = b.pending[:0]
	b.complete = false
	if b.off == len(b.buf) {
		b.release()
	}

	return f, nil
}

// Ready reports whether Next would return without needing more bytes,
// either with a frame or with a protocol error
func (b *Buffer) Ready() bool {
	return !errors.Is(b.scan(), ErrIncomplete)
}

// scan advances the checkpoint over the front frame. It returns nil once
// the frame is complete.
func (b *Buffer) scan() error {
	if b.complete {
		return nil
	}

	d := decoder{buf: b.buf[b.off:], pos: b.scanned, skip: true}
	for {
		children, err := d.skipElement(len(b.pending))
		if err != nil {
			return err
		}
		b.scanned = d.pos

		if children > 0 {
			b.pending = append(b.pending, children)
			continue
		}

		// A finished element may close its parents
		for len(b.pending) > 0 {
			top := len(b.pending) - 1
			b.pending[top]--
			if b.pending[top] > 0 {
				break
			}
			b.pending = b.pending[:top]
		}
		if len(b.pending) == 0 {
			b.complete = true
			return nil
		}
	}
}

// compact moves the unread bytes to the front of the backing array
func (b *Buffer) compact() {
	unread := b.buf[b.off:]
	if cap(b.buf) > maxRetainedSize && len(unread) < maxRetainedSize {
		b.buf = append(make([]byte, 0, maxRetainedSize), unread...)
	} else {
		n := copy(b.buf, unread)
		b.buf = b.buf[:n]
	}
	b.off = 0
}

// release empties the buffer, dropping an oversized backing array
func (b *Buffer) release() {
	b.off = 0
	if cap(b.buf) > maxRetainedSize {
		b.buf = nil
		return
	}
	b.buf = b.buf[:0]
}

// Len returns the number of buffered bytes not yet decoded
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

// Cap returns the capacity of the backing array
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Bytes returns the buffered bytes not yet decoded. The slice is only
// valid until the next call to Write or Next.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// Reset discards all buffered bytes
func (b *Buffer) Reset() {
	b.release()
	b.scanned = 0
	b.pending = b.pending[:0]
	b.complete = false
}

// Reader is a streaming RESP reader. It pulls bytes from the underlying
// reader into a Buffer until a complete frame is available.
type Reader struct {
	src     io.Reader
	buf     Buffer
	scratch []byte // Reusable buffer for reading
}

// NewReader creates a new streaming RESP reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		src:     r,
		scratch: make([]byte, defaultReadSize),
	}
}

// ReadNext reads the next frame from the stream.
//
// It returns io.EOF when the stream ends cleanly between frames and
// io.ErrUnexpectedEOF when it ends in the middle of one. Malformed data is
// reported as a *ProtocolError.
func (r *Reader) ReadNext() (Frame, error) {
	for {
		f, err := r.buf.Next()
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrIncomplete) {
			return Frame{}, err
		}

		n, rerr := r.src.Read(r.scratch)
		if n > 0 {
			_, _ = r.buf.Write(r.scratch[:n])
			continue
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if r.buf.Len() == 0 {
				return Frame{}, io.EOF
			}
			return Frame{}, io.ErrUnexpectedEOF
		}
		return Frame{}, rerr
	}
}

// Buffered returns the number of bytes read from the source but not yet
// decoded
func (r *Reader) Buffered() int {
	return r.buf.Len()
}

// Ready reports whether ReadNext can return without reading from the
// source
func (r *Reader) Ready() bool {
	return r.buf.Ready()
}

// Reset discards buffered data and switches to reading from src
func (r *Reader) Reset(src io.Reader) {
	r.src = src
	r.buf.Reset()
}
