package protocol

import (
	"bufio"
	"io"
)

// Writer provides efficient buffered writing of RESP frames
type Writer struct {
	bw      *bufio.Writer
	scratch []byte // Reusable encode buffer
}

// NewWriter creates a new RESP protocol writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:      bufio.NewWriter(w),
		scratch: make([]byte, 0, 512),
	}
}

// WriteFrame writes a frame to the output stream
func (w *Writer) WriteFrame(f Frame) error {
	w.scratch = Append(w.scratch[:0], f)
	_, err := w.bw.Write(w.scratch)
	return err
}

// WriteSimpleString writes a simple string
func (w *Writer) WriteSimpleString(s string) error {
	return w.WriteFrame(SimpleString(s))
}

// WriteError writes an error message
func (w *Writer) WriteError(msg string) error {
	return w.WriteFrame(SimpleError(msg))
}

// WriteInteger writes an integer
func (w *Writer) WriteInteger(n int64) error {
	return w.WriteFrame(Integer(n))
}

// WriteBulkString writes a bulk string
func (w *Writer) WriteBulkString(data []byte) error {
	return w.WriteFrame(BulkString(data))
}

// WriteNullBulkString writes an absent bulk string
func (w *Writer) WriteNullBulkString() error {
	return w.WriteFrame(NullBulkString())
}

// WriteArray writes an array of frames
func (w *Writer) WriteArray(values []Frame) error {
	return w.WriteFrame(Array(values...))
}

// WriteNullArray writes an absent array
func (w *Writer) WriteNullArray() error {
	return w.WriteFrame(NullArray())
}

// WriteCommand writes a Redis command as a RESP array of bulk strings
func (w *Writer) WriteCommand(cmd string, args ...string) error {
	return w.WriteFrame(Command(cmd, args...))
}

// WriteOK writes a simple "OK" response
func (w *Writer) WriteOK() error {
	return w.WriteFrame(OK)
}

// WritePONG writes a simple "PONG" response
func (w *Writer) WritePONG() error {
	return w.WriteFrame(Pong)
}

// Flush flushes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Reset resets the writer to write to a new underlying writer
func (w *Writer) Reset(writer io.Writer) {
	w.bw.Reset(writer)
}

// Command builds the array-of-bulk-strings frame clients send for a
// command invocation
func Command(name string, args ...string) Frame {
	elems := make([]Frame, 0, 1+len(args))
	elems = append(elems, BulkStringFromString(name))
	for _, arg := range args {
		elems = append(elems, BulkStringFromString(arg))
	}
	return Array(elems...)
}
