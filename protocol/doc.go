// Package protocol implements the Redis Serialization Protocol (RESP)
// frame model and its wire codec.
//
// Frames are plain values. Encoding is a pure function of the frame, and
// decoding works on a byte slice holding the bytes received so far:
//
//	f, n, err := protocol.Decode(buf)
//	switch {
//	case errors.Is(err, protocol.ErrIncomplete):
//		// read more bytes and retry
//	case protocol.IsMalformed(err):
//		// the stream is unusable, close the connection
//	}
//
// Buffer keeps that accumulation per connection. It remembers how far the
// front frame has been checked, so bytes arriving in small reads are
// scanned once and the frame is built once it is complete. Reader drives
// a Buffer from an io.Reader:
//
//	reader := protocol.NewReader(conn)
//	for {
//		frame, err := reader.ReadNext()
//		if err != nil {
//			break
//		}
//		// Process frame
//	}
//
// The package supports the RESP2 types and the RESP3 additions:
//   - Simple Strings and Errors
//   - Integers and Doubles
//   - Bulk Strings and Arrays, including their absent ("$-1", "*-1") forms
//   - Null and Booleans
//   - Maps and Sets
package protocol
