// Package server accepts RESP connections over TCP and answers each
// request with a Handler.
//
// Every connection gets its own goroutine, which decodes frames from the
// socket, passes them to the handler and writes the replies back in
// request order. Pipelined requests are answered before the write buffer
// is flushed. Malformed input is answered with a protocol error and the
// connection is closed. QUIT is handled by the server itself.
//
// The server is compatible with Redis clients like github.com/redis/go-redis.
package server
