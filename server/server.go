package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/raniellyferreira/respkv/protocol"
)

// Handler executes one request frame and returns its reply
type Handler interface {
	Do(req protocol.Frame) protocol.Frame
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(req protocol.Frame) protocol.Frame

// Do calls f(req)
func (f HandlerFunc) Do(req protocol.Frame) protocol.Frame {
	return f(req)
}

// Logger is the logging interface used by the server
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics receives per-connection and per-command measurements
type Metrics interface {
	RecordCommand(name string, d time.Duration)
	RecordConnection()
	RecordError(kind string)
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithReadTimeout closes connections that stay idle for longer than d.
// Zero means no timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// Server provides RESP server functionality over TCP
type Server struct {
	handler Handler

	// Server configuration
	addr        string
	readTimeout time.Duration
	logger      Logger
	metrics     Metrics

	// Connection management
	mu       sync.Mutex // guards listener
	listener net.Listener
	clients  *xsync.MapOf[net.Conn, *Client]

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Counters
	connCount    *xsync.Counter
	commandCount *xsync.Counter
	errorCount   *xsync.Counter
}

// Client represents a connected client
type Client struct {
	conn   net.Conn
	reader *protocol.Reader
	writer *protocol.Writer
	server *Server

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewServer creates a new server that answers requests with handler
func NewServer(addr string, handler Handler, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		handler:      handler,
		addr:         addr,
		logger:       nopLogger{},
		clients:      xsync.NewMapOf[net.Conn, *Client](),
		ctx:          ctx,
		cancel:       cancel,
		connCount:    xsync.NewCounter(),
		commandCount: xsync.NewCounter(),
		errorCount:   xsync.NewCounter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and starts accepting connections
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.logger.Info("Server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections(ln)

	return nil
}

// Stop closes the listener and every client connection, then waits for
// the connection goroutines to exit
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	// Close all client connections
	s.clients.Range(func(_ net.Conn, client *Client) bool {
		client.Close()
		return true
	})

	s.wg.Wait()

	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected_clients": s.clients.Size(),
		"total_commands":    s.commandCount.Value(),
		"total_errors":      s.errorCount.Value(),
		"total_connections": s.connCount.Value(),
	}
}

// acceptConnections accepts new client connections
func (s *Server) acceptConnections(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return // Server is shutting down
			}
			s.logger.Error("Accept failed", "error", err)
			continue
		}

		s.handleNewClient(conn)
	}
}

// handleNewClient registers a connection and starts its goroutine
func (s *Server) handleNewClient(conn net.Conn) {
	s.connCount.Inc()
	if s.metrics != nil {
		s.metrics.RecordConnection()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	client := &Client{
		conn:   conn,
		reader: protocol.NewReader(conn),
		writer: protocol.NewWriter(conn),
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}

	s.clients.Store(conn, client)
	s.logger.Debug("Client connected", "remote", conn.RemoteAddr().String())

	s.wg.Add(1)
	go client.handle()
}

// Close closes the client connection
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close()
		c.server.clients.Delete(c.conn)
	})
}

// handle reads requests and writes replies until the connection ends.
// Replies go out in request order; the write buffer is flushed once no
// pipelined request is left to decode.
func (c *Client) handle() {
	defer c.server.wg.Done()
	defer c.Close()

	for {
		if c.ctx.Err() != nil {
			return
		}

		if c.server.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.server.readTimeout))
		}

		req, err := c.reader.ReadNext()
		if err != nil {
			c.handleReadError(err)
			return
		}

		if isQuit(req) {
			_ = c.writer.WriteFrame(protocol.OK)
			_ = c.writer.Flush()
			return
		}

		reply := c.execute(req)
		if err := c.writer.WriteFrame(reply); err != nil {
			c.server.logger.Debug("Write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
			return
		}
		// Pipelined replies batch until the next request would block
		if !c.reader.Ready() {
			if err := c.writer.Flush(); err != nil {
				c.server.logger.Debug("Flush failed", "remote", c.conn.RemoteAddr().String(), "error", err)
				return
			}
		}
	}
}

// execute runs one request through the handler and records it
func (c *Client) execute(req protocol.Frame) protocol.Frame {
	c.server.commandCount.Inc()

	start := time.Now()
	reply := c.server.handler.Do(req)

	if c.server.metrics != nil {
		c.server.metrics.RecordCommand(commandName(req), time.Since(start))
	}
	if reply.IsError() {
		c.server.errorCount.Inc()
		if c.server.metrics != nil {
			c.server.metrics.RecordError("command")
		}
	}
	return reply
}

// handleReadError reports malformed input to the client. The connection
// is closed afterwards in every case.
func (c *Client) handleReadError(err error) {
	remote := c.conn.RemoteAddr().String()

	var perr *protocol.ProtocolError
	switch {
	case errors.Is(err, io.EOF):
		c.server.logger.Debug("Client disconnected", "remote", remote)
	case c.ctx.Err() != nil:
		// Server shutting down
	case errors.As(err, &perr):
		c.server.errorCount.Inc()
		if c.server.metrics != nil {
			c.server.metrics.RecordError("protocol")
		}
		c.server.logger.Info("Closing connection after protocol error", "remote", remote, "error", perr.Message)
		_ = c.writer.WriteError(oneLine("ERR Protocol error: " + perr.Message))
		_ = c.writer.Flush()
	default:
		c.server.logger.Debug("Read failed", "remote", remote, "error", err)
	}
}

// isQuit reports whether req is a QUIT request. QUIT closes the connection
// so it is answered here rather than by the handler.
func isQuit(req protocol.Frame) bool {
	return strings.EqualFold(commandName(req), "quit")
}

// commandName returns the lower-case first element of a request, or ""
func commandName(req protocol.Frame) string {
	if req.Kind != protocol.KindArray || len(req.Elems) == 0 {
		return ""
	}
	first := req.Elems[0]
	if first.Kind != protocol.KindBulkString || first.IsAbsent() {
		return ""
	}
	return strings.ToLower(string(first.Str))
}

// oneLine removes line breaks, which can break RESP framing
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
