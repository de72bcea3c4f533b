package respkv

import (
	"context"
	"sync"
	"time"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/lua"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/server"
	"github.com/raniellyferreira/respkv/storage"
)

// Node is a running key-value server: one storage, the command executor
// in front of it, and optionally a TCP listener speaking RESP.
type Node struct {
	// Configuration
	config *config

	// Components
	storage  *storage.MemoryStorage
	executor *command.Executor
	scripts  *lua.Engine
	server   *server.Server

	// State
	mu      sync.RWMutex
	started bool
	closed  bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a new Node with the given options
//
// The node is created but not started. Use Start() to open the listener.
//
// Example:
//
//	node, err := respkv.New(
//		respkv.WithAddr(":6379"),
//		respkv.WithShardCount(128),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
func New(opts ...Option) (*Node, error) {
	cfg := defaultConfig()

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	stor := storage.NewMemory(storage.WithShardCount(cfg.shardCount))
	exec := command.NewExecutor(stor)

	node := &Node{
		config:   cfg,
		storage:  stor,
		executor: exec,
		stop:     make(chan struct{}),
	}

	if cfg.scripting {
		node.scripts = lua.NewEngine(node.scriptCall, lua.WithTimeout(cfg.scriptTimeout))
		exec.SetScripting(node.scripts)
	}

	if cfg.enableServer {
		serverOpts := []server.Option{
			server.WithLogger(&serverLogger{logger: cfg.logger}),
			server.WithReadTimeout(cfg.readTimeout),
		}
		if cfg.metrics != nil {
			serverOpts = append(serverOpts, server.WithMetrics(&metricsAdapter{metrics: cfg.metrics}))
		}
		node.server = server.NewServer(cfg.addr, exec, serverOpts...)
	}

	return node, nil
}

// scriptCall runs a command issued by a Lua script
func (n *Node) scriptCall(args []string) protocol.Frame {
	return n.executor.Do(protocol.Command(args[0], args[1:]...))
}

// Start opens the listener, if the server is enabled, and starts metrics
// reporting. Calling Start on a started node is a no-op.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	if n.started {
		return nil // Already started
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if n.server != nil {
		if err := n.server.Start(); err != nil {
			n.config.logger.Error("Failed to start server", Field{Key: "error", Value: err}, Field{Key: "addr", Value: n.config.addr})
			return err
		}
	}

	if n.config.metrics != nil {
		n.wg.Add(1)
		go n.reportMetrics()
	}

	n.started = true
	return nil
}

// reportMetrics publishes the key count until the node is closed
func (n *Node) reportMetrics() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.config.metricsInterval)
	defer ticker.Stop()

	for {
		n.config.metrics.RecordKeyCount(n.storage.KeyCount())

		select {
		case <-n.stop:
			return
		case <-ticker.C:
		}
	}
}

// Do executes one request frame in-process and returns the reply, exactly
// as a network client would see it
func (n *Node) Do(req protocol.Frame) protocol.Frame {
	return n.executor.Do(req)
}

// Exec is a convenience wrapper around Do for string arguments
//
// Example:
//
//	reply := node.Exec("HSET", "user:1", "name", "ada")
func (n *Node) Exec(name string, args ...string) protocol.Frame {
	return n.Do(protocol.Command(name, args...))
}

// Addr returns the listening address, or "" when the server is disabled
func (n *Node) Addr() string {
	if n.server == nil {
		return ""
	}
	return n.server.Addr()
}

// Storage returns the underlying storage for direct access
func (n *Node) Storage() storage.Storage {
	return n.storage
}

// Close stops the server and releases the storage. Closing twice is a
// no-op.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	close(n.stop)

	// Stop server first
	if n.server != nil && n.started {
		if err := n.server.Stop(); err != nil {
			n.config.logger.Error("Error stopping server", Field{Key: "error", Value: err})
		}
	}

	n.wg.Wait()

	return n.storage.Close()
}

// GetInfo returns storage, server and version information
//
// Example:
//
//	info := node.GetInfo()
//	fmt.Printf("Key count: %v\n", info["keys"])
func (n *Node) GetInfo() map[string]interface{} {
	info := n.storage.Info()

	if n.server != nil {
		info["server"] = n.server.Stats()
	}
	if n.scripts != nil {
		info["scripts"] = n.scripts.ScriptCount()
	}
	info["version"] = VersionInfo()

	return info
}
