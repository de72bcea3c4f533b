package respkv

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by New
const (
	DefaultAddr            = ":6379"
	DefaultShardCount      = 64
	DefaultScriptTimeout   = 5 * time.Second
	DefaultMetricsInterval = 10 * time.Second
)

// config holds the configuration for a Node
type config struct {
	// Server settings
	addr          string
	enableServer  bool
	readTimeout   time.Duration
	scriptTimeout time.Duration

	// Storage settings
	shardCount int

	// Observability
	logger          Logger
	metrics         MetricsCollector
	metricsInterval time.Duration

	// Behavioral options
	scripting bool
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		addr:            DefaultAddr,
		enableServer:    true,
		scriptTimeout:   DefaultScriptTimeout,
		shardCount:      DefaultShardCount,
		logger:          NewLogger("respkv", LevelInfo, nil),
		metricsInterval: DefaultMetricsInterval,
		scripting:       true,
	}
}

// Option represents a configuration option for a Node
type Option func(*config) error

// WithAddr sets the TCP address the server listens on
//
// Example:
//
//	WithAddr(":6379")
//	WithAddr("127.0.0.1:0") // random port
func WithAddr(addr string) Option {
	return func(c *config) error {
		if addr == "" {
			return invalidOption("addr", addr)
		}
		c.addr = addr
		return nil
	}
}

// WithServerEnabled controls whether Start opens a listener. A node without
// a server still answers Do.
//
// Example:
//
//	WithServerEnabled(false) // Disable server, use only as library
func WithServerEnabled(enabled bool) Option {
	return func(c *config) error {
		c.enableServer = enabled
		return nil
	}
}

// WithShardCount sets the number of storage shards. The value is rounded
// up to a power of two.
//
// Example:
//
//	WithShardCount(256)
func WithShardCount(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return invalidOption("shards", n)
		}
		c.shardCount = n
		return nil
	}
}

// WithReadTimeout closes client connections idle for longer than timeout.
// Zero disables the timeout.
//
// Example:
//
//	WithReadTimeout(5 * time.Minute)
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return invalidOption("read-timeout", timeout)
		}
		c.readTimeout = timeout
		return nil
	}
}

// WithScriptTimeout bounds the run time of a single Lua script. Zero
// disables the limit.
//
// Example:
//
//	WithScriptTimeout(time.Second)
func WithScriptTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return invalidOption("script-timeout", timeout)
		}
		c.scriptTimeout = timeout
		return nil
	}
}

// WithScripting enables or disables EVAL, EVALSHA and SCRIPT (default: true)
func WithScripting(enabled bool) Option {
	return func(c *config) error {
		c.scripting = enabled
		return nil
	}
}

// WithLogger sets a custom logger for the node
//
// Example:
//
//	WithLogger(myCustomLogger)
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return invalidOption("logger", logger)
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics enables metrics collection with the provided collector
//
// Example:
//
//	WithMetrics(myMetricsCollector)
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}

// WithMetricsInterval sets how often the key count is reported to the
// metrics collector
func WithMetricsInterval(interval time.Duration) Option {
	return func(c *config) error {
		if interval <= 0 {
			return invalidOption("metrics-interval", interval)
		}
		c.metricsInterval = interval
		return nil
	}
}

// Config is the flat, serializable form of the node configuration used by
// the command line. Options turns it into functional options.
type Config struct {
	Addr          string
	Shards        int
	ReadTimeout   time.Duration
	ScriptTimeout time.Duration
	Scripting     bool
	LogLevel      string
}

// DefaultConfig returns the configuration New uses when given no options
func DefaultConfig() Config {
	return Config{
		Addr:          DefaultAddr,
		Shards:        DefaultShardCount,
		ScriptTimeout: DefaultScriptTimeout,
		Scripting:     true,
		LogLevel:      LevelInfo.String(),
	}
}

// Options converts the configuration into options for New. Invalid values
// are reported when New applies them, except for the log level, which is
// checked here.
func (c Config) Options() ([]Option, error) {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithAddr(c.Addr),
		WithShardCount(c.Shards),
		WithReadTimeout(c.ReadTimeout),
		WithScriptTimeout(c.ScriptTimeout),
		WithScripting(c.Scripting),
		WithLogger(NewLogger("respkv", level, nil)),
	}, nil
}

// String renders the configuration as labelled sections
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Address", c.Addr)
	addField("Read Timeout", durationOrNone(c.ReadTimeout))

	addSection("Storage")
	addField("Shards", fmt.Sprintf("%d", c.Shards))

	addSection("Scripting")
	addField("Enabled", fmt.Sprintf("%t", c.Scripting))
	addField("Script Timeout", durationOrNone(c.ScriptTimeout))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func durationOrNone(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}
