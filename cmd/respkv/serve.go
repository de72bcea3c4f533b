package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raniellyferreira/respkv"
)

func newServeCmd() *cobra.Command {
	cfg := respkv.DefaultConfig()

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the respkv server",
		Long:  `Start the respkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is RESPKV_<flag> (e.g. RESPKV_READ_TIMEOUT=30s)`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return processConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, cfg)
		},
	}

	defaults := respkv.DefaultConfig()

	key := "addr"
	serveCmd.Flags().String(key, defaults.Addr, usage("The address on which the server will listen (e.g. :6379, 127.0.0.1:7000)"))

	key = "shards"
	serveCmd.Flags().Int(key, defaults.Shards, usage("Number of storage shards. Rounded up to a power of two"))

	key = "read-timeout"
	serveCmd.Flags().Duration(key, defaults.ReadTimeout, usage("Close client connections idle for longer than this (0 disables)"))

	key = "script-timeout"
	serveCmd.Flags().Duration(key, defaults.ScriptTimeout, usage("Abort Lua scripts running for longer than this (0 disables)"))

	key = "scripting"
	serveCmd.Flags().Bool(key, defaults.Scripting, usage("Enable EVAL, EVALSHA and SCRIPT"))

	key = "log-level"
	serveCmd.Flags().String(key, defaults.LogLevel, usage("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	return serveCmd
}

// processConfig reads the configuration from the command line flags and
// environment variables
func processConfig(cmd *cobra.Command, cfg *respkv.Config) error {
	// bind the flags to viper
	if err := bindFlags(cmd); err != nil {
		return err
	}

	cfg.Addr = viper.GetString("addr")
	cfg.Shards = viper.GetInt("shards")
	cfg.ReadTimeout = viper.GetDuration("read-timeout")
	cfg.ScriptTimeout = viper.GetDuration("script-timeout")
	cfg.Scripting = viper.GetBool("scripting")
	cfg.LogLevel = viper.GetString("log-level")

	return nil
}

// serve runs a node until ctx is cancelled
func serve(ctx context.Context, cmd *cobra.Command, cfg respkv.Config) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	node, err := respkv.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

	if err := node.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return node.Close()
}
