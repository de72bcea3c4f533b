package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raniellyferreira/respkv"
)

func startNode(t *testing.T) string {
	t.Helper()

	node, err := respkv.New(respkv.WithAddr("127.0.0.1:0"))
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Close() })

	return node.Addr()
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestUsageWrapsAtHelpWidth(t *testing.T) {
	text := "The address on which the server will listen for incoming client connections"
	wrapped := usage(text)

	lines := strings.Split(wrapped, "\n")
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), helpWidth)
	}
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.ReplaceAll(wrapped, "\n", " "))

	assert.Equal(t, "", usage(""))
	assert.Equal(t, "short text", usage("short \n\t text"))
}

func TestFormatReply(t *testing.T) {
	tests := []struct {
		name  string
		reply interface{}
		want  string
	}{
		{"nil", nil, "(nil)"},
		{"integer", int64(42), "(integer) 42"},
		{"string", "hello world", `"hello world"`},
		{"empty array", []interface{}{}, "(empty array)"},
		{"array", []interface{}{"a", nil, int64(3)}, "1) \"a\"\n2) (nil)\n3) (integer) 3"},
		{"nested", []interface{}{"a", []interface{}{"b", "c"}}, "1) \"a\"\n2) 1) \"b\"\n   2) \"c\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatReply(tt.reply, ""))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "respkv v"+respkv.Version)
}

func TestServeConfigFromEnvironment(t *testing.T) {
	t.Setenv("RESPKV_SHARDS", "8")
	t.Setenv("RESPKV_SCRIPT_TIMEOUT", "250ms")
	t.Setenv("RESPKV_LOG_LEVEL", "debug")
	viper.Reset()

	cmd := newServeCmd()
	initConfig()

	cfg := respkv.DefaultConfig()
	require.NoError(t, processConfig(cmd, &cfg))

	assert.Equal(t, 8, cfg.Shards)
	assert.Equal(t, 250*time.Millisecond, cfg.ScriptTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, respkv.DefaultConfig().Addr, cfg.Addr)
}

func TestServeFlagsOverrideDefaults(t *testing.T) {
	viper.Reset()

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--addr", "127.0.0.1:7000", "--scripting=false"}))

	cfg := respkv.DefaultConfig()
	require.NoError(t, processConfig(cmd, &cfg))

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.False(t, cfg.Scripting)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cfg := respkv.DefaultConfig()
	cfg.LogLevel = "verbose"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := serve(ctx, newServeCmd(), cfg)
	assert.ErrorIs(t, err, respkv.ErrInvalidConfig)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := respkv.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.LogLevel = "error"

	cmd := newServeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cmd, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Contains(t, out.String(), "SERVER")
}

func TestPingCommand(t *testing.T) {
	addr := startNode(t)

	out, err := runCLI(t, "ping", "--host", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "PONG")

	out, err = runCLI(t, "ping", "--host", addr, "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestExecCommand(t *testing.T) {
	addr := startNode(t)

	out, err := runCLI(t, "exec", "--host", addr, "HSET", "user:1", "name", "ada", "email", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "(integer) 2\n", out)

	out, err = runCLI(t, "exec", "--host", addr, "HMGET", "user:1", "name", "missing", "email")
	require.NoError(t, err)
	assert.Equal(t, "1) \"ada\"\n2) (nil)\n3) \"ada@example.com\"\n", out)

	out, err = runCLI(t, "exec", "--host", addr, "GET", "nothing")
	require.NoError(t, err)
	assert.Equal(t, "(nil)\n", out)

	out, err = runCLI(t, "exec", "--host", addr, "GET", "user:1")
	require.NoError(t, err)
	assert.Contains(t, out, "(error) WRONGTYPE")
}

func TestExecCommandUnreachable(t *testing.T) {
	_, err := runCLI(t, "exec", "--host", "127.0.0.1:1", "--timeout", "200ms", "PING")
	assert.Error(t, err)
}

func TestCompareKeyspaces(t *testing.T) {
	ref := KeyspaceInfo{"a": "string", "h": "hash", "s": "set", "gone": "string"}
	sut := KeyspaceInfo{"a": "string", "h": "set", "s": "set", "new": "hash"}

	var out bytes.Buffer
	n := compareKeyspaces(&out, ref, sut)

	assert.Equal(t, 3, n)
	assert.Contains(t, out.String(), "Missing in SYSTEM (1):\n  gone")
	assert.Contains(t, out.String(), "Missing in REFERENCE (1):\n  new")
	assert.Contains(t, out.String(), "h (REF=hash, SUT=set)")

	out.Reset()
	assert.Equal(t, 0, compareKeyspaces(&out, ref, ref))
	assert.Contains(t, out.String(), "SUCCESS: 4 keys match")
}

func TestDiffCommand(t *testing.T) {
	refAddr, sutAddr := startNode(t), startNode(t)

	for _, addr := range []string{refAddr, sutAddr} {
		_, err := runCLI(t, "exec", "--host", addr, "HSET", "user:1", "name", "ada")
		require.NoError(t, err)
		_, err = runCLI(t, "exec", "--host", addr, "SADD", "tags", "go")
		require.NoError(t, err)
	}

	out, err := runCLI(t, "diff", "--ref", refAddr, "--sut", sutAddr)
	require.NoError(t, err)
	assert.Contains(t, out, "SUCCESS: 2 keys match")

	_, err = runCLI(t, "exec", "--host", refAddr, "SET", "only:ref", "x")
	require.NoError(t, err)

	out, err = runCLI(t, "diff", "--ref", refAddr, "--sut", sutAddr)
	assert.Error(t, err)
	assert.Contains(t, out, "only:ref")

	out, err = runCLI(t, "diff", "--ref", refAddr, "--sut", sutAddr, "--match", "user:*")
	require.NoError(t, err)
	assert.Contains(t, out, "SUCCESS: 1 keys match")
}
