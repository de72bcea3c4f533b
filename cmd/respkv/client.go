package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultTimeout bounds a single client invocation
const defaultTimeout = 5 * time.Second

func setupClientFlags(cmd *cobra.Command) {
	key := "host"
	cmd.Flags().String(key, "localhost:6379", usage("The address of the respkv server"))

	key = "timeout"
	cmd.Flags().Duration(key, defaultTimeout, usage("The timeout of the client"))
}

// newClient creates a go-redis client from the bound flags
func newClient() *redis.Client {
	timeout := viper.GetDuration("timeout")
	return redis.NewClient(&redis.Options{
		Addr:            viper.GetString("host"),
		Protocol:        2,
		DisableIdentity: true,
		DialTimeout:     timeout,
		ReadTimeout:     timeout,
		WriteTimeout:    timeout,
		MaxRetries:      -1,
	})
}

func newPingCmd() *cobra.Command {
	pingCmd := &cobra.Command{
		Use:     "ping [message]",
		Short:   "Check that a respkv server answers",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindFlags(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
			defer cancel()

			start := time.Now()
			var reply string
			var err error
			if len(args) == 1 {
				reply, err = client.Echo(ctx, args[0]).Result()
			} else {
				reply, err = client.Ping(ctx).Result()
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", reply, time.Since(start).Round(time.Microsecond))
			return nil
		},
	}
	setupClientFlags(pingCmd)
	return pingCmd
}

func newExecCmd() *cobra.Command {
	execCmd := &cobra.Command{
		Use:     "exec <command> [args...]",
		Short:   "Send one command and print the reply",
		Example: "  respkv exec HMGET user:1 name email",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindFlags(cmd) },
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			defer func() { _ = client.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
			defer cancel()

			cmdArgs := make([]interface{}, len(args))
			for i, arg := range args {
				cmdArgs[i] = arg
			}

			reply, err := client.Do(ctx, cmdArgs...).Result()
			switch {
			case errors.Is(err, redis.Nil):
				fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
			case err != nil:
				var redisErr redis.Error
				if errors.As(err, &redisErr) {
					fmt.Fprintln(cmd.OutOrStdout(), "(error) "+redisErr.Error())
					return nil
				}
				return err
			default:
				fmt.Fprintln(cmd.OutOrStdout(), formatReply(reply, ""))
			}
			return nil
		},
	}
	setupClientFlags(execCmd)
	return execCmd
}

// formatReply renders a reply the way redis-cli does
func formatReply(reply interface{}, indent string) string {
	switch v := reply.(type) {
	case nil:
		return "(nil)"
	case int64:
		return "(integer) " + strconv.FormatInt(v, 10)
	case string:
		return strconv.Quote(v)
	case []interface{}:
		if len(v) == 0 {
			return "(empty array)"
		}
		var sb strings.Builder
		width := len(strconv.Itoa(len(v)))
		for i, item := range v {
			if i > 0 {
				sb.WriteString("\n" + indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			sb.WriteString(prefix)
			sb.WriteString(formatReply(item, indent+strings.Repeat(" ", len(prefix))))
		}
		return sb.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
