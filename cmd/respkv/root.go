package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raniellyferreira/respkv"
)

// envPrefix is prepended to every flag when read from the environment,
// e.g. RESPKV_READ_TIMEOUT=30s
const envPrefix = "respkv"

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "respkv",
		Short: "in-memory key-value server speaking RESP",
		Long: fmt.Sprintf(`respkv (v%s)

An in-memory key-value server with string, hash and set namespaces that
speaks the Redis protocol, so any Redis client can talk to it.`, respkv.Version),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			initConfig()
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of respkv",
		Run: func(cmd *cobra.Command, _ []string) {
			info := respkv.VersionInfo()
			line := "respkv v" + info["version"]
			if commit, ok := info["commit"]; ok {
				line += " (" + commit + ")"
			}
			line += " " + info["go"]
			fmt.Fprintln(cmd.OutOrStdout(), line)
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// initConfig reads .env files and environment variables
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// bindFlags binds a command's flags to viper
func bindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
