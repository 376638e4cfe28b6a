package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "CRANE"

// Flag names. Each is also readable from CRANE_<NAME> and the config file.
const (
	flagConfig         = "config"
	flagWorkerPath     = "worker-path"
	flagDev            = "dev"
	flagProjectDir     = "project-dir"
	flagDistDir        = "dist-dir"
	flagResourcesDir   = "resources-dir"
	flagCheckpointsDir = "checkpoints-dir"
	flagLogLevel       = "log-level"
	flagMatch          = "match"
	flagMetricsAddr    = "metrics-addr"
)

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	v := viper.New()

	// Populated by PersistentPreRunE once flags and config are bound.
	a := &app{in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "cranectl",
		Short:         "Drive a local chat-service inference worker",
		Long:          "cranectl starts the chat-service worker, loads models from a checkpoints directory and chats with them, or exposes the worker as MCP tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()

			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			if path := v.GetString(flagConfig); path != "" {
				v.SetConfigFile(path)

				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", path, err)
				}
			}

			return a.wire(v)
		},
	}

	pflags := rootCmd.PersistentFlags()
	pflags.String(flagConfig, "", "Path to a config file (yaml, toml or json)")
	pflags.String(flagWorkerPath, "", "Explicit path to the chat-service binary")
	pflags.Bool(flagDev, false, "Development mode: use dist/bin or cargo run")
	pflags.String(flagProjectDir, "crane-studynest", "Worker crate directory used by cargo run")
	pflags.String(flagDistDir, "dist", "Development build output directory")
	pflags.String(flagResourcesDir, "", "Packaged resources directory holding bin/chat-service")
	pflags.String(flagCheckpointsDir, "", "Model checkpoints directory (default <project-dir>/checkpoints)")
	pflags.String(flagLogLevel, "warn", "Log level: debug, info, warn or error")
	pflags.String(flagMatch, "fifo", "Reply matching policy: fifo or id")
	pflags.String(flagMetricsAddr, "", "Serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(
		newModelsCmd(a),
		newListCmd(a),
		newChatCmd(a),
		newMCPCmd(a),
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	return rootCmd
}
