package cmd

import (
	"fmt"
	"os"

	"github.com/enginecore/enginecore/cmd/flags"
	"github.com/spf13/cobra"
)

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

var (
	configFileEnv = GetEnv("ENGINE_CONFIG_FILE", "./engine.json")
)

var RootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Engine core runtime",
	Long: `Engine core runtime: boots the module graph, binds the configured
backends to their services and runs the main payload.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", configFileEnv, "Configuration file path [env: ENGINE_CONFIG_FILE]")
	RootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", GetEnv("ENGINE_LOG_LEVEL", ""), "Log level override: debug, info, warn, error [env: ENGINE_LOG_LEVEL]")
	RootCmd.PersistentFlags().StringVarP(&flags.Listen, "listen", "l", GetEnv("ENGINE_LISTEN", ""), "Inspection API listen address override [env: ENGINE_LISTEN]")
}
