// Package env resolves command settings from flags with environment fallbacks.
package env

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentuity/go-filecache/logger"
)

// EnvPrefix prefixes every environment variable read by the filecache binaries.
const EnvPrefix = "FILECACHE_"

// FlagOrEnv returns the flag value when set, otherwise the environment variable,
// otherwise defaultValue.
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// LogLevel reads the --log-level flag, falling back to FILECACHE_LOG_LEVEL.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, "info"), logger.LevelInfo)
}

func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}
