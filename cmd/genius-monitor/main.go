// Genius-monitor watches the radio traffic of a Genius smoke detector gateway.
//
// It connects to the gateway's event socket, keeps the connection alive
// across gateway restarts and network loss, and shows every radio frame the
// gateway forwards, classified against the Genius packet table.
//
// Usage:
//
//	genius-monitor [command] [flags]
//
// Running without arguments opens the interactive monitor.
// See 'genius-monitor --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmbacher/genius-gateway/internal/config"
	"github.com/hmbacher/genius-gateway/internal/logging"
	"github.com/hmbacher/genius-gateway/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath  string
	gatewayURL  string
	encoding    string
	logLevel    string
	metricsAddr string
	tablePath   string
)

var rootCmd = &cobra.Command{
	Use:   "genius-monitor",
	Short: "Genius Gateway radio monitor",
	Long: `Monitor the radio traffic of a Genius smoke detector gateway.

genius-monitor connects to the gateway's event socket, subscribes to the
packet and alarm events and shows every received radio frame classified
against the Genius packet table.

If no command is specified, the interactive monitor will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Precedence: --log-level, then $GENIUS_LOG_LEVEL, then the config file.
		level := logLevel
		if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
			if cfg, err := loadFile(); err == nil {
				level = cfg.Logging.Level
			}
		}
		return logging.Initialize(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: user config dir)")
	pf.StringVar(&gatewayURL, "url", "", "Gateway event socket URL (overrides config)")
	pf.StringVar(&encoding, "encoding", "", "Wire encoding: binary (msgpack) or text (json)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $"+logging.LogLevelEnvVar+")")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
	pf.StringVar(&tablePath, "table", "", "Packet table YAML file (default: built-in Genius table)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("genius-monitor %s (commit: %s)\n", info.Version, info.Commit)
		fmt.Printf("  go:       %s\n", info.GoVersion)
		fmt.Printf("  platform: %s\n", info.Platform)
		if info.BuiltAt != "" {
			fmt.Printf("  built:    %s\n", info.BuiltAt)
		}
	},
}

// loadFile reads the config file without applying flag overrides.
func loadFile() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}
