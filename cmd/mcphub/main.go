package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcphub-go/internal/config"
	"mcphub-go/internal/logs"
	"mcphub-go/internal/upstream"
	"mcphub-go/internal/vault"
)

var (
	configFile string
	logLevel   string
	logToFile  bool
	logDir     string
	timeout    time.Duration

	version = "v0.1.0" // This will be injected by -ldflags during build
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "mcphub",
		Short:   "MCP Hub - connects to configured MCP servers and aggregates their tools",
		Version: version,
		RunE:    runConnect,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: ~/.mcphub/mcphub.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", false, "Enable logging to file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Custom log directory path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-server connection timeout (0 = use config value)")

	rootCmd.AddCommand(newKeysCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runConnect(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Logging.Level = logLevel
	cfg.Logging.EnableFile = logToFile
	if logDir != "" {
		cfg.Logging.LogDir = logDir
	}

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting mcphub",
		zap.String("version", version),
		zap.Int("servers", len(cfg.Servers)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The timeout bounds individual transport dials, not the batch: an
	// interactive OAuth wait may legitimately take minutes.
	connectTimeout := cfg.ConnectTimeout
	if timeout > 0 {
		connectTimeout = timeout
	}

	store := openStore(logger)
	connector := upstream.NewConnector(store, connectTimeout, logger.Named("upstream"))
	orchestrator := upstream.NewOrchestrator(upstream.NewStaticRegistry(cfg.Servers), connector, logger.Named("upstream"))

	result, err := orchestrator.ConnectAll(ctx)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	printResult(result)
	return nil
}

// openStore prefers the OS keyring and falls back to an in-memory store when
// no keyring is available (headless environments). API keys stored in the
// fallback do not survive the process.
func openStore(logger *zap.Logger) vault.Store {
	kr := vault.NewKeyring()
	if kr.Available() {
		return kr
	}
	logger.Warn("OS keyring unavailable, credentials will not persist")
	return vault.NewMemory()
}

func printResult(result *upstream.Result) {
	names := make([]string, 0, len(result.Tools))
	for name := range result.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Connected tools (%d):\n", len(names))
	for _, name := range names {
		tool := result.Tools[name]
		fmt.Printf("  %-40s %s\n", name, tool.ServerID)
	}

	if len(result.Failed) > 0 {
		fmt.Printf("\nFailed servers (%d):\n", len(result.Failed))
		for _, f := range result.Failed {
			fmt.Printf("  %-20s %v\n", f.ServerID, f.Err)
		}
	}
}
