package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fieldops/toolgate/internal/audit"
	"github.com/fieldops/toolgate/internal/builtin"
	"github.com/fieldops/toolgate/internal/config"
	"github.com/fieldops/toolgate/internal/lock"
	"github.com/fieldops/toolgate/internal/log"
	"github.com/fieldops/toolgate/internal/tool"
	"github.com/fieldops/toolgate/internal/tui/watch"
	"github.com/fieldops/toolgate/internal/webhook"
)

const version = "0.2.0"

// lockedFiles are the config-scope files covered by the integrity manifest.
var lockedFiles = []string{"config.yaml", "tokens.yaml"}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	// --- NOUNS ---
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))

	// --- ROOT ALIASES ---
	case "start", "serve":
		os.Exit(runStart(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("toolgate version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`toolgate - Signed webhook gateway for agent tool execution

Usage:
  toolgate <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    System configuration and integrity

System Commands:
  system start      Start the gateway service in foreground
  system watch      Live view of recent tool invocations

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate syntax, policy, and integrity

General:
  version           Show version information
  help              Show this help message

Use 'toolgate <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: toolgate system <action>")
	fmt.Fprintln(w, "Actions: start, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: toolgate config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check")
}

func printSystemStartHelp() {
	fmt.Println("Usage: toolgate system start [--config PATH]")
	fmt.Println("Start the gateway service in the foreground.")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: toolgate system watch [--config PATH]")
	fmt.Println("Show a live view of recent tool invocations.")
}

func printConfigLockHelp() {
	fmt.Println("Usage: toolgate config lock [--config PATH] [-v|--verbose]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: toolgate config check [--config PATH] [--json]")
	fmt.Println("Validate configuration syntax, policy, and integrity.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("toolgate starting", "version", version, "config", *configPath)

	configDir := resolveConfigDir(*configPath)
	integrity, err := config.VerifyIntegrity(configDir, lockedFiles)
	if err != nil {
		logger.Error("integrity verification failed", "error", err)
		return 1
	}
	for _, w := range integrity.Warnings {
		logger.Warn(w)
	}
	if !integrity.Passed {
		for _, e := range integrity.Errors {
			logger.Error(e)
		}
		logger.Error("configuration integrity check failed; run 'toolgate config lock' after reviewing changes")
		return 1
	}

	tokens, err := config.LoadTokens(filepath.Join(configDir, "tokens.yaml"))
	if err != nil {
		logger.Error("failed to load tokens", "error", err)
		return 1
	}

	webhookConfig, err := webhook.FromGlobalConfig(cfg, tokens)
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}

	pidLock, err := lock.Acquire(pidLockPath(cfg))
	if err != nil {
		logger.Error("failed to acquire instance lock (another instance may be running)", "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired instance lock", "path", pidLock.Path())

	registry := tool.NewRegistry()
	if err := builtin.Register(registry); err != nil {
		logger.Error("failed to register builtin tools", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := audit.Open(ctx, cfg.Audit.Path)
	if err != nil {
		logger.Error("failed to open invocation log", "path", cfg.Audit.Path, "error", err)
		return 1
	}
	defer store.Close()

	if pruned, err := store.Prune(ctx, cfg.Audit.Retention.Std()); err != nil {
		logger.Warn("invocation log prune failed", "error", err)
	} else if pruned > 0 {
		logger.Info("pruned old invocation entries", "count", pruned)
	}

	server, err := webhook.NewServer(webhookConfig, registry, store, log.WithComponent("webhook"))
	if err != nil {
		logger.Error("failed to configure server", "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	logger.Info("toolgate running (press Ctrl+C to stop)", "listen", webhookConfig.Listen, "tools", len(registry.List()))

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("toolgate stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	store, err := audit.Open(context.Background(), cfg.Audit.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open invocation log: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := watch.Run(store); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}

func runConfigLock(args []string) int {
	var configPath string
	var verbose, verboseShort bool

	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to configuration")
	fs.BoolVar(&verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&verboseShort, "v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	isVerbose := verbose || verboseShort

	configDir := resolveConfigDir(configPath)
	manifest, err := config.Lock(configDir, lockedFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config in %s: %v\n", configDir, err)
		return 1
	}

	if isVerbose {
		fmt.Printf("Processing directory: %s\n", configDir)
		for _, filename := range lockedFiles {
			hash, ok := manifest.Hashes[filename]
			if ok {
				fmt.Printf("  HASH %s: %s\n", filename, hash)
				continue
			}
			fmt.Printf("  SKIP %s: not found (optional)\n", filename)
		}
	}

	fmt.Printf("Successfully locked configuration in %s (%d files)\n", configDir, len(manifest.Hashes))
	return 0
}

func runConfigCheck(args []string) int {
	var configPath string
	var jsonOut bool

	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config.yaml", "Path to configuration")
	fs.BoolVar(&jsonOut, "json", false, "Output report in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	report := checkReport{Valid: true}

	cfg, err := config.Load(configPath)
	if err != nil {
		report.Valid = false
		report.Errors = append(report.Errors, err.Error())
	}

	configDir := resolveConfigDir(configPath)
	if report.Valid {
		integrity, err := config.VerifyIntegrity(configDir, lockedFiles)
		if err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, err.Error())
		} else {
			report.Warnings = append(report.Warnings, integrity.Warnings...)
			if !integrity.Passed {
				report.Valid = false
				report.Errors = append(report.Errors, integrity.Errors...)
			}
		}
	}

	if report.Valid && cfg != nil {
		tokens, err := config.LoadTokens(filepath.Join(configDir, "tokens.yaml"))
		if err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, err.Error())
		} else if _, err := webhook.FromGlobalConfig(cfg, tokens); err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, err.Error())
		} else {
			report.Tools = len(cfg.Webhooks.Tools)
		}
	}

	if jsonOut {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
	} else {
		printCheckHuman(report)
	}

	if !report.Valid {
		return 1
	}
	return 0
}

type checkReport struct {
	Valid    bool     `json:"valid"`
	Tools    int      `json:"tools"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func printCheckHuman(report checkReport) {
	if report.Valid {
		fmt.Printf("Configuration OK (%d tools configured)\n", report.Tools)
	} else {
		fmt.Println("Configuration INVALID")
	}
	for _, e := range report.Errors {
		fmt.Printf("  ERROR %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  WARN  %s\n", w)
	}
}

// pidLockPath derives the instance lock location from the invocation
// database path so both live in the same state directory.
func pidLockPath(cfg *config.Config) string {
	dbPath := cfg.Audit.Path
	ext := filepath.Ext(dbPath)
	return dbPath[:len(dbPath)-len(ext)] + ".pid"
}

// resolveConfigDir returns the directory holding the scope files for a
// config path that may be either a file or a directory.
func resolveConfigDir(configPath string) string {
	if stat, err := os.Stat(configPath); err == nil && stat.IsDir() {
		return configPath
	}
	return filepath.Dir(configPath)
}
