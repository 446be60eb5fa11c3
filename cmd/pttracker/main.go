package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Kuma3D/PTTracker/internal/config"
	"github.com/Kuma3D/PTTracker/internal/db"
	"github.com/Kuma3D/PTTracker/internal/llm"
	"github.com/Kuma3D/PTTracker/internal/mcp"
	"github.com/Kuma3D/PTTracker/internal/session"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"parse": true, "ingest": true, "header": true, "prompt": true,
	"state": true, "settings": true, "sessions": true,
	"export": true, "replay": true, "web": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___  _____  _____  ___    _     ___  _  __ ___  ___
  | _ \|_   _||_   _|| _ \  /_\   / __|| |/ /| __|| _ \
  |  _/  | |    | |  |   / / _ \ | (__ | ' < | _| |   /
  |_|    |_|    |_|  |_|_\/_/ \_\ \___||_|\_\|___||_|_\

  Story state tracker for AI chat

  Usage: pttracker <command> [options]
         pttracker --help

  MCP server mode requires piped input.`)
}

// newLogger builds the process logger. Output goes to stderr: stdout belongs
// to CLI JSON output and the MCP stdio transport.
func newLogger() (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	if os.Getenv("PTTRACKER_DEBUG") != "" {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return logCfg.Build()
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".pttracker")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	log, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gen := llm.NewClient(cfg.LLMBaseURL, cfg.LLMModel, time.Duration(cfg.LLMTimeoutSecs)*time.Second)
	mgr := session.NewManager(database, gen, log)
	defer mgr.Close()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(mgr, cfg, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'pttracker --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(mgr, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
