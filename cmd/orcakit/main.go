package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orcakit/core/internal/orchestrator"
)

// ANSI color codes for terminal output
const (
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

func main() {
	cfg := orchestrator.DefaultConfig()

	addr := flag.String("addr", cfg.Addr, "HTTP listen address for the Submission API")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	agentBinary := flag.String("agent-binary", "", "executable to launch for each spawned agent")
	optimizeInterval := flag.Duration("optimize-interval", cfg.OptimizeInterval, "interval between oracle optimization ticks")
	timeoutInterval := flag.Duration("timeout-interval", cfg.TimeoutInterval, "interval between mission timeout sweeps")
	dispatchInterval := flag.Duration("dispatch-interval", cfg.DispatchInterval, "interval between queue dispatch sweeps")
	feedbackInterval := flag.Duration("feedback-interval", cfg.FeedbackInterval, "interval between completed-mission insight harvesting sweeps")
	flag.Parse()

	if *agentBinary == "" {
		fmt.Fprintln(os.Stderr, "Failed to start: -agent-binary is required")
		os.Exit(1)
	}

	cfg.Addr = *addr
	cfg.DBPath = *dbPath
	cfg.AgentBinary = *agentBinary
	cfg.OptimizeInterval = *optimizeInterval
	cfg.TimeoutInterval = *timeoutInterval
	cfg.DispatchInterval = *dispatchInterval
	cfg.FeedbackInterval = *feedbackInterval

	printBanner()

	orch, err := orchestrator.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orchestrator: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(colorGreen)
	fmt.Println("  Storage opened and pending work reloaded")
	fmt.Print(colorReset)

	if err := orch.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start orchestrator: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Submission API ready at http://localhost%s\n", cfg.Addr)
	fmt.Println()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	fmt.Println()
	fmt.Println("Shutting down (signal received)...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := orch.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}

	fmt.Println("Goodbye!")
}

func printBanner() {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║                    orcakit                           ║")
	fmt.Println("  ║         Multi-Agent Orchestration Core               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()
}
