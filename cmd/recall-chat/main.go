// Command recall-chat is an interactive terminal client: type a question,
// get a grounded answer. Slash commands inspect and reset the session.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	eng, cleanup, err := engine.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Recall chat. Type a question, or /stats, /history, /clear, /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := runCommand(ctx, eng, line); done {
				return
			}
			continue
		}

		answer, err := eng.Chat(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Input error: %v", err)
	}
}

// runCommand handles slash commands. It reports true when the loop
// should exit.
func runCommand(ctx context.Context, eng *engine.Engine, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true

	case "/stats":
		stats := eng.Stats()
		fmt.Printf("messages: %d  tokens: %d/%d (%.1f%%)  summary: %v  degraded: %v\n",
			stats.MessageCount, stats.TotalTokens, stats.MaxTokens,
			stats.UsagePercentage, stats.HasSummary, stats.Degraded)
		if count, err := eng.IndexedPassages(ctx); err == nil {
			fmt.Printf("indexed passages: %d\n", count)
		}

	case "/history":
		for _, m := range eng.History(0) {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Role, m.Content)
		}

	case "/clear":
		eng.Clear()
		fmt.Println("conversation cleared")

	default:
		fmt.Printf("unknown command %s\n", line)
	}
	return false
}
