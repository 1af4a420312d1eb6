// Package main provides the CLI entry point for the news log analyzer.
// Run without a subcommand it prints the news-site reports:
// 1. top3articles - the three most viewed articles
// 2. topauthors - authors ranked by total article views
// 3. erroneousday - days on which more than 1% of requests failed
// The load and query subcommands import CSV fixtures and run ad-hoc SQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"news-log-analyzer/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		stop()
		os.Exit(1)
	}
}
