// Package main is the entry point for the stagehand command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, args, stdout, stderr); err != nil {
		var gitErr *gitFailure
		if errors.As(err, &gitErr) {
			// git already explained itself
			if gitErr.output != "" {
				fmt.Fprint(stderr, gitErr.output)
				if gitErr.output[len(gitErr.output)-1] != '\n' {
					fmt.Fprintln(stderr)
				}
			} else {
				fmt.Fprintf(stderr, "Error: %s failed\n", gitErr.op)
			}
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
