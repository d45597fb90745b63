package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		// An interrupted run (Ctrl-C during --wait or a long pipeline)
		// exits quietly; the cause was the user's own signal.
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "mediasift: %v\n", err)
		os.Exit(1)
	}
}
