package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupts already print nothing useful beyond the exit code.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "earmark:", err)
		}
		os.Exit(1)
	}
}
