package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tonearm/internal/services"
)

// Exit codes: 1 for run failures, 2 for configuration errors, 130 when
// interrupted.
func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(130)
	}
	fmt.Fprintln(os.Stderr, err)
	if services.IsFatal(err) {
		os.Exit(2)
	}
	os.Exit(1)
}
