package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"stillmotion/internal/assemble"
)

// Exit codes distinguish why a run failed so scripts can react without
// parsing log output.
const (
	exitOK     = 0
	exitErr    = 1
	exitUsage  = 2
	exitInput  = 3
	exitEncode = 4
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, assemble.ErrUsage):
		return exitUsage
	case errors.Is(err, assemble.ErrInput):
		return exitInput
	case errors.Is(err, assemble.ErrEncode):
		return exitEncode
	default:
		return exitErr
	}
}
