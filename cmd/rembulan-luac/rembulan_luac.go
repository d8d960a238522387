// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"zombiezen.com/go/bass/sigterm"

	"github.com/luavixen/rembulan-sub001/internal/luac"
)

func main() {
	rootCommand := luac.New()
	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rembulan-luac:", err)
		os.Exit(1)
	}
}
