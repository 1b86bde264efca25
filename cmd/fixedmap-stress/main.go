package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/llxisdsh/fixedmap"
	"github.com/sugawarayuuta/sonnet"
)

func main() {
	fixedmap.SetDefaultJSONMarshal(sonnet.Marshal, sonnet.Unmarshal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
