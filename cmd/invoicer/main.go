package main

import (
	"context"
	"fmt"
	"os"

	"invoicer/internal/cli"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
