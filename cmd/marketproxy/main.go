package main

import (
	"fmt"
	"os"

	"github.com/samvad-hq/market-proxy/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marketproxy: %v\n", err)
		os.Exit(1)
	}
}
