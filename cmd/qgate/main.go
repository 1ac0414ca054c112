package main

import (
	"os"

	"github.com/rhai-examples/qgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
