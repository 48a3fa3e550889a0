package main

import (
	"os"

	"github.com/rootword-dev/rootword/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
