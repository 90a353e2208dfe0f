package main

import (
	"os"

	"github.com/quantlab/hindsight/cmd/hindsight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
