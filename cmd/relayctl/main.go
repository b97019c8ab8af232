package main

import (
	"os"

	"github.com/samops/filerelay/cmd/relayctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
