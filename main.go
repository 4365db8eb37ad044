package main

import (
	"os"

	"github.com/nitdede/AIPoweredClaimUnderwriter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
