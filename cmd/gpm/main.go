package main

import (
	"os"

	"github.com/Galjente/gpm-nodejs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
