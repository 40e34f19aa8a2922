package main

import (
	"os"

	"github.com/toolgate/toolgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
